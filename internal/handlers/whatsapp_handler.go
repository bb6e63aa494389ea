package handlers

import (
	"net/http"

	"homecare_manager/internal/logger"
	"homecare_manager/internal/services"
	"homecare_manager/pkg/whatsapp"

	"github.com/gin-gonic/gin"
)

type WhatsAppHandler struct {
	notificationService services.NotificationService
	sender              services.MessageSender
	countryCode         string
	log                 logger.Logger
}

// NewWhatsAppHandler serves outbound messaging. sender is nil when no gateway is
// configured; notifications then only carry the click-to-chat link.
func NewWhatsAppHandler(
	notificationService services.NotificationService,
	sender services.MessageSender,
	countryCode string,
	log logger.Logger,
) *WhatsAppHandler {
	return &WhatsAppHandler{
		notificationService: notificationService,
		sender:              sender,
		countryCode:         countryCode,
		log:                 log,
	}
}

type SendMessageRequest struct {
	Phone   string `json:"phone" binding:"required"`
	Message string `json:"message" binding:"required"`
}

func (h *WhatsAppHandler) NotifyAssignment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	notification, err := h.notificationService.NotifyAssignment(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, notification)
}

func (h *WhatsAppHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	phone := whatsapp.NormalizePhone(req.Phone, h.countryCode)
	if phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Phone number has no digits"})
		return
	}
	link := whatsapp.ChatLink(phone, req.Message)
	if h.sender == nil {
		c.JSON(http.StatusOK, gin.H{"status": "link_only", "phone": phone, "link": link})
		return
	}

	if err := h.sender.SendTextMessage(c.Request.Context(), phone, req.Message); err != nil {
		h.log.WithError(err).Warn("manual message failed", map[string]interface{}{"phone": phone})
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to send message", "link": link})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "phone": phone, "link": link})
}
