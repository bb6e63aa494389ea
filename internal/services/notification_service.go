package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"homecare_manager/internal/apperrors"
	"homecare_manager/internal/logger"
	"homecare_manager/internal/models"
	"homecare_manager/internal/repository"
	"homecare_manager/pkg/whatsapp"

	"github.com/shopspring/decimal"
)

// MessageSender delivers a text message to a normalized phone number.
type MessageSender interface {
	SendTextMessage(ctx context.Context, phone, message string) error
}

type Notification struct {
	ServiceID uint                `json:"service_id"`
	Phone     string              `json:"phone,omitempty"`
	Message   string              `json:"message"`
	Link      string              `json:"link,omitempty"`
	Sent      bool                `json:"sent"`
	Warnings  []apperrors.Warning `json:"warnings,omitempty"`
}

type NotificationService interface {
	AssignmentMessage(service *models.Service) string
	NotifyAssignment(ctx context.Context, serviceID uint) (*Notification, error)
}

type NotificationOptions struct {
	BusinessName   string
	CurrencySymbol string
	CountryCode    string
}

type notificationService struct {
	serviceRepo repository.ServiceRepository
	workerRepo  repository.WorkerRepository
	sender      MessageSender
	opts        NotificationOptions
	log         logger.Logger
}

// NewNotificationService builds the assignment notifier. sender may be nil, in
// which case only the click-to-chat link is produced.
func NewNotificationService(serviceRepo repository.ServiceRepository, workerRepo repository.WorkerRepository, sender MessageSender, opts NotificationOptions, log logger.Logger) NotificationService {
	if opts.BusinessName == "" {
		opts.BusinessName = "Home Care"
	}
	return &notificationService{
		serviceRepo: serviceRepo,
		workerRepo:  workerRepo,
		sender:      sender,
		opts:        opts,
		log:         log,
	}
}

// formatAmount renders d with thousands separators and no decimals when d is whole.
func formatAmount(d decimal.Decimal) string {
	s := d.StringFixed(2)
	if d.Equal(d.Truncate(0)) {
		s = d.StringFixed(0)
	}
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + frac
	if neg {
		out = "-" + out
	}
	return out
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func (s *notificationService) AssignmentMessage(service *models.Service) string {
	label := service.ServiceTypeName
	if service.ServiceTypeIcon != "" {
		label = service.ServiceTypeIcon + " " + label
	}

	var b strings.Builder
	b.WriteString("Hi " + service.WorkerName + " 👋\n\n")
	b.WriteString("🏠 *" + s.opts.BusinessName + "* has a new service for you:\n\n")
	b.WriteString("📌 *Service:* " + label + "\n")
	b.WriteString("👤 *Client:* " + service.ClientName + "\n")
	b.WriteString("📍 *Address:* " + orDefault(service.ClientAddress, "To be confirmed") + "\n")
	b.WriteString("📞 *Client phone:* " + orDefault(service.ClientPhone, "-") + "\n")
	b.WriteString("💰 *Total price:* " + s.opts.CurrencySymbol + formatAmount(service.TotalPrice) + "\n")
	b.WriteString("📅 *Duration:* " + service.ScheduleSummary() + "\n")
	b.WriteString("⏰ *Hours/visit:* " + strconv.FormatFloat(service.HoursPerVisit, 'f', -1, 64) + "h\n")
	b.WriteString("🔢 *Total visits:* " + strconv.Itoa(service.TotalVisits) + "\n")
	if notes := strings.TrimSpace(service.Notes); notes != "" {
		b.WriteString("📝 *Notes:* " + notes + "\n")
	}
	b.WriteString("\nCan you take it? Reply *YES* or *NO*.\n\nThank you! 🙏")
	return b.String()
}

// NotifyAssignment builds the assignment message for the service's worker and
// sends it once when a sender is configured. A missing phone or a failed
// delivery is reported as a warning, not an error.
func (s *notificationService) NotifyAssignment(ctx context.Context, serviceID uint) (*Notification, error) {
	service, err := s.serviceRepo.GetByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	n := &Notification{ServiceID: service.ID, Message: s.AssignmentMessage(service)}

	var rawPhone string
	worker, err := s.workerRepo.GetByID(ctx, service.WorkerID)
	switch {
	case err == nil:
		rawPhone = worker.Phone
	case errors.Is(err, apperrors.ErrNotFound):
	default:
		return nil, err
	}

	n.Phone = whatsapp.NormalizePhone(rawPhone, s.opts.CountryCode)
	if n.Phone == "" {
		n.Warnings = append(n.Warnings, apperrors.Warning{
			Code:    apperrors.WarnWorkerMissingPhone,
			Message: "worker " + service.WorkerName + " has no phone number",
		})
		s.log.Warn("assignment not sent: worker has no phone", map[string]interface{}{
			"service_id": service.ID,
			"worker_id":  service.WorkerID,
		})
		return n, nil
	}
	n.Link = whatsapp.ChatLink(n.Phone, n.Message)

	if s.sender == nil {
		return n, nil
	}
	if err := s.sender.SendTextMessage(ctx, n.Phone, n.Message); err != nil {
		n.Warnings = append(n.Warnings, apperrors.Warning{
			Code:    apperrors.WarnDeliveryFailed,
			Message: err.Error(),
		})
		s.log.WithError(err).Warn("assignment delivery failed", map[string]interface{}{"service_id": service.ID})
		return n, nil
	}
	n.Sent = true
	s.log.Info("assignment sent", map[string]interface{}{"service_id": service.ID, "worker_id": service.WorkerID})
	return n, nil
}
