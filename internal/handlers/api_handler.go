package handlers

import (
	"net/http"

	"homecare_manager/internal/logger"
	"homecare_manager/internal/models"
	"homecare_manager/internal/services"

	"github.com/gin-gonic/gin"
)

type APIHandler struct {
	authService    services.AuthService
	userService    services.UserService
	workerService  services.WorkerService
	clientService  services.ClientService
	catalogService services.CatalogService
	ledgerService  services.LedgerService
	financeService services.FinanceService
	exportService  services.ExportService
	log            logger.Logger
}

func NewAPIHandler(
	authService services.AuthService,
	userService services.UserService,
	workerService services.WorkerService,
	clientService services.ClientService,
	catalogService services.CatalogService,
	ledgerService services.LedgerService,
	financeService services.FinanceService,
	exportService services.ExportService,
	log logger.Logger,
) *APIHandler {
	return &APIHandler{
		authService:    authService,
		userService:    userService,
		workerService:  workerService,
		clientService:  clientService,
		catalogService: catalogService,
		ledgerService:  ledgerService,
		financeService: financeService,
		exportService:  exportService,
		log:            log,
	}
}

// Auth and self-service endpoints

func (h *APIHandler) Login(c *gin.Context) {
	var req struct {
		Login    string `json:"login" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *APIHandler) RegisterWorker(c *gin.Context) {
	var req services.RegisterWorkerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	worker, user, err := h.workerService.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"worker": worker, "user": user})
}

func (h *APIHandler) Me(c *gin.Context) {
	p := principalFrom(c)
	resp := gin.H{"user": p}
	if p.WorkerID != nil {
		worker, err := h.workerService.Get(c.Request.Context(), *p.WorkerID)
		if err != nil {
			respondError(c, h.log, err, nil)
			return
		}
		resp["worker"] = worker
	}
	c.JSON(http.StatusOK, resp)
}

func (h *APIHandler) ChangePassword(c *gin.Context) {
	var req struct {
		OldPassword string `json:"old_password" binding:"required"`
		NewPassword string `json:"new_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.userService.ChangePassword(c.Request.Context(), principalFrom(c).UserID, req.OldPassword, req.NewPassword); err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *APIHandler) UpdateMyProfile(c *gin.Context) {
	p := principalFrom(c)
	if p.WorkerID == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Account has no worker profile"})
		return
	}
	var profile services.WorkerProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		badRequest(c, err)
		return
	}

	worker, err := h.workerService.UpdateProfile(c.Request.Context(), *p.WorkerID, profile)
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, worker)
}

// Admin management endpoints

func (h *APIHandler) ListAdmins(c *gin.Context) {
	admins, err := h.userService.ListAdmins(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, admins)
}

func (h *APIHandler) PromoteAdmin(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.userService.PromoteToAdmin(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	h.log.Info("admin promoted", map[string]interface{}{"user_id": user.ID, "by": principalFrom(c).UserID})
	c.JSON(http.StatusOK, user)
}

func (h *APIHandler) DemoteAdmin(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	caller := principalFrom(c)
	user, err := h.userService.DemoteAdmin(c.Request.Context(), id, caller.UserID)
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	h.log.Info("admin demoted", map[string]interface{}{"user_id": user.ID, "by": caller.UserID})
	c.JSON(http.StatusOK, user)
}

// Catalog endpoints

func (h *APIHandler) ListCatalog(c *gin.Context) {
	entries, err := h.catalogService.List(c.Request.Context(), c.Query("active") == "true")
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *APIHandler) CreateCatalogEntry(c *gin.Context) {
	var input services.CatalogInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	entry, err := h.catalogService.Create(c.Request.Context(), input)
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *APIHandler) UpdateCatalogEntry(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input services.CatalogInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	entry, err := h.catalogService.Update(c.Request.Context(), id, input)
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *APIHandler) SetCatalogEntryActive(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.catalogService.SetActive(c.Request.Context(), id, *req.Active); err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "active": *req.Active})
}

func (h *APIHandler) DeleteCatalogEntry(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.catalogService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": "deleted"})
}

// Worker administration endpoints

func (h *APIHandler) ListWorkers(c *gin.Context) {
	workers, err := h.workerService.List(c.Request.Context(), c.Query("approval_state"))
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, workers)
}

func (h *APIHandler) WorkerStats(c *gin.Context) {
	counts, err := h.workerService.CountByApprovalState(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (h *APIHandler) GetWorker(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	worker, err := h.workerService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, worker)
}

func (h *APIHandler) SetWorkerApproval(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		State string `json:"state" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	worker, err := h.workerService.SetApprovalState(c.Request.Context(), id, req.State)
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, worker)
}

func (h *APIHandler) UpdateWorker(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var profile services.WorkerProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		badRequest(c, err)
		return
	}

	worker, err := h.workerService.UpdateProfile(c.Request.Context(), id, profile)
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, worker)
}

// Client endpoints

func (h *APIHandler) ListClients(c *gin.Context) {
	clients, err := h.clientService.List(c.Request.Context(), c.Query("search"))
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, clients)
}

func (h *APIHandler) CreateClient(c *gin.Context) {
	var input services.ClientInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	var (
		client *models.Client
		err    error
	)
	if c.Query("upsert") == "true" {
		client, err = h.clientService.Upsert(c.Request.Context(), input)
	} else {
		client, err = h.clientService.Create(c.Request.Context(), input)
	}
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusCreated, client)
}

func (h *APIHandler) GetClient(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	client, err := h.clientService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, client)
}

func (h *APIHandler) UpdateClient(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input services.ClientInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}

	client, err := h.clientService.Update(c.Request.Context(), id, input)
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, client)
}

func (h *APIHandler) DeleteClient(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.clientService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": "deleted"})
}
