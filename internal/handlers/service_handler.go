package handlers

import (
	"net/http"

	"homecare_manager/internal/models"
	"homecare_manager/internal/repository"
	"homecare_manager/internal/services"

	"github.com/gin-gonic/gin"
)

const idempotencyHeader = "Idempotency-Key"

func (h *APIHandler) CreateService(c *gin.Context) {
	var req services.CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	req.SubmissionKey = c.GetHeader(idempotencyHeader)

	service, err := h.ledgerService.CreateService(c.Request.Context(), req)
	if err != nil {
		var data interface{}
		if service != nil {
			data = service
		}
		respondError(c, h.log, err, data)
		return
	}
	c.JSON(http.StatusCreated, service)
}

func (h *APIHandler) ListServices(c *gin.Context) {
	workerID, ok := parseOptionalID(c, "worker_id")
	if !ok {
		return
	}
	list, err := h.ledgerService.ListServices(c.Request.Context(), repository.ServiceFilter{
		State:    c.Query("state"),
		WorkerID: workerID,
	})
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *APIHandler) GetService(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	service, err := h.ledgerService.GetService(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	progress, err := h.ledgerService.Progress(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"service": service, "progress": progress})
}

func (h *APIHandler) SetServiceState(c *gin.Context) {
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

	service, err := h.ledgerService.SetServiceState(c.Request.Context(), id, req.State)
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, service)
}

func (h *APIHandler) DeleteService(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.ledgerService.DeleteService(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": "deleted"})
}

func (h *APIHandler) ServiceProgress(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	progress, err := h.ledgerService.Progress(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, progress)
}

func (h *APIHandler) RepairService(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	service, inserted, err := h.ledgerService.RepairVisits(c.Request.Context(), id)
	if err != nil {
		var data interface{}
		if service != nil {
			data = gin.H{"service": service, "inserted": inserted}
		}
		respondError(c, h.log, err, data)
		return
	}
	c.JSON(http.StatusOK, gin.H{"service": service, "inserted": inserted})
}

func (h *APIHandler) ListServiceVisits(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	visits, err := h.ledgerService.ListVisits(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, visits)
}

// CompleteVisit is open to the visit's own worker as well as admins.
func (h *APIHandler) CompleteVisit(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	visit, err := h.ledgerService.GetVisit(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	if err := h.authService.AuthorizeVisitCompletion(principalFrom(c), visit); err != nil {
		respondError(c, h.log, err, nil)
		return
	}

	visit, entry, err := h.ledgerService.CompleteVisit(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	progress, err := h.ledgerService.Progress(c.Request.Context(), visit.ServiceID)
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"visit": visit, "income": entry, "progress": progress})
}

func (h *APIHandler) CancelVisit(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	visit, err := h.ledgerService.CancelVisit(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, visit)
}

func (h *APIHandler) SetVisitPaid(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Paid *bool `json:"paid" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	visit, err := h.ledgerService.SetVisitPaid(c.Request.Context(), id, *req.Paid)
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, visit)
}

// Worker dashboard reads

func (h *APIHandler) MyServices(c *gin.Context) {
	p := principalFrom(c)
	if p.WorkerID == nil {
		c.JSON(http.StatusOK, []interface{}{})
		return
	}
	list, err := h.ledgerService.ListServices(c.Request.Context(), repository.ServiceFilter{
		State:    c.Query("state"),
		WorkerID: *p.WorkerID,
	})
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}

	type serviceWithProgress struct {
		services.Progress
		Service models.Service `json:"service"`
	}
	resp := make([]serviceWithProgress, 0, len(list))
	for i := range list {
		progress, err := h.ledgerService.Progress(c.Request.Context(), list[i].ID)
		if err != nil {
			respondError(c, h.log, err, nil)
			return
		}
		resp = append(resp, serviceWithProgress{Progress: progress, Service: list[i]})
	}
	c.JSON(http.StatusOK, resp)
}

// MyService returns one of the caller's own services with its visits.
func (h *APIHandler) MyService(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	service, err := h.ledgerService.GetService(ctx, id)
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	if err := h.authService.AuthorizeService(principalFrom(c), service); err != nil {
		respondError(c, h.log, err, nil)
		return
	}

	progress, err := h.ledgerService.Progress(ctx, id)
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	visits, err := h.ledgerService.ListVisits(ctx, id)
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"service": service, "progress": progress, "visits": visits})
}

func (h *APIHandler) MyVisits(c *gin.Context) {
	p := principalFrom(c)
	if p.WorkerID == nil {
		c.JSON(http.StatusOK, gin.H{"visits": []interface{}{}, "completed_hours": 0})
		return
	}
	visits, err := h.ledgerService.ListVisitsForWorker(c.Request.Context(), *p.WorkerID, c.Query("state"))
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	hours := 0.0
	for _, v := range visits {
		if v.State == string(models.VisitCompleted) {
			hours += v.Hours
		}
	}
	c.JSON(http.StatusOK, gin.H{"visits": visits, "completed_hours": hours})
}

func (h *APIHandler) MyPayments(c *gin.Context) {
	p := principalFrom(c)
	if p.WorkerID == nil {
		c.JSON(http.StatusOK, []interface{}{})
		return
	}
	payments, err := h.financeService.ListPaymentsForWorker(c.Request.Context(), *p.WorkerID)
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, payments)
}
