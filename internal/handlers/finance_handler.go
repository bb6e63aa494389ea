package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"homecare_manager/internal/export"
	"homecare_manager/internal/services"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func periodQuery(c *gin.Context) services.Period {
	return services.Period(strings.ToLower(c.DefaultQuery("period", string(services.PeriodAll))))
}

func (h *APIHandler) RecordIncome(c *gin.Context) {
	var req services.ManualIncomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	entry, err := h.financeService.RecordManualIncome(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *APIHandler) ListIncome(c *gin.Context) {
	entries, err := h.financeService.ListIncome(c.Request.Context(), periodQuery(c))
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *APIHandler) RecordExpense(c *gin.Context) {
	var req services.ExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	entry, err := h.financeService.RecordExpense(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *APIHandler) ListExpenses(c *gin.Context) {
	entries, err := h.financeService.ListExpenses(c.Request.Context(), periodQuery(c))
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *APIHandler) RegisterPayment(c *gin.Context) {
	var req services.RegisterPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.financeService.RegisterPayment(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *APIHandler) ListPayments(c *gin.Context) {
	payments, err := h.financeService.ListPayments(c.Request.Context(), periodQuery(c))
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, payments)
}

func (h *APIHandler) Summary(c *gin.Context) {
	summary, err := h.financeService.Summarize(c.Request.Context(), periodQuery(c))
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *APIHandler) BackfillIncome(c *gin.Context) {
	booked, err := h.financeService.BackfillVisitIncome(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, gin.H{"booked": booked})
		return
	}
	c.JSON(http.StatusOK, gin.H{"booked": booked, "count": len(booked)})
}

// Export renders one sheet, or every sheet when :sheet is "all", as JSON or xlsx.
func (h *APIHandler) Export(c *gin.Context) {
	name := strings.ToLower(c.Param("sheet"))
	period := periodQuery(c)

	var (
		sheets []*export.Sheet
		err    error
	)
	if name == "all" {
		sheets, err = h.exportService.All(c.Request.Context(), period)
	} else {
		var sheet *export.Sheet
		sheet, err = h.exportService.Sheet(c.Request.Context(), name, period)
		sheets = []*export.Sheet{sheet}
	}
	if err != nil {
		respondError(c, h.log, err, nil)
		return
	}

	switch c.DefaultQuery("format", "json") {
	case "json":
		if len(sheets) == 1 {
			c.JSON(http.StatusOK, sheets[0])
			return
		}
		c.JSON(http.StatusOK, sheets)
	case "xlsx":
		data, err := export.WriteXLSX(sheets...)
		if err != nil {
			respondError(c, h.log, err, nil)
			return
		}
		filename := fmt.Sprintf("homecare-%s-%s.xlsx", name, period)
		c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
		c.Data(http.StatusOK, xlsxContentType, data)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be json or xlsx"})
	}
}
