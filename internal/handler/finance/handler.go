package finance

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vidaplena/clinic-api/internal/handler"
	"github.com/vidaplena/clinic-api/internal/model"
	"github.com/vidaplena/clinic-api/internal/service/finance"
	"github.com/vidaplena/clinic-api/pkg/timeutil"
)

type Handler struct {
	service *finance.Service
}

func NewHandler(service *finance.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	transactions := r.Group("/transactions")
	{
		transactions.GET("", h.List)
		transactions.GET("/summary", h.Summary)
	}
}

func (h *Handler) parseFilters(c *gin.Context) (*model.TransactionFilters, bool) {
	filters := &model.TransactionFilters{}

	if raw := c.Query("type"); raw != "" {
		t := model.TransactionType(raw)
		filters.Type = &t
	}
	if raw := c.Query("category"); raw != "" {
		filters.Category = &raw
	}
	if raw := c.Query("client_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			handler.BadRequest(c, "invalid client ID")
			return nil, false
		}
		filters.ClientID = &id
	}
	if raw := c.Query("branch_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			handler.BadRequest(c, "invalid branch ID")
			return nil, false
		}
		filters.BranchID = &id
	}
	if raw := c.Query("start_date"); raw != "" {
		d, err := timeutil.ParseDate(raw)
		if err != nil {
			handler.BadRequest(c, "invalid start_date")
			return nil, false
		}
		filters.StartDate = &d
	}
	if raw := c.Query("end_date"); raw != "" {
		d, err := timeutil.ParseDate(raw)
		if err != nil {
			handler.BadRequest(c, "invalid end_date")
			return nil, false
		}
		filters.EndDate = &d
	}
	return filters, true
}

func (h *Handler) List(c *gin.Context) {
	filters, ok := h.parseFilters(c)
	if !ok {
		return
	}

	txns, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, txns)
}

func (h *Handler) Summary(c *gin.Context) {
	filters, ok := h.parseFilters(c)
	if !ok {
		return
	}

	summary, err := h.service.Summarize(c.Request.Context(), filters)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, summary)
}
