package ledger

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vidaplena/clinic-api/internal/handler"
	"github.com/vidaplena/clinic-api/internal/service/consumption"
)

type Handler struct {
	service *consumption.Service
}

func NewHandler(service *consumption.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	consumptions := r.Group("/consumptions")
	{
		consumptions.POST("", h.Consume)
		consumptions.POST("/:id/refund", h.Refund)
	}
}

type consumeRequest struct {
	SubscriptionID uuid.UUID  `json:"subscription_id" binding:"required"`
	AppointmentID  uuid.UUID  `json:"appointment_id" binding:"required"`
	BranchID       *uuid.UUID `json:"branch_id,omitempty"`
}

func (h *Handler) Consume(c *gin.Context) {
	var req consumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, err.Error())
		return
	}

	cons, err := h.service.Consume(c.Request.Context(), req.SubscriptionID, req.AppointmentID, req.BranchID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusCreated, cons)
}

type refundRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (h *Handler) Refund(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.BadRequest(c, "invalid consumption ID")
		return
	}

	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, err.Error())
		return
	}

	if err := h.service.Refund(c.Request.Context(), id, req.Reason); err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, nil)
}
