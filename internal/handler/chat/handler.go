package chat

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vidaplena/clinic-api/internal/chat"
	"github.com/vidaplena/clinic-api/internal/handler"
)

type Handler struct {
	flow *chat.Flow
}

func NewHandler(flow *chat.Flow) *Handler {
	return &Handler{flow: flow}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/chat/webhook", h.Webhook)
}

type webhookRequest struct {
	Phone   string `json:"phone" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// Webhook receives one inbound message from the messaging provider and
// returns the reply to send back.
func (h *Handler) Webhook(c *gin.Context) {
	var req webhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, err.Error())
		return
	}

	reply, err := h.flow.HandleMessage(c.Request.Context(), req.Phone, req.Message)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, gin.H{"reply": reply})
}
