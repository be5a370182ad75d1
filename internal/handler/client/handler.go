package client

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vidaplena/clinic-api/internal/handler"
	"github.com/vidaplena/clinic-api/internal/model"
	"github.com/vidaplena/clinic-api/internal/repository"
	"github.com/vidaplena/clinic-api/internal/service/auth"
)

type Handler struct {
	authSvc    *auth.Service
	clientRepo repository.ClientRepository
}

func NewHandler(authSvc *auth.Service, clientRepo repository.ClientRepository) *Handler {
	return &Handler{authSvc: authSvc, clientRepo: clientRepo}
}

func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.POST("/clients/register", h.Register)
	r.POST("/clients/login", h.Login)
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/clients/:id", h.Get)
}

func (h *Handler) Register(c *gin.Context) {
	var req model.RegisterClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, err.Error())
		return
	}

	client, err := h.authSvc.Register(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusCreated, client)
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, err.Error())
		return
	}

	resp, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, resp)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.BadRequest(c, "invalid client ID")
		return
	}

	client, err := h.clientRepo.Get(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, client)
}
