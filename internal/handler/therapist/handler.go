package therapist

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vidaplena/clinic-api/internal/handler"
	"github.com/vidaplena/clinic-api/internal/model"
	"github.com/vidaplena/clinic-api/internal/service/therapist"
)

type Handler struct {
	service *therapist.Service
}

func NewHandler(service *therapist.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	therapists := r.Group("/therapists")
	{
		therapists.POST("", h.Create)
		therapists.GET("", h.List)
		therapists.GET("/:id", h.Get)
		therapists.PUT("/:id", h.Update)
		therapists.POST("/:id/branches/:branchId", h.AddBranch)
		therapists.DELETE("/:id/branches/:branchId", h.RemoveBranch)
		therapists.POST("/:id/services/:serviceId", h.AddService)
		therapists.DELETE("/:id/services/:serviceId", h.RemoveService)
		therapists.GET("/:id/schedules", h.ListSchedules)
		therapists.POST("/:id/schedules", h.UpsertSchedule)
		therapists.DELETE("/:id/schedules/:scheduleId", h.DeleteSchedule)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateTherapistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, err.Error())
		return
	}

	t := &model.Therapist{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Specialty: req.Specialty,
	}
	if err := h.service.Create(c.Request.Context(), t); err != nil {
		handler.Error(c, err)
		return
	}
	for _, branchID := range req.BranchIDs {
		if err := h.service.AddBranch(c.Request.Context(), t.ID, branchID); err != nil {
			handler.Error(c, err)
			return
		}
	}
	handler.Success(c, http.StatusCreated, t)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.BadRequest(c, "invalid therapist ID")
		return
	}

	t, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, t)
}

func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.BadRequest(c, "invalid therapist ID")
		return
	}

	var req model.UpdateTherapistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, err.Error())
		return
	}

	t, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	if req.Name != nil {
		t.Name = *req.Name
	}
	if req.Email != nil {
		t.Email = *req.Email
	}
	if req.Phone != nil {
		t.Phone = *req.Phone
	}
	if req.Specialty != nil {
		t.Specialty = *req.Specialty
	}
	if err := h.service.Update(c.Request.Context(), t); err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, t)
}

func (h *Handler) List(c *gin.Context) {
	var branchID *uuid.UUID
	if raw := c.Query("branch_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			handler.BadRequest(c, "invalid branch ID")
			return
		}
		branchID = &id
	}

	if raw := c.Query("service_id"); raw != "" {
		serviceID, err := uuid.Parse(raw)
		if err != nil {
			handler.BadRequest(c, "invalid service ID")
			return
		}
		therapists, err := h.service.ListByService(c.Request.Context(), serviceID, branchID)
		if err != nil {
			handler.Error(c, err)
			return
		}
		handler.Success(c, http.StatusOK, therapists)
		return
	}

	therapists, err := h.service.List(c.Request.Context(), branchID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, therapists)
}

func (h *Handler) pathPair(c *gin.Context, second string) (uuid.UUID, uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.BadRequest(c, "invalid therapist ID")
		return uuid.Nil, uuid.Nil, false
	}
	other, err := uuid.Parse(c.Param(second))
	if err != nil {
		handler.BadRequest(c, "invalid "+second)
		return uuid.Nil, uuid.Nil, false
	}
	return id, other, true
}

func (h *Handler) AddBranch(c *gin.Context) {
	therapistID, branchID, ok := h.pathPair(c, "branchId")
	if !ok {
		return
	}
	if err := h.service.AddBranch(c.Request.Context(), therapistID, branchID); err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, nil)
}

func (h *Handler) RemoveBranch(c *gin.Context) {
	therapistID, branchID, ok := h.pathPair(c, "branchId")
	if !ok {
		return
	}
	if err := h.service.RemoveBranch(c.Request.Context(), therapistID, branchID); err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, nil)
}

func (h *Handler) AddService(c *gin.Context) {
	therapistID, serviceID, ok := h.pathPair(c, "serviceId")
	if !ok {
		return
	}
	if err := h.service.AddService(c.Request.Context(), therapistID, serviceID); err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, nil)
}

func (h *Handler) RemoveService(c *gin.Context) {
	therapistID, serviceID, ok := h.pathPair(c, "serviceId")
	if !ok {
		return
	}
	if err := h.service.RemoveService(c.Request.Context(), therapistID, serviceID); err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, nil)
}

func (h *Handler) ListSchedules(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.BadRequest(c, "invalid therapist ID")
		return
	}
	var branchID *uuid.UUID
	if raw := c.Query("branch_id"); raw != "" {
		b, err := uuid.Parse(raw)
		if err != nil {
			handler.BadRequest(c, "invalid branch ID")
			return
		}
		branchID = &b
	}

	schedules, err := h.service.ListSchedules(c.Request.Context(), id, branchID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, schedules)
}

func (h *Handler) UpsertSchedule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.BadRequest(c, "invalid therapist ID")
		return
	}

	var req model.UpsertScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.UpsertSchedule(c.Request.Context(), id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}

	status := http.StatusCreated
	if req.ID != nil {
		status = http.StatusOK
	}
	handler.Success(c, status, result)
}

func (h *Handler) DeleteSchedule(c *gin.Context) {
	therapistID, scheduleID, ok := h.pathPair(c, "scheduleId")
	if !ok {
		return
	}
	if err := h.service.DeleteSchedule(c.Request.Context(), therapistID, scheduleID); err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, nil)
}
