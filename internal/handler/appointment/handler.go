package appointment

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vidaplena/clinic-api/internal/handler"
	"github.com/vidaplena/clinic-api/internal/model"
	"github.com/vidaplena/clinic-api/internal/service/appointment"
	"github.com/vidaplena/clinic-api/internal/service/availability"
	"github.com/vidaplena/clinic-api/pkg/apperror"
	"github.com/vidaplena/clinic-api/pkg/timeutil"
)

// BookingMetrics counts booking attempts by outcome.
type BookingMetrics interface {
	CountBooking(outcome string)
}

type Handler struct {
	service         *appointment.Service
	availabilitySvc *availability.Service
	metrics         BookingMetrics
}

func NewHandler(service *appointment.Service, availabilitySvc *availability.Service, metrics BookingMetrics) *Handler {
	return &Handler{service: service, availabilitySvc: availabilitySvc, metrics: metrics}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.POST("", h.Create)
		appointments.GET("", h.List)
		appointments.GET("/:id", h.Get)
		appointments.POST("/:id/confirm", h.Confirm)
		appointments.POST("/:id/cancel", h.Cancel)
		appointments.POST("/:id/reschedule", h.Reschedule)
		appointments.POST("/:id/complete", h.Complete)
	}
	r.GET("/therapists/:id/slots", h.GetSlots)
	r.GET("/therapists/:id/availability", h.GetMonthAvailability)
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		if h.metrics != nil {
			switch apperror.CodeOf(err) {
			case apperror.CodeConflict:
				h.metrics.CountBooking("conflict")
			case apperror.CodeNotAvailable:
				h.metrics.CountBooking("unavailable")
			}
		}
		handler.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.CountBooking("created")
	}
	handler.Success(c, http.StatusCreated, result)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.BadRequest(c, "invalid appointment ID")
		return
	}

	apt, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, apt)
}

func (h *Handler) List(c *gin.Context) {
	filters := &model.AppointmentFilters{}

	if raw := c.Query("client_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			handler.BadRequest(c, "invalid client ID")
			return
		}
		filters.ClientID = &id
	}
	if raw := c.Query("therapist_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			handler.BadRequest(c, "invalid therapist ID")
			return
		}
		filters.TherapistID = &id
	}
	if raw := c.Query("branch_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			handler.BadRequest(c, "invalid branch ID")
			return
		}
		filters.BranchID = &id
	}
	if raw := c.Query("status"); raw != "" {
		status := model.AppointmentStatus(raw)
		filters.Status = &status
	}
	if raw := c.Query("start_date"); raw != "" {
		d, err := timeutil.ParseDate(raw)
		if err != nil {
			handler.BadRequest(c, "invalid start_date")
			return
		}
		filters.StartDate = &d
	}
	if raw := c.Query("end_date"); raw != "" {
		d, err := timeutil.ParseDate(raw)
		if err != nil {
			handler.BadRequest(c, "invalid end_date")
			return
		}
		filters.EndDate = &d
	}

	appointments, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, appointments)
}

func (h *Handler) Confirm(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.BadRequest(c, "invalid appointment ID")
		return
	}

	result, err := h.service.Confirm(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, result)
}

type cancelRequest struct {
	Reason         string `json:"reason"`
	ApplyNoShowFee bool   `json:"apply_no_show_fee"`
}

func (h *Handler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.BadRequest(c, "invalid appointment ID")
		return
	}

	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		handler.BadRequest(c, err.Error())
		return
	}

	outcome, err := h.service.Cancel(c.Request.Context(), id, req.Reason, req.ApplyNoShowFee)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, outcome)
}

func (h *Handler) Reschedule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.BadRequest(c, "invalid appointment ID")
		return
	}

	var req model.RescheduleAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, err.Error())
		return
	}

	apt, err := h.service.Reschedule(c.Request.Context(), id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, apt)
}

func (h *Handler) Complete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.BadRequest(c, "invalid appointment ID")
		return
	}

	apt, err := h.service.Complete(c.Request.Context(), id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, apt)
}

func optionalUUID(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, false
	}
	return &id, true
}

// GetSlots returns the free slot start times for a therapist on one day.
func (h *Handler) GetSlots(c *gin.Context) {
	therapistID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.BadRequest(c, "invalid therapist ID")
		return
	}
	date := c.Query("date")
	if date == "" {
		handler.BadRequest(c, "date is required")
		return
	}
	serviceID, ok := optionalUUID(c, "service_id")
	if !ok {
		handler.BadRequest(c, "invalid service ID")
		return
	}
	branchID, ok := optionalUUID(c, "branch_id")
	if !ok {
		handler.BadRequest(c, "invalid branch ID")
		return
	}

	slots, err := h.availabilitySvc.GetAvailableSlots(c.Request.Context(), therapistID, date, serviceID, branchID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, gin.H{"date": date, "slots": slots})
}

// GetMonthAvailability returns the per-day availability of a therapist for a
// whole month.
func (h *Handler) GetMonthAvailability(c *gin.Context) {
	therapistID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.BadRequest(c, "invalid therapist ID")
		return
	}
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		handler.BadRequest(c, "invalid year")
		return
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil || month < 1 || month > 12 {
		handler.BadRequest(c, "invalid month")
		return
	}
	serviceID, ok := optionalUUID(c, "service_id")
	if !ok {
		handler.BadRequest(c, "invalid service ID")
		return
	}
	branchID, ok := optionalUUID(c, "branch_id")
	if !ok {
		handler.BadRequest(c, "invalid branch ID")
		return
	}

	days, err := h.availabilitySvc.GetMonthAvailability(c.Request.Context(), therapistID, year, time.Month(month), serviceID, branchID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	handler.Success(c, http.StatusOK, days)
}
