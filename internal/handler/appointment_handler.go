package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"counseling-api/internal/service"
)

type createAppointmentRequest struct {
	ConsultantID string    `json:"consultantId" binding:"required"`
	StartTime    time.Time `json:"startTime" binding:"required"`
	EndTime      time.Time `json:"endTime" binding:"required"`
	Note         *string   `json:"note"`
}

type cancelRequest struct {
	Reason *string `json:"reason" binding:"omitempty,max=200"`
}

func (h *Handler) createAppointment(c *gin.Context) {
	var req createAppointmentRequest
	if !bind(c, &req) {
		return
	}
	a, err := h.svc.Appointments.Create(c.Request.Context(), principal(c).ID, service.CreateAppointmentInput{
		ConsultantID: req.ConsultantID,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Note:         req.Note,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toAppointment(a))
}

func (h *Handler) listMyAppointments(c *gin.Context) {
	list, err := h.svc.Appointments.ListForUser(c.Request.Context(), principal(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(list, toAppointment))
}

func (h *Handler) listConsultantAppointments(c *gin.Context) {
	list, err := h.svc.Appointments.ListForConsultant(c.Request.Context(), principal(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(list, toAppointment))
}

// cancelAppointment serves both the user and the consultant route; the
// caller's role decides the resulting status.
func (h *Handler) cancelAppointment(c *gin.Context) {
	var req cancelRequest
	if !bindOptional(c, &req) {
		return
	}
	a, err := h.svc.Appointments.Cancel(c.Request.Context(), principal(c), c.Param("id"), req.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toAppointment(a))
}

func (h *Handler) confirmAppointment(c *gin.Context) {
	a, err := h.svc.Appointments.Confirm(c.Request.Context(), principal(c).ID, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toAppointment(a))
}

type appointmentPage struct {
	Items []appointmentResponse `json:"items"`
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Size  int                   `json:"size"`
}

func (h *Handler) listAllAppointments(c *gin.Context) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		fail(c, err)
		return
	}
	p := q.page().Normalize()
	list, total, err := h.svc.Appointments.ListAll(c.Request.Context(), p)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, appointmentPage{
		Items: mapSlice(list, toAppointment),
		Total: total,
		Page:  p.Page,
		Size:  p.Size,
	})
}
