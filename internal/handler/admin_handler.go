package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"counseling-api/internal/model"
	"counseling-api/internal/service"
)

type createConsultantRequest struct {
	Phone               string       `json:"phone" binding:"required"`
	Password            string       `json:"password" binding:"required"`
	Name                string       `json:"name" binding:"required,max=20"`
	Level               string       `json:"level"`
	Specialty           []string     `json:"specialty"`
	Gender              model.Gender `json:"gender" binding:"omitempty,oneof=MALE FEMALE UNKNOWN"`
	Location            string       `json:"location"`
	ExperienceYears     int          `json:"experienceYears" binding:"min=0"`
	Bio                 string       `json:"bio"`
	ConsultationMethods []string     `json:"consultationMethods"`
	Availability        string       `json:"availability"`
}

type applicationsQuery struct {
	Status *model.ApplicationStatus `form:"status" binding:"omitempty,oneof=PENDING APPROVED REJECTED"`
}

type reviewApplicationQuery struct {
	Approve *bool   `form:"approve" binding:"required"`
	Comment *string `form:"comment" binding:"omitempty,max=200"`
}

func (h *Handler) createConsultant(c *gin.Context) {
	var req createConsultantRequest
	if !bind(c, &req) {
		return
	}
	cons, err := h.svc.Admin.CreateConsultant(c.Request.Context(), service.CreateConsultantInput{
		Phone:               req.Phone,
		Password:            req.Password,
		Name:                req.Name,
		Level:               req.Level,
		Specialty:           req.Specialty,
		Gender:              req.Gender,
		Location:            req.Location,
		ExperienceYears:     req.ExperienceYears,
		Bio:                 req.Bio,
		ConsultationMethods: req.ConsultationMethods,
		Availability:        req.Availability,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": cons.ID})
}

func (h *Handler) listApplications(c *gin.Context) {
	var q applicationsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		fail(c, err)
		return
	}
	list, err := h.svc.Admin.Applications(c.Request.Context(), q.Status)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(list, toApplication))
}

func (h *Handler) reviewApplication(c *gin.Context) {
	var q reviewApplicationQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		fail(c, err)
		return
	}
	a, err := h.svc.Admin.ReviewApplication(c.Request.Context(), c.Param("id"), *q.Approve, q.Comment)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toApplication(a))
}
