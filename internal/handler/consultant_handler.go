package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"counseling-api/internal/apperr"
	"counseling-api/internal/model"
	"counseling-api/internal/service"
)

const maxAvatarSize = 5 << 20

type updateConsultantRequest struct {
	Name                *string               `json:"name" binding:"omitempty,min=1,max=20"`
	Specialty           []string              `json:"specialty"`
	Gender              *model.Gender         `json:"gender"`
	Location            *string               `json:"location"`
	ExperienceYears     *int                  `json:"experienceYears"`
	PricePerHour        *int                  `json:"pricePerHour"`
	TrainingHours       *int                  `json:"trainingHours"`
	SupervisionHours    *int                  `json:"supervisionHours"`
	Bio                 *string               `json:"bio"`
	ConsultationMethods []string              `json:"consultationMethods"`
	Availability        *string               `json:"availability"`
	EducationList       []model.Education     `json:"educationList"`
	ExperienceList      []model.Experience    `json:"experienceList"`
	CertificationList   []model.Certification `json:"certificationList"`
}

func (h *Handler) listConsultants(c *gin.Context) {
	list, err := h.svc.Consultants.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(list, toConsultant))
}

func (h *Handler) getConsultant(c *gin.Context) {
	cons, err := h.svc.Consultants.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toConsultant(cons))
}

func (h *Handler) updateConsultant(c *gin.Context) {
	var req updateConsultantRequest
	if !bind(c, &req) {
		return
	}
	cons, err := h.svc.Consultants.Update(c.Request.Context(), principal(c).ID, service.UpdateConsultantInput{
		Name:                req.Name,
		Specialty:           req.Specialty,
		Gender:              req.Gender,
		Location:            req.Location,
		ExperienceYears:     req.ExperienceYears,
		PricePerHour:        req.PricePerHour,
		TrainingHours:       req.TrainingHours,
		SupervisionHours:    req.SupervisionHours,
		Bio:                 req.Bio,
		ConsultationMethods: req.ConsultationMethods,
		Availability:        req.Availability,
		EducationList:       req.EducationList,
		ExperienceList:      req.ExperienceList,
		CertificationList:   req.CertificationList,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toConsultant(cons))
}

func (h *Handler) uploadAvatar(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		fail(c, apperr.InvalidArg("缺少文件"))
		return
	}
	if fh.Size > maxAvatarSize {
		fail(c, apperr.InvalidArg("头像不能超过5MB"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, apperr.Internal(err))
		return
	}
	defer f.Close()

	path, err := h.svc.Consultants.UploadAvatar(c.Request.Context(), principal(c).ID,
		fh.Header.Get("Content-Type"), f, fh.Size)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"avatar": path})
}

func (h *Handler) listConsultantReviews(c *gin.Context) {
	list, err := h.svc.Consultants.Reviews(c.Request.Context(), principal(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(list, toReview))
}

func (h *Handler) reviewStats(c *gin.Context) {
	id := principal(c).ID
	s, err := h.svc.Consultants.Stats(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toStats(id, s))
}
