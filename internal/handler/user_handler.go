package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"counseling-api/internal/apperr"
	"counseling-api/internal/model"
	"counseling-api/internal/service"
)

type updateProfileRequest struct {
	Name     *string       `json:"name"`
	Age      *int          `json:"age"`
	Gender   *model.Gender `json:"gender"`
	Region   *string       `json:"region"`
	Avatar   *string       `json:"avatar"`
	Birthday *string       `json:"birthday"`
	Hobby    *string       `json:"hobby"`
}

type applyRequest struct {
	Name            string   `json:"name" binding:"required,max=20"`
	IDCardNumber    string   `json:"idCardNumber" binding:"required"`
	Phone           string   `json:"phone" binding:"required"`
	Education       string   `json:"education" binding:"required"`
	University      string   `json:"university" binding:"required"`
	Major           string   `json:"major" binding:"required"`
	LicenseNumber   *string  `json:"licenseNumber"`
	ExperienceYears int      `json:"experienceYears" binding:"min=0,max=80"`
	Specialty       []string `json:"specialty" binding:"required,min=1,dive,min=1,max=20"`
	Bio             string   `json:"bio" binding:"max=2000"`
	Reason          string   `json:"reason" binding:"required,max=1000"`
}

func (h *Handler) profile(c *gin.Context) {
	u, err := h.svc.Users.Profile(c.Request.Context(), principal(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toProfile(u))
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req updateProfileRequest
	if !bind(c, &req) {
		return
	}
	in := service.UpdateUserInput{
		Name:   req.Name,
		Age:    req.Age,
		Gender: req.Gender,
		Region: req.Region,
		Avatar: req.Avatar,
		Hobby:  req.Hobby,
	}
	if req.Birthday != nil {
		d, err := time.Parse(dateLayout, *req.Birthday)
		if err != nil {
			fail(c, apperr.Validation("生日格式应为 yyyy-MM-dd"))
			return
		}
		in.Birthday = &d
	}

	u, err := h.svc.Users.Update(c.Request.Context(), principal(c).ID, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toProfile(u))
}

func (h *Handler) apply(c *gin.Context) {
	var req applyRequest
	if !bind(c, &req) {
		return
	}
	a, err := h.svc.Users.Apply(c.Request.Context(), principal(c).ID, service.ApplyInput{
		Name:            req.Name,
		IDCardNumber:    req.IDCardNumber,
		Phone:           req.Phone,
		Education:       req.Education,
		University:      req.University,
		Major:           req.Major,
		LicenseNumber:   req.LicenseNumber,
		ExperienceYears: req.ExperienceYears,
		Specialty:       req.Specialty,
		Bio:             req.Bio,
		Reason:          req.Reason,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toApplication(a))
}
