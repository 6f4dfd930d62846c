package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"counseling-api/internal/service"
)

type createReviewRequest struct {
	ConsultantID  string   `json:"consultantId" binding:"required"`
	AppointmentID *string  `json:"appointmentId"`
	Rating        int      `json:"rating" binding:"required"`
	Content       *string  `json:"content"`
	Tags          []string `json:"tags"`
}

func (h *Handler) createReview(c *gin.Context) {
	var req createReviewRequest
	if !bind(c, &req) {
		return
	}
	r, err := h.svc.Reviews.Create(c.Request.Context(), principal(c).ID, service.CreateReviewInput{
		ConsultantID:  req.ConsultantID,
		AppointmentID: req.AppointmentID,
		Rating:        req.Rating,
		Content:       req.Content,
		Tags:          req.Tags,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toReview(r))
}

func (h *Handler) listMyReviews(c *gin.Context) {
	list, err := h.svc.Reviews.ListMine(c.Request.Context(), principal(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, mapSlice(list, toReview))
}
