package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"counseling-api/internal/model"
)

type registerRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Phone    string     `json:"phone" binding:"required"`
	Password string     `json:"password" binding:"required"`
	Role     model.Role `json:"role" binding:"required,oneof=USER CONSULTANT"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type adminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if !bind(c, &req) {
		return
	}
	t, err := h.svc.Auth.Register(c.Request.Context(), req.Phone, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTokens(t))
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if !bind(c, &req) {
		return
	}
	t, err := h.svc.Auth.Login(c.Request.Context(), req.Phone, req.Password, req.Role)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toTokens(t))
}

func (h *Handler) refresh(c *gin.Context) {
	var req refreshRequest
	if !bind(c, &req) {
		return
	}
	t, err := h.svc.Auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toTokens(t))
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.svc.Auth.Logout(c.Request.Context(), principal(c).ID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) adminLogin(c *gin.Context) {
	var req adminLoginRequest
	if !bind(c, &req) {
		return
	}
	t, err := h.svc.Auth.AdminLogin(req.Username, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toTokens(t))
}
