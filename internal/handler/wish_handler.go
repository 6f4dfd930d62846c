package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"counseling-api/internal/model"
	"counseling-api/internal/service"
)

type createWishRequest struct {
	Content   string   `json:"content"`
	Images    []string `json:"images"`
	Anonymous *bool    `json:"anonymous"`
	QuoteID   *string  `json:"quoteId"`
}

func (h *Handler) listWishes(c *gin.Context) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		fail(c, err)
		return
	}
	me := principal(c).ID
	list, err := h.svc.Wishes.List(c.Request.Context(), me, q.page())
	if err != nil {
		fail(c, err)
		return
	}
	out := mapSlice(list, func(w *model.WishView) wishResponse { return toWish(w, me) })
	c.JSON(http.StatusOK, out)
}

func (h *Handler) createWish(c *gin.Context) {
	var req createWishRequest
	if !bind(c, &req) {
		return
	}
	me := principal(c).ID
	w, err := h.svc.Wishes.Create(c.Request.Context(), me, service.CreateWishInput{
		Content:   req.Content,
		Images:    req.Images,
		Anonymous: req.Anonymous,
		QuoteID:   req.QuoteID,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toWish(&model.WishView{Wish: *w}, me))
}

func (h *Handler) toggleLike(c *gin.Context) {
	res, err := h.svc.Wishes.ToggleLike(c.Request.Context(), principal(c).ID, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": res.Liked, "likeCount": res.LikeCount})
}

func (h *Handler) deleteWish(c *gin.Context) {
	if err := h.svc.Wishes.Delete(c.Request.Context(), principal(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) unreadCount(c *gin.Context) {
	n, err := h.svc.Wishes.UnreadCount(c.Request.Context(), principal(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (h *Handler) markRead(c *gin.Context) {
	if err := h.svc.Wishes.MarkAllRead(c.Request.Context(), principal(c).ID); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) authorCard(c *gin.Context) {
	card, err := h.svc.Wishes.AuthorCard(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toAuthorCard(card))
}
