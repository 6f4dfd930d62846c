package handler

import (
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"counseling-api/internal/apperr"
	"counseling-api/internal/service"
)

const maxUploadSize = 10 << 20

type uploadForm struct {
	Scope       string                `form:"scope" binding:"required"`
	Category    string                `form:"category" binding:"required"`
	Filename    string                `form:"filename" binding:"required"`
	Description *string               `form:"description"`
	File        *multipart.FileHeader `form:"file" binding:"required"`
}

func (h *Handler) uploadResource(c *gin.Context) {
	var form uploadForm
	if err := c.ShouldBind(&form); err != nil {
		fail(c, err)
		return
	}
	if form.File.Size > maxUploadSize {
		fail(c, apperr.InvalidArg("文件不能超过10MB"))
		return
	}
	f, err := form.File.Open()
	if err != nil {
		fail(c, apperr.Internal(err))
		return
	}
	defer f.Close()

	r, err := h.svc.Static.Upload(c.Request.Context(), service.UploadInput{
		Scope:       form.Scope,
		Category:    form.Category,
		Filename:    form.Filename,
		Description: form.Description,
		ContentType: form.File.Header.Get("Content-Type"),
		Body:        f,
		Size:        form.File.Size,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toResource(r))
}

func (h *Handler) uploadWishImage(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		fail(c, apperr.InvalidArg("缺少文件"))
		return
	}
	if fh.Size > maxUploadSize {
		fail(c, apperr.InvalidArg("文件不能超过10MB"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, apperr.Internal(err))
		return
	}
	defer f.Close()

	r, err := h.svc.Static.UploadWishImage(c.Request.Context(), fh.Header.Get("Content-Type"), f, fh.Size)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": r.Path()})
}

// optionalBool reads an optional boolean query parameter.
func optionalBool(c *gin.Context, key string) (*bool, error) {
	raw, ok := c.GetQuery(key)
	if !ok {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperr.InvalidArg(key + " 参数不合法")
	}
	return &v, nil
}

func (h *Handler) resourceTree(c *gin.Context) {
	valid, err := optionalBool(c, "valid")
	if err != nil {
		fail(c, err)
		return
	}
	tree, err := h.svc.Static.Tree(c.Request.Context(), valid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toTree(tree))
}

func (h *Handler) markResource(c *gin.Context) {
	valid, err := optionalBool(c, "valid")
	if err != nil {
		fail(c, err)
		return
	}
	if valid == nil {
		fail(c, apperr.InvalidArg("缺少 valid 参数"))
		return
	}
	r, err := h.svc.Static.MarkValid(c.Request.Context(), c.Param("id"), *valid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toResource(r))
}

func (h *Handler) deleteResource(c *gin.Context) {
	if err := h.svc.Static.Delete(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
