package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"counseling-api/internal/apperr"
)

// Errors renders the last error pushed with c.Error as {"message": ...}.
func Errors(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		status, msg := render(c.Errors.Last().Err)
		if status >= http.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Errors("errors", toErrs(c.Errors)),
			)
		}
		c.AbortWithStatusJSON(status, gin.H{"message": msg})
	}
}

func render(err error) (int, string) {
	var (
		ve     validator.ValidationErrors
		syntax *json.SyntaxError
		typ    *json.UnmarshalTypeError
		num    *strconv.NumError
		tm     *time.ParseError
		ae     *apperr.AppError
	)
	switch {
	case errors.As(err, &ae):
		return ae.Code.HTTPStatus(), ae.Message
	case errors.As(err, &ve):
		fe := ve[0]
		return http.StatusUnprocessableEntity, fmt.Sprintf("字段 %s 不满足 %s 约束", fe.Field(), fe.Tag())
	case errors.Is(err, io.EOF):
		return http.StatusBadRequest, "请求体不能为空"
	case errors.As(err, &syntax), errors.Is(err, io.ErrUnexpectedEOF):
		return http.StatusBadRequest, "请求体不是合法的 JSON"
	case errors.As(err, &typ):
		return http.StatusBadRequest, fmt.Sprintf("字段 %s 类型错误", typ.Field)
	case errors.As(err, &num), errors.As(err, &tm):
		return http.StatusBadRequest, "参数格式错误"
	}
	return http.StatusInternalServerError, "服务器内部错误"
}

func toErrs(list []*gin.Error) []error {
	out := make([]error, len(list))
	for i, e := range list {
		out[i] = e.Err
	}
	return out
}
