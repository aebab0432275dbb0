package controller

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	apperrors "github.com/ikkim/traceability-backend/internal/errors"
	"github.com/ikkim/traceability-backend/internal/middleware"
)

var registerOnce sync.Once

// RegisterValidation makes validation errors report json field names.
func RegisterValidation() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return field.Name
			}
			return name
		})
	})
}

// bindJSON binds the body and answers 400 with message on failure.
func bindJSON(c *gin.Context, req interface{}, message string) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.GetLoggerFromContext(c).Warn("Invalid request body", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.RespondWithErrors(c, http.StatusBadRequest, message, validationDetails(err))
		return false
	}
	return true
}

func validationDetails(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{"请求格式错误"}
	}

	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, fieldMessage(fe))
	}
	return details
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s 为必填项", fe.Field())
	case "max":
		return fmt.Sprintf("%s 长度不能超过 %s", fe.Field(), fe.Param())
	case "gt", "min":
		return fmt.Sprintf("%s 必须大于 %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s 校验失败 (%s)", fe.Field(), fe.Tag())
	}
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		apperrors.BadRequest(c, apperrors.MsgInvalidID)
		return 0, false
	}
	return uint(id), true
}

// queryInt reads a positive integer query parameter; anything else yields 0.
func queryInt(c *gin.Context, name string) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
