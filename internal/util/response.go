package util

import (
	"errors"
	"learnhub_backend/pkg/logger"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: message,
		Data:    data,
	})
}

func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: message,
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// HandleError 是业务错误到响应的唯一转换点。
// 非 AppError 一律按 500 处理，错误细节只在 debug 模式下返回。
func HandleError(c *gin.Context, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = NewInternal(err)
	}

	status := appErr.Kind.Status()
	resp := Response{
		Code:    status,
		Message: appErr.Message,
	}

	if appErr.Kind == KindInternal {
		logger.Log.Error("Internal server error",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}

	if gin.Mode() == gin.DebugMode && appErr.Err != nil {
		resp.Error = appErr.Err.Error()
	}

	c.AbortWithStatusJSON(status, resp)
}

// BindError 把 ShouldBindJSON 的错误转成 BadRequest
func BindError(err error) *AppError {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		msgs := make([]string, 0, len(ve))
		for _, fe := range ve {
			msgs = append(msgs, fieldMessage(fe))
		}
		return &AppError{Kind: KindBadRequest, Message: "Validation error: " + strings.Join(msgs, ", "), Err: err}
	}
	return &AppError{Kind: KindBadRequest, Message: "Invalid request body", Err: err}
}

// fieldPath 去掉命名空间里的根结构体名，保留 questions[0].options 这样的路径
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	field := fieldPath(fe)
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return field + " must " + sizeRule(fe.Kind(), "at least", fe.Param())
	case "max":
		return field + " must " + sizeRule(fe.Kind(), "at most", fe.Param())
	case "trimmin":
		if fe.Param() == "1" {
			return field + " must not be blank"
		}
		return field + " must be at least " + fe.Param() + " characters"
	case "trimmax":
		return field + " must be at most " + fe.Param() + " characters"
	case "email":
		return field + " must be a valid email"
	case "oneof":
		return field + " must be one of [" + fe.Param() + "]"
	case "option_index":
		return field + " must reference one of the options"
	default:
		return field + " is invalid"
	}
}

func sizeRule(kind reflect.Kind, bound, param string) string {
	switch kind {
	case reflect.String:
		return "be " + bound + " " + param + " characters"
	case reflect.Slice, reflect.Array, reflect.Map:
		return "contain " + bound + " " + param + " items"
	default:
		return "be " + bound + " " + param
	}
}
