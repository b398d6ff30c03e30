package util

import (
	"errors"
	"net/http"
	"quiz_master_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Response 统一响应结构，出错时带上 trace_id 方便排查
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

func write(c *gin.Context, code int, message string, data any) {
	c.JSON(code, Response{Code: code, Message: message, Data: data})
}

func Success(c *gin.Context, data any) {
	write(c, http.StatusOK, "success", data)
}

func Created(c *gin.Context, data any) {
	write(c, http.StatusCreated, "created", data)
}

func Accepted(c *gin.Context, data any) {
	write(c, http.StatusAccepted, "accepted", data)
}

func traceID(c *gin.Context) string {
	if c.Request == nil {
		return ""
	}
	if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{Code: code, Message: message, TraceID: traceID(c)})
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

func NotFound(c *gin.Context) {
	Error(c, http.StatusNotFound, "Resource not found")
}

func ServiceUnavailable(c *gin.Context, message string) {
	Error(c, http.StatusServiceUnavailable, message)
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error", zap.Error(err), zap.String("path", c.FullPath()), zap.String("trace_id", traceID(c)))
	InternalServerError(c)
}

// HandleError 按错误分类写出响应，未知错误只记录日志不外泄
func HandleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		NotFound(c)
	case errors.Is(err, ErrValidation):
		BadRequest(c, err.Error())
	case errors.Is(err, ErrPermissionDenied):
		Forbidden(c)
	case errors.Is(err, ErrStatisticsUnavailable):
		ServiceUnavailable(c, ErrStatisticsUnavailable.Error())
	case errors.Is(err, ErrDispatch):
		logger.Log.Warn("Job dispatch rejected", zap.Error(err), zap.String("path", c.FullPath()))
		ServiceUnavailable(c, ErrStatisticsUnavailable.Error())
	default:
		LogInternalError(c, err)
	}
}
