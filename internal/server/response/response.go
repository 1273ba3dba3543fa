package response

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

// BaseResponse 统一的API响应结构
type BaseResponse struct {
	Code    int    `json:"code"`            // 业务状态码
	Message string `json:"message"`         // 响应消息
	Data    any    `json:"data,omitempty"`  // 响应数据
	Error   string `json:"error,omitempty"` // 错误信息
}

// Success 创建成功响应
func Success(data any) *BaseResponse {
	return &BaseResponse{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	}
}

// Accepted 请求已接受响应
func Accepted(message string) *BaseResponse {
	return &BaseResponse{
		Code:    http.StatusAccepted,
		Message: message,
	}
}

// BadRequest 创建错误请求响应
func BadRequest(error string) *BaseResponse {
	return &BaseResponse{
		Code:    http.StatusBadRequest,
		Message: "bad request",
		Error:   error,
	}
}

// Unauthorized 创建未授权响应
func Unauthorized(error string) *BaseResponse {
	return &BaseResponse{
		Code:    http.StatusUnauthorized,
		Message: "unauthorized",
		Error:   error,
	}
}

// InternalError 创建内部服务器错误响应
func InternalError(error string) *BaseResponse {
	return &BaseResponse{
		Code:    http.StatusInternalServerError,
		Message: "internal error",
		Error:   error,
	}
}

// GatewayTimeout 上游交换超时响应
func GatewayTimeout(error string) *BaseResponse {
	return &BaseResponse{
		Code:    http.StatusGatewayTimeout,
		Message: "kernel exchange timed out",
		Error:   error,
	}
}

// WriteJSON 将响应写出为 JSON
func (r *BaseResponse) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(r.Code)
	if err := json.NewEncoder(w).Encode(r); err != nil {
		logrus.Errorf("Failed to encode response: %v", err)
	}
}
