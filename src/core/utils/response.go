package utils

import (
	"github.com/gin-gonic/gin"
)

// UnifiedResponse 统一错误响应结构体
// 成功响应由各接口按对外契约直接返回，错误响应统一走这里。
type UnifiedResponse struct {
	Code    int    `json:"code"`              // HTTP状态码
	Success bool   `json:"success"`           // 是否成功
	Message string `json:"message,omitempty"` // 消息描述
	Error   string `json:"error,omitempty"`   // 错误详情
}

// Error 返回错误响应
func Error(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, UnifiedResponse{
		Code:    statusCode,
		Success: false,
		Message: message,
	})
}

// ErrorWithDetail 返回带详细错误信息的错误响应
func ErrorWithDetail(c *gin.Context, statusCode int, message string, err error) {
	resp := UnifiedResponse{
		Code:    statusCode,
		Success: false,
		Message: message,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	c.JSON(statusCode, resp)
}
