package response

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	CodeBadRequest         = 40000001
	CodeUnauthorized       = 40100001
	CodeInvalidCredentials = 40100101
	CodeUsernameExists     = 40900001
	CodeEmailExists        = 40900002
	CodeNotFound           = 40400001
	CodeParseValidation    = 42200001
	CodeInternalServer     = 50000001
	CodeServiceUnavailable = 50300001
)

type SuccessResponse struct {
	Status    int         `json:"status"`
	Message   string      `json:"message"`
	Result    interface{} `json:"result"`
	Timestamp string      `json:"timestamp"`
}

type ErrorResponse struct {
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	Result    interface{} `json:"result"`
	Timestamp string      `json:"timestamp"`
}

func OK(c *gin.Context, result interface{}) {
	c.JSON(200, SuccessResponse{
		Status:    200,
		Message:   "성공",
		Result:    result,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, ErrorResponse{
		Code:      code,
		Message:   message,
		Result:    nil,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
