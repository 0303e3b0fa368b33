package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/hemline/internal/pkg/errcode"
)

type Body struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	SuccessWithStatus(c, http.StatusOK, data)
}

func SuccessWithStatus(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Body{Code: errcode.Success, Message: "success", Data: data})
}

func Error(c *gin.Context, status int, code int, message string) {
	c.JSON(status, Body{Code: code, Message: message})
}

// ErrorWithData writes an error body that still carries a payload, e.g. the
// expired flag of a rejected credential.
func ErrorWithData(c *gin.Context, status int, code int, message string, data interface{}) {
	c.JSON(status, Body{Code: code, Message: message, Data: data})
}
