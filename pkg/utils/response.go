package utils

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Response represents a standard API response
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp string      `json:"timestamp"`
	Meta      interface{} `json:"meta,omitempty"`
}

// ErrorResponse represents an error response with request context
type ErrorResponse struct {
	Success   bool        `json:"success"`
	Error     string      `json:"error"`
	Code      int         `json:"code"`
	Timestamp string      `json:"timestamp"`
	Request   RequestInfo `json:"request"`
	Details   interface{} `json:"details,omitempty"`
}

// RequestInfo provides context about the failed request
type RequestInfo struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Query  string `json:"query,omitempty"`
}

// SendSuccess sends a successful response
func SendSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// SendAccepted sends a 202 response for asynchronously processed requests
func SendAccepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// SendSuccessWithMeta sends a successful response with metadata
func SendSuccessWithMeta(c *gin.Context, data interface{}, meta interface{}) {
	c.JSON(http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Meta:      meta,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// SendError sends an error response with request context
func SendError(c *gin.Context, statusCode int, message string) {
	errorResponse := ErrorResponse{
		Success:   false,
		Error:     message,
		Code:      statusCode,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Request: RequestInfo{
			Method: c.Request.Method,
			Path:   c.Request.URL.Path,
			Query:  c.Request.URL.RawQuery,
		},
	}

	if statusCode == http.StatusNotFound {
		if suggestions := suggestEndpoints(c.Request.URL.Path); len(suggestions) > 0 {
			errorResponse.Details = map[string]interface{}{
				"suggestions": suggestions,
			}
		}
	}

	c.JSON(statusCode, errorResponse)
}

var knownEndpoints = []string{
	"/health",
	"/metrics",
	"/api/v1/devices",
	"/api/v1/polling",
	"/api/v1/auth/login",
	"/api/v1/system/info",
	"/api/v1/diagnostics/snapshot",
	"/ws",
}

// suggestEndpoints returns known endpoints that resemble the requested path
func suggestEndpoints(path string) []string {
	pathLower := strings.ToLower(path)

	var suggestions []string
	for _, endpoint := range knownEndpoints {
		parts := strings.Split(strings.Trim(endpoint, "/"), "/")
		last := parts[len(parts)-1]
		if strings.Contains(pathLower, last) {
			suggestions = append(suggestions, endpoint)
		}
	}
	if len(suggestions) > 5 {
		suggestions = suggestions[:5]
	}
	return suggestions
}
