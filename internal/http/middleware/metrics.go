package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/diabolofocus/form-displays-sub000/internal/observability"
)

// Metrics records request counts and latency by route template. Requests
// that match no route are grouped under "unmatched" so arbitrary paths do
// not create new series.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		m.ApiInflightInc()
		defer m.ApiInflightDec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveAPI(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
