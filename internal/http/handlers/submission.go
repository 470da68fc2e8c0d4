package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/diabolofocus/form-displays-sub000/internal/platform/logger"
	"github.com/diabolofocus/form-displays-sub000/internal/services"
)

type SubmissionHandler struct {
	log   *logger.Logger
	proxy services.SubmissionProxy
}

func NewSubmissionHandler(log *logger.Logger, proxy services.SubmissionProxy) *SubmissionHandler {
	return &SubmissionHandler{log: log.With("handler", "SubmissionHandler"), proxy: proxy}
}

// GET /api/submissions
func (h *SubmissionHandler) ListSubmissions(c *gin.Context) {
	writeProxyResult(c, h.proxy.ListSubmissions(c.Request.Context()))
}

// PATCH /api/submissions/:id
func (h *SubmissionHandler) UpdateSubmission(c *gin.Context) {
	var data services.UpdateData
	if err := c.ShouldBindJSON(&data); err != nil {
		writeProxyResult(c, services.ProxyResult{
			Success: false,
			Error:   "invalid request body: " + err.Error(),
			Code:    "invalid_body",
			Status:  http.StatusBadRequest,
		})
		return
	}
	writeProxyResult(c, h.proxy.UpdateSubmission(c.Request.Context(), c.Param("id"), data))
}

// DELETE /api/submissions/:id
func (h *SubmissionHandler) DeleteSubmission(c *gin.Context) {
	writeProxyResult(c, h.proxy.DeleteSubmission(c.Request.Context(), c.Param("id")))
}

// writeProxyResult always sends the result envelope. Failures use the
// underlying status when there was one, 400 for validation, else 502.
func writeProxyResult(c *gin.Context, res services.ProxyResult) {
	status := http.StatusOK
	if !res.Success {
		switch {
		case res.Status >= 400 && res.Status <= 599:
			status = res.Status
		case res.Code == services.CodeValidation:
			status = http.StatusBadRequest
		default:
			status = http.StatusBadGateway
		}
	}
	c.JSON(status, res)
}
