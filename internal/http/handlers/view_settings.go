package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/diabolofocus/form-displays-sub000/internal/http/response"
	"github.com/diabolofocus/form-displays-sub000/internal/services"
	"github.com/diabolofocus/form-displays-sub000/internal/viewconfig"
)

// SelectedFormAlias in a :formId path segment means the selected form.
const SelectedFormAlias = "selected"

type ViewSettingsHandler struct {
	svc services.ViewSettingsService
}

func NewViewSettingsHandler(svc services.ViewSettingsService) *ViewSettingsHandler {
	return &ViewSettingsHandler{svc: svc}
}

type setFieldsRequest struct {
	Fields []viewconfig.Field `json:"fields"`
}

type columnVisibilityRequest struct {
	Visible *bool `json:"visible"`
}

type columnOrderRequest struct {
	FieldNames []string `json:"fieldNames"`
}

type selectFormRequest struct {
	FormID string `json:"formId"`
}

func formIDParam(c *gin.Context) string {
	id := c.Param("formId")
	if id == SelectedFormAlias {
		return ""
	}
	return id
}

// GET /api/forms/:formId/view-settings
func (h *ViewSettingsHandler) GetSettings(c *gin.Context) {
	fs, err := h.svc.Settings(c.Request.Context(), formIDParam(c))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"settings": fs})
}

// PUT /api/forms/:formId/view-settings
func (h *ViewSettingsHandler) PutSettings(c *gin.Context) {
	var req setFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	fs, err := h.svc.SetFields(c.Request.Context(), formIDParam(c), req.Fields)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"settings": fs})
}

// GET /api/forms/:formId/columns
func (h *ViewSettingsHandler) GetColumns(c *gin.Context) {
	cols, err := h.svc.VisibleColumns(c.Request.Context(), formIDParam(c))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"columns": cols})
}

// PATCH /api/forms/:formId/columns/:fieldName
func (h *ViewSettingsHandler) PatchColumn(c *gin.Context) {
	var req columnVisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if req.Visible == nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", errors.New("visible is required"))
		return
	}
	fs, err := h.svc.SetColumnVisibility(c.Request.Context(), formIDParam(c), c.Param("fieldName"), *req.Visible)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"settings": fs})
}

// PUT /api/forms/:formId/columns/order
func (h *ViewSettingsHandler) PutColumnOrder(c *gin.Context) {
	var req columnOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	fs, err := h.svc.ReorderColumns(c.Request.Context(), formIDParam(c), req.FieldNames)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"settings": fs})
}

// POST /api/forms/:formId/view-settings/reset
func (h *ViewSettingsHandler) Reset(c *gin.Context) {
	fs, err := h.svc.Reset(c.Request.Context(), formIDParam(c))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"settings": fs})
}

// POST /api/view-settings/save
func (h *ViewSettingsHandler) Save(c *gin.Context) {
	if err := h.svc.Save(c.Request.Context()); err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"status": h.svc.Status()})
}

// GET /api/view-settings/status
func (h *ViewSettingsHandler) Status(c *gin.Context) {
	response.RespondOK(c, gin.H{"status": h.svc.Status()})
}

// GET /api/selected-form
func (h *ViewSettingsHandler) GetSelectedForm(c *gin.Context) {
	response.RespondOK(c, gin.H{"selectedFormId": h.svc.SelectedForm()})
}

// PUT /api/selected-form
func (h *ViewSettingsHandler) PutSelectedForm(c *gin.Context) {
	var req selectFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	changed, err := h.svc.SelectForm(c.Request.Context(), req.FormID)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"selectedFormId": h.svc.SelectedForm(), "changed": changed})
}
