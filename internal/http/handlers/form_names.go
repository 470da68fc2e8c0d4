package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/diabolofocus/form-displays-sub000/internal/http/response"
	"github.com/diabolofocus/form-displays-sub000/internal/services"
)

type FormNamesHandler struct {
	names *services.FormNames
}

func NewFormNamesHandler(names *services.FormNames) *FormNamesHandler {
	return &FormNamesHandler{names: names}
}

// GET /api/forms/names?ids=a&ids=b (or ids=a,b)
func (h *FormNamesHandler) GetNames(c *gin.Context) {
	ids := make([]string, 0)
	seen := map[string]struct{}{}
	for _, raw := range c.QueryArray("ids") {
		for _, id := range strings.Split(raw, ",") {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	names, fellBack := h.names.Lookup(c.Request.Context(), ids)
	response.RespondOK(c, gin.H{"names": names, "fellBack": fellBack})
}
