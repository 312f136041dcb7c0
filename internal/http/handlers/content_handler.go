// Committee content and resolution HTTP handlers.
//
//   - GET  /current?group=             (working-document content)
//   - POST /current
//   - GET  /api/resolutions/{committee}
//   - POST /api/resolutions/{committee}
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/munstack/conference-backend/internal/services"
)

// SetContentRequest stores working content for a committee room.
type SetContentRequest struct {
	Group   string `json:"group"   binding:"required"`
	Content string `json:"content"`
}

// AddResolutionRequest records an adopted resolution; ClauseID optionally
// marks the source clause as passed.
type AddResolutionRequest struct {
	Data     string `json:"data" binding:"required"`
	ClauseID *int64 `json:"clauseId"`
}

// normalizeCommittee converts URL-friendly committee names to their stored
// form ("security-council" to "security council") and lowercases.
func normalizeCommittee(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "-", " ")
}

// CurrentContent returns the committee's stored working content.
func (h *Handlers) CurrentContent(c *gin.Context) {
	group := normalizeCommittee(c.Query("group"))
	content, err := h.content.CurrentContent(c.Request.Context(), group)
	if err != nil {
		if errors.Is(err, services.ErrUnknownCommittee) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid group")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"content": content})
}

// SetCurrentContent stores working content and broadcasts it to the room.
func (h *Handlers) SetCurrentContent(c *gin.Context) {
	var req SetContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "group required")
		return
	}
	group := normalizeCommittee(req.Group)
	if err := h.content.SetContent(c.Request.Context(), group, req.Content); err != nil {
		if errors.Is(err, services.ErrUnknownCommittee) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid group")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "Content stored and broadcasted successfully"})
}

// Resolutions lists a committee's adopted resolutions.
func (h *Handlers) Resolutions(c *gin.Context) {
	committee := normalizeCommittee(c.Param("committee"))
	list, err := h.content.Resolutions(c.Request.Context(), committee)
	if err != nil {
		if errors.Is(err, services.ErrUnknownCommittee) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid committee")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, list)
}

// AddResolution records an adopted resolution for a committee.
func (h *Handlers) AddResolution(c *gin.Context) {
	committee := normalizeCommittee(c.Param("committee"))
	var req AddResolutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "data required")
		return
	}
	if _, err := h.content.AddResolution(c.Request.Context(), committee, req.Data, req.ClauseID); err != nil {
		if errors.Is(err, services.ErrUnknownCommittee) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid committee")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "Resolution added successfully"})
}
