// Amendment HTTP handlers.
//
// This file exposes the amendment state machine over REST:
//   - POST   /amendments/add
//   - GET    /amendments?committee=
//   - GET    /amendments/{id}
//   - POST   /amendments/{id}/publish|reject|approve|unpublish|finalize
//   - POST   /amendments/{id}/update-amended-clause
//   - PUT    /committee/{committee}/current-clause   (open debate)
//   - POST   /amendments/delete                      (archive + clear all)
//   - DELETE /amendments/delete/{id}                 (archive + delete one)
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/munstack/conference-backend/internal/services"
	"github.com/munstack/conference-backend/internal/utils"
)

//
// DTOs
//

// AddAmendmentRequest is the JSON payload for submitting an amendment.
type AddAmendmentRequest struct {
	Amendment string `json:"amendment" binding:"required"`
	Country   string `json:"country"   binding:"required"`
	Committee string `json:"committee" binding:"required"`
	ClauseID  *int64 `json:"clause_id"`
}

// OpenDebateRequest moves an amendment under debate against the committee's
// published clause.
type OpenDebateRequest struct {
	AmendmentID int64  `json:"amendment_id" binding:"required"`
	Content     string `json:"content"`
}

// FinalizeRequest resolves a debated amendment in one call.
type FinalizeRequest struct {
	Approved bool `json:"approved"`
}

// UpdateAmendedClauseRequest replaces the working amended text.
type UpdateAmendedClauseRequest struct {
	AmendedClause string `json:"amended_clause" binding:"required"`
}

//
// Handlers
//

// AddAmendment godoc
// @ID          addAmendment
// @Summary     Submit a new amendment
// @Tags        Amendments
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.AddAmendmentRequest  true  "Amendment payload"
// @Success     200  {object}  map[string]any
// @Failure     400  {object}  handlers.ErrorResponse
// @Router      /amendments/add [post]
func (h *Handlers) AddAmendment(c *gin.Context) {
	var req AddAmendmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "amendment, country, and committee required")
		return
	}
	if _, err := h.amendments.Submit(c.Request.Context(), req.Amendment, req.Country, req.Committee, req.ClauseID); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "Amendment added successfully."})
}

// ListAmendments returns a committee's amendments, newest first, each
// annotated with its clause's publish state.
func (h *Handlers) ListAmendments(c *gin.Context) {
	committee := c.Query("committee")
	if committee == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "committee is required")
		return
	}
	views, err := h.amendments.List(c.Request.Context(), committee)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, views)
}

// GetAmendment returns a single amendment.
func (h *Handlers) GetAmendment(c *gin.Context) {
	id, okID := utils.ParseID(c.Param("id"))
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "amendment id must be a positive integer")
		return
	}
	a, err := h.amendments.Get(c.Request.Context(), id)
	if err != nil {
		h.amendmentError(c, err)
		return
	}
	ok(c, http.StatusOK, a)
}

// OpenDebate attaches an amendment to the committee's published clause and
// marks it under debate.
func (h *Handlers) OpenDebate(c *gin.Context) {
	var req OpenDebateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "amendment_id required")
		return
	}
	err := h.amendments.OpenDebate(c.Request.Context(), c.Param("committee"), req.AmendmentID, req.Content)
	if err != nil {
		if errors.Is(err, services.ErrNoPublishedClause) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "no published clause")
			return
		}
		h.amendmentError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "Amendment published successfully"})
}

// PublishAmendment flips the publish flag without touching any clause.
func (h *Handlers) PublishAmendment(c *gin.Context) {
	h.amendmentAction(c, h.amendments.Publish, "Amendment published successfully")
}

// RejectAmendment moves the amendment to the Rejected state.
func (h *Handlers) RejectAmendment(c *gin.Context) {
	h.amendmentAction(c, h.amendments.Reject, "Amendment rejected and removed")
}

// ApproveAmendment passes the amendment and rewrites the debated clause.
func (h *Handlers) ApproveAmendment(c *gin.Context) {
	h.amendmentAction(c, h.amendments.Approve, "Amendment approved successfully")
}

// UnpublishAmendment reverts the amendment to Draft and restores the clause.
func (h *Handlers) UnpublishAmendment(c *gin.Context) {
	h.amendmentAction(c, h.amendments.Unpublish, "Amendment unpublished and changes reverted")
}

// FinalizeAmendment resolves a debated amendment as approved or rejected.
func (h *Handlers) FinalizeAmendment(c *gin.Context) {
	id, okID := utils.ParseID(c.Param("id"))
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "amendment id must be a positive integer")
		return
	}
	var req FinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "approved required")
		return
	}
	if err := h.amendments.Finalize(c.Request.Context(), id, req.Approved); err != nil {
		h.amendmentError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "Amendment finalized successfully"})
}

// UpdateAmendedClause replaces the amendment's working amended text.
func (h *Handlers) UpdateAmendedClause(c *gin.Context) {
	id, okID := utils.ParseID(c.Param("id"))
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "amendment id must be a positive integer")
		return
	}
	var req UpdateAmendedClauseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "amended clause content is required")
		return
	}
	if err := h.amendments.UpdateAmendedClause(c.Request.Context(), id, req.AmendedClause); err != nil {
		if errors.Is(err, services.ErrEmptyContent) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "amended clause content is required")
			return
		}
		h.amendmentError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "Amendment updated successfully"})
}

// DeleteAllAmendments archives every amendment to the JSON archive file and
// clears the table.
func (h *Handlers) DeleteAllAmendments(c *gin.Context) {
	if err := h.amendments.ArchiveAndDeleteAll(c.Request.Context()); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "All amendments have been deleted and archived."})
}

// DeleteAmendment archives one amendment and removes it.
func (h *Handlers) DeleteAmendment(c *gin.Context) {
	id, okID := utils.ParseID(c.Param("id"))
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "amendment id must be a positive integer")
		return
	}
	if err := h.amendments.ArchiveAndDeleteOne(c.Request.Context(), id); err != nil {
		h.amendmentError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": fmt.Sprintf("Amendment %d has been deleted and archived.", id)})
}

// amendmentAction runs one of the single-ID lifecycle transitions and writes
// a uniform success body.
func (h *Handlers) amendmentAction(c *gin.Context, action func(context.Context, int64) error, msg string) {
	id, okID := utils.ParseID(c.Param("id"))
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "amendment id must be a positive integer")
		return
	}
	if err := action(c.Request.Context(), id); err != nil {
		h.amendmentError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"success": true, "message": msg})
}

// amendmentError maps common amendment service errors onto HTTP responses.
func (h *Handlers) amendmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrAmendmentNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "amendment not found")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
