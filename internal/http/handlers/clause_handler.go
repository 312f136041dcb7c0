// Clause HTTP handlers.
//
// This file exposes the clause lifecycle endpoints:
//   - POST /upload/{committee}                    (docx upload + conversion)
//   - GET  /files/{committee}                     (committee clause listing)
//   - GET  /clause/{id}                           (full clause with HTML)
//   - GET  /clause/{id}/status
//   - POST /clause/{id}/publish|reject|unpublish
//   - POST /clause/{id}/update-content
//   - GET  /committee/{committee}/published-clause
//   - GET  /committee/{committee}/current-clause  (includes active amendment)
//   - POST /clause/{id}/format                    (validate before streaming)
//   - GET  /clause/{id}/stream-format             (SSE reformat stream)
//
// Handlers are transport-thin: they validate and normalize inputs, delegate
// to ClauseService, and map service sentinels onto HTTP statuses.
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/munstack/conference-backend/internal/convert"
	"github.com/munstack/conference-backend/internal/format"
	"github.com/munstack/conference-backend/internal/http/middleware"
	"github.com/munstack/conference-backend/internal/services"
	"github.com/munstack/conference-backend/internal/utils"
)

//
// DTOs
//

// ClauseListItem is one row of the committee file listing. The converted HTML
// is deliberately omitted; clients fetch it per clause.
type ClauseListItem struct {
	ID          int64  `json:"id"`
	Filename    string `json:"filename"`
	Country     string `json:"country"`
	Timestamp   string `json:"timestamp"`
	IsPublished bool   `json:"is_published"`
	IsRejected  bool   `json:"is_rejected"`
	IsPassed    bool   `json:"is_passed"`
}

// PublishClauseRequest is the JSON payload for publishing a clause.
type PublishClauseRequest struct {
	Committee string `json:"committee" binding:"required"`
	// Content optionally overwrites the stored HTML at publish time.
	Content string `json:"content"`
}

// UpdateClauseContentRequest carries externally formatted clause HTML. The
// frontend posts formatted_content; content is accepted as an alias.
type UpdateClauseContentRequest struct {
	FormattedContent string `json:"formatted_content"`
	Content          string `json:"content"`
}

//
// Handlers
//

// UploadClause godoc
// @ID          uploadClause
// @Summary     Upload a clause document
// @Description Accepts a .docx file, converts it to HTML, and stores it as a new clause for the committee.
// @Tags        Clauses
// @Accept      multipart/form-data
// @Produce     json
// @Param       committee  path      string  true  "Committee name"
// @Param       file       formData  file    true  "Clause document (.docx)"
// @Param       X-Country  header    string  false "Submitting country"
// @Success     200  {object}  map[string]any
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /upload/{committee} [post]
func (h *Handlers) UploadClause(c *gin.Context) {
	ctx := c.Request.Context()
	committee := c.Param("committee")

	fh, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "no file part")
		return
	}
	if fh.Filename == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "no selected file")
		return
	}
	country := c.GetHeader("X-Country")
	if country == "" {
		country = "Unknown"
	}

	src, err := fh.Open()
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeUploadFailed, err.Error())
		return
	}
	defer src.Close()

	clause, err := h.clauses.Upload(ctx, committee, country, fh.Filename, src)
	if err != nil {
		var convErr *convert.ConversionError
		switch {
		case errors.Is(err, services.ErrUnknownCommittee):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown committee")
		case errors.Is(err, services.ErrUnsupportedFile):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid file type")
		case errors.As(err, &convErr):
			fail(c, http.StatusInternalServerError, ErrCodeConversionFailed, fmt.Sprintf("conversion failed: %v", convErr))
		default:
			fail(c, http.StatusInternalServerError, ErrCodeUploadFailed, err.Error())
		}
		return
	}

	ok(c, http.StatusOK, gin.H{"message": "File uploaded successfully", "id": clause.ID})
}

// ListFiles godoc
// @ID          listFiles
// @Summary     List a committee's clauses
// @Tags        Clauses
// @Produce     json
// @Param       committee  path  string  true  "Committee name"
// @Success     200  {array}   handlers.ClauseListItem
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /files/{committee} [get]
func (h *Handlers) ListFiles(c *gin.Context) {
	clauses, err := h.clauses.List(c.Request.Context(), c.Param("committee"))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	items := make([]ClauseListItem, 0, len(clauses))
	for _, cl := range clauses {
		items = append(items, ClauseListItem{
			ID:          cl.ID,
			Filename:    cl.Filename,
			Country:     cl.Country,
			Timestamp:   cl.Timestamp.Format(timestampLayout),
			IsPublished: cl.IsPublished,
			IsRejected:  cl.IsRejected,
			IsPassed:    cl.IsPassed,
		})
	}
	ok(c, http.StatusOK, items)
}

// GetClause returns a single clause with its converted HTML.
func (h *Handlers) GetClause(c *gin.Context) {
	id, okID := utils.ParseID(c.Param("id"))
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "clause id must be a positive integer")
		return
	}
	clause, err := h.clauses.Get(c.Request.Context(), id)
	if err != nil {
		h.clauseError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{
		"id":           clause.ID,
		"committee":    clause.Committee,
		"country":      clause.Country,
		"filename":     clause.Filename,
		"html_content": clause.HTMLContent,
		"timestamp":    clause.Timestamp.Format(timestampLayout),
	})
}

// ClauseStatus reports the publish state of a clause.
func (h *Handlers) ClauseStatus(c *gin.Context) {
	id, okID := utils.ParseID(c.Param("id"))
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "clause id must be a positive integer")
		return
	}
	clause, err := h.clauses.Get(c.Request.Context(), id)
	if err != nil {
		h.clauseError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{
		"is_published": clause.IsPublished,
		"committee":    clause.Committee,
		"country":      clause.Country,
	})
}

// PublishClause godoc
// @ID          publishClause
// @Summary     Publish a clause into the committee's single publish slot
// @Description Fails with 409 when a different clause is already published for the committee.
// @Tags        Clauses
// @Accept      json
// @Produce     json
// @Param       id    path  int                             true  "Clause ID"
// @Param       body  body  handlers.PublishClauseRequest   true  "Publish payload"
// @Success     200  {object}  map[string]any
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     409  {object}  handlers.ErrorResponse
// @Router      /clause/{id}/publish [post]
func (h *Handlers) PublishClause(c *gin.Context) {
	id, okID := utils.ParseID(c.Param("id"))
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "clause id must be a positive integer")
		return
	}
	var req PublishClauseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "committee required")
		return
	}

	if _, err := h.clauses.Publish(c.Request.Context(), id, req.Committee, req.Content); err != nil {
		switch {
		case errors.Is(err, services.ErrClausePublished):
			fail(c, http.StatusConflict, ErrCodeConflict, "another clause is already published for this committee")
		default:
			h.clauseError(c, err)
		}
		return
	}
	ok(c, http.StatusOK, gin.H{"success": true, "message": "Clause published successfully"})
}

// RejectClause clears the publish flag and marks the clause rejected.
func (h *Handlers) RejectClause(c *gin.Context) {
	id, okID := utils.ParseID(c.Param("id"))
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "clause id must be a positive integer")
		return
	}
	if _, err := h.clauses.Reject(c.Request.Context(), id); err != nil {
		h.clauseError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"success": true, "message": "Clause rejected successfully"})
}

// UnpublishClause clears the publish flag only.
func (h *Handlers) UnpublishClause(c *gin.Context) {
	id, okID := utils.ParseID(c.Param("id"))
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "clause id must be a positive integer")
		return
	}
	if _, err := h.clauses.Unpublish(c.Request.Context(), id); err != nil {
		h.clauseError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"success": true, "message": "Clause unpublished successfully"})
}

// PublishedClause returns the committee's currently published clause.
func (h *Handlers) PublishedClause(c *gin.Context) {
	clause, err := h.clauses.PublishedClause(c.Request.Context(), c.Param("committee"))
	if err != nil {
		if errors.Is(err, services.ErrNoPublishedClause) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "no published clause found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{
		"id":        clause.ID,
		"content":   clause.HTMLContent,
		"country":   clause.Country,
		"filename":  clause.Filename,
		"timestamp": clause.Timestamp.Format(timestampLayout),
	})
}

// CurrentClause returns the published clause together with the ID of any
// amendment currently under debate against it.
func (h *Handlers) CurrentClause(c *gin.Context) {
	clause, activeAmendmentID, err := h.clauses.CurrentClause(c.Request.Context(), c.Param("committee"))
	if err != nil {
		if errors.Is(err, services.ErrNoPublishedClause) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "no published clause")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	body := gin.H{
		"id":           clause.ID,
		"committee":    clause.Committee,
		"country":      clause.Country,
		"filename":     clause.Filename,
		"content":      clause.HTMLContent,
		"is_published": clause.IsPublished,
		"is_amended":   clause.IsAmended,
		"timestamp":    clause.Timestamp.Format(timestampLayout),
	}
	if activeAmendmentID != nil {
		body["active_amendment_id"] = *activeAmendmentID
	}
	ok(c, http.StatusOK, body)
}

// UpdateClauseContent overwrites the stored HTML with formatted content.
func (h *Handlers) UpdateClauseContent(c *gin.Context) {
	id, okID := utils.ParseID(c.Param("id"))
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "clause id must be a positive integer")
		return
	}
	var req UpdateClauseContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}
	content := req.FormattedContent
	if content == "" {
		content = req.Content
	}
	if err := h.clauses.UpdateContent(c.Request.Context(), id, content); err != nil {
		if errors.Is(err, services.ErrEmptyContent) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
			return
		}
		h.clauseError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"success": true, "message": "Clause content updated"})
}

// InitiateFormat validates that a clause exists before the client opens the
// streaming endpoint. The actual upstream call happens in StreamFormat, which
// can carry a streamed response body.
func (h *Handlers) InitiateFormat(c *gin.Context) {
	id, okID := utils.ParseID(c.Param("id"))
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "clause id must be a positive integer")
		return
	}
	if _, err := h.clauses.Get(c.Request.Context(), id); err != nil {
		h.clauseError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"success": true, "message": "Formatting initiated", "clause_id": id})
}

// StreamFormat godoc
// @ID          streamFormat
// @Summary     Stream a reformatted clause
// @Description Proxies the upstream chat-completions stream as Server-Sent Events. Each piece of text arrives as `data: {"chunk": ...}`, followed by `data: {"done": true}` and a final `data: {"final_content": ...}` carrying the cleaned result, which is also persisted to the clause. Failures arrive as `data: {"error": ...}`.
// @Tags        Clauses
// @Produce     text/event-stream
// @Param       id  path  int  true  "Clause ID"
// @Success     200  {string}  string  "SSE stream"
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /clause/{id}/stream-format [get]
func (h *Handlers) StreamFormat(c *gin.Context) {
	ctx := c.Request.Context()
	id, okID := utils.ParseID(c.Param("id"))
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "clause id must be a positive integer")
		return
	}
	clause, err := h.clauses.Get(ctx, id)
	if err != nil {
		h.clauseError(c, err)
		return
	}

	clearWriteDeadline(c)
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.Flush()

	flusher, _ := c.Writer.(http.Flusher)
	writeEvent := func(v any) error {
		if err := writeSSEJSON(c.Writer, v); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}

	final, err := h.formatter.StreamReformat(ctx, clause.HTMLContent, func(chunk string) error {
		return writeEvent(gin.H{"chunk": chunk})
	})
	if err != nil {
		var upstream *format.UpstreamError
		if errors.As(err, &upstream) {
			_ = writeEvent(gin.H{"error": fmt.Sprintf("API error: %d", upstream.StatusCode)})
		} else {
			_ = writeEvent(gin.H{"error": err.Error()})
		}
		middleware.LoggerFrom(c).Error().Err(err).Int64("clause_id", id).Msg("stream format failed")
		return
	}

	_ = writeEvent(gin.H{"done": true})

	// Persist the cleaned result so a page reload shows the formatted clause.
	if err := h.clauses.UpdateContent(ctx, id, final); err != nil {
		_ = writeEvent(gin.H{"error": "failed to save formatted content"})
		return
	}
	_ = writeEvent(gin.H{"final_content": final})
}

// clauseError maps common clause service errors onto HTTP responses.
func (h *Handlers) clauseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrClauseNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "clause not found")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}

// timestampLayout renders stored timestamps in the ISO shape the frontend
// already parses.
const timestampLayout = "2006-01-02T15:04:05"
