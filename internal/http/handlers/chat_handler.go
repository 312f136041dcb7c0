// Chat HTTP handlers.
//
// This file exposes messaging endpoints:
//   - POST   /messages                      (multipart: text and/or files)
//   - GET    /groups/{id}/messages
//   - GET    /unread/{userID}/{groupID}
//   - POST   /unread/{userID}/{groupID}
//   - DELETE /messages/{id}
//   - GET    /chatfiles/{name}              (attachment download)
package handlers

import (
	"errors"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"github.com/munstack/conference-backend/internal/services"
	"github.com/munstack/conference-backend/internal/storage"
	"github.com/munstack/conference-backend/internal/utils"
)

// PostMessage godoc
// @ID          postMessage
// @Summary     Send a chat message
// @Description Accepts multipart form data with text content and/or file attachments. A message needs at least one of the two.
// @Tags        Chat
// @Accept      multipart/form-data
// @Produce     json
// @Param       content    formData  string  false  "Message text"
// @Param       roomId     formData  int     true   "Group ID"
// @Param       senderId   formData  int     true   "Sender delegate ID"
// @Param       timestamp  formData  string  true   "Client time, HH:MM"
// @Param       date       formData  string  true   "Client date, YYYY-MM-DD"
// @Param       files      formData  file    false  "Attachments"
// @Success     201  {object}  services.MessagePayload
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /messages [post]
func (h *Handlers) PostMessage(c *gin.Context) {
	groupID, okGroup := utils.ParseID(c.PostForm("roomId"))
	senderID, okSender := utils.ParseID(c.PostForm("senderId"))
	timestamp := c.PostForm("timestamp")
	date := c.PostForm("date")
	if !okGroup || !okSender || timestamp == "" || date == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "missing required fields")
		return
	}

	var incoming []services.IncomingFile
	if form, err := c.MultipartForm(); err == nil && form != nil {
		for _, fh := range form.File["files"] {
			if fh == nil || fh.Filename == "" {
				continue
			}
			src, err := fh.Open()
			if err != nil {
				fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
				return
			}
			defer src.Close()
			incoming = append(incoming, services.IncomingFile{
				Name: fh.Filename,
				Type: fh.Header.Get("Content-Type"),
				Data: src,
			})
		}
	}

	msg, err := h.chat.PostMessage(c.Request.Context(), groupID, senderID, c.PostForm("content"), timestamp, date, incoming)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyMessage):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message needs text or files")
		case errors.Is(err, services.ErrGroupNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "group not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, msg)
}

// GroupMessages returns a group's message history with attachment metadata
// and inline previews.
func (h *Handlers) GroupMessages(c *gin.Context) {
	groupID, okID := utils.ParseID(c.Param("id"))
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "group id must be a positive integer")
		return
	}
	msgs, err := h.chat.Messages(c.Request.Context(), groupID)
	if err != nil {
		if errors.Is(err, services.ErrGroupNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "group not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, msgs)
}

// GetUnread returns the unread counter for a user and group.
func (h *Handlers) GetUnread(c *gin.Context) {
	userID, okUser := utils.ParseID(c.Param("userID"))
	groupID, okGroup := utils.ParseID(c.Param("groupID"))
	if !okUser || !okGroup {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "ids must be positive integers")
		return
	}
	count, err := h.chat.GetUnread(c.Request.Context(), userID, groupID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"count": count})
}

// SetUnread overwrites the unread counter, typically to zero on read.
func (h *Handlers) SetUnread(c *gin.Context) {
	userID, okUser := utils.ParseID(c.Param("userID"))
	groupID, okGroup := utils.ParseID(c.Param("groupID"))
	if !okUser || !okGroup {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "ids must be positive integers")
		return
	}
	var req struct {
		Count int `json:"count"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		req.Count = 0
	}
	if req.Count < 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "count must be >= 0")
		return
	}
	if err := h.chat.SetUnread(c.Request.Context(), userID, groupID, req.Count); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"success": true})
}

// DeleteMessage removes a message and its attachments.
func (h *Handlers) DeleteMessage(c *gin.Context) {
	id, okID := utils.ParseID(c.Param("id"))
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message id must be a positive integer")
		return
	}
	if err := h.chat.DeleteMessage(c.Request.Context(), id); err != nil {
		if errors.Is(err, services.ErrMessageNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "message not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "Message deleted successfully"})
}

// DownloadChatFile serves a stored attachment as a download. The name is the
// stored blob name; the store rejects anything that escapes its root.
func (h *Handlers) DownloadChatFile(c *gin.Context) {
	name := c.Param("name")
	abs, err := h.chatFiles.Abs(name)
	if err != nil || !h.chatFiles.Exists(name) {
		if errors.Is(err, storage.ErrNotFound) || err == nil {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "file not found")
			return
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid file name")
		return
	}
	c.FileAttachment(abs, path.Base(name))
}
