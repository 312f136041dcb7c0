// Group and delegate HTTP handlers.
//
//   - GET  /delegates
//   - GET  /searchgroup/{id}   (a delegate's groups with unread annotations)
//   - POST /groups             (create a group, post the invite message)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/munstack/conference-backend/internal/services"
	"github.com/munstack/conference-backend/internal/utils"
)

// CreateGroupRequest is the JSON payload for creating a chat group.
type CreateGroupRequest struct {
	Name           string  `json:"name" binding:"required"`
	DelegateIDs    []int64 `json:"delegate_ids" binding:"required"`
	InvitingUserID int64   `json:"inviting_user_id" binding:"required"`
}

// Delegates lists every delegate with their group memberships.
func (h *Handlers) Delegates(c *gin.Context) {
	delegates, err := h.groups.Delegates(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, delegates)
}

// SearchGroups returns the groups a delegate belongs to, annotated with last
// message and unread count.
func (h *Handlers) SearchGroups(c *gin.Context) {
	id, okID := utils.ParseID(c.Param("id"))
	if !okID {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "delegate id must be a positive integer")
		return
	}
	groups, err := h.groups.GroupsForDelegate(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrDelegateNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "delegate not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, groups)
}

// CreateGroup godoc
// @ID          createGroup
// @Summary     Create a chat group
// @Description Creates a group with the given members, posts a system message naming the invited delegates, and notifies each member's personal room.
// @Tags        Groups
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.CreateGroupRequest  true  "Group payload"
// @Success     201  {object}  services.GroupSummary
// @Failure     400  {object}  handlers.ErrorResponse
// @Router      /groups [post]
func (h *Handlers) CreateGroup(c *gin.Context) {
	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "name, delegate_ids, and inviting_user_id required")
		return
	}
	summary, err := h.groups.CreateGroup(c.Request.Context(), req.Name, req.DelegateIDs, req.InvitingUserID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidDelegates):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "some delegate IDs are invalid")
		case errors.Is(err, services.ErrDelegateNotFound):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid inviting user ID")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, summary)
}
