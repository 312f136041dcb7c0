// Real-time event stream.
//
// GET /events exposes the broadcast bus over Server-Sent Events. Clients
// declare their interest with query parameters instead of joining named
// socket rooms:
//
//	/events?all=1                     every event
//	/events?committee=junior          one committee's room
//	/events?group=4&group=7           chat group rooms
//	/events?user=12                   the delegate's personal room
//
// Parameters combine: an event is delivered when any declared interest
// matches its audience. Delivery is fire-and-forget; a client that cannot
// keep up has events dropped by the bus rather than blocking publishers.
package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/munstack/conference-backend/internal/broadcast"
	"github.com/munstack/conference-backend/internal/http/middleware"
	"github.com/munstack/conference-backend/internal/utils"
)

// keepAliveInterval bounds how long a quiet stream goes without traffic so
// proxies do not reap the connection.
const keepAliveInterval = 25 * time.Second

// Events godoc
// @ID          events
// @Summary     Subscribe to the real-time event stream
// @Description Streams broadcast events as Server-Sent Events. Interests are declared via query parameters (all, committee, group, user) and combine additively.
// @Tags        Events
// @Produce     text/event-stream
// @Param       all        query  bool    false  "Receive every event"
// @Param       committee  query  string  false  "Committee room (repeatable)"
// @Param       group      query  int     false  "Chat group room (repeatable)"
// @Param       user       query  int     false  "Personal user room (repeatable)"
// @Success     200  {string}  string  "SSE stream"
// @Failure     400  {object}  handlers.ErrorResponse
// @Router      /events [get]
func (h *Handlers) Events(c *gin.Context) {
	interest, errMsg := interestFromQuery(c)
	if errMsg != "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, errMsg)
		return
	}

	id, ch := h.bus.Subscribe(interest)
	defer h.bus.Unsubscribe(id)

	clearWriteDeadline(c)
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.Flush()

	flusher, _ := c.Writer.(http.Flusher)
	lg := middleware.LoggerFrom(c)

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(c.Writer, ": keep-alive\n\n"); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		case ev, open := <-ch:
			if !open {
				return
			}
			if err := writeSSENamed(c.Writer, ev.Type, ev.Payload); err != nil {
				lg.Debug().Err(err).Msg("event stream write failed")
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

// interestFromQuery builds a broadcast.Interest from the request's query
// parameters. Returns a non-empty message when a parameter is malformed or no
// interest was declared at all.
func interestFromQuery(c *gin.Context) (broadcast.Interest, string) {
	in := broadcast.Interest{
		Committees: make(map[string]struct{}),
		Groups:     make(map[int64]struct{}),
		Users:      make(map[int64]struct{}),
	}
	declared := false

	if all := c.Query("all"); all == "1" || all == "true" {
		in.All = true
		declared = true
	}
	for _, committee := range c.QueryArray("committee") {
		if committee == "" {
			return in, "committee must not be empty"
		}
		in.Committees[committee] = struct{}{}
		declared = true
	}
	for _, raw := range c.QueryArray("group") {
		id, okID := utils.ParseID(raw)
		if !okID {
			return in, "group must be a positive integer"
		}
		in.Groups[id] = struct{}{}
		declared = true
	}
	for _, raw := range c.QueryArray("user") {
		id, okID := utils.ParseID(raw)
		if !okID {
			return in, "user must be a positive integer"
		}
		in.Users[id] = struct{}{}
		declared = true
	}

	if !declared {
		return in, "declare at least one interest: all, committee, group, or user"
	}
	return in, ""
}
