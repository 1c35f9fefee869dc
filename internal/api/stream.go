package api

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"

	"gymdesk/internal/apperr"
	"gymdesk/internal/attendance"
	"gymdesk/internal/live"
	"gymdesk/internal/membership"
	"gymdesk/internal/roster"
)

// sse runs a live.Watch for the request's lifetime, writing each loaded
// value as an event. The subscription is closed when the client goes away.
func sse[T any](c *gin.Context, hub live.Hub, topic, event string, load func(context.Context) (T, error)) {
	ctx := c.Request.Context()
	updates := make(chan T, 1)
	sub, err := live.Watch(ctx, hub, topic, load, func(v T) {
		// Keep only the newest value when the client is slow.
		select {
		case <-updates:
		default:
		}
		updates <- v
	})
	if err != nil {
		writeError(c, apperr.Unavailable("subscribe "+topic, err))
		return
	}
	defer sub.Close()

	c.Stream(func(w io.Writer) bool {
		select {
		case v := <-updates:
			c.SSEvent(event, v)
			return true
		case <-sub.Done():
			return false
		case <-ctx.Done():
			return false
		}
	})
}

func (s *Server) streamMembers(c *gin.Context) {
	q, err := s.parseRosterQuery(c)
	if err != nil {
		writeError(c, err)
		return
	}
	sse(c, s.hub, membership.Topic, "members", func(ctx context.Context) (roster.Page, error) {
		members, err := s.members.List(ctx)
		if err != nil {
			return roster.Page{}, err
		}
		return roster.Apply(members, q, s.members.Now()), nil
	})
}

func (s *Server) streamAttendanceToday(c *gin.Context) {
	sse(c, s.hub, attendance.Topic, "attendance", func(ctx context.Context) ([]attendance.Record, error) {
		recs, err := s.attendance.ByDate(ctx, s.attendance.Today())
		if recs == nil && err == nil {
			recs = []attendance.Record{}
		}
		return recs, err
	})
}
