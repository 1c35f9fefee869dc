package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gymdesk/internal/apperr"
	"gymdesk/internal/report"
)

func (s *Server) loadDashboard(ctx context.Context) (report.Dashboard, error) {
	members, err := s.members.List(ctx)
	if err != nil {
		return report.Dashboard{}, err
	}
	today, err := s.attendance.ByDate(ctx, s.attendance.Today())
	if err != nil {
		return report.Dashboard{}, err
	}
	return report.BuildDashboard(members, today, s.members.Now()), nil
}

func (s *Server) dashboard(c *gin.Context) {
	d, err := s.loadDashboard(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// visits returns the visit chart; days defaults to 7.
func (s *Server) visits(c *gin.Context) {
	days := 7
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > report.MaxDays {
			writeError(c, apperr.Field("days", "Jumlah hari harus antara 1 dan "+strconv.Itoa(report.MaxDays)))
			return
		}
		days = n
	}
	points := report.Aggregate(c.Request.Context(), days, s.members.Now(), s.attendance.ByDate)
	c.JSON(http.StatusOK, gin.H{"days": points})
}
