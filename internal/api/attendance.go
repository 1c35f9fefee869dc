package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gymdesk/internal/apperr"
	"gymdesk/internal/attendance"
	"gymdesk/internal/auth"
	"gymdesk/internal/queue"
)

type checkInRequest struct {
	MemberID string `json:"memberId"`
}

func (s *Server) checkIn(c *gin.Context) {
	var req checkInRequest
	if !bindJSON(c, &req) {
		return
	}
	rec, err := s.attendance.CheckInMember(c.Request.Context(), req.MemberID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"record": rec})
}

type guestRequest struct {
	Nama    string `json:"nama" binding:"nama"`
	NomorHP string `json:"nomorHp" binding:"nomorhp"`
}

func (s *Server) registerGuest(c *gin.Context) {
	var req guestRequest
	if !bindJSON(c, &req) {
		return
	}
	g, rec, err := s.attendance.RegisterGuest(c.Request.Context(), attendance.GuestInput{Nama: req.Nama, NomorHP: req.NomorHP})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"guest": g, "record": rec})
}

func (s *Server) attendanceReport(c *gin.Context) {
	rep, err := s.attendance.Report(c.Request.Context(), attendance.ReportQuery{
		Date:   c.Query("date"),
		Month:  c.Query("month"),
		Tipe:   c.Query("tipe"),
		Status: c.Query("status"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// maxScanSkew bounds how far a device clock may drift from the server's.
const maxScanSkew = 2 * time.Minute

type scanRequest struct {
	FingerprintID string     `json:"fingerprintId" binding:"fingerprint"`
	DeviceID      string     `json:"deviceId"`
	ScannedAt     *time.Time `json:"scannedAt"`
}

// postScan queues a reader scan for the worker. The device may only report
// scans under its own id, timed close to now.
func (s *Server) postScan(c *gin.Context) {
	var req scanRequest
	if !bindJSON(c, &req) {
		return
	}
	claims, _ := auth.ClaimsFrom(c)
	if req.DeviceID == "" {
		req.DeviceID = claims.Subject
	}
	if req.DeviceID != claims.Subject {
		c.JSON(http.StatusForbidden, gin.H{"error": "device mismatch"})
		return
	}

	now := s.members.Now()
	scan := queue.Scan{FingerprintID: req.FingerprintID, DeviceID: req.DeviceID, ScannedAt: now}
	if req.ScannedAt != nil {
		if d := now.Sub(*req.ScannedAt); d > maxScanSkew || d < -maxScanSkew {
			writeError(c, apperr.Field("scannedAt", "Waktu scan terlalu jauh dari waktu server"))
			return
		}
		scan.ScannedAt = *req.ScannedAt
	}
	msg, err := queue.NewScanMessage(scan)
	if err == nil {
		err = s.queue.Publish(c.Request.Context(), msg)
	}
	if err != nil {
		writeError(c, apperr.Unavailable("queue scan", err))
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "fingerprintId": scan.FingerprintID, "scannedAt": scan.ScannedAt})
}
