package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gymdesk/internal/apperr"
	"gymdesk/internal/membership"
	"gymdesk/internal/roster"
)

// lookupLimit caps member suggestions in the renewal search.
const lookupLimit = 8

func (s *Server) listPackages(c *gin.Context) {
	pkgs, err := s.members.Packages(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"packages": pkgs})
}

type createMemberRequest struct {
	Nama            string `json:"nama" binding:"nama"`
	NomorHP         string `json:"nomorHp" binding:"nomorhp"`
	FingerprintID   string `json:"fingerprintId" binding:"fingerprint"`
	PaketMembership string `json:"paketMembership"`
}

func (s *Server) createMember(c *gin.Context) {
	var req createMemberRequest
	if !bindJSON(c, &req) {
		return
	}
	m, err := s.members.Register(c.Request.Context(), membership.Registration{
		Nama:            req.Nama,
		NomorHP:         req.NomorHP,
		FingerprintID:   req.FingerprintID,
		PaketMembership: req.PaketMembership,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"member": membership.NewView(m, s.members.Now())})
}

// parseRosterQuery reads status, q and page. A page is only honoured for
// the filter and search sent with it.
func (s *Server) parseRosterQuery(c *gin.Context) (roster.Query, error) {
	f, ok := roster.ParseFilter(c.Query("status"))
	if !ok {
		return roster.Query{}, apperr.Field("status", "Status membership tidak dikenal")
	}
	q := roster.Query{PageSize: s.pageSize}.WithFilter(f).WithSearch(c.Query("q"))
	if v := c.Query("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil {
			return roster.Query{}, apperr.Field("page", "Halaman harus berupa angka")
		}
		q.Page = page
	}
	return q, nil
}

func (s *Server) listMembers(c *gin.Context) {
	q, err := s.parseRosterQuery(c)
	if err != nil {
		writeError(c, err)
		return
	}
	members, err := s.members.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, roster.Apply(members, q, s.members.Now()))
}

func (s *Server) lookupMembers(c *gin.Context) {
	members, err := s.members.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	now := s.members.Now()
	found := roster.Lookup(members, c.Query("q"), lookupLimit)
	views := make([]membership.View, 0, len(found))
	for _, m := range found {
		views = append(views, membership.NewView(m, now))
	}
	c.JSON(http.StatusOK, gin.H{"members": views})
}

func (s *Server) getMember(c *gin.Context) {
	m, err := s.members.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"member": membership.NewView(m, s.members.Now())})
}

type renewRequest struct {
	PaketMembership  string `json:"paketMembership"`
	MetodePembayaran string `json:"metodePembayaran"`
}

func (s *Server) renewMember(c *gin.Context) {
	var req renewRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	txn, err := s.members.Renew(ctx, c.Param("id"), membership.RenewalInput{
		PaketMembership:  req.PaketMembership,
		MetodePembayaran: membership.PaymentMethod(req.MetodePembayaran),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	m, err := s.members.Get(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transaction": txn, "member": membership.NewView(m, s.members.Now())})
}

func (s *Server) listRenewals(c *gin.Context) {
	txns, err := s.members.Transactions(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if txns == nil {
		txns = []membership.Transaction{}
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txns})
}
