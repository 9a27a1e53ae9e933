// Package handlers exposes the GRC collections over a JSON API.
package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"grc-isms/internal/apperr"
	"grc-isms/internal/auth"
	"grc-isms/internal/ident"
	"grc-isms/internal/metrics"
	"grc-isms/internal/middleware"
	"grc-isms/internal/models"
	"grc-isms/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	st      store.Store
	ids     *ident.Allocator
	tokens  *auth.Tokens
	journal *middleware.Journal
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	started time.Time
}

func New(st store.Store, ids *ident.Allocator, tokens *auth.Tokens, journal *middleware.Journal, log *zap.Logger, m *metrics.Metrics) *Handlers {
	return &Handlers{
		st:      st,
		ids:     ids,
		tokens:  tokens,
		journal: journal,
		log:     log,
		metrics: m,
		now:     time.Now,
		started: time.Now(),
	}
}

// SetClock overrides the time source used by the reports.
func (h *Handlers) SetClock(now func() time.Time) {
	h.now = now
}

var errBadDate = errors.New("bad date")

// Date accepts both "2006-01-02" and RFC 3339 timestamps.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		d.Time = t.UTC()
		return nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return errBadDate
	}
	d.Time = t
	return nil
}

// timePtr returns nil for a nil or zero date.
func timePtr(d *Date) *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

func idParam(c *gin.Context, name string) (uint, error) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, apperr.Invalid(name, "invalid ID format")
	}
	return uint(n), nil
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

type filterKind int

const (
	filterString filterKind = iota
	filterBool
	filterUint
)

type filter struct {
	column string
	kind   filterKind
}

// listSpec describes which query parameters a list endpoint accepts.
type listSpec struct {
	filters      map[string]filter // query param -> column
	sorts        map[string]string // sortBy value -> column
	defaultSort  string
	defaultOrder string
	defaultLimit int
	dateRange    bool // startDate / endDate on created_at
}

func (s listSpec) parse(c *gin.Context) (store.ListQuery, error) {
	q := store.ListQuery{Filters: map[string]any{}}

	var err error
	if q.Page, err = intQuery(c, "page", 1); err != nil {
		return q, err
	}
	def := s.defaultLimit
	if def == 0 {
		def = store.DefaultLimit
	}
	if q.Limit, err = intQuery(c, "limit", def); err != nil {
		return q, err
	}

	for param, f := range s.filters {
		raw, ok := c.GetQuery(param)
		if !ok || raw == "" {
			continue
		}
		switch f.kind {
		case filterBool:
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return q, apperr.Invalid(param, "must be true or false")
			}
			q.Filters[f.column] = b
		case filterUint:
			n, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				return q, apperr.Invalid(param, "invalid ID format")
			}
			q.Filters[f.column] = uint(n)
		default:
			q.Filters[f.column] = raw
		}
	}

	sortBy := c.DefaultQuery("sortBy", s.defaultSort)
	col, ok := s.sorts[sortBy]
	if !ok {
		return q, apperr.Invalid("sortBy", "invalid value \""+sortBy+"\"")
	}
	q.SortBy = col
	order := s.defaultOrder
	if order == "" {
		order = "desc"
	}
	q.SortDesc = c.DefaultQuery("sortOrder", order) == "desc"

	if s.dateRange {
		if q.Since, err = dateQuery(c, "startDate"); err != nil {
			return q, err
		}
		if q.Until, err = dateQuery(c, "endDate"); err != nil {
			return q, err
		}
	}
	return q.Normalize(), nil
}

func intQuery(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Invalid(name, "must be a number")
	}
	return n, nil
}

func dateQuery(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	var d Date
	if err := d.UnmarshalJSON([]byte(raw)); err != nil {
		return nil, apperr.Invalid(name, "invalid date")
	}
	return &d.Time, nil
}

// checkUser reports a missing referenced user as a validation error on field.
func (h *Handlers) checkUser(ctx context.Context, field string, id uint) error {
	_, err := h.st.Users().Get(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.Invalid(field, "user not found")
	}
	return err
}

// notify stores a notification; failures are only logged.
func (h *Handlers) notify(ctx context.Context, n *models.Notification) {
	if err := h.st.Notifications().Create(ctx, n); err != nil {
		h.log.Warn("create notification",
			zap.Uint("recipient_id", n.RecipientID),
			zap.String("title", n.Title),
			zap.Error(err),
		)
	}
}
