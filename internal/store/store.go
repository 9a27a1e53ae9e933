// Package store declares the persistence contracts used by handlers and the
// reporting engines. internal/database implements them over gorm/postgres and
// internal/store/memstore keeps everything in memory for tests.
package store

import (
	"context"
	"time"

	"grc-isms/internal/ident"
	"grc-isms/internal/models"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// ListQuery describes one page of a filtered, sorted collection.
// Filter keys and SortBy are column names that callers have already
// checked against a whitelist.
type ListQuery struct {
	Filters  map[string]any
	Since    *time.Time // created_at >= Since
	Until    *time.Time // created_at <= Until
	SortBy   string
	SortDesc bool
	Page     int // 1-based
	Limit    int
}

// Normalize clamps page and limit.
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.SortBy == "" {
		q.SortBy = "created_at"
		q.SortDesc = true
	}
	return q
}

func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// Page is the list envelope returned to clients.
type Page[T any] struct {
	Items       []T   `json:"items"`
	TotalPages  int   `json:"totalPages"`
	CurrentPage int   `json:"currentPage"`
	Total       int64 `json:"total"`
}

func NewPage[T any](items []T, total int64, q ListQuery) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if q.Limit > 0 {
		pages = int((total + int64(q.Limit) - 1) / int64(q.Limit))
	}
	return Page[T]{Items: items, TotalPages: pages, CurrentPage: q.Page, Total: total}
}

// Repo is the CRUD contract shared by every collection.
type Repo[T any] interface {
	List(ctx context.Context, q ListQuery) ([]T, int64, error)
	Get(ctx context.Context, id uint) (*T, error)
	Create(ctx context.Context, v *T) error
	Update(ctx context.Context, v *T) error
	Delete(ctx context.Context, id uint) error
	// All returns the whole collection, used by the reporting engines.
	All(ctx context.Context) ([]T, error)
	// Latest returns the most recently created record or ErrNotFound.
	Latest(ctx context.Context) (*T, error)
	Count(ctx context.Context, filters map[string]any) (int64, error)
}

// UserRepo adds account operations that write only the columns they own,
// so a request refreshing activity never rewrites a role or status an admin
// changed in the meantime.
type UserRepo interface {
	Repo[models.User]
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	Touch(ctx context.Context, id uint, at time.Time, ip string) error
	// RecordLogin resets the failed-attempt counter and stamps the login.
	RecordLogin(ctx context.Context, id uint, at time.Time, ip string) (*models.User, error)
	// IncrementFailedLogins bumps the counter in place and returns the new value.
	IncrementFailedLogins(ctx context.Context, id uint) (int, error)
	ResetFailedLogins(ctx context.Context, id uint) (*models.User, error)
	SetRole(ctx context.Context, id uint, role models.UserRole) (*models.User, error)
	SetActive(ctx context.Context, id uint, active bool) (*models.User, error)
	UpdateProfile(ctx context.Context, id uint, p models.Profile) (*models.User, error)
}

type ControlRepo interface {
	Repo[models.Control]
	ExistsControlID(ctx context.Context, controlID string) (bool, error)
}

type AuditRepo interface {
	Repo[models.Audit]
	// AddFinding numbers f from the audit's finding counter and stores it.
	AddFinding(ctx context.Context, auditID uint, f *models.Finding) error
	GetFinding(ctx context.Context, auditID, findingID uint) (*models.Finding, error)
	UpdateFinding(ctx context.Context, f *models.Finding) error
	DeleteFinding(ctx context.Context, auditID, findingID uint) error
}

type AuditLogRepo interface {
	Repo[models.AuditLog]
	// Since returns every entry created at or after t, oldest first.
	Since(ctx context.Context, t time.Time) ([]models.AuditLog, error)
}

type NotificationRepo interface {
	Repo[models.Notification]
	MarkAllRead(ctx context.Context, recipientID uint, at time.Time) (int64, error)
}

// Store groups all collections.
type Store interface {
	Users() UserRepo
	Risks() Repo[models.Risk]
	Controls() ControlRepo
	Audits() AuditRepo
	Policies() Repo[models.Policy]
	AuditLogs() AuditLogRepo
	Notifications() NotificationRepo

	ident.Sequencer
	Ping(ctx context.Context) error
}

// LatestFuncs wires the identifier allocator to the store's "newest record" lookups.
func LatestFuncs(s Store) map[ident.Kind]ident.LatestFunc {
	return map[ident.Kind]ident.LatestFunc{
		ident.KindRisk: func(ctx context.Context) (string, error) {
			return latestID(ctx, s.Risks(), func(r *models.Risk) string { return r.RiskID })
		},
		ident.KindAudit: func(ctx context.Context) (string, error) {
			return latestID(ctx, s.Audits(), func(a *models.Audit) string { return a.AuditID })
		},
		ident.KindPolicy: func(ctx context.Context) (string, error) {
			return latestID(ctx, s.Policies(), func(p *models.Policy) string { return p.PolicyID })
		},
	}
}
