// Package memstore is an in-memory store.Store used by tests and local demos.
package memstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"grc-isms/internal/apperr"
	"grc-isms/internal/ident"
	"grc-isms/internal/models"
	"grc-isms/internal/store"
)

type Store struct {
	mu     sync.Mutex
	nowFn  func() time.Time
	fail   error
	nextID uint
	seq    map[string]int

	users         *userTable
	risks         *table[models.Risk, *models.Risk]
	controls      *controlTable
	audits        *auditTable
	policies      *table[models.Policy, *models.Policy]
	auditLogs     *auditLogTable
	notifications *notificationTable
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	s := &Store{nowFn: time.Now, seq: map[string]int{}}

	s.users = &userTable{newTable[models.User](s, "user", userColumns)}
	s.users.key = func(u *models.User) string { return strings.ToLower(u.Email) }

	s.risks = newTable[models.Risk](s, "risk", riskColumns)
	s.risks.key = func(r *models.Risk) string { return r.RiskID }

	s.controls = &controlTable{newTable[models.Control](s, "control", controlColumns)}
	s.controls.key = func(c *models.Control) string { return c.ControlID }

	s.audits = &auditTable{newTable[models.Audit](s, "audit", auditColumns)}
	s.audits.key = func(a *models.Audit) string { return a.AuditID }
	s.audits.clone = cloneAudit
	s.audits.keep = func(stored models.Audit, a *models.Audit) {
		// замечания и их счётчик меняются только через методы замечаний
		a.Findings = stored.Findings
		a.FindingSeq = stored.FindingSeq
	}

	s.policies = newTable[models.Policy](s, "policy", policyColumns)
	s.policies.key = func(p *models.Policy) string { return p.PolicyID }
	s.policies.clone = clonePolicy

	s.auditLogs = &auditLogTable{newTable[models.AuditLog](s, "audit log", auditLogColumns)}
	s.notifications = &notificationTable{newTable[models.Notification](s, "notification", notificationColumns)}
	return s
}

// SetNow overrides the clock used for timestamps.
func (s *Store) SetNow(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = fn
}

// SetFailure makes every operation fail as if the database were unreachable.
// A nil error restores normal operation.
func (s *Store) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

func (s *Store) now() time.Time { return s.nowFn() }

func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.fail != nil {
		return apperr.Unavailable(s.fail)
	}
	return nil
}

func (s *Store) Users() store.UserRepo { return s.users }
func (s *Store) Risks() store.Repo[models.Risk] { return s.risks }
func (s *Store) Controls() store.ControlRepo { return s.controls }
func (s *Store) Audits() store.AuditRepo { return s.audits }
func (s *Store) Policies() store.Repo[models.Policy] { return s.policies }
func (s *Store) AuditLogs() store.AuditLogRepo { return s.auditLogs }
func (s *Store) Notifications() store.NotificationRepo { return s.notifications }

func (s *Store) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.check(ctx)
}

func (s *Store) NextSequence(ctx context.Context, name string, floor func(context.Context) (int, error)) (int, error) {
	s.mu.Lock()
	_, ok := s.seq[name]
	err := s.check(ctx)
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}

	// floor reads other tables and takes the lock itself
	if !ok {
		start, err := floor(ctx)
		if err != nil {
			return 0, err
		}
		s.mu.Lock()
		if _, ok := s.seq[name]; !ok {
			s.seq[name] = start
		}
		s.mu.Unlock()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq[name]++
	return s.seq[name], nil
}

type userTable struct {
	*table[models.User, *models.User]
}

func (t *userTable) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.check(ctx); err != nil {
		return nil, err
	}
	for _, id := range t.order {
		u := t.rows[id]
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, apperr.NotFound("user")
}

// modify applies fn to the stored row under the store lock.
func (t *userTable) modify(ctx context.Context, id uint, fn func(*models.User)) (*models.User, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.check(ctx); err != nil {
		return nil, err
	}

	u, ok := t.rows[id]
	if !ok {
		return nil, apperr.NotFound("user")
	}
	fn(&u)
	u.Touch(t.s.now())
	t.rows[id] = u
	return &u, nil
}

func (t *userTable) Touch(ctx context.Context, id uint, at time.Time, ip string) error {
	_, err := t.modify(ctx, id, func(u *models.User) {
		u.LastActivity = &at
		u.LastIP = ip
	})
	return err
}

func (t *userTable) RecordLogin(ctx context.Context, id uint, at time.Time, ip string) (*models.User, error) {
	return t.modify(ctx, id, func(u *models.User) {
		u.FailedLoginAttempts = 0
		u.LastLogin = &at
		u.LastActivity = &at
		u.LastIP = ip
	})
}

func (t *userTable) IncrementFailedLogins(ctx context.Context, id uint) (int, error) {
	u, err := t.modify(ctx, id, func(u *models.User) { u.FailedLoginAttempts++ })
	if err != nil {
		return 0, err
	}
	return u.FailedLoginAttempts, nil
}

func (t *userTable) ResetFailedLogins(ctx context.Context, id uint) (*models.User, error) {
	return t.modify(ctx, id, func(u *models.User) { u.FailedLoginAttempts = 0 })
}

func (t *userTable) SetRole(ctx context.Context, id uint, role models.UserRole) (*models.User, error) {
	return t.modify(ctx, id, func(u *models.User) { u.Role = role })
}

func (t *userTable) SetActive(ctx context.Context, id uint, active bool) (*models.User, error) {
	return t.modify(ctx, id, func(u *models.User) { u.IsActive = active })
}

func (t *userTable) UpdateProfile(ctx context.Context, id uint, p models.Profile) (*models.User, error) {
	return t.modify(ctx, id, func(u *models.User) {
		u.FirstName = p.FirstName
		u.LastName = p.LastName
		u.Department = p.Department
		if p.PasswordHash != "" {
			u.PasswordHash = p.PasswordHash
		}
	})
}

type controlTable struct {
	*table[models.Control, *models.Control]
}

func (t *controlTable) ExistsControlID(ctx context.Context, controlID string) (bool, error) {
	n, err := t.Count(ctx, map[string]any{"control_id": controlID})
	return n > 0, err
}

type auditTable struct {
	*table[models.Audit, *models.Audit]
}

func (t *auditTable) AddFinding(ctx context.Context, auditID uint, f *models.Finding) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.check(ctx); err != nil {
		return err
	}

	a, ok := t.rows[auditID]
	if !ok {
		return apperr.NotFound("audit")
	}
	a = cloneAudit(a)
	a.FindingSeq++

	t.s.nextID++
	f.ID = t.s.nextID
	f.AuditRefID = a.ID
	f.FindingID = ident.FindingID(a.AuditID, a.FindingSeq)
	now := t.s.now()
	f.Touch(now)

	a.Findings = append(a.Findings, *f)
	a.UpdatedAt = now
	t.rows[auditID] = a
	return nil
}

func (t *auditTable) GetFinding(ctx context.Context, auditID, findingID uint) (*models.Finding, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.check(ctx); err != nil {
		return nil, err
	}

	a, ok := t.rows[auditID]
	if !ok {
		return nil, apperr.NotFound("audit")
	}
	for _, f := range a.Findings {
		if f.ID == findingID {
			return &f, nil
		}
	}
	return nil, apperr.NotFound("finding")
}

func (t *auditTable) UpdateFinding(ctx context.Context, f *models.Finding) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.check(ctx); err != nil {
		return err
	}

	a, ok := t.rows[f.AuditRefID]
	if !ok {
		return apperr.NotFound("audit")
	}
	a = cloneAudit(a)
	for i := range a.Findings {
		if a.Findings[i].ID == f.ID {
			// номер замечания не меняется
			f.FindingID = a.Findings[i].FindingID
			f.Touch(t.s.now())
			a.Findings[i] = *f
			t.rows[a.ID] = a
			return nil
		}
	}
	return apperr.NotFound("finding")
}

func (t *auditTable) DeleteFinding(ctx context.Context, auditID, findingID uint) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.check(ctx); err != nil {
		return err
	}

	a, ok := t.rows[auditID]
	if !ok {
		return apperr.NotFound("audit")
	}
	a = cloneAudit(a)
	for i := range a.Findings {
		if a.Findings[i].ID == findingID {
			a.Findings = append(a.Findings[:i], a.Findings[i+1:]...)
			t.rows[auditID] = a
			return nil
		}
	}
	return apperr.NotFound("finding")
}

type auditLogTable struct {
	*table[models.AuditLog, *models.AuditLog]
}

func (t *auditLogTable) Since(ctx context.Context, since time.Time) ([]models.AuditLog, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.check(ctx); err != nil {
		return nil, err
	}
	rows, err := t.filter(nil, &since, nil)
	if err != nil {
		return nil, err
	}
	if err := t.sortRows(rows, "created_at", false); err != nil {
		return nil, err
	}
	return rows, nil
}

type notificationTable struct {
	*table[models.Notification, *models.Notification]
}

func (t *notificationTable) MarkAllRead(ctx context.Context, recipientID uint, at time.Time) (int64, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.check(ctx); err != nil {
		return 0, err
	}

	var n int64
	for id, v := range t.rows {
		if v.RecipientID == recipientID && !v.IsRead {
			readAt := at
			v.IsRead = true
			v.ReadAt = &readAt
			t.rows[id] = v
			n++
		}
	}
	return n, nil
}

func cloneAudit(a models.Audit) models.Audit {
	a.Findings = append([]models.Finding(nil), a.Findings...)
	a.AuditTeamIDs = append([]uint(nil), a.AuditTeamIDs...)
	a.AuditeeIDs = append([]uint(nil), a.AuditeeIDs...)
	return a
}

func clonePolicy(p models.Policy) models.Policy {
	p.Tags = append([]string(nil), p.Tags...)
	p.RelatedPolicyIDs = append([]uint(nil), p.RelatedPolicyIDs...)
	return p
}
