package database

import (
	"context"
	"fmt"
	"time"

	"grc-isms/internal/apperr"
	"grc-isms/internal/ident"
	"grc-isms/internal/models"
	"grc-isms/internal/store"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store implements store.Store over gorm.
type Store struct {
	db *gorm.DB

	users         *userRepo
	risks         *repo[models.Risk]
	controls      *controlRepo
	audits        *auditRepo
	policies      *repo[models.Policy]
	auditLogs     *auditLogRepo
	notifications *notificationRepo
}

var _ store.Store = (*Store)(nil)

func preload(names ...string) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		for _, n := range names {
			tx = tx.Preload(n)
		}
		return tx
	}
}

func NewStore(db *gorm.DB) *Store {
	s := &Store{db: db}

	s.users = &userRepo{&repo[models.User]{db: db, name: "user"}}
	s.risks = &repo[models.Risk]{db: db, name: "risk", preload: preload("Owner", "CreatedBy")}
	s.controls = &controlRepo{&repo[models.Control]{db: db, name: "control", preload: preload("ResponsibleOwner", "CreatedBy")}}
	s.audits = &auditRepo{&repo[models.Audit]{db: db, name: "audit", omit: []string{"finding_seq"}, preload: func(tx *gorm.DB) *gorm.DB {
		return tx.Preload("LeadAuditor").Preload("CreatedBy").
			Preload("Findings", func(tx *gorm.DB) *gorm.DB { return tx.Order("findings.id") }).
			Preload("Findings.ActionOwner")
	}}}
	s.policies = &repo[models.Policy]{db: db, name: "policy", preload: preload("Owner", "Approver", "CreatedBy")}
	s.auditLogs = &auditLogRepo{&repo[models.AuditLog]{db: db, name: "audit log", preload: preload("User")}}
	s.notifications = &notificationRepo{&repo[models.Notification]{db: db, name: "notification"}}
	return s
}

func (s *Store) Users() store.UserRepo { return s.users }
func (s *Store) Risks() store.Repo[models.Risk] { return s.risks }
func (s *Store) Controls() store.ControlRepo { return s.controls }
func (s *Store) Audits() store.AuditRepo { return s.audits }
func (s *Store) Policies() store.Repo[models.Policy] { return s.policies }
func (s *Store) AuditLogs() store.AuditLogRepo { return s.auditLogs }
func (s *Store) Notifications() store.NotificationRepo { return s.notifications }

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return apperr.Unavailable(err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return apperr.Unavailable(err)
	}
	return nil
}

// NextSequence increments the named counter in one statement, so concurrent
// callers never observe the same value. A missing counter is created at
// floor(ctx); when two callers race to create it the loser's insert is a
// no-op and both proceed with the update.
func (s *Store) NextSequence(ctx context.Context, name string, floor func(context.Context) (int, error)) (int, error) {
	db := s.db.WithContext(ctx)

	for attempt := 0; attempt < 2; attempt++ {
		var value int
		res := db.Raw("UPDATE sequences SET value = value + 1 WHERE name = ? RETURNING value", name).Scan(&value)
		if res.Error != nil {
			return 0, translate("sequence", res.Error)
		}
		if res.RowsAffected > 0 {
			return value, nil
		}

		start, err := floor(ctx)
		if err != nil {
			return 0, err
		}
		err = db.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Sequence{Name: name, Value: start}).Error
		if err != nil {
			return 0, translate("sequence", err)
		}
	}
	return 0, fmt.Errorf("sequence %s was not created", name)
}

// repo is the generic gorm implementation of store.Repo.
type repo[T any] struct {
	db      *gorm.DB
	name    string
	preload func(*gorm.DB) *gorm.DB
	// omit lists columns Update never writes
	omit []string
}

func (r *repo[T]) read(ctx context.Context) *gorm.DB {
	tx := r.db.WithContext(ctx)
	if r.preload != nil {
		tx = r.preload(tx)
	}
	return tx
}

func (r *repo[T]) filtered(ctx context.Context, q store.ListQuery) *gorm.DB {
	tx := r.db.WithContext(ctx).Model(new(T))
	if len(q.Filters) > 0 {
		tx = tx.Where(q.Filters)
	}
	if q.Since != nil {
		tx = tx.Where("created_at >= ?", *q.Since)
	}
	if q.Until != nil {
		tx = tx.Where("created_at <= ?", *q.Until)
	}
	return tx
}

func (r *repo[T]) List(ctx context.Context, q store.ListQuery) ([]T, int64, error) {
	q = q.Normalize()

	var total int64
	if err := r.filtered(ctx, q).Count(&total).Error; err != nil {
		return nil, 0, translate(r.name, err)
	}

	var items []T
	tx := r.filtered(ctx, q)
	if r.preload != nil {
		tx = r.preload(tx)
	}
	err := tx.
		Order(clause.OrderByColumn{Column: clause.Column{Name: q.SortBy}, Desc: q.SortDesc}).
		Order("id").
		Offset(q.Offset()).
		Limit(q.Limit).
		Find(&items).Error
	if err != nil {
		return nil, 0, translate(r.name, err)
	}
	return items, total, nil
}

func (r *repo[T]) Get(ctx context.Context, id uint) (*T, error) {
	v := new(T)
	if err := r.read(ctx).First(v, id).Error; err != nil {
		return nil, translate(r.name, err)
	}
	return v, nil
}

func (r *repo[T]) Create(ctx context.Context, v *T) error {
	return translate(r.name, r.db.WithContext(ctx).Omit(clause.Associations).Create(v).Error)
}

// Update writes every column of v, zero values included. Associations are
// never cascaded from here.
func (r *repo[T]) Update(ctx context.Context, v *T) error {
	omit := append([]string{clause.Associations, "id", "created_at"}, r.omit...)
	res := r.db.WithContext(ctx).Model(v).
		Select("*").
		Omit(omit...).
		Updates(v)
	if res.Error != nil {
		return translate(r.name, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound(r.name)
	}
	return nil
}

func (r *repo[T]) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(new(T), id)
	if res.Error != nil {
		return translate(r.name, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound(r.name)
	}
	return nil
}

func (r *repo[T]) All(ctx context.Context) ([]T, error) {
	var items []T
	if err := r.read(ctx).Order("id").Find(&items).Error; err != nil {
		return nil, translate(r.name, err)
	}
	return items, nil
}

func (r *repo[T]) Latest(ctx context.Context) (*T, error) {
	v := new(T)
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").First(v).Error
	if err != nil {
		return nil, translate(r.name, err)
	}
	return v, nil
}

func (r *repo[T]) Count(ctx context.Context, filters map[string]any) (int64, error) {
	var n int64
	err := r.filtered(ctx, store.ListQuery{Filters: filters}).Count(&n).Error
	return n, translate(r.name, err)
}

type userRepo struct {
	*repo[models.User]
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Where("lower(email) = lower(?)", email).First(&u).Error; err != nil {
		return nil, translate(r.name, err)
	}
	return &u, nil
}

// setColumns writes only the given columns.
func (r *userRepo) setColumns(ctx context.Context, id uint, cols map[string]any) error {
	cols["updated_at"] = r.db.NowFunc()
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).UpdateColumns(cols)
	if res.Error != nil {
		return translate(r.name, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound(r.name)
	}
	return nil
}

func (r *userRepo) setAndGet(ctx context.Context, id uint, cols map[string]any) (*models.User, error) {
	if err := r.setColumns(ctx, id, cols); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *userRepo) Touch(ctx context.Context, id uint, at time.Time, ip string) error {
	return r.setColumns(ctx, id, map[string]any{"last_activity": at, "last_ip": ip})
}

func (r *userRepo) RecordLogin(ctx context.Context, id uint, at time.Time, ip string) (*models.User, error) {
	return r.setAndGet(ctx, id, map[string]any{
		"failed_login_attempts": 0,
		"last_login":            at,
		"last_activity":         at,
		"last_ip":               ip,
	})
}

func (r *userRepo) IncrementFailedLogins(ctx context.Context, id uint) (int, error) {
	u := models.User{Base: models.Base{ID: id}}
	res := r.db.WithContext(ctx).Model(&u).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "failed_login_attempts"}}}).
		UpdateColumns(map[string]any{
			"failed_login_attempts": gorm.Expr("failed_login_attempts + ?", 1),
			"updated_at":            r.db.NowFunc(),
		})
	if res.Error != nil {
		return 0, translate(r.name, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, apperr.NotFound(r.name)
	}
	return u.FailedLoginAttempts, nil
}

func (r *userRepo) ResetFailedLogins(ctx context.Context, id uint) (*models.User, error) {
	return r.setAndGet(ctx, id, map[string]any{"failed_login_attempts": 0})
}

func (r *userRepo) SetRole(ctx context.Context, id uint, role models.UserRole) (*models.User, error) {
	return r.setAndGet(ctx, id, map[string]any{"role": role})
}

func (r *userRepo) SetActive(ctx context.Context, id uint, active bool) (*models.User, error) {
	return r.setAndGet(ctx, id, map[string]any{"is_active": active})
}

func (r *userRepo) UpdateProfile(ctx context.Context, id uint, p models.Profile) (*models.User, error) {
	cols := map[string]any{
		"first_name": p.FirstName,
		"last_name":  p.LastName,
		"department": p.Department,
	}
	if p.PasswordHash != "" {
		cols["password_hash"] = p.PasswordHash
	}
	return r.setAndGet(ctx, id, cols)
}

type controlRepo struct {
	*repo[models.Control]
}

func (r *controlRepo) ExistsControlID(ctx context.Context, controlID string) (bool, error) {
	n, err := r.Count(ctx, map[string]any{"control_id": controlID})
	return n > 0, err
}

type auditRepo struct {
	*repo[models.Audit]
}

// AddFinding locks the audit row, bumps its finding counter and inserts f in
// one transaction.
func (r *auditRepo) AddFinding(ctx context.Context, auditID uint, f *models.Finding) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a models.Audit
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "audit_id", "finding_seq").
			First(&a, auditID).Error
		if err != nil {
			return err
		}

		seq := a.FindingSeq + 1
		err = tx.Model(&models.Audit{}).Where("id = ?", a.ID).
			UpdateColumns(map[string]any{"finding_seq": seq, "updated_at": tx.NowFunc()}).Error
		if err != nil {
			return err
		}

		f.AuditRefID = a.ID
		f.FindingID = ident.FindingID(a.AuditID, seq)
		return tx.Omit(clause.Associations).Create(f).Error
	})
	if err != nil {
		return translate("finding", err)
	}
	return nil
}

func (r *auditRepo) GetFinding(ctx context.Context, auditID, findingID uint) (*models.Finding, error) {
	var f models.Finding
	err := r.db.WithContext(ctx).Preload("ActionOwner").
		Where("audit_ref_id = ? AND id = ?", auditID, findingID).
		First(&f).Error
	if err != nil {
		return nil, translate("finding", err)
	}
	return &f, nil
}

func (r *auditRepo) UpdateFinding(ctx context.Context, f *models.Finding) error {
	res := r.db.WithContext(ctx).Model(f).
		Select("*").
		Omit(clause.Associations, "id", "created_at", "audit_ref_id", "finding_id").
		Where("audit_ref_id = ?", f.AuditRefID).
		Updates(f)
	if res.Error != nil {
		return translate("finding", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("finding")
	}
	return nil
}

func (r *auditRepo) DeleteFinding(ctx context.Context, auditID, findingID uint) error {
	res := r.db.WithContext(ctx).
		Where("audit_ref_id = ?", auditID).
		Delete(&models.Finding{}, findingID)
	if res.Error != nil {
		return translate("finding", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("finding")
	}
	return nil
}

type auditLogRepo struct {
	*repo[models.AuditLog]
}

func (r *auditLogRepo) Since(ctx context.Context, t time.Time) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := r.db.WithContext(ctx).Where("created_at >= ?", t).Order("created_at").Find(&logs).Error
	if err != nil {
		return nil, translate(r.name, err)
	}
	return logs, nil
}

type notificationRepo struct {
	*repo[models.Notification]
}

func (r *notificationRepo) MarkAllRead(ctx context.Context, recipientID uint, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Updates(map[string]any{"is_read": true, "read_at": at})
	if res.Error != nil {
		return 0, translate(r.name, res.Error)
	}
	return res.RowsAffected, nil
}
