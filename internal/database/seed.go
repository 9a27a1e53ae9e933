package database

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"grc-isms/internal/apperr"
	"grc-isms/internal/auth"
	"grc-isms/internal/ident"
	"grc-isms/internal/models"
	"grc-isms/internal/store"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed seed/demo.yaml
var demoYAML []byte

type demoData struct {
	Users []struct {
		FirstName  string          `yaml:"firstName"`
		LastName   string          `yaml:"lastName"`
		Email      string          `yaml:"email"`
		Password   string          `yaml:"password"`
		Role       models.UserRole `yaml:"role"`
		Department string          `yaml:"department"`
	} `yaml:"users"`

	Controls []struct {
		ID          string                 `yaml:"id"`
		Category    models.ControlCategory `yaml:"category"`
		Title       string                 `yaml:"title"`
		Description string                 `yaml:"description"`
	} `yaml:"controls"`

	Risks []struct {
		Title         string               `yaml:"title"`
		Description   string               `yaml:"description"`
		Category      models.RiskCategory  `yaml:"category"`
		Likelihood    int                  `yaml:"likelihood"`
		Impact        int                  `yaml:"impact"`
		Treatment     models.RiskTreatment `yaml:"treatment"`
		TreatmentPlan string               `yaml:"treatmentPlan"`
		Status        models.RiskStatus    `yaml:"status"`
		ReviewInDays  int                  `yaml:"reviewInDays"`
	} `yaml:"risks"`

	Audit struct {
		Title         string           `yaml:"title"`
		Type          models.AuditType `yaml:"type"`
		Scope         string           `yaml:"scope"`
		Objectives    string           `yaml:"objectives"`
		AuditCriteria string           `yaml:"auditCriteria"`
		StartInDays   int              `yaml:"startInDays"`
		DurationDays  int              `yaml:"durationDays"`
		Findings      []struct {
			Title            string                 `yaml:"title"`
			Description      string                 `yaml:"description"`
			Severity         models.FindingSeverity `yaml:"severity"`
			Category         models.FindingCategory `yaml:"category"`
			RelatedControl   string                 `yaml:"relatedControl"`
			CorrectiveAction string                 `yaml:"correctiveAction"`
			TargetInDays     int                    `yaml:"targetInDays"`
		} `yaml:"findings"`
	} `yaml:"audit"`
}

func loadDemo() (*demoData, error) {
	var d demoData
	if err := yaml.Unmarshal(demoYAML, &d); err != nil {
		return nil, fmt.Errorf("parse demo data: %w", err)
	}
	return &d, nil
}

// Seeder fills an empty installation with the default admin and, on request,
// demo data. Every step skips records that already exist, so it is safe to
// run on each start.
type Seeder struct {
	st    store.Store
	alloc *ident.Allocator
	log   *zap.Logger
	now   func() time.Time
}

func NewSeeder(st store.Store, alloc *ident.Allocator, log *zap.Logger) *Seeder {
	return &Seeder{st: st, alloc: alloc, log: log, now: time.Now}
}

// Admin returns the first admin account, creating one from the given
// credentials when none exists.
func (s *Seeder) Admin(ctx context.Context, email, password string) (*models.User, error) {
	admins, _, err := s.st.Users().List(ctx, store.ListQuery{
		Filters: map[string]any{"role": string(models.RoleAdmin)},
		SortBy:  "created_at",
		Limit:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("check admin user: %w", err)
	}
	if len(admins) > 0 {
		// админ уже есть, ничего не делаем
		return &admins[0], nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}
	admin := &models.User{
		FirstName:    "Admin",
		LastName:     "User",
		Email:        strings.ToLower(email),
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		Department:   "IT Security",
		IsActive:     true,
	}
	if err := s.st.Users().Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("create default admin: %w", err)
	}

	s.log.Info("created default admin user", zap.String("email", admin.Email))
	return admin, nil
}

// Demo seeds demo users, the Annex A control catalog, sample risks and a
// sample audit with a finding.
func (s *Seeder) Demo(ctx context.Context, admin *models.User) error {
	d, err := loadDemo()
	if err != nil {
		return err
	}

	byRole := map[models.UserRole]*models.User{models.RoleAdmin: admin}
	for _, u := range d.Users {
		existing, err := s.st.Users().GetByEmail(ctx, u.Email)
		if err == nil {
			byRole[u.Role] = existing
			continue
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return fmt.Errorf("check seed user %s: %w", u.Email, err)
		}

		hash, err := auth.HashPassword(u.Password)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", u.Email, err)
		}
		user := &models.User{
			FirstName:    u.FirstName,
			LastName:     u.LastName,
			Email:        u.Email,
			PasswordHash: hash,
			Role:         u.Role,
			Department:   u.Department,
			IsActive:     true,
		}
		if err := s.st.Users().Create(ctx, user); err != nil {
			return fmt.Errorf("create seed user %s: %w", u.Email, err)
		}
		byRole[u.Role] = user
		s.log.Info("created seed user", zap.String("email", u.Email), zap.String("role", string(u.Role)))
	}

	now := s.now().UTC()
	pick := func(role models.UserRole) uint {
		if u, ok := byRole[role]; ok {
			return u.ID
		}
		return admin.ID
	}

	created := 0
	for _, c := range d.Controls {
		exists, err := s.st.Controls().ExistsControlID(ctx, c.ID)
		if err != nil {
			return fmt.Errorf("check control %s: %w", c.ID, err)
		}
		if exists {
			continue
		}
		ctrl := &models.Control{
			ControlID:            c.ID,
			ControlTitle:         c.Title,
			ControlDescription:   c.Description,
			Category:             c.Category,
			Applicability:        models.Applicable,
			ImplementationStatus: models.StatusNotImplemented,
			Justification:        "Baseline control of the ISO/IEC 27001 Annex A catalog.",
			ResponsibleOwnerID:   admin.ID,
			NextReviewDate:       now.AddDate(1, 0, 0),
			CreatedByID:          admin.ID,
		}
		if err := s.st.Controls().Create(ctx, ctrl); err != nil {
			return fmt.Errorf("create control %s: %w", c.ID, err)
		}
		created++
	}
	s.log.Info("seeded control catalog", zap.Int("created", created), zap.Int("catalog", len(d.Controls)))

	n, err := s.st.Risks().Count(ctx, nil)
	if err != nil {
		return fmt.Errorf("count risks: %w", err)
	}
	if n == 0 {
		for _, r := range d.Risks {
			id, err := s.alloc.Next(ctx, ident.KindRisk)
			if err != nil {
				return err
			}
			risk := &models.Risk{
				RiskID:        id,
				Title:         r.Title,
				Description:   r.Description,
				Category:      r.Category,
				Likelihood:    r.Likelihood,
				Impact:        r.Impact,
				OwnerID:       admin.ID,
				Treatment:     r.Treatment,
				TreatmentPlan: r.TreatmentPlan,
				Status:        r.Status,
				ReviewDate:    now.AddDate(0, 0, r.ReviewInDays),
				CreatedByID:   admin.ID,
			}
			if err := s.st.Risks().Create(ctx, risk); err != nil {
				return fmt.Errorf("create risk %s: %w", id, err)
			}
		}
		s.log.Info("seeded sample risks", zap.Int("count", len(d.Risks)))
	}

	n, err = s.st.Audits().Count(ctx, nil)
	if err != nil {
		return fmt.Errorf("count audits: %w", err)
	}
	if n > 0 {
		return nil
	}

	id, err := s.alloc.Next(ctx, ident.KindAudit)
	if err != nil {
		return err
	}
	start := now.AddDate(0, 0, d.Audit.StartInDays)
	audit := &models.Audit{
		AuditID:          id,
		Title:            d.Audit.Title,
		Type:             d.Audit.Type,
		Scope:            d.Audit.Scope,
		Objectives:       d.Audit.Objectives,
		AuditCriteria:    d.Audit.AuditCriteria,
		LeadAuditorID:    pick(models.RoleAuditor),
		AuditTeamIDs:     []uint{pick(models.RoleAuditor)},
		AuditeeIDs:       []uint{admin.ID, pick(models.RoleManager)},
		PlannedStartDate: start,
		PlannedEndDate:   start.AddDate(0, 0, d.Audit.DurationDays),
		Status:           models.AuditPlanned,
		CreatedByID:      pick(models.RoleAuditor),
	}
	if err := s.st.Audits().Create(ctx, audit); err != nil {
		return fmt.Errorf("create audit %s: %w", id, err)
	}

	owner := pick(models.RoleManager)
	for _, f := range d.Audit.Findings {
		target := now.AddDate(0, 0, f.TargetInDays)
		finding := &models.Finding{
			Title:            f.Title,
			Description:      f.Description,
			Severity:         f.Severity,
			Category:         f.Category,
			RelatedControl:   f.RelatedControl,
			CorrectiveAction: f.CorrectiveAction,
			ActionOwnerID:    &owner,
			TargetDate:       &target,
			Status:           models.FindingOpen,
		}
		if err := s.st.Audits().AddFinding(ctx, audit.ID, finding); err != nil {
			return fmt.Errorf("add finding to %s: %w", id, err)
		}
	}
	s.log.Info("seeded sample audit", zap.String("auditId", id))
	return nil
}
