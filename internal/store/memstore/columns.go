package memstore

import "grc-isms/internal/models"

// Column getters mirror the database column names used by the gorm store, so
// the same ListQuery works against both.

var userColumns = map[string]func(*models.User) any{
	"email":                 func(u *models.User) any { return u.Email },
	"first_name":            func(u *models.User) any { return u.FirstName },
	"last_name":             func(u *models.User) any { return u.LastName },
	"role":                  func(u *models.User) any { return string(u.Role) },
	"department":            func(u *models.User) any { return u.Department },
	"is_active":             func(u *models.User) any { return u.IsActive },
	"failed_login_attempts": func(u *models.User) any { return u.FailedLoginAttempts },
	"last_login":            func(u *models.User) any { return u.LastLogin },
	"last_activity":         func(u *models.User) any { return u.LastActivity },
}

var riskColumns = map[string]func(*models.Risk) any{
	"risk_id":     func(r *models.Risk) any { return r.RiskID },
	"title":       func(r *models.Risk) any { return r.Title },
	"category":    func(r *models.Risk) any { return string(r.Category) },
	"likelihood":  func(r *models.Risk) any { return r.Likelihood },
	"impact":      func(r *models.Risk) any { return r.Impact },
	"risk_score":  func(r *models.Risk) any { return r.RiskScore },
	"risk_level":  func(r *models.Risk) any { return string(r.RiskLevel) },
	"owner_id":    func(r *models.Risk) any { return r.OwnerID },
	"treatment":   func(r *models.Risk) any { return string(r.Treatment) },
	"status":      func(r *models.Risk) any { return string(r.Status) },
	"review_date": func(r *models.Risk) any { return r.ReviewDate },
	"updated_at":  func(r *models.Risk) any { return r.UpdatedAt },
}

var controlColumns = map[string]func(*models.Control) any{
	"control_id":            func(c *models.Control) any { return c.ControlID },
	"control_title":         func(c *models.Control) any { return c.ControlTitle },
	"category":              func(c *models.Control) any { return string(c.Category) },
	"applicability":         func(c *models.Control) any { return string(c.Applicability) },
	"implementation_status": func(c *models.Control) any { return string(c.ImplementationStatus) },
	"responsible_owner_id":  func(c *models.Control) any { return c.ResponsibleOwnerID },
	"next_review_date":      func(c *models.Control) any { return c.NextReviewDate },
	"updated_at":            func(c *models.Control) any { return c.UpdatedAt },
}

var auditColumns = map[string]func(*models.Audit) any{
	"audit_id":           func(a *models.Audit) any { return a.AuditID },
	"title":              func(a *models.Audit) any { return a.Title },
	"type":               func(a *models.Audit) any { return string(a.Type) },
	"status":             func(a *models.Audit) any { return string(a.Status) },
	"lead_auditor_id":    func(a *models.Audit) any { return a.LeadAuditorID },
	"planned_start_date": func(a *models.Audit) any { return a.PlannedStartDate },
	"planned_end_date":   func(a *models.Audit) any { return a.PlannedEndDate },
	"updated_at":         func(a *models.Audit) any { return a.UpdatedAt },
}

var policyColumns = map[string]func(*models.Policy) any{
	"policy_id":        func(p *models.Policy) any { return p.PolicyID },
	"title":            func(p *models.Policy) any { return p.Title },
	"category":         func(p *models.Policy) any { return string(p.Category) },
	"status":           func(p *models.Policy) any { return string(p.Status) },
	"version":          func(p *models.Policy) any { return p.Version },
	"owner_id":         func(p *models.Policy) any { return p.OwnerID },
	"effective_date":   func(p *models.Policy) any { return p.EffectiveDate },
	"next_review_date": func(p *models.Policy) any { return p.NextReviewDate },
	"updated_at":       func(p *models.Policy) any { return p.UpdatedAt },
}

var auditLogColumns = map[string]func(*models.AuditLog) any{
	"user_id": func(l *models.AuditLog) any {
		if l.UserID == nil {
			return nil
		}
		return *l.UserID
	},
	"action":      func(l *models.AuditLog) any { return l.Action },
	"resource":    func(l *models.AuditLog) any { return l.Resource },
	"resource_id": func(l *models.AuditLog) any { return l.ResourceID },
	"ip_address":  func(l *models.AuditLog) any { return l.IPAddress },
}

var notificationColumns = map[string]func(*models.Notification) any{
	"recipient_id": func(n *models.Notification) any { return n.RecipientID },
	"is_read":      func(n *models.Notification) any { return n.IsRead },
	"category":     func(n *models.Notification) any { return string(n.Category) },
	"type":         func(n *models.Notification) any { return string(n.Type) },
}
