package handlers

import (
	"context"
	"fmt"
	"net/http"

	"grc-isms/internal/apperr"
	"grc-isms/internal/compliance"
	"grc-isms/internal/ident"
	"grc-isms/internal/middleware"
	"grc-isms/internal/models"
	"grc-isms/internal/store"

	"github.com/gin-gonic/gin"
)

var auditList = listSpec{
	filters: map[string]filter{
		"type":          {column: "type"},
		"status":        {column: "status"},
		"leadAuditorId": {column: "lead_auditor_id", kind: filterUint},
	},
	sorts: map[string]string{
		"createdAt":        "created_at",
		"updatedAt":        "updated_at",
		"auditId":          "audit_id",
		"title":            "title",
		"type":             "type",
		"status":           "status",
		"plannedStartDate": "planned_start_date",
		"plannedEndDate":   "planned_end_date",
	},
	defaultSort: "createdAt",
}

type auditInput struct {
	Title             string             `json:"title" validate:"required,min=3,max=255"`
	Type              models.AuditType   `json:"type" validate:"required,enum"`
	Scope             string             `json:"scope" validate:"required,min=10"`
	Objectives        string             `json:"objectives" validate:"required,min=10"`
	AuditCriteria     string             `json:"auditCriteria" validate:"required,min=10"`
	LeadAuditorID     uint               `json:"leadAuditorId"`
	AuditTeam         []uint             `json:"auditTeam"`
	Auditees          []uint             `json:"auditees"`
	PlannedStartDate  Date               `json:"plannedStartDate" validate:"required"`
	PlannedEndDate    Date               `json:"plannedEndDate" validate:"required"`
	ActualStartDate   *Date              `json:"actualStartDate"`
	ActualEndDate     *Date              `json:"actualEndDate"`
	Status            models.AuditStatus `json:"status" validate:"omitempty,enum"`
	OverallConclusion string             `json:"overallConclusion"`
	Recommendations   string             `json:"recommendations"`
}

func (in *auditInput) apply(a *models.Audit) {
	a.Title = in.Title
	a.Type = in.Type
	a.Scope = in.Scope
	a.Objectives = in.Objectives
	a.AuditCriteria = in.AuditCriteria
	a.LeadAuditorID = in.LeadAuditorID
	a.AuditTeamIDs = in.AuditTeam
	a.AuditeeIDs = in.Auditees
	a.PlannedStartDate = in.PlannedStartDate.Time
	a.PlannedEndDate = in.PlannedEndDate.Time
	a.ActualStartDate = timePtr(in.ActualStartDate)
	a.ActualEndDate = timePtr(in.ActualEndDate)
	a.OverallConclusion = in.OverallConclusion
	a.Recommendations = in.Recommendations
	if in.Status != "" {
		a.Status = in.Status
	}
	if a.Status == "" {
		a.Status = models.AuditPlanned
	}
}

func (h *Handlers) checkAuditInput(ctx context.Context, in *auditInput) error {
	if in.PlannedEndDate.Before(in.PlannedStartDate.Time) {
		return apperr.Invalid("plannedEndDate", "must not be before plannedStartDate")
	}
	return h.checkUser(ctx, "leadAuditorId", in.LeadAuditorID)
}

func (h *Handlers) ListAudits(c *gin.Context) {
	q, err := auditList.parse(c)
	if err != nil {
		h.fail(c, "Audit", err)
		return
	}
	items, total, err := h.st.Audits().List(c.Request.Context(), q)
	if err != nil {
		h.fail(c, "Audit", err)
		return
	}
	c.JSON(http.StatusOK, store.NewPage(items, total, q))
}

func (h *Handlers) GetAudit(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.fail(c, "Audit", err)
		return
	}
	audit, err := h.st.Audits().Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Audit", err)
		return
	}
	c.JSON(http.StatusOK, audit)
}

func (h *Handlers) CreateAudit(c *gin.Context) {
	var in auditInput
	if err := bind(c, &in); err != nil {
		h.fail(c, "Audit", err)
		return
	}

	ctx := c.Request.Context()
	user := middleware.CurrentUser(c)
	if in.LeadAuditorID == 0 {
		in.LeadAuditorID = user.ID
	}
	if err := h.checkAuditInput(ctx, &in); err != nil {
		h.fail(c, "Audit", err)
		return
	}

	auditID, err := h.ids.Next(ctx, ident.KindAudit)
	if err != nil {
		h.fail(c, "Audit", err)
		return
	}
	audit := &models.Audit{AuditID: auditID, CreatedByID: user.ID}
	in.apply(audit)
	if err := h.st.Audits().Create(ctx, audit); err != nil {
		h.fail(c, "Audit", err)
		return
	}
	c.Set(middleware.ResourceIDKey, formatID(audit.ID))

	h.respondAudit(c, http.StatusCreated, audit.ID)
}

func (h *Handlers) UpdateAudit(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.fail(c, "Audit", err)
		return
	}
	var in auditInput
	if err := bind(c, &in); err != nil {
		h.fail(c, "Audit", err)
		return
	}

	ctx := c.Request.Context()
	audit, err := h.st.Audits().Get(ctx, id)
	if err != nil {
		h.fail(c, "Audit", err)
		return
	}
	if in.LeadAuditorID == 0 {
		in.LeadAuditorID = audit.LeadAuditorID
	}
	if err := h.checkAuditInput(ctx, &in); err != nil {
		h.fail(c, "Audit", err)
		return
	}

	in.apply(audit)
	if err := h.st.Audits().Update(ctx, audit); err != nil {
		h.fail(c, "Audit", err)
		return
	}
	h.respondAudit(c, http.StatusOK, audit.ID)
}

func (h *Handlers) respondAudit(c *gin.Context, status int, id uint) {
	saved, err := h.st.Audits().Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Audit", err)
		return
	}
	c.JSON(status, saved)
}

func (h *Handlers) DeleteAudit(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.fail(c, "Audit", err)
		return
	}
	if err := h.st.Audits().Delete(c.Request.Context(), id); err != nil {
		h.fail(c, "Audit", err)
		return
	}
	message(c, http.StatusOK, "Audit deleted successfully")
}

func (h *Handlers) AuditStats(c *gin.Context) {
	audits, err := h.st.Audits().All(c.Request.Context())
	if err != nil {
		h.fail(c, "Audit", err)
		return
	}
	c.JSON(http.StatusOK, compliance.SummarizeAudits(audits))
}

//
// ЗАМЕЧАНИЯ АУДИТА
//

type findingInput struct {
	Title            string                 `json:"title" validate:"required,min=3,max=255"`
	Description      string                 `json:"description" validate:"required,min=10"`
	Severity         models.FindingSeverity `json:"severity" validate:"required,enum"`
	Category         models.FindingCategory `json:"category" validate:"required,enum"`
	RelatedControl   string                 `json:"relatedControl" validate:"max=32"`
	CorrectiveAction string                 `json:"correctiveAction"`
	ActionOwnerID    *uint                  `json:"actionOwnerId"`
	TargetDate       *Date                  `json:"targetDate"`
	Status           models.FindingStatus   `json:"status" validate:"omitempty,enum"`
}

func (in *findingInput) apply(f *models.Finding) {
	f.Title = in.Title
	f.Description = in.Description
	f.Severity = in.Severity
	f.Category = in.Category
	f.RelatedControl = in.RelatedControl
	f.CorrectiveAction = in.CorrectiveAction
	f.ActionOwnerID = in.ActionOwnerID
	f.TargetDate = timePtr(in.TargetDate)
	if in.Status != "" {
		f.Status = in.Status
	}
	if f.Status == "" {
		f.Status = models.FindingOpen
	}
}

func (h *Handlers) checkFindingInput(ctx context.Context, in *findingInput) error {
	if in.ActionOwnerID == nil {
		return nil
	}
	return h.checkUser(ctx, "actionOwnerId", *in.ActionOwnerID)
}

// findingParams reads the ":id" audit and ":findingId" path parameters.
func findingParams(c *gin.Context) (auditID, findingID uint, err error) {
	if auditID, err = idParam(c, "id"); err != nil {
		return 0, 0, err
	}
	if findingID, err = idParam(c, "findingId"); err != nil {
		return 0, 0, err
	}
	return auditID, findingID, nil
}

func (h *Handlers) AddFinding(c *gin.Context) {
	auditID, err := idParam(c, "id")
	if err != nil {
		h.fail(c, "Audit", err)
		return
	}
	var in findingInput
	if err := bind(c, &in); err != nil {
		h.fail(c, "Finding", err)
		return
	}

	ctx := c.Request.Context()
	audit, err := h.st.Audits().Get(ctx, auditID)
	if err != nil {
		h.fail(c, "Audit", err)
		return
	}
	if err := h.checkFindingInput(ctx, &in); err != nil {
		h.fail(c, "Finding", err)
		return
	}

	f := &models.Finding{}
	in.apply(f)
	if err := h.st.Audits().AddFinding(ctx, audit.ID, f); err != nil {
		h.fail(c, "Finding", err)
		return
	}
	c.Set(middleware.ResourceIDKey, f.FindingID)

	if f.ActionOwnerID != nil {
		h.notify(ctx, &models.Notification{
			Title:       "Audit finding assigned",
			Message:     fmt.Sprintf("%s %q from audit %s was assigned to you.", f.FindingID, f.Title, audit.AuditID),
			Type:        models.NotifyWarning,
			Category:    models.NotifyAudit,
			RecipientID: *f.ActionOwnerID,
			EntityType:  "Audit",
			EntityID:    &audit.ID,
		})
	}

	h.respondFinding(c, http.StatusCreated, audit.ID, f.ID)
}

func (h *Handlers) UpdateFinding(c *gin.Context) {
	auditID, findingID, err := findingParams(c)
	if err != nil {
		h.fail(c, "Finding", err)
		return
	}
	var in findingInput
	if err := bind(c, &in); err != nil {
		h.fail(c, "Finding", err)
		return
	}

	ctx := c.Request.Context()
	f, err := h.st.Audits().GetFinding(ctx, auditID, findingID)
	if err != nil {
		h.fail(c, "Finding", err)
		return
	}
	if err := h.checkFindingInput(ctx, &in); err != nil {
		h.fail(c, "Finding", err)
		return
	}

	in.apply(f)
	if err := h.st.Audits().UpdateFinding(ctx, f); err != nil {
		h.fail(c, "Finding", err)
		return
	}
	h.respondFinding(c, http.StatusOK, auditID, findingID)
}

func (h *Handlers) respondFinding(c *gin.Context, status int, auditID, findingID uint) {
	saved, err := h.st.Audits().GetFinding(c.Request.Context(), auditID, findingID)
	if err != nil {
		h.fail(c, "Finding", err)
		return
	}
	c.JSON(status, saved)
}

func (h *Handlers) DeleteFinding(c *gin.Context) {
	auditID, findingID, err := findingParams(c)
	if err != nil {
		h.fail(c, "Finding", err)
		return
	}
	if err := h.st.Audits().DeleteFinding(c.Request.Context(), auditID, findingID); err != nil {
		h.fail(c, "Finding", err)
		return
	}
	message(c, http.StatusOK, "Finding deleted successfully")
}
