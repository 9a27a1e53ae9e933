package handlers

import (
	"context"
	"fmt"
	"net/http"

	"grc-isms/internal/compliance"
	"grc-isms/internal/ident"
	"grc-isms/internal/middleware"
	"grc-isms/internal/models"
	"grc-isms/internal/store"

	"github.com/gin-gonic/gin"
)

var policyList = listSpec{
	filters: map[string]filter{
		"category": {column: "category"},
		"status":   {column: "status"},
		"ownerId":  {column: "owner_id", kind: filterUint},
	},
	sorts: map[string]string{
		"createdAt":      "created_at",
		"updatedAt":      "updated_at",
		"policyId":       "policy_id",
		"title":          "title",
		"category":       "category",
		"status":         "status",
		"version":        "version",
		"effectiveDate":  "effective_date",
		"nextReviewDate": "next_review_date",
	},
	defaultSort: "createdAt",
}

// policyInput is policy metadata. The document itself is stored elsewhere.
type policyInput struct {
	Title           string                `json:"title" validate:"required,min=3,max=255"`
	Description     string                `json:"description" validate:"required,min=10"`
	Category        models.PolicyCategory `json:"category" validate:"required,enum"`
	Version         string                `json:"version" validate:"max=16"`
	Status          models.PolicyStatus   `json:"status" validate:"omitempty,enum"`
	OwnerID         uint                  `json:"ownerId"`
	ApproverID      *uint                 `json:"approverId"`
	ApprovalDate    *Date                 `json:"approvalDate"`
	EffectiveDate   Date                  `json:"effectiveDate" validate:"required"`
	ReviewDate      Date                  `json:"reviewDate" validate:"required"`
	NextReviewDate  Date                  `json:"nextReviewDate" validate:"required"`
	FileName        string                `json:"fileName" validate:"required,max=255"`
	FileSize        int64                 `json:"fileSize" validate:"gte=0"`
	MimeType        string                `json:"mimeType" validate:"required,max=100"`
	Tags            []string              `json:"tags" validate:"dive,max=50"`
	RelatedPolicies []uint                `json:"relatedPolicies"`
}

func (in *policyInput) apply(p *models.Policy) {
	p.Title = in.Title
	p.Description = in.Description
	p.Category = in.Category
	p.Version = in.Version
	if p.Version == "" {
		p.Version = models.DefaultPolicyVersion
	}
	p.OwnerID = in.OwnerID
	p.ApproverID = in.ApproverID
	p.ApprovalDate = timePtr(in.ApprovalDate)
	p.EffectiveDate = in.EffectiveDate.Time
	p.ReviewDate = in.ReviewDate.Time
	p.NextReviewDate = in.NextReviewDate.Time
	p.FileName = in.FileName
	p.FileSize = in.FileSize
	p.MimeType = in.MimeType
	p.Tags = in.Tags
	if p.Tags == nil {
		p.Tags = []string{}
	}
	p.RelatedPolicyIDs = in.RelatedPolicies
	if p.RelatedPolicyIDs == nil {
		p.RelatedPolicyIDs = []uint{}
	}
	if in.Status != "" {
		p.Status = in.Status
	}
	if p.Status == "" {
		p.Status = models.PolicyDraft
	}
}

func (h *Handlers) checkPolicyInput(ctx context.Context, in *policyInput) error {
	if err := h.checkUser(ctx, "ownerId", in.OwnerID); err != nil {
		return err
	}
	if in.ApproverID != nil {
		return h.checkUser(ctx, "approverId", *in.ApproverID)
	}
	return nil
}

func (h *Handlers) ListPolicies(c *gin.Context) {
	q, err := policyList.parse(c)
	if err != nil {
		h.fail(c, "Policy", err)
		return
	}
	items, total, err := h.st.Policies().List(c.Request.Context(), q)
	if err != nil {
		h.fail(c, "Policy", err)
		return
	}
	c.JSON(http.StatusOK, store.NewPage(items, total, q))
}

func (h *Handlers) GetPolicy(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.fail(c, "Policy", err)
		return
	}
	p, err := h.st.Policies().Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Policy", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handlers) CreatePolicy(c *gin.Context) {
	var in policyInput
	if err := bind(c, &in); err != nil {
		h.fail(c, "Policy", err)
		return
	}

	ctx := c.Request.Context()
	user := middleware.CurrentUser(c)
	if in.OwnerID == 0 {
		in.OwnerID = user.ID
	}
	if err := h.checkPolicyInput(ctx, &in); err != nil {
		h.fail(c, "Policy", err)
		return
	}

	policyID, err := h.ids.Next(ctx, ident.KindPolicy)
	if err != nil {
		h.fail(c, "Policy", err)
		return
	}
	p := &models.Policy{PolicyID: policyID, CreatedByID: user.ID}
	in.apply(p)
	if err := h.st.Policies().Create(ctx, p); err != nil {
		h.fail(c, "Policy", err)
		return
	}
	c.Set(middleware.ResourceIDKey, formatID(p.ID))

	h.respondPolicy(c, http.StatusCreated, p.ID)
}

func (h *Handlers) UpdatePolicy(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.fail(c, "Policy", err)
		return
	}
	var in policyInput
	if err := bind(c, &in); err != nil {
		h.fail(c, "Policy", err)
		return
	}

	ctx := c.Request.Context()
	p, err := h.st.Policies().Get(ctx, id)
	if err != nil {
		h.fail(c, "Policy", err)
		return
	}
	if in.OwnerID == 0 {
		in.OwnerID = p.OwnerID
	}
	if in.Version == "" {
		in.Version = p.Version
	}
	if err := h.checkPolicyInput(ctx, &in); err != nil {
		h.fail(c, "Policy", err)
		return
	}

	prevStatus := p.Status
	in.apply(p)
	if err := h.st.Policies().Update(ctx, p); err != nil {
		h.fail(c, "Policy", err)
		return
	}
	if p.Status == models.PolicyPublished && prevStatus != models.PolicyPublished {
		h.notifyPublished(ctx, p)
	}

	h.respondPolicy(c, http.StatusOK, p.ID)
}

func (h *Handlers) respondPolicy(c *gin.Context, status int, id uint) {
	saved, err := h.st.Policies().Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Policy", err)
		return
	}
	c.JSON(status, saved)
}

func (h *Handlers) DeletePolicy(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.fail(c, "Policy", err)
		return
	}
	if err := h.st.Policies().Delete(c.Request.Context(), id); err != nil {
		h.fail(c, "Policy", err)
		return
	}
	message(c, http.StatusOK, "Policy deleted successfully")
}

func (h *Handlers) PolicyStats(c *gin.Context) {
	policies, err := h.st.Policies().All(c.Request.Context())
	if err != nil {
		h.fail(c, "Policy", err)
		return
	}
	c.JSON(http.StatusOK, compliance.SummarizePolicies(policies, h.now()))
}

func (h *Handlers) notifyPublished(ctx context.Context, p *models.Policy) {
	id := p.ID
	h.notify(ctx, &models.Notification{
		Title:       "Policy published",
		Message:     fmt.Sprintf("%s %q version %s is now published.", p.PolicyID, p.Title, p.Version),
		Type:        models.NotifySuccess,
		Category:    models.NotifyPolicy,
		RecipientID: p.OwnerID,
		EntityType:  "Policy",
		EntityID:    &id,
	})
}
