package handlers

import (
	"context"
	"fmt"
	"net/http"

	"grc-isms/internal/compliance"
	"grc-isms/internal/ident"
	"grc-isms/internal/middleware"
	"grc-isms/internal/models"
	"grc-isms/internal/scoring"
	"grc-isms/internal/store"

	"github.com/gin-gonic/gin"
)

var riskList = listSpec{
	filters: map[string]filter{
		"category":  {column: "category"},
		"status":    {column: "status"},
		"riskLevel": {column: "risk_level"},
		"ownerId":   {column: "owner_id", kind: filterUint},
	},
	sorts: map[string]string{
		"createdAt":  "created_at",
		"updatedAt":  "updated_at",
		"riskId":     "risk_id",
		"title":      "title",
		"category":   "category",
		"likelihood": "likelihood",
		"impact":     "impact",
		"riskScore":  "risk_score",
		"riskLevel":  "risk_level",
		"status":     "status",
		"reviewDate": "review_date",
	},
	defaultSort: "createdAt",
}

// riskInput carries only caller-settable fields: score and level are derived
// by the model hook on every write.
type riskInput struct {
	Title              string               `json:"title" validate:"required,min=3,max=255"`
	Description        string               `json:"description" validate:"required,min=10"`
	Category           models.RiskCategory  `json:"category" validate:"required,enum"`
	Likelihood         int                  `json:"likelihood" validate:"required,gte=1,lte=5"`
	Impact             int                  `json:"impact" validate:"required,gte=1,lte=5"`
	OwnerID            uint                 `json:"ownerId"`
	Treatment          models.RiskTreatment `json:"treatment" validate:"required,enum"`
	TreatmentPlan      string               `json:"treatmentPlan"`
	Status             models.RiskStatus    `json:"status" validate:"omitempty,enum"`
	ResidualLikelihood *int                 `json:"residualLikelihood" validate:"omitempty,gte=1,lte=5"`
	ResidualImpact     *int                 `json:"residualImpact" validate:"omitempty,gte=1,lte=5"`
	ReviewDate         Date                 `json:"reviewDate" validate:"required"`
}

func (in *riskInput) apply(r *models.Risk) {
	r.Title = in.Title
	r.Description = in.Description
	r.Category = in.Category
	r.Likelihood = in.Likelihood
	r.Impact = in.Impact
	r.OwnerID = in.OwnerID
	r.Treatment = in.Treatment
	r.TreatmentPlan = in.TreatmentPlan
	r.ResidualLikelihood = in.ResidualLikelihood
	r.ResidualImpact = in.ResidualImpact
	r.ReviewDate = in.ReviewDate.Time
	if in.Status != "" {
		r.Status = in.Status
	}
	if r.Status == "" {
		r.Status = models.RiskOpen
	}
}

func (h *Handlers) ListRisks(c *gin.Context) {
	q, err := riskList.parse(c)
	if err != nil {
		h.fail(c, "Risk", err)
		return
	}
	items, total, err := h.st.Risks().List(c.Request.Context(), q)
	if err != nil {
		h.fail(c, "Risk", err)
		return
	}
	c.JSON(http.StatusOK, store.NewPage(items, total, q))
}

func (h *Handlers) GetRisk(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.fail(c, "Risk", err)
		return
	}
	risk, err := h.st.Risks().Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Risk", err)
		return
	}
	c.JSON(http.StatusOK, risk)
}

func (h *Handlers) CreateRisk(c *gin.Context) {
	var in riskInput
	if err := bind(c, &in); err != nil {
		h.fail(c, "Risk", err)
		return
	}

	ctx := c.Request.Context()
	user := middleware.CurrentUser(c)
	if in.OwnerID == 0 {
		in.OwnerID = user.ID
	} else if err := h.checkUser(ctx, "ownerId", in.OwnerID); err != nil {
		h.fail(c, "Risk", err)
		return
	}

	riskID, err := h.ids.Next(ctx, ident.KindRisk)
	if err != nil {
		h.fail(c, "Risk", err)
		return
	}
	risk := &models.Risk{RiskID: riskID, CreatedByID: user.ID}
	in.apply(risk)

	if err := h.st.Risks().Create(ctx, risk); err != nil {
		h.fail(c, "Risk", err)
		return
	}
	c.Set(middleware.ResourceIDKey, formatID(risk.ID))
	h.notifyCritical(ctx, risk, "")

	h.respondRisk(c, http.StatusCreated, risk)
}

func (h *Handlers) UpdateRisk(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.fail(c, "Risk", err)
		return
	}
	var in riskInput
	if err := bind(c, &in); err != nil {
		h.fail(c, "Risk", err)
		return
	}

	ctx := c.Request.Context()
	risk, err := h.st.Risks().Get(ctx, id)
	if err != nil {
		h.fail(c, "Risk", err)
		return
	}
	if in.OwnerID == 0 {
		in.OwnerID = risk.OwnerID
	} else if in.OwnerID != risk.OwnerID {
		if err := h.checkUser(ctx, "ownerId", in.OwnerID); err != nil {
			h.fail(c, "Risk", err)
			return
		}
	}

	prevLevel := risk.RiskLevel
	in.apply(risk)
	if err := h.st.Risks().Update(ctx, risk); err != nil {
		h.fail(c, "Risk", err)
		return
	}
	h.notifyCritical(ctx, risk, prevLevel)

	h.respondRisk(c, http.StatusOK, risk)
}

// respondRisk re-reads the risk so owner and author are populated.
func (h *Handlers) respondRisk(c *gin.Context, status int, risk *models.Risk) {
	saved, err := h.st.Risks().Get(c.Request.Context(), risk.ID)
	if err != nil {
		h.fail(c, "Risk", err)
		return
	}
	c.JSON(status, saved)
}

func (h *Handlers) DeleteRisk(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.fail(c, "Risk", err)
		return
	}
	if err := h.st.Risks().Delete(c.Request.Context(), id); err != nil {
		h.fail(c, "Risk", err)
		return
	}
	message(c, http.StatusOK, "Risk deleted successfully")
}

func (h *Handlers) RiskStats(c *gin.Context) {
	risks, err := h.st.Risks().All(c.Request.Context())
	if err != nil {
		h.fail(c, "Risk", err)
		return
	}
	c.JSON(http.StatusOK, compliance.SummarizeRisks(risks))
}

// notifyCritical tells the owner when a risk reaches Critical.
func (h *Handlers) notifyCritical(ctx context.Context, r *models.Risk, prev scoring.Level) {
	if r.RiskLevel != scoring.LevelCritical || prev == scoring.LevelCritical {
		return
	}
	id := r.ID
	h.notify(ctx, &models.Notification{
		Title:       "Critical risk assigned",
		Message:     fmt.Sprintf("%s %q is rated Critical (score %d) and needs treatment.", r.RiskID, r.Title, r.RiskScore),
		Type:        models.NotifyError,
		Category:    models.NotifyRisk,
		RecipientID: r.OwnerID,
		EntityType:  "Risk",
		EntityID:    &id,
	})
}
