package handlers

import (
	"net/http"

	"grc-isms/internal/apperr"
	"grc-isms/internal/compliance"
	"grc-isms/internal/middleware"
	"grc-isms/internal/models"
	"grc-isms/internal/store"

	"github.com/gin-gonic/gin"
)

// controlList sorts by Annex A clause by default.
var controlList = listSpec{
	filters: map[string]filter{
		"category":             {column: "category"},
		"applicability":        {column: "applicability"},
		"implementationStatus": {column: "implementation_status"},
		"responsibleOwnerId":   {column: "responsible_owner_id", kind: filterUint},
	},
	sorts: map[string]string{
		"controlId":            "control_id",
		"controlTitle":         "control_title",
		"category":             "category",
		"applicability":        "applicability",
		"implementationStatus": "implementation_status",
		"nextReviewDate":       "next_review_date",
		"createdAt":            "created_at",
		"updatedAt":            "updated_at",
	},
	defaultSort:  "controlId",
	defaultOrder: "asc",
	defaultLimit: 20,
}

type controlInput struct {
	ControlID             string                      `json:"controlId" validate:"required,max=32"`
	ControlTitle          string                      `json:"controlTitle" validate:"required,min=3,max=255"`
	ControlDescription    string                      `json:"controlDescription" validate:"required,min=10"`
	Category              models.ControlCategory      `json:"category" validate:"required,enum"`
	Applicability         models.Applicability        `json:"applicability" validate:"required,enum"`
	ImplementationStatus  models.ImplementationStatus `json:"implementationStatus" validate:"required,enum"`
	Justification         string                      `json:"justification" validate:"required,min=10"`
	ResponsibleOwnerID    uint                        `json:"responsibleOwnerId"`
	ImplementationDetails string                      `json:"implementationDetails"`
	EvidenceLocation      string                      `json:"evidenceLocation" validate:"max=500"`
	LastReviewDate        *Date                       `json:"lastReviewDate"`
	NextReviewDate        Date                        `json:"nextReviewDate" validate:"required"`
}

func (in *controlInput) apply(ctrl *models.Control) {
	ctrl.ControlID = in.ControlID
	ctrl.ControlTitle = in.ControlTitle
	ctrl.ControlDescription = in.ControlDescription
	ctrl.Category = in.Category
	ctrl.Applicability = in.Applicability
	ctrl.ImplementationStatus = in.ImplementationStatus
	ctrl.Justification = in.Justification
	ctrl.ResponsibleOwnerID = in.ResponsibleOwnerID
	ctrl.ImplementationDetails = in.ImplementationDetails
	ctrl.EvidenceLocation = in.EvidenceLocation
	ctrl.LastReviewDate = timePtr(in.LastReviewDate)
	ctrl.NextReviewDate = in.NextReviewDate.Time
}

var errControlExists = apperr.Conflict("control ID already exists")

func (h *Handlers) ListControls(c *gin.Context) {
	q, err := controlList.parse(c)
	if err != nil {
		h.fail(c, "Control", err)
		return
	}
	items, total, err := h.st.Controls().List(c.Request.Context(), q)
	if err != nil {
		h.fail(c, "Control", err)
		return
	}
	c.JSON(http.StatusOK, store.NewPage(items, total, q))
}

func (h *Handlers) GetControl(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.fail(c, "Control", err)
		return
	}
	ctrl, err := h.st.Controls().Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Control", err)
		return
	}
	c.JSON(http.StatusOK, ctrl)
}

func (h *Handlers) CreateControl(c *gin.Context) {
	var in controlInput
	if err := bind(c, &in); err != nil {
		h.fail(c, "Control", err)
		return
	}

	ctx := c.Request.Context()
	user := middleware.CurrentUser(c)
	if in.ResponsibleOwnerID == 0 {
		in.ResponsibleOwnerID = user.ID
	} else if err := h.checkUser(ctx, "responsibleOwnerId", in.ResponsibleOwnerID); err != nil {
		h.fail(c, "Control", err)
		return
	}

	// идентификатор задаёт пользователь, поэтому проверяем заранее;
	// уникальный индекс всё равно подстрахует при гонке
	exists, err := h.st.Controls().ExistsControlID(ctx, in.ControlID)
	if err != nil {
		h.fail(c, "Control", err)
		return
	}
	if exists {
		h.fail(c, "Control", errControlExists)
		return
	}

	ctrl := &models.Control{CreatedByID: user.ID}
	in.apply(ctrl)
	if err := h.st.Controls().Create(ctx, ctrl); err != nil {
		h.fail(c, "Control", err)
		return
	}
	c.Set(middleware.ResourceIDKey, formatID(ctrl.ID))

	h.respondControl(c, http.StatusCreated, ctrl.ID)
}

func (h *Handlers) UpdateControl(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.fail(c, "Control", err)
		return
	}
	var in controlInput
	if err := bind(c, &in); err != nil {
		h.fail(c, "Control", err)
		return
	}

	ctx := c.Request.Context()
	ctrl, err := h.st.Controls().Get(ctx, id)
	if err != nil {
		h.fail(c, "Control", err)
		return
	}
	if in.ResponsibleOwnerID == 0 {
		in.ResponsibleOwnerID = ctrl.ResponsibleOwnerID
	} else if in.ResponsibleOwnerID != ctrl.ResponsibleOwnerID {
		if err := h.checkUser(ctx, "responsibleOwnerId", in.ResponsibleOwnerID); err != nil {
			h.fail(c, "Control", err)
			return
		}
	}
	if in.ControlID != ctrl.ControlID {
		exists, err := h.st.Controls().ExistsControlID(ctx, in.ControlID)
		if err != nil {
			h.fail(c, "Control", err)
			return
		}
		if exists {
			h.fail(c, "Control", errControlExists)
			return
		}
	}

	in.apply(ctrl)
	if err := h.st.Controls().Update(ctx, ctrl); err != nil {
		h.fail(c, "Control", err)
		return
	}
	h.respondControl(c, http.StatusOK, ctrl.ID)
}

func (h *Handlers) respondControl(c *gin.Context, status int, id uint) {
	saved, err := h.st.Controls().Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Control", err)
		return
	}
	c.JSON(status, saved)
}

func (h *Handlers) DeleteControl(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.fail(c, "Control", err)
		return
	}
	if err := h.st.Controls().Delete(c.Request.Context(), id); err != nil {
		h.fail(c, "Control", err)
		return
	}
	message(c, http.StatusOK, "Control deleted successfully")
}

func (h *Handlers) ControlStats(c *gin.Context) {
	controls, err := h.st.Controls().All(c.Request.Context())
	if err != nil {
		h.fail(c, "Control", err)
		return
	}
	c.JSON(http.StatusOK, compliance.SummarizeSoA(controls))
}
