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

var userList = listSpec{
	filters: map[string]filter{
		"role":       {column: "role"},
		"isActive":   {column: "is_active", kind: filterBool},
		"department": {column: "department"},
	},
	sorts: map[string]string{
		"createdAt":    "created_at",
		"email":        "email",
		"firstName":    "first_name",
		"lastName":     "last_name",
		"role":         "role",
		"lastLogin":    "last_login",
		"lastActivity": "last_activity",
	},
	defaultSort: "createdAt",
}

// userActivityList pages a user's journal, 50 entries, newest first.
var userActivityList = listSpec{
	sorts:        map[string]string{"createdAt": "created_at"},
	defaultSort:  "createdAt",
	defaultLimit: 50,
	dateRange:    true,
}

func (h *Handlers) ListUsers(c *gin.Context) {
	q, err := userList.parse(c)
	if err != nil {
		h.fail(c, "User", err)
		return
	}
	items, total, err := h.st.Users().List(c.Request.Context(), q)
	if err != nil {
		h.fail(c, "User", err)
		return
	}
	c.JSON(http.StatusOK, store.NewPage(items, total, q))
}

func (h *Handlers) GetUser(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.fail(c, "User", err)
		return
	}
	u, err := h.st.Users().Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "User", err)
		return
	}
	c.JSON(http.StatusOK, u)
}

type roleInput struct {
	Role models.UserRole `json:"role" validate:"required,enum"`
}

func (h *Handlers) UpdateUserRole(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.fail(c, "User", err)
		return
	}
	var in roleInput
	if err := bind(c, &in); err != nil {
		h.fail(c, "User", err)
		return
	}

	ctx := c.Request.Context()
	u, err := h.st.Users().Get(ctx, id)
	if err != nil {
		h.fail(c, "User", err)
		return
	}
	// администратор не может снять права сам с себя
	if u.ID == middleware.CurrentUser(c).ID && in.Role != models.RoleAdmin {
		h.fail(c, "User", apperr.Invalid("role", "cannot change your own role"))
		return
	}

	prev := u.Role
	u, err = h.st.Users().SetRole(ctx, u.ID, in.Role)
	if err != nil {
		h.fail(c, "User", err)
		return
	}
	h.journal.Record(c, &models.AuditLog{
		UserID:     &middleware.CurrentUser(c).ID,
		Action:     models.ActionAdmin,
		Resource:   "User",
		ResourceID: formatID(u.ID),
		Details:    map[string]any{"change": "role", "from": string(prev), "to": string(u.Role)},
	})
	c.JSON(http.StatusOK, u)
}

type statusInput struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

func (h *Handlers) UpdateUserStatus(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.fail(c, "User", err)
		return
	}
	var in statusInput
	if err := bind(c, &in); err != nil {
		h.fail(c, "User", err)
		return
	}

	ctx := c.Request.Context()
	u, err := h.st.Users().Get(ctx, id)
	if err != nil {
		h.fail(c, "User", err)
		return
	}
	if u.ID == middleware.CurrentUser(c).ID && !*in.IsActive {
		h.fail(c, "User", apperr.Invalid("isActive", "cannot deactivate your own account"))
		return
	}

	u, err = h.st.Users().SetActive(ctx, u.ID, *in.IsActive)
	if err != nil {
		h.fail(c, "User", err)
		return
	}
	h.journal.Record(c, &models.AuditLog{
		UserID:     &middleware.CurrentUser(c).ID,
		Action:     models.ActionAdmin,
		Resource:   "User",
		ResourceID: formatID(u.ID),
		Details:    map[string]any{"change": "status", "isActive": u.IsActive},
	})
	c.JSON(http.StatusOK, u)
}

func (h *Handlers) UserActivity(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		h.fail(c, "User", err)
		return
	}
	q, err := userActivityList.parse(c)
	if err != nil {
		h.fail(c, "User", err)
		return
	}

	ctx := c.Request.Context()
	if _, err := h.st.Users().Get(ctx, id); err != nil {
		h.fail(c, "User", err)
		return
	}
	q.Filters["user_id"] = id
	items, total, err := h.st.AuditLogs().List(ctx, q)
	if err != nil {
		h.fail(c, "User", err)
		return
	}
	c.JSON(http.StatusOK, store.NewPage(items, total, q))
}

func (h *Handlers) UserStats(c *gin.Context) {
	users, err := h.st.Users().All(c.Request.Context())
	if err != nil {
		h.fail(c, "User", err)
		return
	}
	c.JSON(http.StatusOK, compliance.SummarizeUsers(users, h.now()))
}
