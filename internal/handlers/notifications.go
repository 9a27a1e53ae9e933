package handlers

import (
	"net/http"

	"grc-isms/internal/apperr"
	"grc-isms/internal/middleware"
	"grc-isms/internal/models"
	"grc-isms/internal/store"

	"github.com/gin-gonic/gin"
)

var notificationList = listSpec{
	filters: map[string]filter{
		"isRead":   {column: "is_read", kind: filterBool},
		"category": {column: "category"},
		"type":     {column: "type"},
	},
	sorts:        map[string]string{"createdAt": "created_at"},
	defaultSort:  "createdAt",
	defaultLimit: 20,
}

type notificationPage struct {
	store.Page[models.Notification]
	UnreadCount int64 `json:"unreadCount"`
}

// ListNotifications returns the caller's own notifications only.
func (h *Handlers) ListNotifications(c *gin.Context) {
	q, err := notificationList.parse(c)
	if err != nil {
		h.fail(c, "Notification", err)
		return
	}

	ctx := c.Request.Context()
	user := middleware.CurrentUser(c)
	q.Filters["recipient_id"] = user.ID
	items, total, err := h.st.Notifications().List(ctx, q)
	if err != nil {
		h.fail(c, "Notification", err)
		return
	}
	unread, err := h.st.Notifications().Count(ctx, map[string]any{"recipient_id": user.ID, "is_read": false})
	if err != nil {
		h.fail(c, "Notification", err)
		return
	}
	c.JSON(http.StatusOK, notificationPage{Page: store.NewPage(items, total, q), UnreadCount: unread})
}

// ownNotification loads a notification of the current user; someone else's
// notification is reported as missing.
func (h *Handlers) ownNotification(c *gin.Context) (*models.Notification, error) {
	id, err := idParam(c, "id")
	if err != nil {
		return nil, err
	}
	n, err := h.st.Notifications().Get(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if n.RecipientID != middleware.CurrentUser(c).ID {
		return nil, apperr.NotFound("notification")
	}
	return n, nil
}

func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	n, err := h.ownNotification(c)
	if err != nil {
		h.fail(c, "Notification", err)
		return
	}
	if !n.IsRead {
		at := h.now()
		n.IsRead = true
		n.ReadAt = &at
		if err := h.st.Notifications().Update(c.Request.Context(), n); err != nil {
			h.fail(c, "Notification", err)
			return
		}
	}
	c.JSON(http.StatusOK, n)
}

func (h *Handlers) MarkAllNotificationsRead(c *gin.Context) {
	n, err := h.st.Notifications().MarkAllRead(c.Request.Context(), middleware.CurrentUser(c).ID, h.now())
	if err != nil {
		h.fail(c, "Notification", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read", "updated": n})
}

func (h *Handlers) DeleteNotification(c *gin.Context) {
	n, err := h.ownNotification(c)
	if err != nil {
		h.fail(c, "Notification", err)
		return
	}
	if err := h.st.Notifications().Delete(c.Request.Context(), n.ID); err != nil {
		h.fail(c, "Notification", err)
		return
	}
	message(c, http.StatusOK, "Notification deleted successfully")
}
