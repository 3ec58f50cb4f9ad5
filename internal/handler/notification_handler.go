package handler

import (
	"net/http"

	"github.com/hitoshi/storeman/internal/notify"
)

// NotificationDrainer は未読通知の取り出しのインターフェース。
type NotificationDrainer interface {
	Drain() []notify.Notification
}

// NotificationHandler はユーザー向け通知のHTTPハンドラー。
type NotificationHandler struct {
	center NotificationDrainer
}

// NewNotificationHandler はNotificationHandlerを生成する。
func NewNotificationHandler(center NotificationDrainer) *NotificationHandler {
	return &NotificationHandler{center: center}
}

// ListNotifications は未読の通知を取り出して返す。取り出した通知は消費される。
// GET /api/notifications
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	notifications := h.center.Drain()
	if notifications == nil {
		notifications = []notify.Notification{}
	}
	writeJSON(w, http.StatusOK, notifications)
}
