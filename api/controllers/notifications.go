package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/shota3227/ludi/api/validators"
	"github.com/shota3227/ludi/internal/notifications"
	"github.com/shota3227/ludi/pkg/logger"
)

// inbox adapts fn to an endpoint scoped to the caller's own notifications.
func inbox(svc notifications.Service, logg *logger.Logger, fn func(r *http.Request, userID uuid.UUID) (any, error)) http.HandlerFunc {
	return endpoint(svc, "notifications", http.StatusOK, logg, func(_ http.ResponseWriter, r *http.Request) (any, error) {
		userID, err := currentUserID(r.Context())
		if err != nil {
			return nil, err
		}
		return fn(r, userID)
	})
}

// ListNotifications returns the caller's notifications, newest first.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return inbox(svc, logg, func(r *http.Request, userID uuid.UUID) (any, error) {
		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			return nil, err
		}
		unreadOnly, err := validators.ParseQueryBool(r, "unread_only")
		if err != nil {
			return nil, err
		}
		return svc.List(r.Context(), notifications.ListParams{
			UserID:     userID,
			Limit:      limit,
			Cursor:     strings.TrimSpace(r.URL.Query().Get("cursor")),
			UnreadOnly: unreadOnly,
		})
	})
}

// UnreadNotificationCount returns the badge count.
func UnreadNotificationCount(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return inbox(svc, logg, func(r *http.Request, userID uuid.UUID) (any, error) {
		n, err := svc.UnreadCount(r.Context(), userID)
		if err != nil {
			return nil, err
		}
		return map[string]int64{"unread": n}, nil
	})
}

func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return inbox(svc, logg, func(r *http.Request, userID uuid.UUID) (any, error) {
		id, err := validators.ParseUUIDParam(r, "notificationId")
		if err != nil {
			return nil, err
		}
		if err := svc.MarkRead(r.Context(), userID, id); err != nil {
			return nil, err
		}
		return map[string]bool{"read": true}, nil
	})
}

func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return inbox(svc, logg, func(r *http.Request, userID uuid.UUID) (any, error) {
		n, err := svc.MarkAllRead(r.Context(), userID)
		if err != nil {
			return nil, err
		}
		return map[string]int64{"updated": n}, nil
	})
}
