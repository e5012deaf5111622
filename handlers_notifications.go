package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func notifyUser(ctx context.Context, ex execer, userID, workOrderID int, title, message string) error {
	_, err := ex.ExecContext(ctx, `
        INSERT INTO notifications (user_id, work_order_id, title, message, expires_at)
        VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP + make_interval(days => $5::int))`,
		userID, workOrderID, title, message, notificationRetentionDays)
	if err != nil {
		return fmt.Errorf("notify user %d: %w", userID, err)
	}
	return nil
}

// notifyAdmins writes one notification for every admin and superadmin.
func notifyAdmins(ctx context.Context, ex execer, workOrderID int, title, message string) error {
	_, err := ex.ExecContext(ctx, `
        INSERT INTO notifications (user_id, work_order_id, title, message, expires_at)
        SELECT id, $1, $2, $3, CURRENT_TIMESTAMP + make_interval(days => $4::int)
        FROM users WHERE role IN ($5, $6)`,
		workOrderID, title, message, notificationRetentionDays, roleAdmin, roleSuperadmin)
	if err != nil {
		return fmt.Errorf("notify admins: %w", err)
	}
	return nil
}

func getNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	rows, err := db.QueryContext(r.Context(), `
        SELECT id, user_id, work_order_id, title, message, is_read, created_at, expires_at
        FROM notifications
        WHERE user_id = $1 AND expires_at > CURRENT_TIMESTAMP
        ORDER BY is_read ASC, created_at DESC`, currentUser(r).ID)
	if err != nil {
		internalError(w, r, "Failed to fetch notifications", err)
		return
	}
	defer rows.Close()

	notifications := []Notification{}
	for rows.Next() {
		var n Notification
		var workOrderID sql.NullInt64
		if err := rows.Scan(&n.ID, &n.UserID, &workOrderID, &n.Title, &n.Message, &n.IsRead, &n.CreatedAt, &n.ExpiresAt); err != nil {
			internalError(w, r, "Failed to fetch notifications", err)
			return
		}
		if workOrderID.Valid {
			id := int(workOrderID.Int64)
			n.WorkOrderID = &id
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		internalError(w, r, "Failed to fetch notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

func markNotificationReadHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid notification ID")
		return
	}

	res, err := db.ExecContext(r.Context(),
		"UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2", id, currentUser(r).ID)
	if err != nil {
		internalError(w, r, "Failed to update notification", err)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeError(w, http.StatusNotFound, "Notification not found")
		return
	}
	writeMessage(w, http.StatusOK, nil, "Notification marked as read")
}

func markAllNotificationsReadHandler(w http.ResponseWriter, r *http.Request) {
	res, err := db.ExecContext(r.Context(),
		"UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE", currentUser(r).ID)
	if err != nil {
		internalError(w, r, "Failed to update notifications", err)
		return
	}
	n, _ := res.RowsAffected()
	writeJSON(w, http.StatusOK, map[string]int64{"updatedCount": n})
}

func cleanupNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	deleted, err := cleanupExpiredNotifications(r.Context(), db)
	if err != nil {
		internalError(w, r, "Internal server error", err)
		return
	}
	requestLogger(r).Info("expired notifications removed", zap.Int64("deleted", deleted))
	writeMessage(w, http.StatusOK, map[string]int64{"deletedCount": deleted},
		fmt.Sprintf("Cleaned up %d expired notifications", deleted))
}
