package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

type dueNotification struct {
	ID         string    `json:"id"`
	EventID    string    `json:"event_id"`
	NotifyTime time.Time `json:"notify_time"`
	IsSent     bool      `json:"is_sent"`
	Title      string    `json:"title"`
	UserID     string    `json:"user_id"`
}

func (a *App) dueNotifications(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	limit, ok := parseBoundedInt(c.Query("limit"), 50, 1, 200)
	if !ok {
		writeError(c, http.StatusBadRequest, "limit must be between 1 and 200")
		return
	}

	rows, err := a.db.Query(
		c.Request.Context(),
		`SELECT n.id, n."eventId", n."notifyAt", n."isSent", e.title, e."userId"
		 FROM "Notification" n
		 JOIN "CalendarEvent" e ON e.id = n."eventId"
		 WHERE e."userId" = $1
		   AND n."notifyAt" <= $2
		   AND NOT n."isSent"
		   AND NOT EXISTS (
		     SELECT 1 FROM "UserSetting" s
		     WHERE s."userId" = e."userId" AND NOT s."notificationEnabled"
		   )
		 ORDER BY n."notifyAt" ASC
		 LIMIT $3`,
		user.ID,
		a.now().UTC(),
		limit,
	)
	if err != nil {
		a.internalError(c, err, "Failed to load notifications")
		return
	}
	defer rows.Close()

	items := []dueNotification{}
	for rows.Next() {
		var item dueNotification
		if err := rows.Scan(&item.ID, &item.EventID, &item.NotifyTime, &item.IsSent, &item.Title, &item.UserID); err != nil {
			a.internalError(c, err, "Failed to load notifications")
			return
		}
		item.NotifyTime = item.NotifyTime.UTC()
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		a.internalError(c, err, "Failed to load notifications")
		return
	}
	c.JSON(http.StatusOK, items)
}

func (a *App) markNotificationSent(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var id string
	err := a.db.QueryRow(
		c.Request.Context(),
		`UPDATE "Notification" n SET "isSent" = TRUE, "updatedAt" = NOW()
		 FROM "CalendarEvent" e
		 WHERE n.id = $1 AND e.id = n."eventId" AND e."userId" = $2
		 RETURNING n.id`,
		c.Param("id"),
		user.ID,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(c, http.StatusNotFound, "Notification not found")
		return
	}
	if err != nil {
		a.internalError(c, err, "Failed to update notification")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "id": id})
}
