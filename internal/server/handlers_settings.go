package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type notificationSettings struct {
	Enabled bool     `json:"enabled"`
	Times   []string `json:"times"`
}

// loadNotificationSettings reads the reminder times. A user without rows is enabled by default.
func loadNotificationSettings(ctx context.Context, q dbQuerier, userID string) (notificationSettings, error) {
	settings := notificationSettings{Enabled: true, Times: []string{}}
	rows, err := q.Query(
		ctx,
		`SELECT to_char("notifyTime", 'HH24:MI'), "notificationEnabled"
		 FROM "UserSetting"
		 WHERE "userId" = $1
		 ORDER BY "notifyTime" ASC`,
		userID,
	)
	if err != nil {
		return notificationSettings{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			clock   string
			enabled bool
		)
		if err := rows.Scan(&clock, &enabled); err != nil {
			return notificationSettings{}, err
		}
		if len(settings.Times) == 0 {
			settings.Enabled = enabled
		}
		settings.Times = append(settings.Times, clock)
	}
	return settings, rows.Err()
}

func (a *App) getNotificationSettings(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	settings, err := loadNotificationSettings(c.Request.Context(), a.db, user.ID)
	if err != nil {
		a.internalError(c, err, "Failed to load settings")
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (a *App) addNotificationTime(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var payload notificationTimeRequest
	if !mustJSON(c, &payload) {
		return
	}
	clock, valid := normalizeClock(payload.Time)
	if !valid {
		writeError(c, http.StatusBadRequest, "time must be HH:MM")
		return
	}

	ctx := c.Request.Context()
	current, err := loadNotificationSettings(ctx, a.db, user.ID)
	if err != nil {
		a.internalError(c, err, "Failed to load settings")
		return
	}
	// New times inherit the current toggle so the switch stays uniform across rows.
	if _, err := a.db.Exec(
		ctx,
		`INSERT INTO "UserSetting" (id, "userId", "notificationEnabled", "notifyTime", language, "createdAt")
		 VALUES ($1, $2, $3, $4::time, 'ko', NOW())
		 ON CONFLICT ("userId", "notifyTime") DO NOTHING`,
		uuid.NewString(),
		user.ID,
		current.Enabled,
		clock,
	); err != nil {
		a.internalError(c, err, "Failed to save notification time")
		return
	}

	settings, err := loadNotificationSettings(ctx, a.db, user.ID)
	if err != nil {
		a.internalError(c, err, "Failed to load settings")
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (a *App) deleteNotificationTime(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	clock, valid := normalizeClock(c.Param("time"))
	if !valid {
		writeError(c, http.StatusBadRequest, "time must be HH:MM")
		return
	}

	ctx := c.Request.Context()
	tag, err := a.db.Exec(
		ctx,
		`DELETE FROM "UserSetting" WHERE "userId" = $1 AND "notifyTime" = $2::time`,
		user.ID,
		clock,
	)
	if err != nil {
		a.internalError(c, err, "Failed to delete notification time")
		return
	}
	if tag.RowsAffected() == 0 {
		writeError(c, http.StatusNotFound, "Notification time not found")
		return
	}

	settings, err := loadNotificationSettings(ctx, a.db, user.ID)
	if err != nil {
		a.internalError(c, err, "Failed to load settings")
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (a *App) toggleNotifications(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var payload notificationToggleRequest
	if !mustJSON(c, &payload) {
		return
	}
	if payload.Enabled == nil {
		writeError(c, http.StatusBadRequest, "enabled is required")
		return
	}

	ctx := c.Request.Context()
	tag, err := a.db.Exec(
		ctx,
		`UPDATE "UserSetting" SET "notificationEnabled" = $2 WHERE "userId" = $1`,
		user.ID,
		*payload.Enabled,
	)
	if err != nil {
		a.internalError(c, err, "Failed to update notification toggle")
		return
	}
	if tag.RowsAffected() == 0 {
		writeError(c, http.StatusBadRequest, "Add a notification time first")
		return
	}

	settings, err := loadNotificationSettings(ctx, a.db, user.ID)
	if err != nil {
		a.internalError(c, err, "Failed to load settings")
		return
	}
	c.JSON(http.StatusOK, settings)
}
