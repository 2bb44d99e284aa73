package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"

	"babyprep/backend/internal/pregnancy"
)

type profileRecord struct {
	Height        *float64   `json:"height"`
	PreWeight     *float64   `json:"preWeight"`
	CurrentWeight *float64   `json:"currentWeight"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
}

type pregnancyRecord struct {
	pregnancy.Window
	OvulationWeekStart *time.Time
}

func (p pregnancyRecord) response() gin.H {
	return gin.H{
		"startDate":          formatDatePtr(p.Start),
		"dueDate":            formatDatePtr(p.Due),
		"ovulationWeekStart": formatDatePtr(p.OvulationWeekStart),
	}
}

type periodRecord struct {
	LastPeriod  *time.Time
	PeriodStart *time.Time
}

func loadProfile(ctx context.Context, q dbQuerier, userID string) (profileRecord, error) {
	profile := profileRecord{}
	err := q.QueryRow(
		ctx,
		`SELECT height, "initialWeight", "currentWeight", "updatedAt"
		 FROM "UserProfile" WHERE "userId" = $1`,
		userID,
	).Scan(&profile.Height, &profile.PreWeight, &profile.CurrentWeight, &profile.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return profileRecord{}, nil
	}
	return profile, err
}

func loadPregnancyInfo(ctx context.Context, q dbQuerier, userID string) (pregnancyRecord, error) {
	info := pregnancyRecord{}
	err := q.QueryRow(
		ctx,
		`SELECT "pregnancyStart", "dueDate", "ovulationWeekStart"
		 FROM "PregnancyInfo" WHERE "userId" = $1`,
		userID,
	).Scan(&info.Start, &info.Due, &info.OvulationWeekStart)
	if errors.Is(err, pgx.ErrNoRows) {
		return pregnancyRecord{}, nil
	}
	return info, err
}

func loadPeriodInfo(ctx context.Context, q dbQuerier, userID string) (periodRecord, error) {
	info := periodRecord{}
	err := q.QueryRow(
		ctx,
		`SELECT "lastPeriod", "periodStart" FROM "PeriodInfo" WHERE "userId" = $1`,
		userID,
	).Scan(&info.LastPeriod, &info.PeriodStart)
	if errors.Is(err, pgx.ErrNoRows) {
		return periodRecord{}, nil
	}
	return info, err
}

func upsertPregnancyInfo(ctx context.Context, q dbQuerier, userID string, start, due *time.Time) error {
	var ovulation *time.Time
	if start != nil {
		value := pregnancy.OvulationWeekStart(*start)
		ovulation = &value
	}
	_, err := q.Exec(
		ctx,
		`INSERT INTO "PregnancyInfo" ("userId", "pregnancyStart", "dueDate", "ovulationWeekStart", "createdAt", "updatedAt")
		 VALUES ($1, $2, $3, $4, NOW(), NOW())
		 ON CONFLICT ("userId") DO UPDATE SET
		   "pregnancyStart" = EXCLUDED."pregnancyStart",
		   "dueDate" = EXCLUDED."dueDate",
		   "ovulationWeekStart" = EXCLUDED."ovulationWeekStart",
		   "updatedAt" = NOW()`,
		userID,
		start,
		due,
		ovulation,
	)
	return err
}

func (a *App) getMe(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	ctx := c.Request.Context()

	profile, err := loadProfile(ctx, a.db, user.ID)
	if err != nil {
		a.internalError(c, err, "Failed to load profile")
		return
	}
	info, err := loadPregnancyInfo(ctx, a.db, user.ID)
	if err != nil {
		a.internalError(c, err, "Failed to load pregnancy info")
		return
	}
	period, err := loadPeriodInfo(ctx, a.db, user.ID)
	if err != nil {
		a.internalError(c, err, "Failed to load period info")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":         userResponse(user),
		"profile":      profile,
		"pregnancy":    info.response(),
		"period":       gin.H{"lastPeriod": formatDatePtr(period.LastPeriod), "periodStart": formatDatePtr(period.PeriodStart)},
		"stage":        info.Stage(a.today()),
		"weightStatus": pregnancy.EvaluateWeightPtr(profile.Height, profile.PreWeight, profile.CurrentWeight),
	})
}

func (a *App) patchMe(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var payload patchMeRequest
	if !mustJSON(c, &payload) {
		return
	}
	if payload.Nickname != nil {
		trimmed := strings.TrimSpace(*payload.Nickname)
		if trimmed == "" {
			writeError(c, http.StatusBadRequest, "nickname must not be empty")
			return
		}
		payload.Nickname = &trimmed
	}

	err := a.db.QueryRow(
		c.Request.Context(),
		`UPDATE "User" SET
		   nickname = COALESCE($2, nickname),
		   "isPregnant" = COALESCE($3, "isPregnant"),
		   gender = COALESCE($4, gender),
		   "updatedAt" = NOW()
		 WHERE id = $1
		 RETURNING nickname, "isPregnant"`,
		user.ID,
		payload.Nickname,
		payload.IsPregnant,
		payload.Gender,
	).Scan(&user.Nickname, &user.IsPregnant)
	if err != nil {
		a.internalError(c, err, "Failed to update user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userResponse(user)})
}

func (a *App) updateProfile(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var payload profileRequest
	if !mustJSON(c, &payload) {
		return
	}
	for _, value := range []*float64{payload.Height, payload.PreWeight, payload.CurrentWeight} {
		if value != nil && *value <= 0 {
			writeError(c, http.StatusBadRequest, "height and weights must be positive")
			return
		}
	}

	profile := profileRecord{}
	err := a.db.QueryRow(
		c.Request.Context(),
		`INSERT INTO "UserProfile" ("userId", height, "initialWeight", "currentWeight", "updatedAt")
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT ("userId") DO UPDATE SET
		   height = COALESCE(EXCLUDED.height, "UserProfile".height),
		   "initialWeight" = COALESCE(EXCLUDED."initialWeight", "UserProfile"."initialWeight"),
		   "currentWeight" = COALESCE(EXCLUDED."currentWeight", "UserProfile"."currentWeight"),
		   "updatedAt" = NOW()
		 RETURNING height, "initialWeight", "currentWeight", "updatedAt"`,
		user.ID,
		payload.Height,
		payload.PreWeight,
		payload.CurrentWeight,
	).Scan(&profile.Height, &profile.PreWeight, &profile.CurrentWeight, &profile.UpdatedAt)
	if err != nil {
		a.internalError(c, err, "Failed to save profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"profile":      profile,
		"weightStatus": pregnancy.EvaluateWeightPtr(profile.Height, profile.PreWeight, profile.CurrentWeight),
	})
}

func (a *App) updateDates(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var payload datesRequest
	if !mustJSON(c, &payload) {
		return
	}
	start, err := parseOptionalDate(payload.StartDate)
	if err != nil {
		writeError(c, http.StatusBadRequest, "startDate must be YYYY-MM-DD")
		return
	}
	due, err := parseOptionalDate(payload.DueDate)
	if err != nil {
		writeError(c, http.StatusBadRequest, "dueDate must be YYYY-MM-DD")
		return
	}
	if start == nil && due == nil {
		writeError(c, http.StatusBadRequest, "startDate or dueDate is required")
		return
	}
	window := pregnancy.Window{Start: start, Due: due}.Filled()

	if err := upsertPregnancyInfo(c.Request.Context(), a.db, user.ID, window.Start, window.Due); err != nil {
		a.internalError(c, err, "Failed to save pregnancy dates")
		return
	}
	ovulation := pregnancy.OvulationWeekStart(*window.Start)
	info := pregnancyRecord{Window: window, OvulationWeekStart: &ovulation}
	c.JSON(http.StatusOK, gin.H{
		"pregnancy": info.response(),
		"stage":     info.Stage(a.today()),
	})
}

func (a *App) updatePeriod(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var payload periodRequest
	if !mustJSON(c, &payload) {
		return
	}
	lastPeriod, err := parseDate(payload.LastPeriod)
	if err != nil {
		writeError(c, http.StatusBadRequest, "lastPeriod must be YYYY-MM-DD")
		return
	}
	periodStart, err := parseOptionalDate(payload.PeriodStart)
	if err != nil {
		writeError(c, http.StatusBadRequest, "periodStart must be YYYY-MM-DD")
		return
	}

	if _, err := a.db.Exec(
		c.Request.Context(),
		`INSERT INTO "PeriodInfo" ("userId", "lastPeriod", "periodStart", "updatedAt")
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT ("userId") DO UPDATE SET
		   "lastPeriod" = EXCLUDED."lastPeriod",
		   "periodStart" = EXCLUDED."periodStart",
		   "updatedAt" = NOW()`,
		user.ID,
		lastPeriod,
		periodStart,
	); err != nil {
		a.internalError(c, err, "Failed to save period info")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"lastPeriod":  lastPeriod.Format(pregnancy.DateLayout),
		"periodStart": formatDatePtr(periodStart),
	})
}

func (a *App) getStage(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	today := a.today()
	if raw := strings.TrimSpace(c.Query("today")); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			writeError(c, http.StatusBadRequest, "today must be YYYY-MM-DD")
			return
		}
		today = parsed
	}

	info, err := loadPregnancyInfo(c.Request.Context(), a.db, user.ID)
	if err != nil {
		a.internalError(c, err, "Failed to load pregnancy info")
		return
	}
	c.JSON(http.StatusOK, info.Stage(today))
}
