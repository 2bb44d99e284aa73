package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"babyprep/backend/internal/calendar"
)

type supplementSummary struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Nutrient  string  `json:"nutrient"`
	Schedule  string  `json:"schedule"`
	Stage     string  `json:"stage"`
	Notes     string  `json:"notes"`
	Source    string  `json:"source"`
	Active    bool    `json:"active"`
	StartDate *string `json:"start_date,omitempty"`
	EndDate   *string `json:"end_date,omitempty"`
	Cycle     string  `json:"cycle,omitempty"`
	TimeOfDay string  `json:"time_of_day,omitempty"`
}

type nutrientWithSupplements struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	Stage             string          `json:"stage"`
	RecommendedPeriod string          `json:"recommendedPeriod"`
	Supplements       []supplementRow `json:"supplements"`
}

type supplementRow struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Brand      *string `json:"brand"`
	DosageInfo *string `json:"dosageInfo"`
	Schedule   string  `json:"schedule"`
	Caution    string  `json:"caution"`
}

func (a *App) supplementCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"stages":    a.catalog.Stages,
		"nutrients": a.catalog.Nutrients,
	})
}

func (a *App) nutrientsByPeriod(c *gin.Context) {
	period := strings.TrimSpace(c.Query("period"))
	if period == "" {
		writeError(c, http.StatusBadRequest, "period is required")
		return
	}
	ctx := c.Request.Context()

	rows, err := a.db.Query(
		ctx,
		`SELECT id, name, description, stage, "recommendedPeriod"
		 FROM "Nutrient" WHERE "recommendedPeriod" = $1
		 ORDER BY id ASC`,
		period,
	)
	if err != nil {
		a.internalError(c, err, "Failed to load nutrients")
		return
	}
	nutrients := []nutrientWithSupplements{}
	index := map[string]int{}
	for rows.Next() {
		item := nutrientWithSupplements{Supplements: []supplementRow{}}
		if err := rows.Scan(&item.ID, &item.Name, &item.Description, &item.Stage, &item.RecommendedPeriod); err != nil {
			rows.Close()
			a.internalError(c, err, "Failed to load nutrients")
			return
		}
		index[item.ID] = len(nutrients)
		nutrients = append(nutrients, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		a.internalError(c, err, "Failed to load nutrients")
		return
	}
	if len(nutrients) == 0 {
		c.JSON(http.StatusOK, nutrients)
		return
	}

	supplementRows, err := a.db.Query(
		ctx,
		`SELECT sn."nutrientId", s.id, s.name, s.brand, s."dosageInfo", s.schedule, s.caution
		 FROM "Supplement" s
		 JOIN "SupplementNutrient" sn ON sn."supplementId" = s.id
		 JOIN "Nutrient" n ON n.id = sn."nutrientId"
		 WHERE n."recommendedPeriod" = $1
		 ORDER BY s.id ASC`,
		period,
	)
	if err != nil {
		a.internalError(c, err, "Failed to load supplements")
		return
	}
	defer supplementRows.Close()
	for supplementRows.Next() {
		var (
			nutrientID string
			row        supplementRow
		)
		if err := supplementRows.Scan(&nutrientID, &row.ID, &row.Name, &row.Brand, &row.DosageInfo, &row.Schedule, &row.Caution); err != nil {
			a.internalError(c, err, "Failed to load supplements")
			return
		}
		if i, ok := index[nutrientID]; ok {
			nutrients[i].Supplements = append(nutrients[i].Supplements, row)
		}
	}
	if err := supplementRows.Err(); err != nil {
		a.internalError(c, err, "Failed to load supplements")
		return
	}
	c.JSON(http.StatusOK, nutrients)
}

func (a *App) activeSupplements(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	includeInactive := strings.EqualFold(strings.TrimSpace(c.Query("all")), "true")
	ctx := c.Request.Context()

	rows, err := a.db.Query(
		ctx,
		`SELECT us.id, s.name, COALESCE(n.name, ''), s.schedule, COALESCE(n.stage, ''), s.caution,
		        us."startDate", us."endDate", us.cycle, us."timeOfDay"
		 FROM "UserSupplement" us
		 JOIN "Supplement" s ON s.id = us."supplementId"
		 LEFT JOIN LATERAL (
		   SELECT n.name, n.stage FROM "SupplementNutrient" sn
		   JOIN "Nutrient" n ON n.id = sn."nutrientId"
		   WHERE sn."supplementId" = s.id
		   ORDER BY n.id ASC LIMIT 1
		 ) n ON TRUE
		 WHERE us."userId" = $1
		 ORDER BY us."createdAt" ASC`,
		user.ID,
	)
	if err != nil {
		a.internalError(c, err, "Failed to load supplements")
		return
	}
	items := []supplementSummary{}
	for rows.Next() {
		var (
			item  supplementSummary
			start time.Time
			end   *time.Time
		)
		if err := rows.Scan(&item.ID, &item.Name, &item.Nutrient, &item.Schedule, &item.Stage, &item.Notes, &start, &end, &item.Cycle, &item.TimeOfDay); err != nil {
			rows.Close()
			a.internalError(c, err, "Failed to load supplements")
			return
		}
		item.Source = "catalog"
		item.Active = true
		item.StartDate = formatDatePtr(&start)
		item.EndDate = formatDatePtr(end)
		items = append(items, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		a.internalError(c, err, "Failed to load supplements")
		return
	}

	customRows, err := a.db.Query(
		ctx,
		`SELECT id, name, nutrient, schedule, stage, note, "isActive"
		 FROM "CustomSupplement"
		 WHERE "userId" = $1 AND ("isActive" OR $2)
		 ORDER BY "createdAt" ASC`,
		user.ID,
		includeInactive,
	)
	if err != nil {
		a.internalError(c, err, "Failed to load custom supplements")
		return
	}
	defer customRows.Close()
	for customRows.Next() {
		item := supplementSummary{Source: "custom"}
		if err := customRows.Scan(&item.ID, &item.Name, &item.Nutrient, &item.Schedule, &item.Stage, &item.Notes, &item.Active); err != nil {
			a.internalError(c, err, "Failed to load custom supplements")
			return
		}
		items = append(items, item)
	}
	if err := customRows.Err(); err != nil {
		a.internalError(c, err, "Failed to load custom supplements")
		return
	}
	c.JSON(http.StatusOK, items)
}

func (a *App) addRecommendedSupplement(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var payload recommendRequest
	if !mustJSON(c, &payload) {
		return
	}
	nutrient, ok := a.catalog.FindNutrient(strings.TrimSpace(payload.NutrientID))
	if !ok {
		writeError(c, http.StatusNotFound, "Nutrient not found")
		return
	}
	_, option, ok := a.catalog.FindSupplement(nutrient.ID, strings.TrimSpace(payload.SupplementID))
	if !ok {
		writeError(c, http.StatusNotFound, "Supplement option not found")
		return
	}

	start := a.today()
	if parsed, err := parseOptionalDate(payload.StartDate); err != nil {
		writeError(c, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
		return
	} else if parsed != nil {
		start = *parsed
	}
	end, err := parseOptionalDate(payload.EndDate)
	if err != nil {
		writeError(c, http.StatusBadRequest, "end_date must be YYYY-MM-DD")
		return
	}
	if end != nil && end.Before(start) {
		writeError(c, http.StatusBadRequest, "end_date must not be before start_date")
		return
	}
	cycle := option.IntakeCycle()
	if payload.Cycle != nil {
		cycle = strings.ToLower(strings.TrimSpace(*payload.Cycle))
		if !calendar.ValidCycle(cycle) {
			writeError(c, http.StatusBadRequest, "cycle must be one of: daily, weekly, monthly, none")
			return
		}
	}
	timeOfDay := option.IntakeTime()
	if payload.TimeOfDay != nil {
		normalized, ok := normalizeClock(*payload.TimeOfDay)
		if !ok {
			writeError(c, http.StatusBadRequest, "time_of_day must be HH:MM")
			return
		}
		timeOfDay = normalized
	}

	ctx := c.Request.Context()
	var subscriptionID string
	err = withTx(ctx, a.db, func(tx pgx.Tx) error {
		if err := upsertCatalogEntry(ctx, tx, nutrient, option); err != nil {
			return err
		}
		return tx.QueryRow(
			ctx,
			`INSERT INTO "UserSupplement" (id, "userId", "supplementId", "startDate", "endDate", cycle, "timeOfDay", "createdAt")
			 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			 ON CONFLICT ("userId", "supplementId") DO UPDATE SET
			   "startDate" = EXCLUDED."startDate",
			   "endDate" = EXCLUDED."endDate",
			   cycle = EXCLUDED.cycle,
			   "timeOfDay" = EXCLUDED."timeOfDay"
			 RETURNING id`,
			uuid.NewString(),
			user.ID,
			option.ID,
			start,
			end,
			cycle,
			timeOfDay,
		).Scan(&subscriptionID)
	})
	if err != nil {
		a.internalError(c, err, "Failed to add supplement")
		return
	}

	c.JSON(http.StatusCreated, supplementSummary{
		ID:        subscriptionID,
		Name:      option.Name,
		Nutrient:  nutrient.Nutrient,
		Schedule:  option.Schedule,
		Stage:     nutrient.Stage,
		Notes:     option.Caution,
		Source:    "catalog",
		Active:    true,
		StartDate: formatDatePtr(&start),
		EndDate:   formatDatePtr(end),
		Cycle:     cycle,
		TimeOfDay: timeOfDay,
	})
}

func (a *App) addCustomSupplement(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var payload customSupplementRequest
	if !mustJSON(c, &payload) {
		return
	}
	item := supplementSummary{
		ID:       uuid.NewString(),
		Name:     strings.TrimSpace(payload.Name),
		Nutrient: strings.TrimSpace(payload.Nutrient),
		Schedule: strings.TrimSpace(payload.Schedule),
		Stage:    strings.TrimSpace(payload.Stage),
		Notes:    strings.TrimSpace(payload.Notes),
		Source:   "custom",
		Active:   true,
	}
	if item.Name == "" {
		writeError(c, http.StatusBadRequest, "name is required")
		return
	}

	if _, err := a.db.Exec(
		c.Request.Context(),
		`INSERT INTO "CustomSupplement" (id, "userId", name, nutrient, stage, schedule, note, "isActive", "createdAt")
		 VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, NOW())`,
		item.ID,
		user.ID,
		item.Name,
		item.Nutrient,
		item.Stage,
		item.Schedule,
		item.Notes,
	); err != nil {
		a.internalError(c, err, "Failed to add custom supplement")
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (a *App) toggleCustomSupplement(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var payload customToggleRequest
	if !mustJSON(c, &payload) {
		return
	}
	if payload.Active == nil {
		writeError(c, http.StatusBadRequest, "active is required")
		return
	}

	item := supplementSummary{Source: "custom"}
	err := a.db.QueryRow(
		c.Request.Context(),
		`UPDATE "CustomSupplement" SET "isActive" = $3
		 WHERE id = $1 AND "userId" = $2
		 RETURNING id, name, nutrient, schedule, stage, note, "isActive"`,
		c.Param("id"),
		user.ID,
		*payload.Active,
	).Scan(&item.ID, &item.Name, &item.Nutrient, &item.Schedule, &item.Stage, &item.Notes, &item.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(c, http.StatusNotFound, "Custom supplement not found")
		return
	}
	if err != nil {
		a.internalError(c, err, "Failed to update custom supplement")
		return
	}
	c.JSON(http.StatusOK, item)
}
