package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"babyprep/backend/internal/calendar"
	"babyprep/backend/internal/catalog"
	"babyprep/backend/internal/pregnancy"
)

const (
	eventTypeTodo       = "todo"
	eventTypeSupplement = "supplement"
)

type monthQuery struct {
	Year  int
	Month time.Month
	Start time.Time
	End   time.Time
}

// parseMonthQuery reads ?year=&month=, defaulting to the current month.
func (a *App) parseMonthQuery(c *gin.Context) (monthQuery, bool) {
	today := a.today()
	year, ok := parseBoundedInt(c.Query("year"), today.Year(), 2000, 9999)
	if !ok {
		writeError(c, http.StatusBadRequest, "year must be between 2000 and 9999")
		return monthQuery{}, false
	}
	month, ok := parseBoundedInt(c.Query("month"), int(today.Month()), 1, 12)
	if !ok {
		writeError(c, http.StatusBadRequest, "month must be between 1 and 12")
		return monthQuery{}, false
	}
	start, end, err := calendar.MonthRange(year, time.Month(month))
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return monthQuery{}, false
	}
	return monthQuery{Year: year, Month: time.Month(month), Start: start, End: end}, true
}

func loadSchedules(ctx context.Context, q dbQuerier, userID string) ([]calendar.Schedule, error) {
	rows, err := q.Query(
		ctx,
		`SELECT us."supplementId", s.name, us."timeOfDay", us."startDate", us."endDate", us.cycle
		 FROM "UserSupplement" us
		 JOIN "Supplement" s ON s.id = us."supplementId"
		 WHERE us."userId" = $1
		 ORDER BY us."createdAt" ASC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []calendar.Schedule
	for rows.Next() {
		var s calendar.Schedule
		if err := rows.Scan(&s.SupplementID, &s.Name, &s.TimeOfDay, &s.Start, &s.End, &s.Cycle); err != nil {
			return nil, err
		}
		if strings.TrimSpace(s.TimeOfDay) == "" {
			s.TimeOfDay = catalog.DefaultIntakeTime
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

func loadTodos(ctx context.Context, q dbQuerier, userID string, from, to time.Time) ([]calendar.Todo, error) {
	rows, err := q.Query(
		ctx,
		`SELECT id, title, "eventDate", completed
		 FROM "CalendarEvent"
		 WHERE "userId" = $1 AND type = $2 AND "eventDate" >= $3 AND "eventDate" < $4
		 ORDER BY "eventDate" ASC, "createdAt" ASC`,
		userID,
		eventTypeTodo,
		from,
		to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	todos := []calendar.Todo{}
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, todo)
	}
	return todos, rows.Err()
}

func scanTodo(row pgx.Row) (calendar.Todo, error) {
	var (
		todo      calendar.Todo
		eventDate time.Time
	)
	if err := row.Scan(&todo.ID, &todo.Text, &eventDate, &todo.Completed); err != nil {
		return calendar.Todo{}, err
	}
	todo.Date = eventDate.Format(pregnancy.DateLayout)
	return todo, nil
}

func loadMonthInput(ctx context.Context, q dbQuerier, userID string, month monthQuery) (calendar.MonthInput, error) {
	schedules, err := loadSchedules(ctx, q, userID)
	if err != nil {
		return calendar.MonthInput{}, fmt.Errorf("load schedules: %w", err)
	}
	info, err := loadPregnancyInfo(ctx, q, userID)
	if err != nil {
		return calendar.MonthInput{}, fmt.Errorf("load pregnancy info: %w", err)
	}
	period, err := loadPeriodInfo(ctx, q, userID)
	if err != nil {
		return calendar.MonthInput{}, fmt.Errorf("load period info: %w", err)
	}
	todos, err := loadTodos(ctx, q, userID, month.Start, month.End)
	if err != nil {
		return calendar.MonthInput{}, fmt.Errorf("load todos: %w", err)
	}
	return calendar.MonthInput{
		Schedules:      schedules,
		PregnancyStart: info.Start,
		DueDate:        info.Due,
		LastPeriod:     period.LastPeriod,
		Todos:          todos,
	}, nil
}

// intakeAt combines an intake date with its HH:MM time in loc.
func intakeAt(day time.Time, clock string, loc *time.Location) time.Time {
	normalized, ok := normalizeClock(clock)
	if !ok {
		normalized = catalog.DefaultIntakeTime
	}
	parsed, _ := time.Parse("15:04", normalized)
	return time.Date(day.Year(), day.Month(), day.Day(), parsed.Hour(), parsed.Minute(), 0, 0, loc)
}

// materializeIntakes stores one supplement CalendarEvent per intake in the month and keeps a single
// pending Notification at the intake time. Re-running for the same month is a no-op.
func materializeIntakes(ctx context.Context, q dbQuerier, userID string, schedules []calendar.Schedule, month monthQuery, loc *time.Location) (int, error) {
	created := 0
	for _, s := range schedules {
		for _, day := range calendar.Occurrences(s, month.Start, month.End) {
			notifyAt := intakeAt(day, s.TimeOfDay, loc)
			var (
				eventID  string
				inserted bool
			)
			err := q.QueryRow(
				ctx,
				`INSERT INTO "CalendarEvent" (id, "userId", type, title, "eventDate", "startAt", "repeatCycle", "linkedSupplementId", "createdAt", "updatedAt")
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
				 ON CONFLICT ("userId", "linkedSupplementId", "eventDate") WHERE type = 'supplement'
				 DO UPDATE SET title = EXCLUDED.title, "startAt" = EXCLUDED."startAt", "repeatCycle" = EXCLUDED."repeatCycle", "updatedAt" = NOW()
				 RETURNING id, (xmax = 0)`,
				uuid.NewString(),
				userID,
				eventTypeSupplement,
				s.Name+" 복용",
				day,
				notifyAt,
				s.Cycle,
				s.SupplementID,
			).Scan(&eventID, &inserted)
			if err != nil {
				return created, fmt.Errorf("upsert intake event: %w", err)
			}
			if inserted {
				created++
			}

			if _, err := q.Exec(
				ctx,
				`DELETE FROM "Notification" WHERE "eventId" = $1 AND "notifyAt" <> $2 AND NOT "isSent"`,
				eventID,
				notifyAt,
			); err != nil {
				return created, fmt.Errorf("drop stale notification: %w", err)
			}
			if _, err := q.Exec(
				ctx,
				`INSERT INTO "Notification" (id, "eventId", "notifyAt", "isSent", "createdAt", "updatedAt")
				 VALUES ($1, $2, $3, FALSE, NOW(), NOW())
				 ON CONFLICT ("eventId", "notifyAt") DO NOTHING`,
				uuid.NewString(),
				eventID,
				notifyAt,
			); err != nil {
				return created, fmt.Errorf("ensure notification: %w", err)
			}
		}
	}
	return created, nil
}

func (a *App) getMonthly(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	month, ok := a.parseMonthQuery(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	var days []calendar.Day
	err := withTx(ctx, a.db, func(tx pgx.Tx) error {
		input, err := loadMonthInput(ctx, tx, user.ID, month)
		if err != nil {
			return err
		}
		created, err := materializeIntakes(ctx, tx, user.ID, input.Schedules, month, a.cfg.Location())
		if err != nil {
			return err
		}
		if created > 0 {
			a.log.WithField("user_id", user.ID).WithField("created", created).Debug("materialized intake events")
		}
		days, err = calendar.BuildMonth(month.Year, month.Month, input)
		return err
	})
	if err != nil {
		a.internalError(c, err, "Failed to build calendar")
		return
	}
	c.JSON(http.StatusOK, days)
}

func (a *App) createTodo(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var payload todoCreateRequest
	if !mustJSON(c, &payload) {
		return
	}
	text := strings.TrimSpace(payload.Text)
	if text == "" {
		writeError(c, http.StatusBadRequest, "text is required")
		return
	}
	date, err := parseDate(payload.Date)
	if err != nil {
		writeError(c, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	todo, err := scanTodo(a.db.QueryRow(
		c.Request.Context(),
		`INSERT INTO "CalendarEvent" (id, "userId", type, title, "eventDate", completed, "createdAt", "updatedAt")
		 VALUES ($1, $2, $3, $4, $5, FALSE, NOW(), NOW())
		 RETURNING id, title, "eventDate", completed`,
		uuid.NewString(),
		user.ID,
		eventTypeTodo,
		text,
		date,
	))
	if err != nil {
		a.internalError(c, err, "Failed to create todo")
		return
	}
	c.JSON(http.StatusCreated, todo)
}

func (a *App) updateTodo(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var payload todoUpdateRequest
	if !mustJSON(c, &payload) {
		return
	}
	if payload.Completed == nil && payload.Text == nil {
		writeError(c, http.StatusBadRequest, "completed or text is required")
		return
	}
	if payload.Text != nil {
		trimmed := strings.TrimSpace(*payload.Text)
		if trimmed == "" {
			writeError(c, http.StatusBadRequest, "text must not be empty")
			return
		}
		payload.Text = &trimmed
	}

	todo, err := scanTodo(a.db.QueryRow(
		c.Request.Context(),
		`UPDATE "CalendarEvent" SET
		   completed = COALESCE($4, completed),
		   title = COALESCE($5, title),
		   "updatedAt" = NOW()
		 WHERE id = $1 AND "userId" = $2 AND type = $3
		 RETURNING id, title, "eventDate", completed`,
		c.Param("id"),
		user.ID,
		eventTypeTodo,
		payload.Completed,
		payload.Text,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		writeError(c, http.StatusNotFound, "Todo not found")
		return
	}
	if err != nil {
		a.internalError(c, err, "Failed to update todo")
		return
	}
	c.JSON(http.StatusOK, todo)
}

func (a *App) deleteTodo(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	tag, err := a.db.Exec(
		c.Request.Context(),
		`DELETE FROM "CalendarEvent" WHERE id = $1 AND "userId" = $2 AND type = $3`,
		c.Param("id"),
		user.ID,
		eventTypeTodo,
	)
	if err != nil {
		a.internalError(c, err, "Failed to delete todo")
		return
	}
	if tag.RowsAffected() == 0 {
		writeError(c, http.StatusNotFound, "Todo not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
