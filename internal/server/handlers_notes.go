package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type doctorsNote struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	VisitDate *string   `json:"visit_date"`
	CreatedAt time.Time `json:"created_at"`
}

func (a *App) listNotes(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	rows, err := a.db.Query(
		c.Request.Context(),
		`SELECT id, content, "visitDate", "createdAt"
		 FROM "DoctorsNote"
		 WHERE "userId" = $1
		 ORDER BY "createdAt" DESC`,
		user.ID,
	)
	if err != nil {
		a.internalError(c, err, "Failed to load notes")
		return
	}
	defer rows.Close()

	notes := []doctorsNote{}
	for rows.Next() {
		var (
			note      doctorsNote
			visitDate *time.Time
		)
		if err := rows.Scan(&note.ID, &note.Content, &visitDate, &note.CreatedAt); err != nil {
			a.internalError(c, err, "Failed to load notes")
			return
		}
		note.VisitDate = formatDatePtr(visitDate)
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		a.internalError(c, err, "Failed to load notes")
		return
	}
	c.JSON(http.StatusOK, notes)
}

func (a *App) createNote(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var payload noteRequest
	if !mustJSON(c, &payload) {
		return
	}
	content := strings.TrimSpace(payload.Content)
	if content == "" {
		writeError(c, http.StatusBadRequest, "content is required")
		return
	}
	visitDate, err := parseOptionalDate(payload.VisitDate)
	if err != nil {
		writeError(c, http.StatusBadRequest, "visit_date must be YYYY-MM-DD")
		return
	}

	note := doctorsNote{ID: uuid.NewString(), Content: content, VisitDate: formatDatePtr(visitDate)}
	if err := a.db.QueryRow(
		c.Request.Context(),
		`INSERT INTO "DoctorsNote" (id, "userId", content, "visitDate", "createdAt")
		 VALUES ($1, $2, $3, $4, NOW())
		 RETURNING "createdAt"`,
		note.ID,
		user.ID,
		note.Content,
		visitDate,
	).Scan(&note.CreatedAt); err != nil {
		a.internalError(c, err, "Failed to save note")
		return
	}
	c.JSON(http.StatusCreated, note)
}

func (a *App) deleteNote(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	tag, err := a.db.Exec(
		c.Request.Context(),
		`DELETE FROM "DoctorsNote" WHERE id = $1 AND "userId" = $2`,
		c.Param("id"),
		user.ID,
	)
	if err != nil {
		a.internalError(c, err, "Failed to delete note")
		return
	}
	if tag.RowsAffected() == 0 {
		writeError(c, http.StatusNotFound, "Note not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
