package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"babyprep/backend/internal/calendar"
)

const (
	exportFormatXLSX = "xlsx"
	exportFormatCSV  = "csv"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// sanitizeFilename keeps ASCII letters, digits, '-' and '_' and replaces everything else with '_'.
func sanitizeFilename(input, fallback string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return fallback
	}
	var b strings.Builder
	for _, r := range trimmed {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		if r == '-' || r == '_' {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	sanitized := strings.Trim(b.String(), "_")
	if sanitized == "" {
		return fallback
	}
	return sanitized
}

func (a *App) exportCalendar(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", exportFormatXLSX)))
	if format != exportFormatXLSX && format != exportFormatCSV {
		writeError(c, http.StatusBadRequest, "format must be one of: xlsx, csv")
		return
	}
	month, ok := a.parseMonthQuery(c)
	if !ok {
		return
	}

	input, err := loadMonthInput(c.Request.Context(), a.db, user.ID, month)
	if err != nil {
		a.internalError(c, err, "Failed to load calendar")
		return
	}
	days, err := calendar.BuildMonth(month.Year, month.Month, input)
	if err != nil {
		a.internalError(c, err, "Failed to build calendar")
		return
	}

	period := fmt.Sprintf("%04d-%02d", month.Year, int(month.Month))
	filename := fmt.Sprintf("babyprep_%s_%s.%s", sanitizeFilename(user.Nickname, "calendar"), period, format)

	var (
		out         bytes.Buffer
		contentType string
	)
	switch format {
	case exportFormatCSV:
		if err := calendar.WriteCSV(&out, days); err != nil {
			a.internalError(c, err, "Failed to export calendar")
			return
		}
		contentType = "text/csv; charset=utf-8"
	default:
		f, err := calendar.WriteWorkbook(period, days)
		if err != nil {
			a.internalError(c, err, "Failed to export calendar")
			return
		}
		defer f.Close()
		if err := f.Write(&out); err != nil {
			a.internalError(c, err, "Failed to export calendar")
			return
		}
		contentType = xlsxContentType
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	c.Data(http.StatusOK, contentType, out.Bytes())
}
