package server

import (
	"strconv"
	"strings"
	"time"

	"babyprep/backend/internal/pregnancy"
)

type signupRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Nickname string  `json:"nickname"`
	Pregnant bool    `json:"pregnant"`
	DueDate  *string `json:"due_date"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleLoginRequest struct {
	Credential string `json:"credential"`
	IsCode     bool   `json:"is_code"`
}

type kakaoLoginRequest struct {
	Code string `json:"code"`
}

type patchMeRequest struct {
	Nickname   *string `json:"nickname"`
	IsPregnant *bool   `json:"is_pregnant"`
	Gender     *string `json:"gender"`
}

type profileRequest struct {
	Height        *float64 `json:"height"`
	PreWeight     *float64 `json:"preWeight"`
	CurrentWeight *float64 `json:"currentWeight"`
}

type datesRequest struct {
	StartDate *string `json:"startDate"`
	DueDate   *string `json:"dueDate"`
}

type periodRequest struct {
	LastPeriod  string  `json:"lastPeriod"`
	PeriodStart *string `json:"periodStart"`
}

type weightAnalysisRequest struct {
	Weeks *int `json:"weeks"`
}

type todoCreateRequest struct {
	Text string `json:"text"`
	Date string `json:"date"`
}

type todoUpdateRequest struct {
	Completed *bool   `json:"completed"`
	Text      *string `json:"text"`
}

type recommendRequest struct {
	NutrientID   string  `json:"nutrient_id"`
	SupplementID string  `json:"supplement_id"`
	StartDate    *string `json:"start_date"`
	EndDate      *string `json:"end_date"`
	Cycle        *string `json:"cycle"`
	TimeOfDay    *string `json:"time_of_day"`
}

type customSupplementRequest struct {
	Name     string `json:"name"`
	Nutrient string `json:"nutrient"`
	Schedule string `json:"schedule"`
	Stage    string `json:"stage"`
	Notes    string `json:"notes"`
}

type customToggleRequest struct {
	Active *bool `json:"active"`
}

type notificationTimeRequest struct {
	Time string `json:"time"`
}

type notificationToggleRequest struct {
	Enabled *bool `json:"enabled"`
}

type chatbotRequest struct {
	Message string `json:"message"`
}

type noteRequest struct {
	Content   string  `json:"content"`
	VisitDate *string `json:"visit_date"`
}

func parseDate(value string) (time.Time, error) {
	return pregnancy.ParseDate(value)
}

// parseOptionalDate treats nil and blank strings as absent.
func parseOptionalDate(value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	parsed, err := parseDate(*value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func formatDatePtr(value *time.Time) *string {
	if value == nil {
		return nil
	}
	formatted := value.Format(pregnancy.DateLayout)
	return &formatted
}

// normalizeClock accepts "H:MM", "HH:MM" or "HH:MM:SS" and returns "HH:MM".
func normalizeClock(value string) (string, bool) {
	trimmed := strings.TrimSpace(value)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Format("15:04"), true
		}
	}
	return "", false
}

func parseBoundedInt(raw string, fallback, min, max int) (int, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fallback, true
	}
	value, err := strconv.Atoi(trimmed)
	if err != nil || value < min || value > max {
		return 0, false
	}
	return value, true
}

func normalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func validEmail(value string) bool {
	at := strings.Index(value, "@")
	return at > 0 && at < len(value)-1 && !strings.ContainsAny(value, " \t\n")
}

func defaultNickname(email, nickname string) string {
	if trimmed := strings.TrimSpace(nickname); trimmed != "" {
		return trimmed
	}
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
