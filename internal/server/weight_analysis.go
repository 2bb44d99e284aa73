package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"babyprep/backend/internal/pregnancy"
)

const (
	weightSourceRule = "rule"
	weightSourceAI   = "ai"
)

const weightAnalysisSystemPrompt = "You are a helpful prenatal care assistant. Reply with a single JSON object only."

type weightAnalysis struct {
	pregnancy.WeightStatus
	Weeks                int    `json:"weeks"`
	Status               string `json:"status"`
	CurrentWeekGainRange string `json:"currentWeekGainRange,omitempty"`
	Advice               string `json:"advice,omitempty"`
	AdviceStatus         string `json:"adviceStatus,omitempty"`
	Source               string `json:"source"`
	Model                string `json:"model,omitempty"`
}

type aiWeightReply struct {
	Status               string `json:"status"`
	Message              string `json:"message"`
	CurrentWeekGainRange string `json:"current_week_gain_range"`
}

func gainStatus(message string) string {
	switch message {
	case pregnancy.MessageWeightLow:
		return "low"
	case pregnancy.MessageWeightFast:
		return "fast"
	default:
		return "stable"
	}
}

func buildWeightPrompt(heightCm, preWeightKg, currentWeightKg float64, weeks int, base pregnancy.WeightStatus) string {
	return fmt.Sprintf(`Analyze gestational weight gain.
- Height: %.1f cm
- Pre-pregnancy weight: %.1f kg
- Current weight: %.1f kg
- Pregnancy week: %d
- Pre-pregnancy BMI: %.1f (%s)
- Recommended total gain (IOM 2009): %s
- Gained so far: %.1f kg

Return JSON with keys:
"status": one of "low", "stable", "fast";
"current_week_gain_range": approximate recommended gain up to this week, e.g. "3 ~ 5kg";
"message": one or two short encouraging sentences of advice in Korean.`,
		heightCm, preWeightKg, currentWeightKg, weeks,
		base.BMI, base.BMICategory, base.Target, base.WeightGainedKg,
	)
}

// analyzeWeightWith returns the rule-based evaluation enriched by the model when it answers with
// usable JSON. Every rule field, message and status included, stays as evaluated; the model's text
// only fills the advice fields.
func (a *App) analyzeWeightWith(ctx context.Context, heightCm, preWeightKg, currentWeightKg float64, weeks int) (weightAnalysis, bool) {
	base, ok := pregnancy.EvaluateWeight(heightCm, preWeightKg, currentWeightKg)
	if !ok {
		return weightAnalysis{}, false
	}
	result := weightAnalysis{
		WeightStatus: base,
		Weeks:        weeks,
		Status:       gainStatus(base.Message),
		Source:       weightSourceRule,
	}
	if a.ai == nil {
		return result, true
	}

	resp, err := a.ai.Query(ctx, AIModelRequest{
		SystemPrompt: weightAnalysisSystemPrompt,
		UserPrompt:   buildWeightPrompt(heightCm, preWeightKg, currentWeightKg, weeks, base),
		JSONOutput:   true,
	})
	if err != nil {
		a.log.WithError(err).Warn("weight analysis model call failed; using rule result")
		return result, true
	}
	var reply aiWeightReply
	if err := json.Unmarshal([]byte(stripCodeFence(resp.Answer)), &reply); err != nil {
		a.log.WithError(err).WithField("answer", truncateForLog(resp.Answer, 300)).Warn("weight analysis answer is not JSON")
		return result, true
	}

	result.Advice = strings.TrimSpace(reply.Message)
	switch status := strings.ToLower(strings.TrimSpace(reply.Status)); status {
	case "low", "stable", "fast":
		result.AdviceStatus = status
	}
	result.CurrentWeekGainRange = strings.TrimSpace(reply.CurrentWeekGainRange)
	result.Source = weightSourceAI
	result.Model = resp.Model
	return result, true
}

func (a *App) analyzeWeight(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var payload weightAnalysisRequest
	if c.Request.ContentLength > 0 && !mustJSON(c, &payload) {
		return
	}
	ctx := c.Request.Context()

	profile, err := loadProfile(ctx, a.db, user.ID)
	if err != nil {
		a.internalError(c, err, "Failed to load profile")
		return
	}
	if profile.Height == nil || profile.PreWeight == nil || profile.CurrentWeight == nil {
		writeError(c, http.StatusBadRequest, "height, preWeight and currentWeight are required")
		return
	}

	weeks := 0
	if payload.Weeks != nil {
		if *payload.Weeks < 0 || *payload.Weeks > 45 {
			writeError(c, http.StatusBadRequest, "weeks must be between 0 and 45")
			return
		}
		weeks = *payload.Weeks
	} else {
		info, err := loadPregnancyInfo(ctx, a.db, user.ID)
		if err != nil {
			a.internalError(c, err, "Failed to load pregnancy info")
			return
		}
		weeks = info.Stage(a.today()).WeeksElapsed
	}

	result, ok := a.analyzeWeightWith(ctx, *profile.Height, *profile.PreWeight, *profile.CurrentWeight, weeks)
	if !ok {
		writeError(c, http.StatusBadRequest, "height and weights must be positive")
		return
	}
	c.JSON(http.StatusOK, result)
}
