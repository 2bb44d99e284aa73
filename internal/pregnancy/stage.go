package pregnancy

import (
	"fmt"
	"time"
)

const (
	LabelInputNeeded = "입력 필요"
	LabelEarly       = "임신 초기"
	LabelMid         = "임신 중기"
	LabelLate        = "임신 후기"
)

const (
	SizePoppySeed  = "양귀비씨"
	SizeLime       = "라임"
	SizeCorn       = "옥수수"
	SizeWatermelon = "수박"
)

const inputNeededDescription = "임신 시작일과 출산 예정일을 입력하면 단계가 계산돼요."

// StandardTermDays is the LMP-to-due-date span used when only a due date is known.
const StandardTermDays = 280

// Window is a stored pregnancy start and due date, either of which may be unknown.
type Window struct {
	Start *time.Time
	Due   *time.Time
}

// Filled derives a missing side from the other with the standard term.
func (w Window) Filled() Window {
	switch {
	case w.Start == nil && w.Due != nil:
		start := StartFromDue(*w.Due)
		w.Start = &start
	case w.Due == nil && w.Start != nil:
		due := CalendarDate(*w.Start).AddDate(0, 0, StandardTermDays)
		w.Due = &due
	}
	return w
}

// Stage is ComputeStage over the window.
func (w Window) Stage(today time.Time) StageResult {
	return ComputeStage(w.Start, w.Due, today)
}

type StageResult struct {
	Label                string `json:"label"`
	Description          string `json:"description"`
	DaysUntilDue         *int   `json:"daysUntilDue"`
	WeeksElapsed         int    `json:"weeksElapsed"`
	DaysRemainderElapsed int    `json:"daysRemainderElapsed"`
	BabySizeLabel        string `json:"babySizeLabel"`
}

type stageBand struct {
	minWeeks int
	label    string
	size     string
	tip      string
}

// Ordered by minWeeks descending; the first band whose minWeeks <= weeks wins.
var stageBands = []stageBand{
	{minWeeks: 28, label: LabelLate, size: SizeWatermelon, tip: "출산 준비물과 병원 일정을 미리 챙겨두세요."},
	{minWeeks: 12, label: LabelMid, size: SizeCorn, tip: "정기 검진과 철분 섭취를 꾸준히 이어가세요."},
	{minWeeks: 4, label: LabelEarly, size: SizeLime, tip: "엽산을 챙기고 충분히 쉬어주세요."},
	{minWeeks: 0, label: LabelEarly, size: SizePoppySeed, tip: "엽산을 챙기고 충분히 쉬어주세요."},
}

// ComputeStage derives the display stage for today from the pregnancy start and due dates.
// All three values are compared as calendar dates.
func ComputeStage(start, due *time.Time, today time.Time) StageResult {
	if start == nil || due == nil {
		return StageResult{
			Label:       LabelInputNeeded,
			Description: inputNeededDescription,
		}
	}

	dueDay := CalendarDate(*due)
	daysSinceStart := DaysBetween(*start, today)
	daysToDue := DaysBetween(today, dueDay)

	weeks := floorDiv(daysSinceStart, 7)
	if weeks < 0 {
		weeks = 0
	}
	remainder := daysSinceStart % 7
	if remainder < 0 {
		remainder = 0
	}

	band := bandForWeeks(weeks)
	return StageResult{
		Label:                band.label,
		Description:          fmt.Sprintf("출산 예정일은 %s이에요. %s", dueDay.Format(DateLayout), band.tip),
		DaysUntilDue:         &daysToDue,
		WeeksElapsed:         weeks,
		DaysRemainderElapsed: remainder,
		BabySizeLabel:        band.size,
	}
}

// StageLabelForWeeks returns the stage label for a non-negative elapsed week count.
func StageLabelForWeeks(weeks int) string {
	if weeks < 0 {
		weeks = 0
	}
	return bandForWeeks(weeks).label
}

func bandForWeeks(weeks int) stageBand {
	for _, band := range stageBands {
		if weeks >= band.minWeeks {
			return band
		}
	}
	return stageBands[len(stageBands)-1]
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
