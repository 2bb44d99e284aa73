// Package calendar expands supplement schedules, todos and pregnancy/period annotations into
// per-day month views.
package calendar

import (
	"fmt"
	"sort"
	"time"

	"babyprep/backend/internal/pregnancy"
)

const (
	CycleDaily   = "daily"
	CycleWeekly  = "weekly"
	CycleMonthly = "monthly"
	CycleNone    = "none"
)

const (
	PhaseMenstruation = "menstruation"
	PhaseFollicular   = "follicular"
	PhaseOvulation    = "ovulation"
	PhaseLuteal       = "luteal"
)

// PeriodCycleDays is the assumed menstrual cycle length.
const PeriodCycleDays = 28

// maxExpansionSteps bounds schedule expansion per month.
const maxExpansionSteps = 500

type Schedule struct {
	SupplementID string
	Name         string
	TimeOfDay    string
	Start        time.Time
	End          *time.Time
	Cycle        string
}

type Todo struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Date      string `json:"date"`
	Completed bool   `json:"completed"`
}

type MonthInput struct {
	Schedules      []Schedule
	PregnancyStart *time.Time
	DueDate        *time.Time
	LastPeriod     *time.Time
	Todos          []Todo
}

type Intake struct {
	Name string `json:"name"`
	Time string `json:"time"`
}

type Day struct {
	Date           string   `json:"date"`
	Supplements    []Intake `json:"supplements"`
	Todos          []Todo   `json:"todos"`
	PregnancyWeek  string   `json:"pregnancyWeek,omitempty"`
	PregnancyPhase string   `json:"pregnancyPhase,omitempty"`
	MenstrualPhase string   `json:"menstrualPhase,omitempty"`
}

// StepDays is the gap between consecutive intakes for a cycle. Unknown cycles and "none" are 0.
func StepDays(cycle string) int {
	switch cycle {
	case CycleDaily:
		return 1
	case CycleWeekly:
		return 7
	case CycleMonthly:
		return 30
	default:
		return 0
	}
}

func ValidCycle(cycle string) bool {
	switch cycle {
	case CycleDaily, CycleWeekly, CycleMonthly, CycleNone:
		return true
	default:
		return false
	}
}

// MonthRange returns [first day of month, first day of next month).
func MonthRange(year int, month time.Month) (time.Time, time.Time, error) {
	if month < time.January || month > time.December {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month %d", month)
	}
	if year < 1 || year > 9999 {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid year %d", year)
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0), nil
}

// Occurrences lists intake dates of s that fall in [from, to). The schedule end date is
// inclusive; a missing end date runs to the end of the range.
func Occurrences(s Schedule, from, to time.Time) []time.Time {
	from = pregnancy.CalendarDate(from)
	to = pregnancy.CalendarDate(to)
	current := pregnancy.CalendarDate(s.Start)
	end := to
	if s.End != nil {
		end = pregnancy.CalendarDate(*s.End)
	}

	step := StepDays(s.Cycle)
	if step > 0 && current.Before(from) {
		skip := pregnancy.DaysBetween(current, from) / step
		current = current.AddDate(0, 0, skip*step)
	}

	var out []time.Time
	for i := 0; i < maxExpansionSteps; i++ {
		if current.After(end) || !current.Before(to) {
			break
		}
		if !current.Before(from) {
			out = append(out, current)
		}
		if step == 0 {
			break
		}
		current = current.AddDate(0, 0, step)
	}
	return out
}

// PeriodPhase places target on a 28-day cycle counted from the last period start.
func PeriodPhase(target, lastStart time.Time) string {
	diff := pregnancy.DaysBetween(lastStart, target) % PeriodCycleDays
	if diff < 0 {
		diff += PeriodCycleDays
	}
	switch {
	case diff < 5:
		return PhaseMenstruation
	case diff < 14:
		return PhaseFollicular
	case diff < 21:
		return PhaseOvulation
	default:
		return PhaseLuteal
	}
}

// BuildMonth returns one Day per calendar day of the month, in date order.
func BuildMonth(year int, month time.Month, in MonthInput) ([]Day, error) {
	monthStart, monthEnd, err := MonthRange(year, month)
	if err != nil {
		return nil, err
	}

	intakes := map[string][]Intake{}
	for _, s := range in.Schedules {
		for _, d := range Occurrences(s, monthStart, monthEnd) {
			key := d.Format(pregnancy.DateLayout)
			intakes[key] = append(intakes[key], Intake{Name: s.Name, Time: s.TimeOfDay})
		}
	}
	for key := range intakes {
		list := intakes[key]
		sort.SliceStable(list, func(i, j int) bool { return list[i].Time < list[j].Time })
	}

	todos := map[string][]Todo{}
	for _, todo := range in.Todos {
		todos[todo.Date] = append(todos[todo.Date], todo)
	}

	var days []Day
	for d := monthStart; d.Before(monthEnd); d = d.AddDate(0, 0, 1) {
		key := d.Format(pregnancy.DateLayout)
		day := Day{
			Date:        key,
			Supplements: intakes[key],
			Todos:       todos[key],
		}
		if day.Supplements == nil {
			day.Supplements = []Intake{}
		}
		if day.Todos == nil {
			day.Todos = []Todo{}
		}

		if in.PregnancyStart != nil && in.DueDate != nil {
			start := pregnancy.CalendarDate(*in.PregnancyStart)
			due := pregnancy.CalendarDate(*in.DueDate)
			if !d.Before(start) && !d.After(due) {
				week := pregnancy.WeekNumber(d, start)
				day.PregnancyWeek = fmt.Sprintf("%d주차", week)
				day.PregnancyPhase = pregnancy.StageLabelForWeeks(week - 1)
			}
		}
		if in.LastPeriod != nil && !d.Before(pregnancy.CalendarDate(*in.LastPeriod)) {
			day.MenstrualPhase = PeriodPhase(d, *in.LastPeriod)
		}
		days = append(days, day)
	}
	return days, nil
}
