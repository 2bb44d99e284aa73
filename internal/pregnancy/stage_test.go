package pregnancy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := ParseDate(value)
	require.NoError(t, err)
	return parsed
}

func datePtr(t *testing.T, value string) *time.Time {
	t.Helper()
	parsed := date(t, value)
	return &parsed
}

func TestComputeStageInputNeeded(t *testing.T) {
	today := date(t, "2026-03-01")
	due := datePtr(t, "2026-10-01")

	cases := []struct {
		name  string
		start *time.Time
		due   *time.Time
	}{
		{name: "both missing"},
		{name: "start missing", due: due},
		{name: "due missing", start: datePtr(t, "2026-01-01")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeStage(tc.start, tc.due, today)
			assert.Equal(t, LabelInputNeeded, got.Label)
			assert.Nil(t, got.DaysUntilDue)
			assert.Zero(t, got.WeeksElapsed)
			assert.Zero(t, got.DaysRemainderElapsed)
			assert.NotEmpty(t, got.Description)
		})
	}
}

func TestComputeStageThresholds(t *testing.T) {
	start := date(t, "2026-01-01")
	due := StartFromDue(start).AddDate(0, 0, 2*StandardTermDays)

	cases := []struct {
		weeks int
		label string
		size  string
	}{
		{weeks: 0, label: LabelEarly, size: SizePoppySeed},
		{weeks: 3, label: LabelEarly, size: SizePoppySeed},
		{weeks: 4, label: LabelEarly, size: SizeLime},
		{weeks: 11, label: LabelEarly, size: SizeLime},
		{weeks: 12, label: LabelMid, size: SizeCorn},
		{weeks: 27, label: LabelMid, size: SizeCorn},
		{weeks: 28, label: LabelLate, size: SizeWatermelon},
		{weeks: 40, label: LabelLate, size: SizeWatermelon},
	}
	for _, tc := range cases {
		today := start.AddDate(0, 0, tc.weeks*7)
		got := ComputeStage(&start, &due, today)
		assert.Equal(t, tc.weeks, got.WeeksElapsed, "weeks=%d", tc.weeks)
		assert.Equal(t, tc.label, got.Label, "weeks=%d", tc.weeks)
		assert.Equal(t, tc.size, got.BabySizeLabel, "weeks=%d", tc.weeks)
	}
}

func TestComputeStageCounters(t *testing.T) {
	start := date(t, "2026-01-01")
	due := date(t, "2026-10-08")
	today := date(t, "2026-02-19")

	got := ComputeStage(&start, &due, today)
	require.NotNil(t, got.DaysUntilDue)
	assert.Equal(t, 231, *got.DaysUntilDue)
	assert.Equal(t, 7, got.WeeksElapsed)
	assert.Equal(t, 0, got.DaysRemainderElapsed)
	assert.Contains(t, got.Description, "2026-10-08")

	got = ComputeStage(&start, &due, today.AddDate(0, 0, 3))
	assert.Equal(t, 7, got.WeeksElapsed)
	assert.Equal(t, 3, got.DaysRemainderElapsed)
}

func TestComputeStageIgnoresTimeOfDay(t *testing.T) {
	start := time.Date(2026, 1, 1, 23, 59, 0, 0, time.UTC)
	due := time.Date(2026, 10, 8, 0, 1, 0, 0, time.UTC)
	today := time.Date(2026, 1, 15, 6, 30, 0, 0, time.UTC)

	got := ComputeStage(&start, &due, today)
	assert.Equal(t, 2, got.WeeksElapsed)
	assert.Equal(t, 0, got.DaysRemainderElapsed)
	require.NotNil(t, got.DaysUntilDue)
	assert.Equal(t, 266, *got.DaysUntilDue)
}

func TestComputeStageBeforeStartClampsCounters(t *testing.T) {
	start := date(t, "2026-03-10")
	due := date(t, "2026-12-15")
	today := date(t, "2026-03-01")

	got := ComputeStage(&start, &due, today)
	assert.Equal(t, 0, got.WeeksElapsed)
	assert.Equal(t, 0, got.DaysRemainderElapsed)
	assert.Equal(t, LabelEarly, got.Label)
	require.NotNil(t, got.DaysUntilDue)
	assert.Equal(t, 289, *got.DaysUntilDue)
}

func TestComputeStagePassesInvertedWindowThrough(t *testing.T) {
	start := date(t, "2026-05-01")
	due := date(t, "2026-04-01")
	today := date(t, "2026-05-15")

	got := ComputeStage(&start, &due, today)
	require.NotNil(t, got.DaysUntilDue)
	assert.Equal(t, -44, *got.DaysUntilDue)
	assert.Equal(t, 2, got.WeeksElapsed)
}

func TestComputeStageCountersStayInRange(t *testing.T) {
	start := date(t, "2026-01-01")
	due := date(t, "2026-10-08")
	span := DaysBetween(start, due)
	maxWeeks := (span + 6) / 7

	for day := 0; day <= span; day++ {
		got := ComputeStage(&start, &due, start.AddDate(0, 0, day))
		assert.GreaterOrEqual(t, got.WeeksElapsed, 0)
		assert.LessOrEqual(t, got.WeeksElapsed, maxWeeks)
		assert.GreaterOrEqual(t, got.DaysRemainderElapsed, 0)
		assert.LessOrEqual(t, got.DaysRemainderElapsed, 6)
	}
}

func TestComputeStageIsDeterministic(t *testing.T) {
	start := date(t, "2026-01-01")
	due := date(t, "2026-10-08")
	today := date(t, "2026-06-30")

	first := ComputeStage(&start, &due, today)
	second := ComputeStage(&start, &due, today)
	assert.Equal(t, first, second)
	assert.Equal(t, *first.DaysUntilDue, *second.DaysUntilDue)
}

func TestStageLabelForWeeksIsMonotonic(t *testing.T) {
	rank := map[string]int{LabelEarly: 0, LabelMid: 1, LabelLate: 2}
	previous := 0
	for weeks := 0; weeks <= 45; weeks++ {
		current := rank[StageLabelForWeeks(weeks)]
		assert.GreaterOrEqual(t, current, previous, "weeks=%d", weeks)
		previous = current
	}
	assert.Equal(t, LabelEarly, StageLabelForWeeks(-2))
}

func TestDateHelpers(t *testing.T) {
	due := date(t, "2026-10-08")
	start := StartFromDue(due)
	assert.Equal(t, "2026-01-01", start.Format(DateLayout))
	assert.Equal(t, "2026-01-15", OvulationWeekStart(start).Format(DateLayout))
	assert.Equal(t, 1, WeekNumber(start, start))
	assert.Equal(t, 2, WeekNumber(start.AddDate(0, 0, 7), start))
	assert.Equal(t, 0, WeekNumber(start.AddDate(0, 0, -1), start))

	_, err := ParseDate("10/08/2026")
	assert.Error(t, err)
}

func TestDaysBetweenBeyondDurationRange(t *testing.T) {
	first := date(t, "0001-01-01")
	today := date(t, "2026-03-10")
	last := date(t, "9999-12-31")

	assert.Equal(t, 739684, DaysBetween(first, today))
	assert.Equal(t, -739684, DaysBetween(today, first))
	assert.Equal(t, 2912374, DaysBetween(today, last))
	assert.Equal(t, 0, DaysBetween(today, today.Add(23*time.Hour)))
}

func TestComputeStageWithDistantDates(t *testing.T) {
	today := date(t, "2026-03-10")

	got := ComputeStage(datePtr(t, "0001-01-01"), datePtr(t, "9999-12-31"), today)
	assert.Equal(t, LabelLate, got.Label)
	assert.Equal(t, 105669, got.WeeksElapsed)
	assert.Equal(t, 1, got.DaysRemainderElapsed)
	require.NotNil(t, got.DaysUntilDue)
	assert.Equal(t, 2912374, *got.DaysUntilDue)
}

func TestWindowFilled(t *testing.T) {
	due := datePtr(t, "2026-10-08")
	start := datePtr(t, "2026-01-01")

	fromDue := Window{Due: due}.Filled()
	require.NotNil(t, fromDue.Start)
	assert.Equal(t, "2026-01-01", fromDue.Start.Format(DateLayout))

	fromStart := Window{Start: start}.Filled()
	require.NotNil(t, fromStart.Due)
	assert.Equal(t, "2026-10-08", fromStart.Due.Format(DateLayout))

	explicit := Window{Start: start, Due: datePtr(t, "2026-09-30")}.Filled()
	assert.Equal(t, "2026-09-30", explicit.Due.Format(DateLayout))

	empty := Window{}.Filled()
	assert.Nil(t, empty.Start)
	assert.Nil(t, empty.Due)
	assert.Equal(t, LabelInputNeeded, empty.Stage(date(t, "2026-03-10")).Label)
}

func TestWindowStageMatchesComputeStage(t *testing.T) {
	today := date(t, "2026-03-10")
	w := Window{Start: datePtr(t, "2026-01-01"), Due: datePtr(t, "2026-10-08")}
	assert.Equal(t, ComputeStage(w.Start, w.Due, today), w.Stage(today))
}
