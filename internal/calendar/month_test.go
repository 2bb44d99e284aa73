package calendar

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dayPtr(y int, m time.Month, d int) *time.Time {
	t := day(y, m, d)
	return &t
}

func formatDates(dates []time.Time) []string {
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Format("2006-01-02"))
	}
	return out
}

func TestOccurrences(t *testing.T) {
	from, to := day(2026, 3, 1), day(2026, 4, 1)

	cases := []struct {
		name     string
		schedule Schedule
		want     []string
	}{
		{
			name:     "daily with end date",
			schedule: Schedule{Start: day(2026, 2, 25), End: dayPtr(2026, 3, 3), Cycle: CycleDaily},
			want:     []string{"2026-03-01", "2026-03-02", "2026-03-03"},
		},
		{
			name:     "weekly",
			schedule: Schedule{Start: day(2026, 1, 1), Cycle: CycleWeekly},
			want:     []string{"2026-03-05", "2026-03-12", "2026-03-19", "2026-03-26"},
		},
		{
			name:     "monthly is thirty days",
			schedule: Schedule{Start: day(2026, 1, 30), Cycle: CycleMonthly},
			want:     []string{"2026-03-01", "2026-03-31"},
		},
		{
			name:     "none inside month",
			schedule: Schedule{Start: day(2026, 3, 15), Cycle: CycleNone},
			want:     []string{"2026-03-15"},
		},
		{
			name:     "none before month",
			schedule: Schedule{Start: day(2026, 2, 15), Cycle: CycleNone},
			want:     []string{},
		},
		{
			name:     "ended before month",
			schedule: Schedule{Start: day(2026, 1, 1), End: dayPtr(2026, 2, 1), Cycle: CycleDaily},
			want:     []string{},
		},
		{
			name:     "starts after month",
			schedule: Schedule{Start: day(2026, 4, 2), Cycle: CycleDaily},
			want:     []string{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := formatDates(Occurrences(tc.schedule, from, to))
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("occurrences mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOccurrencesFastForwardsLongSchedules(t *testing.T) {
	s := Schedule{Start: day(2020, 1, 1), Cycle: CycleDaily}
	got := Occurrences(s, day(2026, 3, 1), day(2026, 4, 1))
	require.Len(t, got, 31)
	assert.Equal(t, day(2026, 3, 1), got[0])
	assert.Equal(t, day(2026, 3, 31), got[30])
}

func TestStepDays(t *testing.T) {
	assert.Equal(t, 1, StepDays(CycleDaily))
	assert.Equal(t, 7, StepDays(CycleWeekly))
	assert.Equal(t, 30, StepDays(CycleMonthly))
	assert.Equal(t, 0, StepDays(CycleNone))
	assert.Equal(t, 0, StepDays("yearly"))
	assert.False(t, ValidCycle("yearly"))
	assert.True(t, ValidCycle(CycleNone))
}

func TestPeriodPhase(t *testing.T) {
	last := day(2026, 3, 1)
	cases := map[int]string{
		0:  PhaseMenstruation,
		4:  PhaseMenstruation,
		5:  PhaseFollicular,
		13: PhaseFollicular,
		14: PhaseOvulation,
		20: PhaseOvulation,
		21: PhaseLuteal,
		27: PhaseLuteal,
		28: PhaseMenstruation,
	}
	for offset, want := range cases {
		assert.Equal(t, want, PeriodPhase(last.AddDate(0, 0, offset), last), "offset=%d", offset)
	}
}

func TestBuildMonthAnnotatesDays(t *testing.T) {
	in := MonthInput{
		Schedules: []Schedule{
			{Name: "엽산 800mcg", TimeOfDay: "08:00", Start: day(2026, 3, 1), End: dayPtr(2026, 3, 2), Cycle: CycleDaily},
			{Name: "저자극 철분제", TimeOfDay: "07:30", Start: day(2026, 3, 2), Cycle: CycleNone},
		},
		PregnancyStart: dayPtr(2026, 3, 10),
		DueDate:        dayPtr(2026, 12, 15),
		LastPeriod:     dayPtr(2026, 2, 1),
		Todos: []Todo{
			{ID: "t1", Text: "병원 예약", Date: "2026-03-02"},
		},
	}

	days, err := BuildMonth(2026, time.March, in)
	require.NoError(t, err)
	require.Len(t, days, 31)

	want := Day{
		Date: "2026-03-02",
		Supplements: []Intake{
			{Name: "저자극 철분제", Time: "07:30"},
			{Name: "엽산 800mcg", Time: "08:00"},
		},
		Todos:          []Todo{{ID: "t1", Text: "병원 예약", Date: "2026-03-02"}},
		MenstrualPhase: PhaseMenstruation,
	}
	if diff := cmp.Diff(want, days[1]); diff != "" {
		t.Fatalf("day mismatch (-want +got):\n%s", diff)
	}

	assert.Empty(t, days[8].PregnancyWeek)
	assert.Equal(t, "1주차", days[9].PregnancyWeek)
	assert.Equal(t, "임신 초기", days[9].PregnancyPhase)
	assert.Equal(t, "2주차", days[16].PregnancyWeek)
	assert.Equal(t, PhaseMenstruation, days[0].MenstrualPhase)
	assert.Equal(t, []Intake{}, days[5].Supplements)
	assert.Equal(t, []Todo{}, days[5].Todos)
}

func TestBuildMonthHandlesShortMonthsAndBadInput(t *testing.T) {
	days, err := BuildMonth(2026, time.February, MonthInput{})
	require.NoError(t, err)
	assert.Len(t, days, 28)
	assert.Equal(t, "2026-02-28", days[27].Date)
	assert.Empty(t, days[0].MenstrualPhase)

	_, err = BuildMonth(2026, time.Month(13), MonthInput{})
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	days := []Day{{
		Date:           "2026-03-02",
		PregnancyWeek:  "3주차",
		PregnancyPhase: "임신 초기",
		Supplements:    []Intake{{Name: "엽산", Time: "08:00"}},
		Todos:          []Todo{{Text: "산책", Completed: true}},
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, days))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "date,pregnancy_week,stage,menstrual_phase,supplements,todos", lines[0])
	assert.Equal(t, "2026-03-02,3주차,임신 초기,,엽산 (08:00),[x] 산책", lines[1])
}

func TestWriteWorkbook(t *testing.T) {
	days, err := BuildMonth(2026, time.April, MonthInput{})
	require.NoError(t, err)

	f, err := WriteWorkbook("2026-04", days)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("2026-04")
	require.NoError(t, err)
	require.Len(t, rows, 31)
	assert.Equal(t, "date", rows[0][0])
	assert.Equal(t, "2026-04-30", rows[30][0])
}
