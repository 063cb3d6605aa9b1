package stats

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enesbilik/cleny/internal/clock"
	"github.com/enesbilik/cleny/internal/model"
)

func TestEmptyHistory(t *testing.T) {
	s, err := Compute(nil, "2024-01-04")
	require.NoError(t, err)
	assert.Equal(t, model.Stats{}, s)
}

func TestSingleDate(t *testing.T) {
	s, err := Compute([]string{"2024-01-01"}, "2024-01-04")
	require.NoError(t, err)
	assert.Equal(t, 1, s.BestStreak)
	assert.Equal(t, 1, s.TotalCompleted)
	assert.Equal(t, 0, s.CurrentStreak)
}

// A run ending yesterday still counts: a day in progress does not break the
// streak.
func TestStreakAnchorsAtYesterday(t *testing.T) {
	h := []string{"2024-01-01", "2024-01-02", "2024-01-03"}
	s, err := Compute(h, "2024-01-04")
	require.NoError(t, err)

	assert.Equal(t, 3, s.CurrentStreak)
	assert.Equal(t, 3, s.BestStreak)
	assert.Equal(t, 3, s.TotalCompleted)
}

func TestStreakBrokenTwoDaysAgo(t *testing.T) {
	h := []string{"2024-01-01", "2024-01-02"}
	s, err := Compute(h, "2024-01-04")
	require.NoError(t, err)
	assert.Equal(t, 0, s.CurrentStreak)
	assert.Equal(t, 2, s.BestStreak)
}

func TestStreakIncludesToday(t *testing.T) {
	h := []string{"2024-01-02", "2024-01-03", "2024-01-04"}
	s, err := Compute(h, "2024-01-04")
	require.NoError(t, err)
	assert.Equal(t, 3, s.CurrentStreak)
}

func TestBestStreakPicksLongestRun(t *testing.T) {
	h := []string{
		// Run of 2
		"2024-01-01", "2024-01-02",
		// Run of 4
		"2024-01-10", "2024-01-11", "2024-01-12", "2024-01-13",
		// Isolated day
		"2024-02-01",
	}
	s, err := Compute(h, "2024-02-05")
	require.NoError(t, err)
	assert.Equal(t, 4, s.BestStreak)
	assert.Equal(t, 0, s.CurrentStreak)
	assert.Equal(t, 7, s.TotalCompleted)
}

func TestBestStreakAtLeastCurrentStreak(t *testing.T) {
	histories := [][]string{
		{},
		{"2024-01-04"},
		{"2024-01-02", "2024-01-03", "2024-01-04"},
		{"2024-01-01", "2024-01-03", "2024-01-04"},
		{"2023-12-30", "2023-12-31", "2024-01-01", "2024-01-03", "2024-01-04"},
	}
	for _, h := range histories {
		s, err := Compute(h, "2024-01-04")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, s.BestStreak, s.CurrentStreak, "history %v", h)
	}
}

func TestDuplicateDatesCollapse(t *testing.T) {
	h := []string{"2024-01-03", "2024-01-03", "2024-01-04"}
	s, err := Compute(h, "2024-01-04")
	require.NoError(t, err)
	assert.Equal(t, 2, s.TotalCompleted)
	assert.Equal(t, 2, s.BestStreak)
	assert.Equal(t, 2, s.CurrentStreak)
}

func TestLastWindowAndLevel(t *testing.T) {
	today := "2024-03-15"
	tests := []struct {
		name      string
		dates     []string
		wantLast7 int
		wantLevel int
	}{
		{"none", nil, 0, 0},
		{"one recent", []string{"2024-03-14"}, 1, 0},
		{"two recent", []string{"2024-03-13", "2024-03-14"}, 2, 1},
		{"three recent", []string{"2024-03-12", "2024-03-13", "2024-03-14"}, 3, 2},
		{"five recent", []string{"2024-03-10", "2024-03-11", "2024-03-12", "2024-03-13", "2024-03-14"}, 5, 3},
		{"six recent", []string{"2024-03-09", "2024-03-10", "2024-03-11", "2024-03-12", "2024-03-13", "2024-03-14"}, 6, 4},
		{"old dates ignored", []string{"2024-03-01", "2024-03-02", "2024-03-14"}, 1, 0},
		{"cutoff day counts", []string{"2024-03-08"}, 1, 0},
		{"before cutoff does not", []string{"2024-03-07"}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Compute(tt.dates, today)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLast7, s.Last7DaysCompleted, "last7")
			assert.Equal(t, tt.wantLevel, s.CleanlinessLevel, "level")
		})
	}
}

func TestLevelMonotonic(t *testing.T) {
	prev := 0
	for n := 0; n <= 10; n++ {
		l := level(n)
		assert.GreaterOrEqual(t, l, prev, "level(%d)", n)
		prev = l
	}
}

// Build a long unbroken run and verify the walk does not stop early.
func TestLongStreak(t *testing.T) {
	today := "2024-06-30"
	var h []string
	day := today
	for i := 0; i < 100; i++ {
		h = append(h, day)
		prev, err := clock.AddDays(day, -1)
		require.NoError(t, err)
		day = prev
	}
	s, err := Compute(h, today)
	require.NoError(t, err)
	assert.Equal(t, 100, s.CurrentStreak)
	assert.Equal(t, 100, s.BestStreak)
}

func TestMalformedDates(t *testing.T) {
	_, err := Compute([]string{"2024-01-01"}, "bogus")
	assert.ErrorIs(t, err, clock.ErrBadDate)

	_, err = Compute([]string{"01-01-2024"}, "2024-01-04")
	assert.ErrorIs(t, err, clock.ErrBadDate)
}

func ExampleCompute() {
	s, _ := Compute([]string{"2024-01-01", "2024-01-02", "2024-01-03"}, "2024-01-04")
	fmt.Println(s.CurrentStreak, s.BestStreak, s.TotalCompleted)
	// Output: 3 3 3
}
