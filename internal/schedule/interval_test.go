package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustInterval(t *testing.T, start, end time.Time) Interval {
	t.Helper()
	iv, err := NewInterval(start, end)
	require.NoError(t, err)
	return iv
}

func TestNewIntervalRejectsBadRanges(t *testing.T) {
	at := time.Date(2026, 7, 2, 10, 0, 0, 0, time.UTC)

	_, err := NewInterval(at, at)
	assert.Error(t, err, "zero-length interval must be rejected")

	_, err = NewInterval(at, at.Add(-time.Hour))
	assert.Error(t, err, "inverted interval must be rejected")
}

func TestIntervalOverlaps(t *testing.T) {
	base := time.Date(2026, 7, 2, 12, 0, 0, 0, time.UTC)
	a := mustInterval(t, base, base.Add(2*time.Hour)) // [12:00, 14:00)

	tests := []struct {
		name    string
		start   time.Time
		end     time.Time
		overlap bool
	}{
		{"identical", base, base.Add(2 * time.Hour), true},
		{"contained", base.Add(30 * time.Minute), base.Add(time.Hour), true},
		{"containing", base.Add(-time.Hour), base.Add(3 * time.Hour), true},
		{"overlaps left edge", base.Add(-time.Hour), base.Add(time.Hour), true},
		{"overlaps right edge", base.Add(time.Hour), base.Add(3 * time.Hour), true},
		{"touches end", base.Add(2 * time.Hour), base.Add(4 * time.Hour), false},
		{"touches start", base.Add(-2 * time.Hour), base, false},
		{"disjoint after", base.Add(3 * time.Hour), base.Add(4 * time.Hour), false},
		{"disjoint before", base.Add(-4 * time.Hour), base.Add(-3 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := mustInterval(t, tt.start, tt.end)
			assert.Equal(t, tt.overlap, a.Overlaps(b))
			assert.Equal(t, tt.overlap, b.Overlaps(a), "overlap must be symmetric")
		})
	}
}

func TestIntervalContains(t *testing.T) {
	base := time.Date(2026, 7, 2, 12, 0, 0, 0, time.UTC)
	iv := mustInterval(t, base, base.Add(2*time.Hour))

	assert.True(t, iv.Contains(base), "start is inside a half-open interval")
	assert.True(t, iv.Contains(base.Add(time.Hour)))
	assert.False(t, iv.Contains(base.Add(2*time.Hour)), "end is outside a half-open interval")
	assert.False(t, iv.Contains(base.Add(-time.Second)))
}

func TestIntervalDuration(t *testing.T) {
	base := time.Date(2026, 7, 2, 12, 0, 0, 0, time.UTC)
	iv := mustInterval(t, base, base.Add(90*time.Minute))
	assert.Equal(t, 90*time.Minute, iv.Duration())
}
