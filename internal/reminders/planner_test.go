package reminders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPlanTriggers(t *testing.T) {
	now := time.Date(2026, 7, 2, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		start time.Time
		want  []time.Time
	}{
		{
			name:  "two days ahead",
			start: now.Add(48 * time.Hour),
			want: []time.Time{
				now.Add(24 * time.Hour),
				now.Add(47 * time.Hour),
			},
		},
		{
			name:  "just over a day ahead",
			start: now.Add(24*time.Hour + time.Minute),
			want: []time.Time{
				now.Add(time.Minute),
				now.Add(23*time.Hour + time.Minute),
			},
		},
		{
			name:  "exactly a day ahead",
			start: now.Add(24 * time.Hour),
			want:  []time.Time{now.Add(23 * time.Hour)},
		},
		{
			name:  "ninety minutes ahead",
			start: now.Add(90 * time.Minute),
			want:  []time.Time{now.Add(30 * time.Minute)},
		},
		{
			name:  "exactly an hour ahead",
			start: now.Add(time.Hour),
			want:  nil,
		},
		{
			name:  "half an hour ahead",
			start: now.Add(30 * time.Minute),
			want:  nil,
		},
		{
			name:  "already started",
			start: now.Add(-time.Hour),
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PlanTriggers(now, tt.start)
			assert.Equal(t, tt.want, got)
		})
	}
}
