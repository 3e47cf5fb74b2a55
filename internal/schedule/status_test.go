package schedule

import (
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		now  time.Time
		want Status
	}{
		{at.Add(-2 * time.Hour), StatusUpcoming},
		{at.Add(-20 * time.Minute), StatusDueSoon},
		{at, StatusOnTime},
		{at.Add(10 * time.Minute), StatusOnTime},
		{at.Add(16 * time.Minute), StatusLate},
		{at.Add(61 * time.Minute), StatusMissed},
	}
	for _, tc := range cases {
		if got := Classify(at, tc.now); got != tc.want {
			t.Errorf("now=%v: got %s, want %s", tc.now.Format(time.Kitchen), got, tc.want)
		}
	}
}
