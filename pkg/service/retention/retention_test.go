package retention_test

import (
	"math"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/membox/pkg/service/retention"
)

func TestCalcFullRetentionAtCreation(t *testing.T) {
	tests := []struct {
		name  string
		hours float64
	}{
		{"zero", 0},
		{"negative", -1},
		{"large negative", -1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.V(t, retention.Calc(tt.hours)).Equal(1.0)
		})
	}
}

func TestCalcOneHourMark(t *testing.T) {
	r := retention.Calc(1.0)
	if math.Abs(r-retention.OneHour) > 1e-9 {
		t.Errorf("retention at 1 hour = %f, want %f", r, retention.OneHour)
	}
}

func TestCalcMonotonicAndBounded(t *testing.T) {
	prev := retention.Calc(0)
	for h := 0.0; h <= 500; h += 0.5 {
		r := retention.Calc(h)
		if r > prev {
			t.Fatalf("retention increased: Calc(%f)=%f > %f", h, r, prev)
		}
		if r < retention.Floor || r > 1.0 {
			t.Fatalf("retention out of bounds: Calc(%f)=%f", h, r)
		}
		prev = r
	}
}

func TestCalcFloorForOldMemories(t *testing.T) {
	gt.V(t, retention.Calc(10000)).Equal(retention.Floor)
}

func TestSince(t *testing.T) {
	now := time.Now()

	t.Run("just created", func(t *testing.T) {
		gt.V(t, retention.Since(now, now)).Equal(1.0)
	})

	t.Run("missing timestamp uses conservative default", func(t *testing.T) {
		gt.V(t, retention.Since(time.Time{}, now)).Equal(retention.Unknown)
	})

	t.Run("one hour old", func(t *testing.T) {
		r := retention.Since(now.Add(-time.Hour), now)
		if math.Abs(r-retention.OneHour) > 1e-9 {
			t.Errorf("retention = %f, want %f", r, retention.OneHour)
		}
	})
}
