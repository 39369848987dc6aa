package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestComputeQuote(t *testing.T) {
	tests := []struct {
		name        string
		rate        int64
		start       time.Time
		end         time.Time
		deliveryFee int64
		deposit     int64
		wantDays    int
		wantTotal   int64
		wantPayable int64
	}{
		{
			name:        "two full days",
			rate:        30000,
			start:       date(2026, 6, 1),
			end:         date(2026, 6, 3),
			wantDays:    2,
			wantTotal:   60000,
			wantPayable: 60000,
		},
		{
			name:        "single day",
			rate:        30000,
			start:       date(2026, 6, 1),
			end:         date(2026, 6, 2),
			wantDays:    1,
			wantTotal:   30000,
			wantPayable: 30000,
		},
		{
			name:        "partial day rounds up",
			rate:        30000,
			start:       date(2026, 6, 1),
			end:         date(2026, 6, 2).Add(6 * time.Hour),
			wantDays:    2,
			wantTotal:   60000,
			wantPayable: 60000,
		},
		{
			name:        "deposit and delivery fee added to payable only",
			rate:        30000,
			start:       date(2026, 6, 1),
			end:         date(2026, 6, 4),
			deliveryFee: 5000,
			deposit:     100000,
			wantDays:    3,
			wantTotal:   90000,
			wantPayable: 195000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := ComputeQuote(tt.rate, tt.start, tt.end, tt.deliveryFee, tt.deposit)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDays, q.TotalDays)
			assert.Equal(t, tt.rate, q.DailyRateCents)
			assert.Equal(t, tt.wantTotal, q.TotalAmountCents)
			assert.Equal(t, tt.wantPayable, q.TotalPayableCents)
		})
	}
}

func TestComputeQuote_Invalid(t *testing.T) {
	start := date(2026, 6, 3)
	end := date(2026, 6, 1)

	_, err := ComputeQuote(30000, start, end, 0, 0)
	assert.Error(t, err, "end before start")

	_, err = ComputeQuote(30000, start, start, 0, 0)
	assert.Error(t, err, "zero-length range")

	_, err = ComputeQuote(0, date(2026, 6, 1), date(2026, 6, 2), 0, 0)
	assert.Error(t, err, "non-positive rate")

	_, err = ComputeQuote(30000, date(2026, 6, 1), date(2026, 6, 2), -1, 0)
	assert.Error(t, err, "negative delivery fee")
}

func TestRangesOverlap(t *testing.T) {
	a1, a2 := date(2026, 6, 1), date(2026, 6, 5)

	assert.True(t, RangesOverlap(a1, a2, date(2026, 6, 4), date(2026, 6, 8)))
	assert.True(t, RangesOverlap(a1, a2, date(2026, 6, 2), date(2026, 6, 3)), "contained range")
	assert.True(t, RangesOverlap(a1, a2, date(2026, 5, 30), date(2026, 6, 10)), "containing range")

	// Adjacent ranges share a boundary instant but no day.
	assert.False(t, RangesOverlap(a1, a2, date(2026, 6, 5), date(2026, 6, 8)))
	assert.False(t, RangesOverlap(a1, a2, date(2026, 5, 28), date(2026, 6, 1)))

	assert.False(t, RangesOverlap(a1, a2, date(2026, 6, 10), date(2026, 6, 12)))
}
