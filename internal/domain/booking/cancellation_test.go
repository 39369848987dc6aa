package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardCancellationPolicy(t *testing.T) {
	bk := newTestBooking(t) // 90000 total, starts 2026-06-01

	policy := NewStandardCancellationPolicy()

	free := bk.StartDate().Add(-72 * time.Hour)
	assert.Equal(t, int64(0), policy.Fee(bk, free))

	lateNotice := bk.StartDate().Add(-24 * time.Hour)
	assert.Equal(t, int64(9000), policy.Fee(bk, lateNotice), "10% inside 48h window")

	afterStart := bk.StartDate().Add(12 * time.Hour)
	assert.Equal(t, int64(22500), policy.Fee(bk, afterStart), "25% once the rental started")
}

func TestStandardCancellationPolicy_BoundaryAt48Hours(t *testing.T) {
	bk := newTestBooking(t)
	policy := NewStandardCancellationPolicy()

	exactly48 := bk.StartDate().Add(-48 * time.Hour)
	require.Equal(t, int64(0), policy.Fee(bk, exactly48), "exactly 48h notice is free")
}
