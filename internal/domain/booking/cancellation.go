package booking

import "time"

// CancellationPolicy computes the fee charged when a booking is cancelled.
type CancellationPolicy interface {
	// Fee returns the cancellation fee in cents for cancelling at the given time.
	Fee(b *Booking, at time.Time) int64
}

// StandardCancellationPolicy is the default tiered policy: free with 48 hours
// or more of notice, 10% of the rental amount inside the 48-hour window, 25%
// once the rental has started. Admin cancellations are always free.
type StandardCancellationPolicy struct{}

// NewStandardCancellationPolicy creates the default policy.
func NewStandardCancellationPolicy() *StandardCancellationPolicy {
	return &StandardCancellationPolicy{}
}

// Fee implements CancellationPolicy.
func (p *StandardCancellationPolicy) Fee(b *Booking, at time.Time) int64 {
	if at.After(b.StartDate()) {
		return b.TotalAmountCents() / 4
	}
	if b.StartDate().Sub(at) < 48*time.Hour {
		return b.TotalAmountCents() / 10
	}
	return 0
}
