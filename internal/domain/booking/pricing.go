package booking

import (
	"time"

	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/domain"
)

// Quote is the pricing snapshot derived for a date range. All amounts are in
// integer minor currency units (cents/fils).
type Quote struct {
	TotalDays            int   `json:"total_days"`
	DailyRateCents       int64 `json:"daily_rate_cents"`
	TotalAmountCents     int64 `json:"total_amount_cents"`
	SecurityDepositCents int64 `json:"security_deposit_cents"`
	DeliveryFeeCents     int64 `json:"delivery_fee_cents"`
	TotalPayableCents    int64 `json:"total_payable_cents"`
}

// ComputeQuote derives the pricing snapshot for a rental. Partial days round
// up. The calculation is pure; callers must always recompute server-side
// rather than trust client-supplied totals.
func ComputeQuote(dailyRateCents int64, start, end time.Time, deliveryFeeCents, securityDepositCents int64) (Quote, error) {
	if !end.After(start) {
		return Quote{}, domain.NewValidationError("end date must be after start date")
	}
	if dailyRateCents <= 0 {
		return Quote{}, domain.NewValidationError("daily rate must be positive")
	}
	if deliveryFeeCents < 0 || securityDepositCents < 0 {
		return Quote{}, domain.NewValidationError("fees cannot be negative")
	}

	totalDays := int(end.Sub(start) / (24 * time.Hour))
	if end.Sub(start)%(24*time.Hour) != 0 {
		totalDays++
	}

	totalAmount := dailyRateCents * int64(totalDays)
	return Quote{
		TotalDays:            totalDays,
		DailyRateCents:       dailyRateCents,
		TotalAmountCents:     totalAmount,
		SecurityDepositCents: securityDepositCents,
		DeliveryFeeCents:     deliveryFeeCents,
		TotalPayableCents:    totalAmount + securityDepositCents + deliveryFeeCents,
	}, nil
}

// RangesOverlap reports whether two half-open date ranges [aStart, aEnd) and
// [bStart, bEnd) share any day. Adjacent ranges do not overlap.
func RangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
