package booking

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/domain"
)

func newTestBooking(t *testing.T) *Booking {
	t.Helper()
	bk, err := NewBooking(
		uuid.New(), uuid.New(), uuid.New(),
		date(2026, 6, 1), date(2026, 6, 4),
		30000, 100000, 0,
		"AED",
		MethodCard,
		"Dubai Marina", "Dubai Marina", "",
	)
	require.NoError(t, err)
	return bk
}

func TestNewBooking_SnapshotsQuote(t *testing.T) {
	bk := newTestBooking(t)

	assert.Equal(t, StatusPending, bk.Status())
	assert.Equal(t, 3, bk.TotalDays())
	assert.Equal(t, int64(90000), bk.TotalAmountCents())
	assert.Equal(t, int64(190000), bk.TotalPayableCents())
	assert.Equal(t, PaymentStatusPending, bk.Payment().Status)
	assert.Equal(t, int64(1), bk.Version())
}

func TestNewBooking_RejectsSelfBooking(t *testing.T) {
	ownerID := uuid.New()
	_, err := NewBooking(
		ownerID, uuid.New(), ownerID,
		date(2026, 6, 1), date(2026, 6, 4),
		30000, 0, 0, "AED", MethodCard, "", "", "",
	)
	require.Error(t, err)

	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeSelfBookingNotAllowed, appErr.Code)
}

func TestNewBooking_RejectsUnknownMethod(t *testing.T) {
	_, err := NewBooking(
		uuid.New(), uuid.New(), uuid.New(),
		date(2026, 6, 1), date(2026, 6, 4),
		30000, 0, 0, "AED", PaymentMethod("crypto"), "", "", "",
	)
	require.Error(t, err)

	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeUnsupportedPayment, appErr.Code)
}

func TestTransitionTo_HappyPath(t *testing.T) {
	bk := newTestBooking(t)

	require.NoError(t, bk.TransitionTo(ActorOwner, StatusApproved))
	assert.NotNil(t, bk.ApprovedAt())

	require.NoError(t, bk.TransitionTo(ActorPayment, StatusConfirmed))
	assert.NotNil(t, bk.ConfirmedAt())

	require.NoError(t, bk.TransitionTo(ActorSystem, StatusActive))
	assert.NotNil(t, bk.ActivatedAt())

	require.NoError(t, bk.TransitionTo(ActorSystem, StatusCompleted))
	assert.NotNil(t, bk.CompletedAt())
	assert.True(t, bk.Status().IsTerminal())
}

func TestTransitionTo_ActorGating(t *testing.T) {
	tests := []struct {
		name   string
		actor  Actor
		target Status
	}{
		{"renter cannot approve", ActorRenter, StatusApproved},
		{"renter cannot reject", ActorRenter, StatusRejected},
		{"owner cannot confirm", ActorOwner, StatusConfirmed},
		{"system cannot approve", ActorSystem, StatusApproved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bk := newTestBooking(t)
			err := bk.TransitionTo(tt.actor, tt.target)
			require.Error(t, err)

			appErr, ok := domain.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, domain.CodeInvalidStatusChange, appErr.Code)
			assert.Equal(t, StatusPending, bk.Status(), "status must not change on a rejected transition")
		})
	}
}

func TestTransitionTo_NoSkippingStates(t *testing.T) {
	bk := newTestBooking(t)

	assert.Error(t, bk.TransitionTo(ActorAdmin, StatusActive), "pending cannot jump to active")
	assert.Error(t, bk.TransitionTo(ActorAdmin, StatusCompleted), "pending cannot jump to completed")
}

func TestTransitionTo_TerminalIsFinal(t *testing.T) {
	bk := newTestBooking(t)
	require.NoError(t, bk.TransitionTo(ActorOwner, StatusRejected))

	assert.Error(t, bk.TransitionTo(ActorAdmin, StatusApproved))
	assert.Error(t, bk.Cancel(ActorAdmin, "late", 0))
	assert.Error(t, bk.Expire())
}

func TestCancel_Authorization(t *testing.T) {
	bk := newTestBooking(t)
	require.NoError(t, bk.TransitionTo(ActorOwner, StatusApproved))
	require.NoError(t, bk.TransitionTo(ActorPayment, StatusConfirmed))

	// Owners may no longer cancel once the booking is confirmed.
	assert.Error(t, bk.Cancel(ActorOwner, "changed my mind", 0))

	// The renter still can, with the fee recorded.
	require.NoError(t, bk.Cancel(ActorRenter, "trip cancelled", 9000))
	assert.Equal(t, StatusCancelled, bk.Status())
	assert.Equal(t, ActorRenter, bk.CancelledBy())
	assert.Equal(t, int64(9000), bk.CancellationFeeCents())
	assert.NotNil(t, bk.CancelledAt())
}

func TestCancel_ActiveOnlyByAdmin(t *testing.T) {
	bk := newTestBooking(t)
	require.NoError(t, bk.TransitionTo(ActorOwner, StatusApproved))
	require.NoError(t, bk.TransitionTo(ActorPayment, StatusConfirmed))
	require.NoError(t, bk.TransitionTo(ActorSystem, StatusActive))

	assert.Error(t, bk.Cancel(ActorRenter, "", 0))
	assert.Error(t, bk.Cancel(ActorOwner, "", 0))
	require.NoError(t, bk.Cancel(ActorAdmin, "dispute", 0))
}

func TestReschedule_PendingOnly(t *testing.T) {
	bk := newTestBooking(t)
	require.NoError(t, bk.Reschedule(date(2026, 7, 1), date(2026, 7, 6)))
	assert.Equal(t, 5, bk.TotalDays())
	assert.Equal(t, int64(150000), bk.TotalAmountCents())
	assert.Equal(t, int64(250000), bk.TotalPayableCents(), "deposit carried into new payable")

	require.NoError(t, bk.TransitionTo(ActorOwner, StatusApproved))
	assert.Error(t, bk.Reschedule(date(2026, 8, 1), date(2026, 8, 3)))
}

func TestApplyPaymentSuccess_ConfirmsAndIsIdempotent(t *testing.T) {
	bk := newTestBooking(t)
	require.NoError(t, bk.TransitionTo(ActorOwner, StatusApproved))

	changed, err := bk.ApplyPaymentSuccess("txn_123", time.Now())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusConfirmed, bk.Status())
	assert.Equal(t, PaymentStatusPaid, bk.Payment().Status)
	assert.Equal(t, "txn_123", bk.Payment().ExternalTransactionID)
	require.NotNil(t, bk.Payment().PaidAt)

	// Duplicate webhook delivery reports no change.
	changed, err = bk.ApplyPaymentSuccess("txn_123", time.Now())
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, StatusConfirmed, bk.Status())
}

func TestApplyPaymentSuccess_RequiresApproval(t *testing.T) {
	bk := newTestBooking(t)

	_, err := bk.ApplyPaymentSuccess("txn_123", time.Now())
	require.Error(t, err)
	assert.Equal(t, StatusPending, bk.Status())
	assert.NotEqual(t, PaymentStatusPaid, bk.Payment().Status)
}

func TestApplyPaymentFailure_LeavesStatus(t *testing.T) {
	bk := newTestBooking(t)
	require.NoError(t, bk.TransitionTo(ActorOwner, StatusApproved))

	assert.True(t, bk.ApplyPaymentFailure("txn_err"))
	assert.Equal(t, StatusApproved, bk.Status(), "booking stays approved so the renter can retry")
	assert.Equal(t, PaymentStatusFailed, bk.Payment().Status)

	assert.False(t, bk.ApplyPaymentFailure("txn_err"), "failure is idempotent")
}

func TestApplyPaymentFailure_NeverDowngradesPaid(t *testing.T) {
	bk := newTestBooking(t)
	require.NoError(t, bk.TransitionTo(ActorOwner, StatusApproved))

	_, err := bk.ApplyPaymentSuccess("txn_ok", time.Now())
	require.NoError(t, err)

	assert.False(t, bk.ApplyPaymentFailure("txn_late"))
	assert.Equal(t, PaymentStatusPaid, bk.Payment().Status)
}

func completedBooking(t *testing.T) *Booking {
	t.Helper()
	bk := newTestBooking(t)
	require.NoError(t, bk.TransitionTo(ActorOwner, StatusApproved))
	require.NoError(t, bk.TransitionTo(ActorPayment, StatusConfirmed))
	require.NoError(t, bk.TransitionTo(ActorSystem, StatusActive))
	require.NoError(t, bk.TransitionTo(ActorSystem, StatusCompleted))
	return bk
}

func TestAddReview(t *testing.T) {
	bk := completedBooking(t)

	require.NoError(t, bk.AddReview(ActorRenter, 5, "great car"))
	require.NotNil(t, bk.RenterReview())
	assert.Equal(t, 5, bk.RenterReview().Rating)

	// Each slot is written once.
	err := bk.AddReview(ActorRenter, 4, "changed my mind")
	require.Error(t, err)
	assert.Equal(t, 5, bk.RenterReview().Rating)

	require.NoError(t, bk.AddReview(ActorOwner, 4, "good renter"))
	require.NotNil(t, bk.OwnerReview())
}

func TestAddReview_OnlyWhenCompleted(t *testing.T) {
	bk := newTestBooking(t)
	err := bk.AddReview(ActorRenter, 5, "")
	require.Error(t, err)

	appErr, ok := domain.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeReviewNotAllowed, appErr.Code)
}

func TestAddReview_RatingBounds(t *testing.T) {
	bk := completedBooking(t)
	assert.Error(t, bk.AddReview(ActorRenter, 0, ""))
	assert.Error(t, bk.AddReview(ActorRenter, 6, ""))
	assert.Nil(t, bk.RenterReview())
}

func TestExpire_OnlyNonTerminal(t *testing.T) {
	bk := newTestBooking(t)
	require.NoError(t, bk.Expire())
	assert.Equal(t, StatusExpired, bk.Status())
	assert.Error(t, bk.Expire())
}

func TestAuthorizeTransition_CancellationMatrix(t *testing.T) {
	// renter: pending/approved/confirmed; owner: pending/approved; admin: any non-terminal.
	assert.NoError(t, AuthorizeTransition(ActorRenter, StatusConfirmed, StatusCancelled))
	assert.Error(t, AuthorizeTransition(ActorOwner, StatusConfirmed, StatusCancelled))
	assert.NoError(t, AuthorizeTransition(ActorAdmin, StatusActive, StatusCancelled))
	assert.Error(t, AuthorizeTransition(ActorRenter, StatusActive, StatusCancelled))
	assert.Error(t, AuthorizeTransition(ActorAdmin, StatusCompleted, StatusCancelled))
}
