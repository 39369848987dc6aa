package booking

import (
	"time"

	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/domain"
)

const maxReviewCommentLen = 500

// Review is a rating left by one party of a completed booking about the
// other. Once written it is immutable.
type Review struct {
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewReview validates and creates a review.
func NewReview(rating int, comment string, at time.Time) (*Review, error) {
	if rating < 1 || rating > 5 {
		return nil, domain.NewValidationError("rating must be between 1 and 5")
	}
	if len(comment) > maxReviewCommentLen {
		return nil, domain.NewValidationError("comment must be at most 500 characters")
	}
	return &Review{Rating: rating, Comment: comment, CreatedAt: at}, nil
}
