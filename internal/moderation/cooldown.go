package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/archivara/backend/internal/papers"
	"github.com/archivara/backend/internal/users"
	"gorm.io/gorm"
)

const (
	// cooldownWindow is the sliding window over rejected attempts.
	cooldownWindow = 6 * time.Hour
	// verifiedRejectionLimit applies to verified or recognized-domain
	// submitters; unverifiedRejectionLimit to everyone else.
	verifiedRejectionLimit   = 4
	unverifiedRejectionLimit = 1
)

// CooldownDecision is the outcome of a pre-submission rate-limit check.
// Wait is zero when Allowed.
type CooldownDecision struct {
	Allowed bool
	Wait    time.Duration
	Reason  string
}

// CooldownPolicy throttles submitters with recent rejections. It runs
// before any upload or moderation work so submitters in cooldown cost
// nothing. Accepted attempts never count against the window; only time
// passing clears it.
type CooldownPolicy struct {
	db    *gorm.DB
	clock func() time.Time
}

// NewCooldownPolicy constructs the policy over the attempt history.
func NewCooldownPolicy(db *gorm.DB, clock func() time.Time) *CooldownPolicy {
	if clock == nil {
		clock = time.Now
	}
	return &CooldownPolicy{db: db, clock: clock}
}

// Check decides whether the submitter may submit right now.
func (p *CooldownPolicy) Check(ctx context.Context, submitter users.User) (CooldownDecision, error) {
	limit := unverifiedRejectionLimit
	if submitter.IsVerified || users.IsRecognizedDomain(submitter.Email) {
		limit = verifiedRejectionLimit
	}

	now := p.clock().UTC()
	cutoff := now.Add(-cooldownWindow)

	var rejections []papers.SubmissionAttempt
	err := p.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND created_at > ?",
			submitter.ID, papers.AttemptStatusRejected, cutoff).
		Order("created_at DESC").
		Find(&rejections).Error
	if err != nil {
		return CooldownDecision{}, err
	}

	if len(rejections) < limit {
		return CooldownDecision{Allowed: true}, nil
	}

	// The window reopens when the oldest of the counted rejections ages
	// out.
	blocking := rejections[limit-1]
	wait := blocking.CreatedAt.Add(cooldownWindow).Sub(now)
	if wait < 0 {
		wait = 0
	}

	reason := rejections[0].RejectionReason
	if reason == "" {
		reason = fmt.Sprintf("%d rejected submissions in the last %s", len(rejections), cooldownWindow)
	}

	return CooldownDecision{Allowed: false, Wait: wait, Reason: reason}, nil
}
