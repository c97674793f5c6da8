package papers

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// BaselineStatus is the verdict of the baseline gate for a paper.
type BaselineStatus string

const (
	// BaselineStatusPending marks a paper whose gate has not run yet.
	BaselineStatusPending BaselineStatus = "pending"
	// BaselineStatusPass marks a paper that cleared every baseline check.
	BaselineStatusPass BaselineStatus = "pass"
	// BaselineStatusWarn marks a paper with non-critical check failures.
	BaselineStatusWarn BaselineStatus = "warn"
	// BaselineStatusReject marks a paper with a critical check failure.
	BaselineStatusReject BaselineStatus = "reject"
)

// VisibilityTier controls placement of a paper in the public feed.
type VisibilityTier string

const (
	VisibilityTierFrontpage VisibilityTier = "frontpage"
	VisibilityTierMain      VisibilityTier = "main"
	VisibilityTierRaw       VisibilityTier = "raw"
	VisibilityTierHidden    VisibilityTier = "hidden"
)

// Severity grades a failed baseline check.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// FlagReason enumerates accepted reasons for a community flag.
type FlagReason string

const (
	FlagReasonSpam       FlagReason = "spam"
	FlagReasonPlagiarism FlagReason = "plagiarism"
	FlagReasonLowQuality FlagReason = "low-quality"
	FlagReasonOther      FlagReason = "other"
)

// AttemptStatus records the outcome of a submission try.
type AttemptStatus string

const (
	AttemptStatusAccepted AttemptStatus = "accepted"
	AttemptStatusRejected AttemptStatus = "rejected"
)

var (
	// ErrInvalidVote indicates a vote value outside {-1, 0, 1}.
	ErrInvalidVote = errors.New("papers: vote must be -1, 0, or 1")
	// ErrInvalidFlagReason indicates an unknown flag reason.
	ErrInvalidFlagReason = errors.New("papers: unknown flag reason")
	// ErrInvalidTier indicates an unknown visibility tier name.
	ErrInvalidTier = errors.New("papers: unknown visibility tier")
)

// ParseFlagReason validates raw input against the accepted flag reasons.
func ParseFlagReason(raw string) (FlagReason, error) {
	switch FlagReason(strings.ToLower(strings.TrimSpace(raw))) {
	case FlagReasonSpam:
		return FlagReasonSpam, nil
	case FlagReasonPlagiarism:
		return FlagReasonPlagiarism, nil
	case FlagReasonLowQuality:
		return FlagReasonLowQuality, nil
	case FlagReasonOther:
		return FlagReasonOther, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFlagReason, raw)
	}
}

// ParseTier validates a feed tier name supplied by a client.
func ParseTier(raw string) (VisibilityTier, error) {
	switch VisibilityTier(strings.ToLower(strings.TrimSpace(raw))) {
	case VisibilityTierFrontpage:
		return VisibilityTierFrontpage, nil
	case VisibilityTierMain:
		return VisibilityTierMain, nil
	case VisibilityTierRaw:
		return VisibilityTierRaw, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTier, raw)
	}
}

// CheckRecord is the audit record of one baseline check.
type CheckRecord struct {
	Passed   bool     `json:"passed"`
	Severity Severity `json:"severity"`
	Issues   []string `json:"issues,omitempty"`
	Score    int      `json:"score"`
}

// BaselineChecks maps check names to their audit records.
type BaselineChecks map[string]CheckRecord

// Paper models a persisted, accepted submission.
type Paper struct {
	ID               string         `gorm:"column:id;primaryKey;size:190;not null"`
	Title            string         `gorm:"column:title;size:512;not null;index"`
	Abstract         string         `gorm:"column:abstract;type:text;not null"`
	PDFURL           string         `gorm:"column:pdf_url;size:512"`
	PDFHash          string         `gorm:"column:pdf_hash;size:128"`
	CodeURL          string         `gorm:"column:code_url;size:512"`
	DataURL          string         `gorm:"column:data_url;size:512"`
	Categories       []string       `gorm:"column:categories;serializer:json"`
	Tags             []string       `gorm:"column:tags;serializer:json"`
	GenerationMethod string         `gorm:"column:generation_method;size:190"`
	Meta             map[string]any `gorm:"column:meta;serializer:json"`

	SubmitterID string `gorm:"column:submitter_id;size:190;not null;index"`

	BaselineStatus     BaselineStatus `gorm:"column:baseline_status;size:16;not null;default:pending"`
	BaselineChecks     BaselineChecks `gorm:"column:baseline_checks;serializer:json"`
	QualityScore       int            `gorm:"column:quality_score;not null;default:0"`
	RedFlags           []string       `gorm:"column:red_flags;serializer:json"`
	NeedsReview        bool           `gorm:"column:needs_review;not null;default:false"`
	CommunityUpvotes   int            `gorm:"column:community_upvotes;not null;default:0"`
	CommunityDownvotes int            `gorm:"column:community_downvotes;not null;default:0"`
	FlagCount          int            `gorm:"column:flag_count;not null;default:0"`
	VisibilityTier     VisibilityTier `gorm:"column:visibility_tier;size:16;not null;default:raw;index"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Paper) TableName() string {
	return "papers"
}

// NetVotes is the community vote balance for the paper.
func (p Paper) NetVotes() int {
	return p.CommunityUpvotes - p.CommunityDownvotes
}

// Vote is a single user's vote on a paper. The unique index makes
// concurrent duplicate inserts from the same user a constraint error
// instead of a double count.
type Vote struct {
	ID        string    `gorm:"column:id;primaryKey;size:190;not null"`
	PaperID   string    `gorm:"column:paper_id;size:190;not null;uniqueIndex:idx_votes_paper_user,priority:1"`
	UserID    string    `gorm:"column:user_id;size:190;not null;uniqueIndex:idx_votes_paper_user,priority:2"`
	Value     int       `gorm:"column:value;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Vote) TableName() string {
	return "paper_votes"
}

// Flag is a community report against a paper. Status only ever moves off
// pending through moderator action, which has no workflow here beyond the
// stored columns. The unique index keeps one pending flag per user.
type Flag struct {
	ID         string     `gorm:"column:id;primaryKey;size:190;not null"`
	PaperID    string     `gorm:"column:paper_id;size:190;not null;uniqueIndex:idx_flags_paper_user_status,priority:1"`
	UserID     string     `gorm:"column:user_id;size:190;not null;uniqueIndex:idx_flags_paper_user_status,priority:2"`
	Reason     FlagReason `gorm:"column:reason;size:32;not null"`
	Details    string     `gorm:"column:details;type:text"`
	Status     string     `gorm:"column:status;size:32;not null;default:pending;uniqueIndex:idx_flags_paper_user_status,priority:3"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	ResolvedAt *time.Time `gorm:"column:resolved_at"`
	ResolvedBy string     `gorm:"column:resolved_by;size:190"`
}

// TableName provides the explicit table binding for GORM.
func (Flag) TableName() string {
	return "paper_flags"
}

// FlagStatusPending is the initial status of every community flag.
const FlagStatusPending = "pending"

// SubmissionAttempt is the append-only audit row for every submission try.
// Rows are never mutated after creation; the cooldown policy reads them as
// a sliding window.
type SubmissionAttempt struct {
	ID              string        `gorm:"column:id;primaryKey;size:190;not null"`
	UserID          string        `gorm:"column:user_id;size:190;not null;index:idx_attempts_user_time,priority:1"`
	PaperID         string        `gorm:"column:paper_id;size:190"`
	Status          AttemptStatus `gorm:"column:status;size:16;not null"`
	RejectionReason string        `gorm:"column:rejection_reason;type:text"`
	CreatedAt       time.Time     `gorm:"column:created_at;autoCreateTime;index:idx_attempts_user_time,priority:2"`
}

// TableName provides the explicit table binding for GORM.
func (SubmissionAttempt) TableName() string {
	return "submission_attempts"
}

// Draft carries the submitter-provided fields of a new submission before
// moderation decides whether a Paper row is created at all.
type Draft struct {
	Title            string
	Abstract         string
	PDFURL           string
	PDFHash          string
	CodeURL          string
	DataURL          string
	Categories       []string
	Tags             []string
	GenerationMethod string
	Meta             map[string]any
}
