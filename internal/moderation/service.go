package moderation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/archivara/backend/internal/papers"
	"github.com/archivara/backend/internal/users"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	// ErrAlreadyFlagged indicates the user already holds a pending flag on
	// the paper.
	ErrAlreadyFlagged = errors.New("moderation: paper already flagged by user")
	noOpLogger        = zap.NewNop()
)

// needsReviewFlagThreshold is the red-flag count above which a fresh
// submission is held for review; needsReviewCommunityFlags is the
// community flag count at which a persisted paper is held.
const (
	needsReviewFlagThreshold  = 2
	needsReviewCommunityFlags = 3
)

// ServiceError wraps a failure with a stable operation.reason code.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the stable error code for the failure.
func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew = "moderation.service.new"
	opProcess    = "moderation.process_submission"
	opReprocess  = "moderation.reprocess"
	opVote       = "moderation.vote"
	opFlag       = "moderation.flag"
	opCooldown   = "moderation.cooldown"
	opAttempt    = "moderation.record_attempt"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// RejectionError carries the itemized baseline verdict for a submission
// that was refused at the gate.
type RejectionError struct {
	Result BaselineResult
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("moderation: submission rejected: %s", strings.Join(e.Result.Issues, "; "))
}

// ServiceConfig describes the dependencies of the moderation service.
type ServiceConfig struct {
	Database   *gorm.DB
	Judge      Judge
	Clock      func() time.Time
	IDProvider papers.IDProvider
	Titles     TitleSource
	Logger     *zap.Logger
}

// Service sequences the moderation pipeline and owns every mutation of
// moderation state: new submissions, admin reprocessing, and the partial
// tier re-derivation on vote/flag changes. Each request runs in a single
// transaction so counters and the cached tier can never diverge.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider papers.IDProvider
	logger     *zap.Logger

	gate     *Gate
	scorer   *Scorer
	detector *Detector
	cooldown *CooldownPolicy
}

// NewService constructs the moderation service. A nil Judge runs the
// whole pipeline on heuristics.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	titles := cfg.Titles
	if titles == nil {
		titles = &dbTitleSource{db: cfg.Database}
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
		gate:       NewGate(cfg.Judge, titles, logger),
		scorer:     NewScorer(cfg.Judge, logger),
		detector:   NewDetector(cfg.Judge, logger),
		cooldown:   NewCooldownPolicy(cfg.Database, clock),
	}, nil
}

// RunBaselineChecks exposes the baseline gate for a draft.
func (s *Service) RunBaselineChecks(ctx context.Context, draft papers.Draft) (BaselineResult, error) {
	return s.gate.Run(ctx, draft, "")
}

// CalculateQualityScore exposes the quality scorer for a draft.
func (s *Service) CalculateQualityScore(ctx context.Context, draft papers.Draft, submitter users.User, document []byte) (int, ScoreAnalysis) {
	return s.scorer.Score(ctx, draft, submitter, document)
}

// DetectRedFlags exposes the red-flag detector for a draft.
func (s *Service) DetectRedFlags(ctx context.Context, draft papers.Draft, document []byte) []string {
	return s.detector.Detect(ctx, draft, document)
}

// CheckCooldown reports whether the submitter may submit right now. It
// must run before any upload or moderation work.
func (s *Service) CheckCooldown(ctx context.Context, submitter users.User) (CooldownDecision, error) {
	decision, err := s.cooldown.Check(ctx, submitter)
	if err != nil {
		s.logError(opCooldown, "query_failed", err, zap.String("user_id", submitter.ID))
		return CooldownDecision{}, newServiceError(opCooldown, "query_failed", err)
	}
	return decision, nil
}

// RecordAttempt appends a submission attempt to the audit log.
func (s *Service) RecordAttempt(ctx context.Context, userID, paperID string, status papers.AttemptStatus, reason string) error {
	id, err := s.idProvider.NewID()
	if err != nil {
		return newServiceError(opAttempt, "id_generation_failed", err)
	}
	attempt := papers.SubmissionAttempt{
		ID:              id,
		UserID:          userID,
		PaperID:         paperID,
		Status:          status,
		RejectionReason: reason,
		CreatedAt:       s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&attempt).Error; err != nil {
		s.logError(opAttempt, "insert_failed", err, zap.String("user_id", userID))
		return newServiceError(opAttempt, "insert_failed", err)
	}
	return nil
}

// ProcessNewSubmission runs the full pipeline on a draft. On a baseline
// reject the draft is discarded, a rejected attempt is logged, and a
// *RejectionError carries the itemized issues back to the submitter. On
// acceptance the paper and the accepted attempt are persisted in one
// transaction and the stored paper is returned.
func (s *Service) ProcessNewSubmission(ctx context.Context, draft papers.Draft, submitter users.User, document []byte) (papers.Paper, error) {
	baseline, err := s.gate.Run(ctx, draft, "")
	if err != nil {
		s.logError(opProcess, "baseline_failed", err, zap.String("user_id", submitter.ID))
		return papers.Paper{}, newServiceError(opProcess, "baseline_failed", err)
	}

	if baseline.Status == papers.BaselineStatusReject {
		reason := "baseline checks failed"
		if len(baseline.Issues) > 0 {
			reason = baseline.Issues[0]
		}
		if err := s.RecordAttempt(ctx, submitter.ID, "", papers.AttemptStatusRejected, reason); err != nil {
			return papers.Paper{}, err
		}
		s.logger.Info("submission rejected at baseline",
			zap.String("operation", opProcess),
			zap.String("user_id", submitter.ID),
			zap.Strings("issues", baseline.Issues))
		return papers.Paper{}, &RejectionError{Result: baseline}
	}

	score, _ := s.scorer.Score(ctx, draft, submitter, document)
	redFlags := s.detector.Detect(ctx, draft, document)
	needsReview := baseline.Status == papers.BaselineStatusWarn || len(redFlags) > needsReviewFlagThreshold

	paperID, err := s.idProvider.NewID()
	if err != nil {
		return papers.Paper{}, newServiceError(opProcess, "id_generation_failed", err)
	}

	now := s.clock().UTC()
	paper := papers.Paper{
		ID:               paperID,
		Title:            draft.Title,
		Abstract:         draft.Abstract,
		PDFURL:           draft.PDFURL,
		PDFHash:          draft.PDFHash,
		CodeURL:          draft.CodeURL,
		DataURL:          draft.DataURL,
		Categories:       draft.Categories,
		Tags:             draft.Tags,
		GenerationMethod: draft.GenerationMethod,
		Meta:             draft.Meta,
		SubmitterID:      submitter.ID,
		BaselineStatus:   baseline.Status,
		BaselineChecks:   baseline.Checks,
		QualityScore:     score,
		RedFlags:         redFlags,
		NeedsReview:      needsReview,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	paper.VisibilityTier = AssignTier(paper)

	attemptID, err := s.idProvider.NewID()
	if err != nil {
		return papers.Paper{}, newServiceError(opProcess, "id_generation_failed", err)
	}

	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&paper).Error; err != nil {
			return newServiceError(opProcess, "paper_insert_failed", err)
		}
		attempt := papers.SubmissionAttempt{
			ID:        attemptID,
			UserID:    submitter.ID,
			PaperID:   paper.ID,
			Status:    papers.AttemptStatusAccepted,
			CreatedAt: now,
		}
		if err := tx.Create(&attempt).Error; err != nil {
			return newServiceError(opProcess, "attempt_insert_failed", err)
		}
		return nil
	})
	if txErr != nil {
		s.logError(opProcess, "persist_failed", txErr, zap.String("user_id", submitter.ID))
		return papers.Paper{}, txErr
	}

	s.logger.Info("submission accepted",
		zap.String("operation", opProcess),
		zap.String("paper_id", paper.ID),
		zap.String("baseline_status", string(paper.BaselineStatus)),
		zap.Int("quality_score", paper.QualityScore),
		zap.String("visibility_tier", string(paper.VisibilityTier)))

	return paper, nil
}

// Reprocess re-runs the entire pipeline on a persisted paper, overwriting
// its moderation fields. Unlike a fresh submission, a baseline reject here
// keeps the row and hides it. The pipeline runs outside any transaction:
// the gate queries the papers table itself, and holding the single sqlite
// connection across those reads would starve them.
func (s *Service) Reprocess(ctx context.Context, paperID string, document []byte) (papers.Paper, error) {
	var paper papers.Paper
	err := s.db.WithContext(ctx).Where("id = ?", paperID).Take(&paper).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return papers.Paper{}, papers.ErrPaperNotFound
	}
	if err != nil {
		s.logError(opReprocess, "paper_select_failed", err, zap.String("paper_id", paperID))
		return papers.Paper{}, newServiceError(opReprocess, "paper_select_failed", err)
	}

	var submitter users.User
	if err := s.db.WithContext(ctx).Where("id = ?", paper.SubmitterID).Take(&submitter).Error; err != nil &&
		!errors.Is(err, gorm.ErrRecordNotFound) {
		s.logError(opReprocess, "submitter_select_failed", err, zap.String("paper_id", paperID))
		return papers.Paper{}, newServiceError(opReprocess, "submitter_select_failed", err)
	}

	draft := papers.Draft{
		Title:            paper.Title,
		Abstract:         paper.Abstract,
		PDFURL:           paper.PDFURL,
		PDFHash:          paper.PDFHash,
		CodeURL:          paper.CodeURL,
		DataURL:          paper.DataURL,
		Categories:       paper.Categories,
		Tags:             paper.Tags,
		GenerationMethod: paper.GenerationMethod,
		Meta:             paper.Meta,
	}

	baseline, err := s.gate.Run(ctx, draft, paper.ID)
	if err != nil {
		s.logError(opReprocess, "baseline_failed", err, zap.String("paper_id", paperID))
		return papers.Paper{}, newServiceError(opReprocess, "baseline_failed", err)
	}
	paper.BaselineStatus = baseline.Status
	paper.BaselineChecks = baseline.Checks

	if baseline.Status == papers.BaselineStatusReject {
		paper.VisibilityTier = papers.VisibilityTierHidden
	} else {
		score, _ := s.scorer.Score(ctx, draft, submitter, document)
		paper.QualityScore = score

		redFlags := s.detector.Detect(ctx, draft, document)
		paper.RedFlags = redFlags
		paper.NeedsReview = baseline.Status == papers.BaselineStatusWarn ||
			len(redFlags) > needsReviewFlagThreshold ||
			paper.FlagCount >= needsReviewCommunityFlags

		paper.VisibilityTier = AssignTier(paper)
	}

	if err := s.db.WithContext(ctx).Save(&paper).Error; err != nil {
		s.logError(opReprocess, "persist_failed", err, zap.String("paper_id", paperID))
		return papers.Paper{}, newServiceError(opReprocess, "persist_failed", err)
	}

	s.logger.Info("paper reprocessed",
		zap.String("operation", opReprocess),
		zap.String("paper_id", paper.ID),
		zap.String("baseline_status", string(paper.BaselineStatus)),
		zap.String("visibility_tier", string(paper.VisibilityTier)))

	return paper, nil
}

// VoteOutcome is the paper state after a vote mutation.
type VoteOutcome struct {
	Paper    papers.Paper
	NetVotes int
}

// Vote records, changes, or removes (value 0) the user's vote on a paper
// and re-derives only the visibility tier. The unique (paper, user) index
// backstops the existence check against concurrent duplicates.
func (s *Service) Vote(ctx context.Context, paperID, userID string, value int) (VoteOutcome, error) {
	if value != -1 && value != 0 && value != 1 {
		return VoteOutcome{}, papers.ErrInvalidVote
	}

	var paper papers.Paper
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", paperID).Take(&paper).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return papers.ErrPaperNotFound
		}
		if err != nil {
			return newServiceError(opVote, "paper_select_failed", err)
		}

		var existing papers.Vote
		hasExisting := true
		err = tx.Where("paper_id = ? AND user_id = ?", paperID, userID).Take(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			hasExisting = false
		} else if err != nil {
			return newServiceError(opVote, "vote_select_failed", err)
		}

		switch {
		case value == 0:
			if !hasExisting {
				return nil
			}
			applyVoteDelta(&paper, existing.Value, -1)
			if err := tx.Delete(&existing).Error; err != nil {
				return newServiceError(opVote, "vote_delete_failed", err)
			}
		case hasExisting:
			if existing.Value == value {
				return nil
			}
			applyVoteDelta(&paper, existing.Value, -1)
			applyVoteDelta(&paper, value, 1)
			existing.Value = value
			if err := tx.Save(&existing).Error; err != nil {
				return newServiceError(opVote, "vote_update_failed", err)
			}
		default:
			voteID, err := s.idProvider.NewID()
			if err != nil {
				return newServiceError(opVote, "id_generation_failed", err)
			}
			vote := papers.Vote{ID: voteID, PaperID: paperID, UserID: userID, Value: value}
			if err := tx.Create(&vote).Error; err != nil {
				return newServiceError(opVote, "vote_insert_failed", err)
			}
			applyVoteDelta(&paper, value, 1)
		}

		paper.VisibilityTier = AssignTier(paper)
		return tx.Save(&paper).Error
	})
	if txErr != nil {
		if !errors.Is(txErr, papers.ErrPaperNotFound) {
			s.logError(opVote, "failed", txErr,
				zap.String("paper_id", paperID),
				zap.String("user_id", userID))
		}
		return VoteOutcome{}, txErr
	}

	return VoteOutcome{Paper: paper, NetVotes: paper.NetVotes()}, nil
}

// FlagOutcome is the paper state after a flag mutation.
type FlagOutcome struct {
	Paper papers.Paper
}

// Flag files a community report against a paper. A user holds at most one
// pending flag per paper; the unique (paper, user, status) index backstops
// the check. Three pending flags put the paper under review.
func (s *Service) Flag(ctx context.Context, paperID, userID string, reason papers.FlagReason, details string) (FlagOutcome, error) {
	var paper papers.Paper
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", paperID).Take(&paper).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return papers.ErrPaperNotFound
		}
		if err != nil {
			return newServiceError(opFlag, "paper_select_failed", err)
		}

		var count int64
		err = tx.Model(&papers.Flag{}).
			Where("paper_id = ? AND user_id = ? AND status = ?", paperID, userID, papers.FlagStatusPending).
			Count(&count).Error
		if err != nil {
			return newServiceError(opFlag, "flag_select_failed", err)
		}
		if count > 0 {
			return ErrAlreadyFlagged
		}

		flagID, err := s.idProvider.NewID()
		if err != nil {
			return newServiceError(opFlag, "id_generation_failed", err)
		}
		flag := papers.Flag{
			ID:      flagID,
			PaperID: paperID,
			UserID:  userID,
			Reason:  reason,
			Details: details,
			Status:  papers.FlagStatusPending,
		}
		if err := tx.Create(&flag).Error; err != nil {
			return newServiceError(opFlag, "flag_insert_failed", err)
		}

		paper.FlagCount++
		if paper.FlagCount >= needsReviewCommunityFlags {
			paper.NeedsReview = true
		}
		paper.VisibilityTier = AssignTier(paper)
		return tx.Save(&paper).Error
	})
	if txErr != nil {
		if !errors.Is(txErr, papers.ErrPaperNotFound) && !errors.Is(txErr, ErrAlreadyFlagged) {
			s.logError(opFlag, "failed", txErr,
				zap.String("paper_id", paperID),
				zap.String("user_id", userID))
		}
		return FlagOutcome{}, txErr
	}

	return FlagOutcome{Paper: paper}, nil
}

func applyVoteDelta(paper *papers.Paper, voteValue, direction int) {
	switch voteValue {
	case 1:
		paper.CommunityUpvotes += direction
		if paper.CommunityUpvotes < 0 {
			paper.CommunityUpvotes = 0
		}
	case -1:
		paper.CommunityDownvotes += direction
		if paper.CommunityDownvotes < 0 {
			paper.CommunityDownvotes = 0
		}
	}
}

// dbTitleSource is the default candidate source for the duplicate scan.
type dbTitleSource struct {
	db *gorm.DB
}

func (s *dbTitleSource) RecentTitles(ctx context.Context, excludeID string, limit int) ([]papers.TitleCandidate, error) {
	if limit <= 0 {
		limit = duplicateCandidateLimit
	}
	var candidates []papers.TitleCandidate
	query := s.db.WithContext(ctx).
		Model(&papers.Paper{}).
		Select("id", "title").
		Where("baseline_status <> ?", papers.BaselineStatusReject)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Order("created_at DESC").Limit(limit).Scan(&candidates).Error; err != nil {
		return nil, err
	}
	return candidates, nil
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("moderation service error", attrs...)
}
