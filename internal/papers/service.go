package papers

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	// ErrPaperNotFound indicates the requested paper does not exist.
	ErrPaperNotFound = errors.New("papers: paper not found")
	noOpLogger       = zap.NewNop()
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
	opServiceNew   = "papers.service.new"
	opGetPaper     = "papers.get"
	opListPapers   = "papers.list"
	opFeed         = "papers.feed"
	opRecentTitles = "papers.recent_titles"
	opGetVote      = "papers.get_vote"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// ServiceConfig describes the dependencies of the paper read service.
type ServiceConfig struct {
	Database *gorm.DB
	Logger   *zap.Logger
}

// Service exposes read access to persisted papers: lookups, listings and
// the tiered public feed. Mutations run through the moderation service so
// the visibility tier can never go stale.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService constructs the paper read service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{db: cfg.Database, logger: logger}, nil
}

// Get returns a paper by id.
func (s *Service) Get(ctx context.Context, paperID string) (Paper, error) {
	var paper Paper
	err := s.db.WithContext(ctx).Where("id = ?", paperID).Take(&paper).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Paper{}, ErrPaperNotFound
	}
	if err != nil {
		s.logError(opGetPaper, "query_failed", err, zap.String("paper_id", paperID))
		return Paper{}, newServiceError(opGetPaper, "query_failed", err)
	}
	return paper, nil
}

// Page is a paginated slice of papers.
type Page struct {
	Items []Paper
	Total int64
	Page  int
	Size  int
}

// List returns papers for a submitter, newest first, or all papers when
// submitterID is empty.
func (s *Service) List(ctx context.Context, submitterID string, page, size int) (Page, error) {
	page, size = normalizePagination(page, size)

	query := s.db.WithContext(ctx).Model(&Paper{})
	if submitterID != "" {
		query = query.Where("submitter_id = ?", submitterID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		s.logError(opListPapers, "count_failed", err)
		return Page{}, newServiceError(opListPapers, "count_failed", err)
	}

	var items []Paper
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&items).Error; err != nil {
		s.logError(opListPapers, "query_failed", err)
		return Page{}, newServiceError(opListPapers, "query_failed", err)
	}

	return Page{Items: items, Total: total, Page: page, Size: size}, nil
}

// FeedQuery filters the public feed.
type FeedQuery struct {
	Tier           VisibilityTier
	MinScore       *int
	ExcludeFlagged bool
	Page           int
	Size           int
}

// heavyFlagThreshold is the flag count at which a paper drops out of
// flag-filtered feeds.
const heavyFlagThreshold = 5

// Feed returns papers for the public feed, ordered by quality score plus
// net community votes. The main feed includes frontpage papers; the raw
// feed shows everything including baseline rejects.
func (s *Service) Feed(ctx context.Context, q FeedQuery) (Page, error) {
	page, size := normalizePagination(q.Page, q.Size)

	query := s.db.WithContext(ctx).Model(&Paper{})

	switch q.Tier {
	case VisibilityTierFrontpage:
		query = query.Where("visibility_tier = ?", VisibilityTierFrontpage)
	case VisibilityTierMain:
		query = query.Where("visibility_tier IN ?", []VisibilityTier{VisibilityTierMain, VisibilityTierFrontpage})
	case VisibilityTierRaw, "":
		// no tier filter
	default:
		return Page{}, fmt.Errorf("%w: %q", ErrInvalidTier, q.Tier)
	}

	if q.Tier != VisibilityTierRaw {
		query = query.Where("baseline_status <> ?", BaselineStatusReject)
	}
	if q.MinScore != nil {
		query = query.Where("quality_score >= ?", *q.MinScore)
	}
	if q.ExcludeFlagged {
		query = query.Where("flag_count < ?", heavyFlagThreshold)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		s.logError(opFeed, "count_failed", err)
		return Page{}, newServiceError(opFeed, "count_failed", err)
	}

	var items []Paper
	if err := query.
		Order("quality_score + community_upvotes - community_downvotes DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&items).Error; err != nil {
		s.logError(opFeed, "query_failed", err)
		return Page{}, newServiceError(opFeed, "query_failed", err)
	}

	return Page{Items: items, Total: total, Page: page, Size: size}, nil
}

// TitleCandidate is a (paper id, title) pair used by duplicate detection.
type TitleCandidate struct {
	ID    string
	Title string
}

// RecentTitles returns up to limit (id, title) pairs of the most recent
// papers that were not baseline-rejected, excluding excludeID. This is the
// candidate set for the lexical near-duplicate scan; the interface stays
// if the scan is ever backed by an index instead.
func (s *Service) RecentTitles(ctx context.Context, excludeID string, limit int) ([]TitleCandidate, error) {
	if limit <= 0 {
		limit = 100
	}
	var candidates []TitleCandidate
	query := s.db.WithContext(ctx).
		Model(&Paper{}).
		Select("id", "title").
		Where("baseline_status <> ?", BaselineStatusReject)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Order("created_at DESC").Limit(limit).Scan(&candidates).Error; err != nil {
		s.logError(opRecentTitles, "query_failed", err)
		return nil, newServiceError(opRecentTitles, "query_failed", err)
	}
	return candidates, nil
}

// GetVote returns the user's vote on a paper, or a zero value when the
// user has not voted.
func (s *Service) GetVote(ctx context.Context, paperID, userID string) (Vote, error) {
	var vote Vote
	err := s.db.WithContext(ctx).
		Where("paper_id = ? AND user_id = ?", paperID, userID).
		Take(&vote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Vote{PaperID: paperID, UserID: userID, Value: 0}, nil
	}
	if err != nil {
		s.logError(opGetVote, "query_failed", err,
			zap.String("paper_id", paperID),
			zap.String("user_id", userID))
		return Vote{}, newServiceError(opGetVote, "query_failed", err)
	}
	return vote, nil
}

func normalizePagination(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return page, size
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
	s.logger.Error("papers service error", attrs...)
}
