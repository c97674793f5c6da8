package papers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:archivara_papers_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Paper{}, &Vote{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	service, err := NewService(ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to construct papers service: %v", err)
	}
	return service, db
}

func mustInsertPaper(t *testing.T, db *gorm.DB, paper Paper) {
	t.Helper()
	if paper.BaselineStatus == "" {
		paper.BaselineStatus = BaselineStatusPass
	}
	if paper.VisibilityTier == "" {
		paper.VisibilityTier = VisibilityTierMain
	}
	if err := db.Create(&paper).Error; err != nil {
		t.Fatalf("failed to insert paper: %v", err)
	}
}

func TestGetUnknownPaper(t *testing.T) {
	service, _ := newTestService(t)
	if _, err := service.Get(context.Background(), "missing"); !errors.Is(err, ErrPaperNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestFeedOrdersByScorePlusNetVotes(t *testing.T) {
	service, db := newTestService(t)
	mustInsertPaper(t, db, Paper{ID: "low", Title: "low", QualityScore: 40})
	mustInsertPaper(t, db, Paper{ID: "boosted", Title: "boosted", QualityScore: 35, CommunityUpvotes: 10})
	mustInsertPaper(t, db, Paper{ID: "high", Title: "high", QualityScore: 42})

	page, err := service.Feed(context.Background(), FeedQuery{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 3 {
		t.Fatalf("expected 3 papers, got %d", len(page.Items))
	}
	// boosted: 35+10=45, high: 42, low: 40.
	if page.Items[0].ID != "boosted" || page.Items[1].ID != "high" || page.Items[2].ID != "low" {
		t.Fatalf("unexpected order: %s, %s, %s", page.Items[0].ID, page.Items[1].ID, page.Items[2].ID)
	}
}

func TestFeedMainIncludesFrontpage(t *testing.T) {
	service, db := newTestService(t)
	mustInsertPaper(t, db, Paper{ID: "m", Title: "m", VisibilityTier: VisibilityTierMain})
	mustInsertPaper(t, db, Paper{ID: "f", Title: "f", VisibilityTier: VisibilityTierFrontpage})
	mustInsertPaper(t, db, Paper{ID: "r", Title: "r", VisibilityTier: VisibilityTierRaw})

	page, err := service.Feed(context.Background(), FeedQuery{Tier: VisibilityTierMain})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected main feed to include frontpage, got %d items", len(page.Items))
	}

	page, err = service.Feed(context.Background(), FeedQuery{Tier: VisibilityTierFrontpage})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != "f" {
		t.Fatalf("expected only the frontpage paper, got %+v", page.Items)
	}
}

func TestFeedExcludesRejectedOutsideRaw(t *testing.T) {
	service, db := newTestService(t)
	mustInsertPaper(t, db, Paper{ID: "ok", Title: "ok"})
	mustInsertPaper(t, db, Paper{
		ID:             "rejected",
		Title:          "rejected",
		BaselineStatus: BaselineStatusReject,
		VisibilityTier: VisibilityTierHidden,
	})

	page, err := service.Feed(context.Background(), FeedQuery{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != "ok" {
		t.Fatalf("expected rejected paper to be excluded, got %+v", page.Items)
	}

	page, err = service.Feed(context.Background(), FeedQuery{Tier: VisibilityTierRaw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected raw feed to show everything, got %d items", len(page.Items))
	}
}

func TestFeedFilters(t *testing.T) {
	service, db := newTestService(t)
	mustInsertPaper(t, db, Paper{ID: "strong", Title: "strong", QualityScore: 80})
	mustInsertPaper(t, db, Paper{ID: "weak", Title: "weak", QualityScore: 20})
	mustInsertPaper(t, db, Paper{ID: "flagged", Title: "flagged", QualityScore: 90, FlagCount: 6})

	minScore := 50
	page, err := service.Feed(context.Background(), FeedQuery{MinScore: &minScore, ExcludeFlagged: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != "strong" {
		t.Fatalf("expected only the strong paper, got %+v", page.Items)
	}
}

func TestFeedRejectsUnknownTier(t *testing.T) {
	service, _ := newTestService(t)
	if _, err := service.Feed(context.Background(), FeedQuery{Tier: "secret"}); !errors.Is(err, ErrInvalidTier) {
		t.Fatalf("expected invalid tier error, got %v", err)
	}
}

func TestListFiltersBySubmitter(t *testing.T) {
	service, db := newTestService(t)
	mustInsertPaper(t, db, Paper{ID: "p-1", Title: "one", SubmitterID: "u-1"})
	mustInsertPaper(t, db, Paper{ID: "p-2", Title: "two", SubmitterID: "u-2"})

	page, err := service.List(context.Background(), "u-1", 1, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Total != 1 || len(page.Items) != 1 || page.Items[0].ID != "p-1" {
		t.Fatalf("unexpected listing: %+v", page)
	}
}

func TestRecentTitlesExcludesRejectedAndSelf(t *testing.T) {
	service, db := newTestService(t)
	mustInsertPaper(t, db, Paper{ID: "self", Title: "self"})
	mustInsertPaper(t, db, Paper{ID: "other", Title: "other"})
	mustInsertPaper(t, db, Paper{
		ID:             "rejected",
		Title:          "rejected",
		BaselineStatus: BaselineStatusReject,
	})

	candidates, err := service.RecentTitles(context.Background(), "self", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 1 || candidates[0].ID != "other" {
		t.Fatalf("unexpected candidates: %+v", candidates)
	}
}

func TestGetVoteZeroValueWhenAbsent(t *testing.T) {
	service, db := newTestService(t)
	mustInsertPaper(t, db, Paper{ID: "p-1", Title: "one"})

	vote, err := service.GetVote(context.Background(), "p-1", "u-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vote.Value != 0 {
		t.Fatalf("expected zero vote, got %d", vote.Value)
	}

	if err := db.Create(&Vote{ID: "v-1", PaperID: "p-1", UserID: "u-1", Value: -1}).Error; err != nil {
		t.Fatalf("failed to insert vote: %v", err)
	}
	vote, err = service.GetVote(context.Background(), "p-1", "u-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vote.Value != -1 {
		t.Fatalf("expected stored vote, got %d", vote.Value)
	}
}
