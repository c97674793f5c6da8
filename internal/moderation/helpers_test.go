package moderation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/archivara/backend/internal/papers"
	"github.com/archivara/backend/internal/users"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// stubJudge returns canned results. The zero value degrades every call,
// which drives all callers onto their heuristic paths.
type stubJudge struct {
	quality QualityResult
	babble  BabbleResult
	spam    SpamResult
}

func (s *stubJudge) AnalyzeQuality(context.Context, PaperContent) QualityResult {
	if s == nil {
		return degradedQuality("stub")
	}
	return s.quality
}

func (s *stubJudge) DetectBabble(context.Context, PaperContent) BabbleResult {
	if s == nil {
		return degradedBabble("stub")
	}
	return s.babble
}

func (s *stubJudge) CheckSpam(context.Context, PaperContent) SpamResult {
	if s == nil {
		return degradedSpam("stub")
	}
	return s.spam
}

func degradedJudge() *stubJudge {
	return &stubJudge{
		quality: degradedQuality("stub unavailable"),
		babble:  degradedBabble("stub unavailable"),
		spam:    degradedSpam("stub unavailable"),
	}
}

type seqIDGenerator struct {
	next int
}

func (g *seqIDGenerator) NewID() (string, error) {
	g.next++
	return fmt.Sprintf("id-%d", g.next), nil
}

type staticTitleSource struct {
	candidates []papers.TitleCandidate
}

func (s *staticTitleSource) RecentTitles(_ context.Context, excludeID string, _ int) ([]papers.TitleCandidate, error) {
	var out []papers.TitleCandidate
	for _, candidate := range s.candidates {
		if candidate.ID == excludeID {
			continue
		}
		out = append(out, candidate)
	}
	return out, nil
}

var testTime = time.Unix(1700000600, 0).UTC()

func testClock() time.Time { return testTime }

const (
	researchTitle    = "Convergence of Clipped Stochastic Gradient Descent"
	researchAbstract = "We study the convergence behavior of stochastic gradient descent " +
		"under heavy-tailed noise. Our method combines clipped updates with an adaptive " +
		"step size, and we prove non-asymptotic convergence bounds. Experiments on three " +
		"benchmark datasets confirm the predicted rates."
)

func researchDraft() papers.Draft {
	return papers.Draft{Title: researchTitle, Abstract: researchAbstract}
}

func mustOpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:archivara_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&users.User{},
		&papers.Paper{},
		&papers.Vote{},
		&papers.Flag{},
		&papers.SubmissionAttempt{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB, judge Judge) *Service {
	t.Helper()

	service, err := NewService(ServiceConfig{
		Database:   db,
		Judge:      judge,
		Clock:      testClock,
		IDProvider: &seqIDGenerator{},
	})
	if err != nil {
		t.Fatalf("failed to construct moderation service: %v", err)
	}
	return service
}

func mustCreateUser(t *testing.T, db *gorm.DB, user users.User) users.User {
	t.Helper()
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func mustCreatePaper(t *testing.T, db *gorm.DB, paper papers.Paper) papers.Paper {
	t.Helper()
	if paper.BaselineStatus == "" {
		paper.BaselineStatus = papers.BaselineStatusPass
	}
	if paper.VisibilityTier == "" {
		paper.VisibilityTier = AssignTier(paper)
	}
	if err := db.Create(&paper).Error; err != nil {
		t.Fatalf("failed to create paper: %v", err)
	}
	return paper
}

func mustReloadPaper(t *testing.T, db *gorm.DB, id string) papers.Paper {
	t.Helper()
	var paper papers.Paper
	if err := db.Where("id = ?", id).Take(&paper).Error; err != nil {
		t.Fatalf("failed to reload paper %s: %v", id, err)
	}
	return paper
}

func mustCreateAttempt(t *testing.T, db *gorm.DB, attempt papers.SubmissionAttempt) {
	t.Helper()
	if err := db.Create(&attempt).Error; err != nil {
		t.Fatalf("failed to create attempt: %v", err)
	}
}
