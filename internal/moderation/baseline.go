package moderation

import (
	"context"
	"fmt"

	"github.com/archivara/backend/internal/papers"
	"go.uber.org/zap"
)

const (
	checkSpam       = "spam_check"
	checkPlagiarism = "plagiarism_check"
	checkResearch   = "research_check"

	// spamConfidenceGate is the judge confidence above which a positive
	// spam verdict fails the check outright.
	spamConfidenceGate = 0.7
	// duplicateSimilarityGate is the Jaccard similarity above which two
	// titles count as near-duplicates.
	duplicateSimilarityGate = 0.8
	// duplicateCandidateLimit bounds the lexical scan.
	duplicateCandidateLimit = 100

	minAbstractLength = 100
	minContentLength  = 50
)

// TitleSource supplies candidate titles for the near-duplicate scan.
type TitleSource interface {
	RecentTitles(ctx context.Context, excludeID string, limit int) ([]papers.TitleCandidate, error)
}

// BaselineResult is the aggregate gate verdict with its audit trail.
type BaselineResult struct {
	Status papers.BaselineStatus
	Checks papers.BaselineChecks
	Issues []string
}

// Gate runs the first-pass spam/plagiarism/research-ness checks. A nil
// judge degrades every check to its pattern-only form; judge failures do
// the same per check and never fail the gate.
type Gate struct {
	judge  Judge
	titles TitleSource
	logger *zap.Logger
}

// NewGate constructs the baseline gate.
func NewGate(judge Judge, titles TitleSource, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{judge: judge, titles: titles, logger: logger}
}

// Run executes every baseline check against the draft. excludeID keeps a
// persisted paper out of its own duplicate scan during reprocessing. The
// returned error is only ever a persistence failure from the duplicate
// scan; judge unavailability is absorbed into the per-check fallbacks.
func (g *Gate) Run(ctx context.Context, draft papers.Draft, excludeID string) (BaselineResult, error) {
	checks := papers.BaselineChecks{}

	checks[checkSpam] = g.checkSpam(ctx, draft)
	plagiarism, err := g.checkPlagiarism(ctx, draft, excludeID)
	if err != nil {
		return BaselineResult{}, err
	}
	checks[checkPlagiarism] = plagiarism
	checks[checkResearch] = g.checkResearch(draft)

	var issues []string
	critical := false
	failed := false
	for _, record := range checks {
		if record.Passed {
			continue
		}
		failed = true
		if record.Severity == papers.SeverityCritical {
			critical = true
		}
		issues = append(issues, record.Issues...)
	}

	status := papers.BaselineStatusPass
	if critical {
		status = papers.BaselineStatusReject
	} else if failed {
		status = papers.BaselineStatusWarn
	}

	return BaselineResult{Status: status, Checks: checks, Issues: issues}, nil
}

func (g *Gate) checkSpam(ctx context.Context, draft papers.Draft) papers.CheckRecord {
	content := draft.Title + " " + draft.Abstract
	indicators := spamIndicators(content)

	var passed bool
	judged := false
	if g.judge != nil {
		result := g.judge.CheckSpam(ctx, PaperContent{Title: draft.Title, Abstract: draft.Abstract})
		if result.Degraded {
			g.logger.Warn("spam check degraded to patterns",
				zap.String("operation", "moderation.baseline.spam"),
				zap.String("reason", result.DegradedReason))
		} else {
			judged = true
			if result.Verdict.IsSpam && result.Verdict.Confidence > spamConfidenceGate {
				indicators = append(indicators, result.Verdict.Reasons...)
				passed = false
			} else {
				// An inconclusive or negative judge verdict tolerates one
				// stray pattern match.
				passed = len(indicators) <= 1
			}
		}
	}
	if !judged {
		passed = len(indicators) == 0
	}

	severity := papers.SeverityWarning
	if len(indicators) > 2 {
		severity = papers.SeverityCritical
	}

	return papers.CheckRecord{
		Passed:   passed,
		Severity: severity,
		Issues:   indicators,
		Score:    passFailScore(passed),
	}
}

func (g *Gate) checkPlagiarism(ctx context.Context, draft papers.Draft, excludeID string) (papers.CheckRecord, error) {
	var similar []string
	if g.titles != nil {
		candidates, err := g.titles.RecentTitles(ctx, excludeID, duplicateCandidateLimit)
		if err != nil {
			return papers.CheckRecord{}, err
		}
		for _, candidate := range candidates {
			if TextSimilarity(draft.Title, candidate.Title) > duplicateSimilarityGate {
				similar = append(similar, candidate.ID)
			}
		}
	}

	passed := len(similar) == 0
	severity := papers.SeverityInfo
	var issues []string
	if !passed {
		severity = papers.SeverityCritical
		issues = []string{fmt.Sprintf("Similar to %d existing papers", len(similar))}
	}

	return papers.CheckRecord{
		Passed:   passed,
		Severity: severity,
		Issues:   issues,
		Score:    passFailScore(passed),
	}, nil
}

func (g *Gate) checkResearch(draft papers.Draft) papers.CheckRecord {
	content := draft.Title + " " + draft.Abstract

	var issues []string
	if looksLikeGreeting(content) {
		issues = append(issues, "Matched non-research pattern")
	}
	if len(content) < minContentLength {
		issues = append(issues, "Content too short (<50 chars)")
	}
	if len(draft.Abstract) < minAbstractLength {
		issues = append(issues, "Abstract too short (<100 chars)")
	}

	passed := len(issues) == 0
	severity := papers.SeverityInfo
	if !passed {
		severity = papers.SeverityCritical
	}

	return papers.CheckRecord{
		Passed:   passed,
		Severity: severity,
		Issues:   issues,
		Score:    passFailScore(passed),
	}
}

func passFailScore(passed bool) int {
	if passed {
		return 100
	}
	return 0
}
