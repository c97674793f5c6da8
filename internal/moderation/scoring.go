package moderation

import (
	"context"
	"regexp"
	"strings"

	"github.com/archivara/backend/internal/papers"
	"github.com/archivara/backend/internal/users"
	"go.uber.org/zap"
)

// Identity bonus points added on top of either scoring path. The domain
// bonuses are mutually exclusive; academic wins.
const (
	bonusVerifiedEmail = 15
	bonusAcademic      = 10
	bonusResearchOrg   = 8
)

// Heuristic point values for the fallback scoring path.
const (
	pointsAbstract     = 10
	pointsIntroduction = 5
	pointsMethodology  = 10
	pointsResults      = 10
	pointsConclusion   = 5
	pointsReferences   = 15
	pointsCodeOrData   = 5
	pointsLength       = 10

	sufficientWordCount = 200
)

var sectionKeywords = []struct {
	pattern *regexp.Regexp
	signal  string
	points  int
}{
	{regexp.MustCompile(`(?i)\bintroduction`), "has_introduction", pointsIntroduction},
	{regexp.MustCompile(`(?i)\bmethod`), "has_methodology", pointsMethodology},
	{regexp.MustCompile(`(?i)\bresult`), "has_results", pointsResults},
	{regexp.MustCompile(`(?i)\bconclusion`), "has_conclusion", pointsConclusion},
	{regexp.MustCompile(`(?i)\breference`), "has_references", pointsReferences},
}

// IdentityBonus records the submitter-identity contribution to the score.
type IdentityBonus struct {
	Verified    bool              `json:"verified"`
	EmailDomain string            `json:"email_domain"`
	DomainClass users.DomainClass `json:"domain_class"`
	BonusPoints int               `json:"bonus_points"`
}

// ScoreAnalysis is the audit companion of a quality score.
type ScoreAnalysis struct {
	Method         string          `json:"method"`
	CategoryScores map[string]int  `json:"category_scores,omitempty"`
	Strengths      []string        `json:"strengths,omitempty"`
	Weaknesses     []string        `json:"weaknesses,omitempty"`
	Suggestions    []string        `json:"suggestions,omitempty"`
	Signals        map[string]bool `json:"signals,omitempty"`
	WordCount      int             `json:"word_count,omitempty"`
	Identity       IdentityBonus   `json:"identity"`
	DegradedReason string          `json:"degraded_reason,omitempty"`
}

// Scorer produces the bounded quality score for a submission. It never
// returns an error: a degraded judge silently switches to the heuristic
// path.
type Scorer struct {
	judge  Judge
	logger *zap.Logger
}

// NewScorer constructs the quality scorer. judge may be nil.
func NewScorer(judge Judge, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{judge: judge, logger: logger}
}

// Score computes the quality score in [0,100] and its analysis.
func (s *Scorer) Score(ctx context.Context, draft papers.Draft, submitter users.User, document []byte) (int, ScoreAnalysis) {
	bonus := identityBonus(submitter)

	if s.judge != nil {
		result := s.judge.AnalyzeQuality(ctx, PaperContent{
			Title:    draft.Title,
			Abstract: draft.Abstract,
			Document: document,
			Meta:     draft.Meta,
		})
		if !result.Degraded {
			score := clampScore(result.Verdict.QualityScore + bonus.BonusPoints)
			return score, ScoreAnalysis{
				Method:         "llm",
				CategoryScores: result.Verdict.CategoryScores,
				Strengths:      result.Verdict.Strengths,
				Weaknesses:     result.Verdict.Weaknesses,
				Suggestions:    result.Verdict.Suggestions,
				Identity:       bonus,
			}
		}
		s.logger.Warn("quality scoring degraded to heuristics",
			zap.String("operation", "moderation.scoring"),
			zap.String("reason", result.DegradedReason))
	}

	score, analysis := s.heuristicScore(draft)
	score = clampScore(score + bonus.BonusPoints)
	analysis.Identity = bonus
	return score, analysis
}

func (s *Scorer) heuristicScore(draft papers.Draft) (int, ScoreAnalysis) {
	content := draft.Title + "\n" + draft.Abstract
	signals := map[string]bool{}
	score := 0

	if len(draft.Abstract) > minAbstractLength {
		score += pointsAbstract
		signals["has_abstract"] = true
	}

	for _, section := range sectionKeywords {
		if section.pattern.MatchString(content) {
			score += section.points
			signals[section.signal] = true
		}
	}

	if draft.CodeURL != "" || draft.DataURL != "" {
		score += pointsCodeOrData
		signals["has_code"] = true
	}

	wordCount := len(strings.Fields(content))
	if wordCount > sufficientWordCount {
		score += pointsLength
		signals["sufficient_length"] = true
	}

	return score, ScoreAnalysis{
		Method:    "heuristic",
		Signals:   signals,
		WordCount: wordCount,
	}
}

// identityBonus classifies the submitter and totals the bonus points.
func identityBonus(submitter users.User) IdentityBonus {
	class := users.ClassifyEmailDomain(submitter.Email)
	bonus := IdentityBonus{
		Verified:    submitter.IsVerified,
		EmailDomain: emailDomain(submitter.Email),
		DomainClass: class,
	}
	if submitter.IsVerified {
		bonus.BonusPoints += bonusVerifiedEmail
	}
	switch class {
	case users.DomainClassAcademic:
		bonus.BonusPoints += bonusAcademic
	case users.DomainClassResearchOrg:
		bonus.BonusPoints += bonusResearchOrg
	}
	return bonus
}

func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
