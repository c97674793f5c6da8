package moderation

import (
	"context"
	"fmt"

	"github.com/archivara/backend/internal/papers"
	"go.uber.org/zap"
)

const (
	// babbleConfidenceGate is the judge confidence above which a positive
	// babble verdict is trusted outright.
	babbleConfidenceGate = 0.6
	// maxDetectedPatterns bounds how many judge-detected patterns are
	// appended to the flag list.
	maxDetectedPatterns = 3

	maxBuzzwordDensity    = 0.05
	minUniqueWordRatio    = 0.3
	methodologyCheckFloor = 200
)

// Detector finds red flags indicating low-substance or AI-generated text.
// A confident judge verdict takes precedence over the heuristics; judge
// failure or an inconclusive verdict falls through to the pattern checks.
type Detector struct {
	judge  Judge
	logger *zap.Logger
}

// NewDetector constructs the red-flag detector. judge may be nil.
func NewDetector(judge Judge, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{judge: judge, logger: logger}
}

// Detect returns the ordered list of red-flag descriptions for the draft.
func (d *Detector) Detect(ctx context.Context, draft papers.Draft, document []byte) []string {
	content := draft.Title + " " + draft.Abstract

	if d.judge != nil {
		result := d.judge.DetectBabble(ctx, PaperContent{
			Title:    draft.Title,
			Abstract: draft.Abstract,
			Document: document,
		})
		if result.Degraded {
			d.logger.Warn("red flag detection degraded to patterns",
				zap.String("operation", "moderation.redflags"),
				zap.String("reason", result.DegradedReason))
		} else if result.Verdict.IsBabble && result.Verdict.Confidence > babbleConfidenceGate {
			flags := append([]string(nil), result.Verdict.RedFlags...)
			patterns := result.Verdict.DetectedPatterns
			if len(patterns) > maxDetectedPatterns {
				patterns = patterns[:maxDetectedPatterns]
			}
			for _, pattern := range patterns {
				flags = append(flags, fmt.Sprintf("LLM pattern: %s", pattern))
			}
			if len(flags) > 0 {
				return flags
			}
		}
	}

	var flags []string
	flags = append(flags, babbleIndicators(content)...)

	if density := buzzwordDensity(content); density > maxBuzzwordDensity {
		flags = append(flags, fmt.Sprintf("High buzzword density: %.2f%%", density*100))
	}

	if ratio := uniqueWordRatio(content); ratio < minUniqueWordRatio {
		flags = append(flags, fmt.Sprintf("High repetition: %.0f%% repeated words", (1-ratio)*100))
	}

	if len(draft.Abstract) > methodologyCheckFloor && !mentionsMethodology(content) {
		flags = append(flags, "No clear methodology mentioned")
	}

	return flags
}
