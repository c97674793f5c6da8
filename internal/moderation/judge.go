package moderation

import "context"

// PaperContent is the material sent to the judge for a single verdict.
// Document carries raw PDF bytes when the caller has them; the judge may
// ignore it.
type PaperContent struct {
	Title    string
	Abstract string
	Document []byte
	Meta     map[string]any
}

// QualityVerdict is the judge's rubric-based quality assessment.
type QualityVerdict struct {
	QualityScore   int            `json:"quality_score"`
	CategoryScores map[string]int `json:"category_scores"`
	Strengths      []string       `json:"strengths"`
	Weaknesses     []string       `json:"weaknesses"`
	Suggestions    []string       `json:"suggestions"`
}

// BabbleVerdict is the judge's low-substance AI-generated-content call.
type BabbleVerdict struct {
	IsBabble         bool     `json:"is_llm_babble"`
	Confidence       float64  `json:"confidence"`
	RedFlags         []string `json:"red_flags"`
	Reasoning        string   `json:"reasoning"`
	DetectedPatterns []string `json:"detected_patterns"`
}

// SpamVerdict is the judge's spam/not-spam call.
type SpamVerdict struct {
	IsSpam     bool     `json:"is_spam"`
	Confidence float64  `json:"confidence"`
	Reasons    []string `json:"reasons"`
}

// QualityResult tags a quality verdict as usable or degraded. A degraded
// result means the delegate was unreachable, timed out, or returned
// unparseable output; callers fall back to heuristics and never treat it
// as an error.
type QualityResult struct {
	Verdict        QualityVerdict
	Degraded       bool
	DegradedReason string
}

// BabbleResult tags a babble verdict as usable or degraded.
type BabbleResult struct {
	Verdict        BabbleVerdict
	Degraded       bool
	DegradedReason string
}

// SpamResult tags a spam verdict as usable or degraded.
type SpamResult struct {
	Verdict        SpamVerdict
	Degraded       bool
	DegradedReason string
}

// Judge delegates moderation judgments to an external LLM service. Every
// call carries a hard timeout through its context and reports failure as
// a degraded result rather than an error.
type Judge interface {
	AnalyzeQuality(ctx context.Context, content PaperContent) QualityResult
	DetectBabble(ctx context.Context, content PaperContent) BabbleResult
	CheckSpam(ctx context.Context, content PaperContent) SpamResult
}

func degradedQuality(reason string) QualityResult {
	return QualityResult{Degraded: true, DegradedReason: reason}
}

func degradedBabble(reason string) BabbleResult {
	return BabbleResult{Degraded: true, DegradedReason: reason}
}

func degradedSpam(reason string) SpamResult {
	return SpamResult{Degraded: true, DegradedReason: reason}
}
