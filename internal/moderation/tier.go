package moderation

import "github.com/archivara/backend/internal/papers"

// Tier thresholds and weights for the visibility assignment.
const (
	flagPenalty       = 10
	netVoteWeight     = 2
	rawScoreCeiling   = 30
	mainScoreCeiling  = 70
	frontpageNetVotes = 5
)

// EffectiveScore folds community feedback into the quality score:
// quality − 10·flags + 2·(upvotes − downvotes).
func EffectiveScore(paper papers.Paper) int {
	return paper.QualityScore - flagPenalty*paper.FlagCount + netVoteWeight*paper.NetVotes()
}

// AssignTier derives the visibility tier from the paper's current state.
// It is a pure function; the persisted tier is a cache of its result and
// must be recomputed whenever any input field changes. A paper held for
// review never rises above raw, regardless of score.
func AssignTier(paper papers.Paper) papers.VisibilityTier {
	if paper.BaselineStatus == papers.BaselineStatusReject {
		return papers.VisibilityTierHidden
	}

	score := EffectiveScore(paper)

	switch {
	case score < rawScoreCeiling || paper.NeedsReview:
		return papers.VisibilityTierRaw
	case score < mainScoreCeiling:
		return papers.VisibilityTierMain
	case paper.NetVotes() >= frontpageNetVotes:
		return papers.VisibilityTierFrontpage
	default:
		return papers.VisibilityTierMain
	}
}
