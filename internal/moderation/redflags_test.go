package moderation

import (
	"context"
	"strings"
	"testing"

	"github.com/archivara/backend/internal/papers"
)

func TestDetectTrustsConfidentBabbleVerdict(t *testing.T) {
	judge := degradedJudge()
	judge.babble = BabbleResult{Verdict: BabbleVerdict{
		IsBabble:         true,
		Confidence:       0.9,
		RedFlags:         []string{"generic filler throughout"},
		DetectedPatterns: []string{"a", "b", "c", "d", "e"},
	}}
	detector := NewDetector(judge, nil)

	flags := detector.Detect(context.Background(), researchDraft(), nil)

	// One red flag plus at most three detected patterns.
	if len(flags) != 4 {
		t.Fatalf("expected 4 flags, got %d: %v", len(flags), flags)
	}
	if flags[0] != "generic filler throughout" {
		t.Fatalf("expected judge red flag first, got %q", flags[0])
	}
	for _, flag := range flags[1:] {
		if !strings.HasPrefix(flag, "LLM pattern: ") {
			t.Fatalf("expected pattern flag, got %q", flag)
		}
	}
}

func TestDetectIgnoresLowConfidenceBabbleVerdict(t *testing.T) {
	judge := degradedJudge()
	judge.babble = BabbleResult{Verdict: BabbleVerdict{
		IsBabble:   true,
		Confidence: 0.4,
		RedFlags:   []string{"should not appear"},
	}}
	detector := NewDetector(judge, nil)

	flags := detector.Detect(context.Background(), researchDraft(), nil)
	for _, flag := range flags {
		if flag == "should not appear" {
			t.Fatalf("low-confidence verdict leaked into flags: %v", flags)
		}
	}
}

func TestDetectFallsBackToPatternsWhenDegraded(t *testing.T) {
	detector := NewDetector(degradedJudge(), nil)
	draft := papers.Draft{
		Title:    "A Tapestry of Ideas",
		Abstract: "We delve into the topic. It is important to note the implications for the field.",
	}

	flags := detector.Detect(context.Background(), draft, nil)
	found := false
	for _, flag := range flags {
		if strings.HasPrefix(flag, "LLM babble pattern detected") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected babble pattern flags, got %v", flags)
	}
}

func TestDetectFlagsMissingMethodology(t *testing.T) {
	detector := NewDetector(nil, nil)
	draft := papers.Draft{
		Title: "Seasonal River Discharge Trends",
		Abstract: "We measured seasonal river discharge for forty stations over twelve years " +
			"and compared the records with regional snowpack depth. The observed trends show " +
			"earlier spring peaks and lower summer flows in most basins, with the largest " +
			"shifts occurring at higher elevations.",
	}

	flags := detector.Detect(context.Background(), draft, nil)
	if len(flags) != 1 || flags[0] != "No clear methodology mentioned" {
		t.Fatalf("expected only the methodology flag, got %v", flags)
	}
}

func TestDetectCleanResearchDraft(t *testing.T) {
	detector := NewDetector(nil, nil)
	if flags := detector.Detect(context.Background(), researchDraft(), nil); len(flags) != 0 {
		t.Fatalf("expected no flags, got %v", flags)
	}
}
