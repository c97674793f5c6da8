package moderation

import "testing"

func TestSpamIndicatorsFlagsPromotionalContent(t *testing.T) {
	content := "Buy now! Click here for a discount at http://spam.example"
	indicators := spamIndicators(content)
	if len(indicators) != 2 {
		t.Fatalf("expected 2 indicators (promotional terms, url), got %d: %v", len(indicators), indicators)
	}
}

func TestSpamIndicatorsIgnoreResearchText(t *testing.T) {
	if indicators := spamIndicators(researchAbstract); len(indicators) != 0 {
		t.Fatalf("expected no indicators, got %v", indicators)
	}
}

func TestBabbleIndicatorsDetectBuzzphrases(t *testing.T) {
	content := "We delve into a rich tapestry of ideas. It is important to note the implications."
	indicators := babbleIndicators(content)
	if len(indicators) != 2 {
		t.Fatalf("expected 2 indicators, got %d: %v", len(indicators), indicators)
	}
}

func TestHasRepeatedPhrase(t *testing.T) {
	repeated := "the quick brown fox jumps the quick brown fox jumps over the lazy dog"
	if !hasRepeatedPhrase(repeated, 5) {
		t.Fatalf("expected repeated phrase to be detected")
	}
	if hasRepeatedPhrase(researchAbstract, 5) {
		t.Fatalf("expected no repeated phrase in research abstract")
	}
	if hasRepeatedPhrase("too short", 5) {
		t.Fatalf("expected short content to never match")
	}
}

func TestBuzzwordDensity(t *testing.T) {
	if density := buzzwordDensity("deep learning models everywhere"); density <= maxBuzzwordDensity {
		t.Fatalf("expected buzzword-heavy content above the gate, got %f", density)
	}
	if density := buzzwordDensity("some words without buzz content"); density != 0 {
		t.Fatalf("expected zero density, got %f", density)
	}
}

func TestUniqueWordRatio(t *testing.T) {
	if ratio := uniqueWordRatio("same same same same"); ratio != 0.25 {
		t.Fatalf("expected ratio 0.25, got %f", ratio)
	}
	if ratio := uniqueWordRatio(""); ratio != 1 {
		t.Fatalf("expected empty content to report 1, got %f", ratio)
	}
}

func TestLooksLikeGreeting(t *testing.T) {
	for _, content := range []string{"test", "Hello world", "hi there", "testing 123"} {
		if !looksLikeGreeting(content) {
			t.Fatalf("expected %q to look like a greeting", content)
		}
	}
	if looksLikeGreeting(researchAbstract) {
		t.Fatalf("expected research abstract to not look like a greeting")
	}
}

func TestMentionsMethodology(t *testing.T) {
	if !mentionsMethodology("our approach uses sampling") {
		t.Fatalf("expected methodology mention to be detected")
	}
	if mentionsMethodology("we observed forty stations over two years") {
		t.Fatalf("expected no methodology mention")
	}
}
