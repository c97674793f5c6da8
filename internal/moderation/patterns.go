package moderation

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern families for the deterministic checks. These are intentionally
// blunt; the LLM judge refines them when it is reachable.
var (
	spamPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(buy|sell|discount|offer|click here|limited time)\b`),
		regexp.MustCompile(`https?://[^\s]+`),
		regexp.MustCompile(`(?i)\b(viagra|casino|lottery|prize|winner)\b`),
	}

	greetingPattern = regexp.MustCompile(`(?i)^(hello|hi|test|testing)[\s\w]*$`)

	babblePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(delve|tapestry|realm|leverage|nuance|paradigm shift)\b`),
		regexp.MustCompile(`(?i)(it is important to note|as we can see|in conclusion, it is clear)`),
	}

	methodologyPattern = regexp.MustCompile(`(?i)\b(method|methodology|approach|technique|procedure)\b`)
)

// buzzwords counted for the density fallback check.
var buzzwords = []string{
	"ai", "machine learning", "deep learning", "neural network",
	"algorithm", "optimization", "innovative", "novel",
}

// describePattern renders a regex for an issue string without dumping the
// whole expression.
func describePattern(re *regexp.Regexp) string {
	expr := re.String()
	if len(expr) > 40 {
		expr = expr[:40] + "..."
	}
	return expr
}

// spamIndicators returns one issue string per spam pattern family that
// matches the content.
func spamIndicators(content string) []string {
	var indicators []string
	for _, re := range spamPatterns {
		if re.MatchString(content) {
			indicators = append(indicators, fmt.Sprintf("Pattern matched: %s", describePattern(re)))
		}
	}
	return indicators
}

// babbleIndicators returns one issue string per stylistic babble pattern
// that matches the content. Repeated five-word phrases are detected with a
// window scan since RE2 has no backreferences.
func babbleIndicators(content string) []string {
	var indicators []string
	for _, re := range babblePatterns {
		if re.MatchString(content) {
			indicators = append(indicators, fmt.Sprintf("LLM babble pattern detected: %s", describePattern(re)))
		}
	}
	if hasRepeatedPhrase(content, 5) {
		indicators = append(indicators, "LLM babble pattern detected: repeated phrase")
	}
	return indicators
}

// hasRepeatedPhrase reports whether any n-word phrase occurs back to back.
func hasRepeatedPhrase(content string, n int) bool {
	words := strings.Fields(strings.ToLower(content))
	if len(words) < 2*n {
		return false
	}
	for i := 0; i+2*n <= len(words); i++ {
		match := true
		for j := 0; j < n; j++ {
			if words[i+j] != words[i+n+j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// buzzwordDensity is the fraction of the word count accounted for by
// buzzword occurrences.
func buzzwordDensity(content string) float64 {
	words := strings.Fields(content)
	if len(words) == 0 {
		return 0
	}
	lower := strings.ToLower(content)
	count := 0
	for _, word := range buzzwords {
		count += strings.Count(lower, word)
	}
	return float64(count) / float64(len(words))
}

// uniqueWordRatio is the fraction of distinct words in the content.
func uniqueWordRatio(content string) float64 {
	words := strings.Fields(strings.ToLower(content))
	if len(words) == 0 {
		return 1
	}
	seen := make(map[string]struct{}, len(words))
	for _, word := range words {
		seen[word] = struct{}{}
	}
	return float64(len(seen)) / float64(len(words))
}

// mentionsMethodology reports whether any methodology-indicating keyword
// appears in the content.
func mentionsMethodology(content string) bool {
	return methodologyPattern.MatchString(content)
}

// looksLikeGreeting reports whether the content is a canned greeting/test
// message rather than research text.
func looksLikeGreeting(content string) bool {
	return greetingPattern.MatchString(strings.TrimSpace(content))
}
