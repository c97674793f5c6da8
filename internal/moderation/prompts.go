package moderation

import (
	"encoding/json"
	"fmt"
	"strings"
)

func buildQualityPrompt(content PaperContent) string {
	var metaSection string
	if len(content.Meta) > 0 {
		if encoded, err := json.MarshalIndent(content.Meta, "", "  "); err == nil {
			metaSection = fmt.Sprintf("\n\nMetadata: %s", encoded)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, `You are an expert academic paper reviewer. Analyze this research paper submission and provide a quality assessment.

Title: %s

Abstract:
%s%s
`, content.Title, content.Abstract, metaSection)
	if len(content.Document) > 0 {
		b.WriteString("\nPlease also analyze the full PDF document provided to get a complete understanding of the paper's quality.\n")
	}
	b.WriteString(`
Rate the paper on a scale of 0-100 based on these criteria:
1. Abstract quality (clarity, completeness) - 15 points
2. Research methodology mentioned - 15 points
3. Clear research question/objectives - 10 points
4. Evidence of results/findings - 15 points
5. Proper structure and organization - 10 points
6. Novelty/contribution to field - 15 points
7. Technical depth and rigor - 10 points
8. Writing quality and clarity - 10 points

Respond ONLY with valid JSON in this exact format:
{
  "quality_score": <number 0-100>,
  "category_scores": {
    "abstract_quality": <0-15>,
    "methodology": <0-15>,
    "research_question": <0-10>,
    "results": <0-15>,
    "structure": <0-10>,
    "novelty": <0-15>,
    "technical_depth": <0-10>,
    "writing_quality": <0-10>
  },
  "strengths": ["<strength 1>", "<strength 2>"],
  "weaknesses": ["<weakness 1>", "<weakness 2>"],
  "suggestions": ["<suggestion 1>", "<suggestion 2>"]
}`)
	return b.String()
}

func buildBabblePrompt(content PaperContent) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are an expert at detecting AI-generated academic content that lacks substance (often called "LLM babble").

Analyze this paper for signs of low-quality AI generation:

Title: %s

Abstract:
%s
`, content.Title, content.Abstract)
	if len(content.Document) > 0 {
		b.WriteString("\nPlease also analyze the full PDF document provided to detect any patterns of low-quality AI generation throughout the paper.\n")
	}
	b.WriteString(`
Look for these red flags:
1. Excessive buzzwords without substance ("delve", "tapestry", "paradigm shift", "nuanced")
2. Generic/vague statements that don't convey specific information
3. Repetitive phrasing or circular reasoning
4. Lack of concrete methodology or results
5. Formulaic structure typical of AI (e.g., "In conclusion, it is clear that...")
6. High-level claims without supporting details
7. Buzzword density too high relative to actual content

Respond ONLY with valid JSON in this exact format:
{
  "is_llm_babble": <true/false>,
  "confidence": <0.0-1.0>,
  "red_flags": ["<flag 1>", "<flag 2>"],
  "reasoning": "<brief explanation>",
  "detected_patterns": ["<pattern 1>", "<pattern 2>"]
}`)
	return b.String()
}

func buildSpamPrompt(content PaperContent) string {
	return fmt.Sprintf(`You are a spam detection expert for academic paper submissions.

Analyze if this is spam/non-academic content:

Title: %s

Abstract:
%s

Check for:
1. Commercial content (ads, products, services)
2. Excessive URLs or links
3. Promotional language
4. Non-research content
5. Gibberish or random text
6. Off-topic content

Respond ONLY with valid JSON:
{
  "is_spam": <true/false>,
  "confidence": <0.0-1.0>,
  "reasons": ["<reason 1>", "<reason 2>"]
}`, content.Title, content.Abstract)
}
