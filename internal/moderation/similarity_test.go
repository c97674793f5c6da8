package moderation

import "testing"

func TestTextSimilarityIdenticalTitles(t *testing.T) {
	if sim := TextSimilarity("Deep Learning for Protein Folding", "deep learning for protein folding"); sim != 1 {
		t.Fatalf("expected identical titles to score 1, got %f", sim)
	}
}

func TestTextSimilarityDisjointTitles(t *testing.T) {
	if sim := TextSimilarity("graph neural networks", "bayesian survival analysis"); sim != 0 {
		t.Fatalf("expected disjoint titles to score 0, got %f", sim)
	}
}

func TestTextSimilarityPartialOverlap(t *testing.T) {
	sim := TextSimilarity("alpha beta gamma delta", "alpha beta gamma epsilon")
	if sim != 0.6 {
		t.Fatalf("expected 3/5 overlap to score 0.6, got %f", sim)
	}
}

func TestTextSimilarityEmptyInput(t *testing.T) {
	if sim := TextSimilarity("", "anything"); sim != 0 {
		t.Fatalf("expected empty input to score 0, got %f", sim)
	}
	if sim := TextSimilarity("", ""); sim != 0 {
		t.Fatalf("expected two empty inputs to score 0, got %f", sim)
	}
}

func TestTextSimilarityRepeatedWordsCollapse(t *testing.T) {
	// Word sets ignore multiplicity.
	if sim := TextSimilarity("data data data", "data"); sim != 1 {
		t.Fatalf("expected repeated words to collapse, got %f", sim)
	}
}
