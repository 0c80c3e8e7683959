package embedding

import (
	"context"
	"math"
	"testing"
)

func TestTFIDFFitsOnFirstBatch(t *testing.T) {
	e := NewTFIDF(0)
	ctx := context.Background()

	corpus := []string{
		"kubernetes orchestrates containers across nodes",
		"containers package applications with their dependencies",
		"postgres stores relational data",
	}
	vecs, err := e.Embed(ctx, corpus)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != len(corpus) {
		t.Fatalf("got %d vectors, want %d", len(vecs), len(corpus))
	}
	if !e.fitted {
		t.Fatal("first Embed must fit the vocabulary")
	}
	vocabSize := len(e.vocabulary)
	if vocabSize == 0 {
		t.Fatal("vocabulary is empty after fitting")
	}

	// Later batches with unseen terms must not grow the vocabulary.
	if _, err := e.Embed(ctx, []string{"entirely novel terminology appears here"}); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(e.vocabulary) != vocabSize {
		t.Errorf("vocabulary grew from %d to %d after fitting", vocabSize, len(e.vocabulary))
	}
}

func TestTFIDFFixedDimension(t *testing.T) {
	e := NewTFIDF(0)
	if e.Dim() != 384 {
		t.Fatalf("default dimension = %d, want 384", e.Dim())
	}

	// Dim is stable before and after fitting, regardless of corpus size.
	vecs, err := e.Embed(context.Background(), []string{"only two words", "three little words"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	for i, v := range vecs {
		if len(v) != 384 {
			t.Errorf("vector %d has length %d, want 384", i, len(v))
		}
	}
	if e.Dim() != 384 {
		t.Errorf("dimension changed to %d after fitting", e.Dim())
	}
}

func TestTFIDFDiscriminatesTerms(t *testing.T) {
	e := NewTFIDF(0)
	ctx := context.Background()

	docs := []string{
		"general text describing common things like weather clouds rain",
		"technical text mentioning kubernetes deployment strategies",
	}
	vecs, err := e.Embed(ctx, docs)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	qvecs, err := e.Embed(ctx, []string{"kubernetes deployment"})
	if err != nil {
		t.Fatalf("Embed query: %v", err)
	}
	q := qvecs[0]

	simGeneral := cosine(q, vecs[0])
	simTechnical := cosine(q, vecs[1])
	if simTechnical <= simGeneral {
		t.Errorf("query about kubernetes should score the technical doc higher: %f <= %f",
			simTechnical, simGeneral)
	}
}

func TestTFIDFUnknownTermsYieldUnitVector(t *testing.T) {
	e := NewTFIDF(0)
	e.Fit([]string{"known words only"})

	vecs, err := e.Embed(context.Background(), []string{"zzz qqq xxx"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	// No vocabulary hits: vectorize still returns a unit vector so distance
	// math stays finite.
	if n := norm(vecs[0]); math.Abs(n-1) > 1e-5 {
		t.Errorf("vector norm %f, want 1", n)
	}
}

func TestTFIDFVocabularyCap(t *testing.T) {
	e := NewTFIDF(4)
	e.Fit([]string{
		"apple banana cherry date elderberry fig grape",
		"apple banana cherry date",
		"apple banana",
	})
	if len(e.vocabulary) > 4 {
		t.Errorf("vocabulary size %d exceeds cap 4", len(e.vocabulary))
	}
	// Highest document frequency wins a slot.
	if _, ok := e.vocabulary["apple"]; !ok {
		t.Error("most frequent term missing from capped vocabulary")
	}
}

func cosine(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
