package multi

import (
	"context"
	"errors"
	"testing"

	"github.com/crimson-sun/reviewclf/internal/model"
	"github.com/crimson-sun/reviewclf/internal/sentiment"
)

// mockOutput records calls for test assertions.
type mockOutput struct {
	preds  []model.Prediction
	closed bool
	err    error // if set, Write returns this error
}

func (m *mockOutput) Write(_ context.Context, p model.Prediction) error {
	m.preds = append(m.preds, p)
	return m.err
}

func (m *mockOutput) Close() error {
	m.closed = true
	return m.err
}

func testPrediction(text string, rating int) model.Prediction {
	return model.Prediction{
		Text:      text,
		Rating:    rating,
		Sentiment: sentiment.FromRating(rating),
		Class:     rating - 1,
		Probs:     []float64{0.2, 0.2, 0.2, 0.2, 0.2},
	}
}

func TestFanOutDeliversToAll(t *testing.T) {
	a := &mockOutput{}
	b := &mockOutput{}
	c := &mockOutput{}
	m := New(a, b, c)

	if err := m.Write(context.Background(), testPrediction("무난함", 3)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, out := range []*mockOutput{a, b, c} {
		if len(out.preds) != 1 {
			t.Errorf("output %d: got %d predictions, want 1", i, len(out.preds))
		}
		if out.preds[0].Sentiment != sentiment.Neutral {
			t.Errorf("output %d: got sentiment %v, want neutral", i, out.preds[0].Sentiment)
		}
	}
}

func TestErrorDoesNotPreventDelivery(t *testing.T) {
	failing := &mockOutput{err: errors.New("disk full")}
	healthy := &mockOutput{}
	m := New(failing, healthy)

	err := m.Write(context.Background(), testPrediction("최악", 1))
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	// Healthy output still received the prediction despite earlier failure.
	if len(healthy.preds) != 1 {
		t.Fatalf("healthy output got %d predictions, want 1", len(healthy.preds))
	}

	// Failing output also received the call (error returned after).
	if len(failing.preds) != 1 {
		t.Fatalf("failing output got %d predictions, want 1", len(failing.preds))
	}
}

func TestCloseCallsAllOutputs(t *testing.T) {
	a := &mockOutput{}
	b := &mockOutput{}
	m := New(a, b)

	if err := m.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !a.closed || !b.closed {
		t.Errorf("Close not called on all outputs: a=%v b=%v", a.closed, b.closed)
	}
}

func TestCloseCollectsErrors(t *testing.T) {
	a := &mockOutput{err: errors.New("err-a")}
	b := &mockOutput{err: errors.New("err-b")}
	m := New(a, b)

	err := m.Close()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !a.closed || !b.closed {
		t.Error("Close should be called on all outputs even when errors occur")
	}
}

func TestSingleOutputIdentity(t *testing.T) {
	inner := &mockOutput{}
	m := New(inner)

	if err := m.Write(context.Background(), testPrediction("최고", 5)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(inner.preds) != 1 || inner.preds[0].Rating != 5 {
		t.Error("single-output Multi did not behave identically to wrapped output")
	}
	if !inner.closed {
		t.Error("single-output Multi did not close inner output")
	}
}
