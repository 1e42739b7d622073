package validate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/fitpick/fitpick/internal/domain"
)

type mockVision struct {
	answer bool
	reason string
	err    error
	prompt string
	image  string
	calls  int
}

func (m *mockVision) CompleteVisionJSON(_ context.Context, _, prompt, imageB64, _ string, out any) error {
	m.calls++
	m.prompt = prompt
	m.image = imageB64
	if m.err != nil {
		return m.err
	}
	*(out.(*verdict)) = verdict{Answer: m.answer, Reason: m.reason}
	return nil
}

type mockFetcher struct {
	encoded string
	err     error
	lastURL string
}

func (m *mockFetcher) FetchAndEncode(_ context.Context, url string) (string, error) {
	m.lastURL = url
	return m.encoded, m.err
}

func sampleProduct() domain.Product {
	return domain.Product{
		Title:         "Slim Fit Navy Suit",
		AverageRating: 4.5,
		RatingNumber:  120,
		Price:         199.99,
		Store:         "TailorCo",
		Thumbnail:     "http://img/suit.jpg",
	}
}

func TestValidate_Approves(t *testing.T) {
	llm := &mockVision{answer: true, reason: "formal suit fits a prom query"}
	fetcher := &mockFetcher{encoded: "aW1n"}
	v := NewValidator(llm, fetcher, zap.NewNop())

	ok, err := v.Validate(context.Background(), "suit for prom", sampleProduct())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !ok {
		t.Fatal("expected approval")
	}
	if fetcher.lastURL != "http://img/suit.jpg" {
		t.Errorf("expected thumbnail fetch, got %q", fetcher.lastURL)
	}
	if llm.image != "aW1n" {
		t.Errorf("expected encoded image forwarded, got %q", llm.image)
	}
	if !strings.Contains(llm.prompt, "suit for prom") || !strings.Contains(llm.prompt, "Slim Fit Navy Suit") {
		t.Errorf("prompt missing query or title:\n%s", llm.prompt)
	}
	if !strings.Contains(llm.prompt, "$199.99") {
		t.Errorf("prompt missing price:\n%s", llm.prompt)
	}
}

func TestValidate_ImageFetchFailure(t *testing.T) {
	llm := &mockVision{answer: true}
	fetcher := &mockFetcher{err: fmt.Errorf("get: %w", domain.ErrImageFetch)}
	v := NewValidator(llm, fetcher, zap.NewNop())

	ok, err := v.Validate(context.Background(), "suit", sampleProduct())
	if ok {
		t.Fatal("expected rejection on fetch failure")
	}
	if !errors.Is(err, domain.ErrImageFetch) {
		t.Fatalf("expected ErrImageFetch, got %v", err)
	}
	if llm.calls != 0 {
		t.Errorf("model must not be called without an image, got %d calls", llm.calls)
	}
}

func TestValidate_UpstreamFailure(t *testing.T) {
	llm := &mockVision{err: fmt.Errorf("boom: %w", domain.ErrUpstreamUnavailable)}
	v := NewValidator(llm, &mockFetcher{encoded: "aW1n"}, zap.NewNop())

	ok, err := v.Validate(context.Background(), "suit", sampleProduct())
	if ok {
		t.Fatal("expected rejection on upstream failure")
	}
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}
