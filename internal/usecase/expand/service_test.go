package expand

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/fitpick/fitpick/internal/domain"
)

type mockCompleter struct {
	queries []string
	err     error
	calls   int
	system  string
	user    string
}

func (m *mockCompleter) CompleteJSON(_ context.Context, _, system, user, _ string, out any) error {
	m.calls++
	m.system = system
	m.user = user
	if m.err != nil {
		return m.err
	}
	*(out.(*queryList)) = queryList{Queries: m.queries}
	return nil
}

func TestExpand_Success(t *testing.T) {
	llm := &mockCompleter{queries: []string{"suit formal", "dress pants", "dress shoes black"}}
	svc := New(llm, zap.NewNop())

	got, err := svc.Expand(context.Background(), "suit for prom")
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(got) != 3 || got[0] != "suit formal" {
		t.Fatalf("unexpected queries: %v", got)
	}
	if llm.user != "suit for prom" {
		t.Errorf("expected raw query as user message, got %q", llm.user)
	}
}

func TestExpand_CapsAtFive(t *testing.T) {
	llm := &mockCompleter{queries: []string{"a", "b", "c", "d", "e", "f", "g"}}
	svc := New(llm, zap.NewNop())

	got, err := svc.Expand(context.Background(), "full wedding outfit")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 5 {
		t.Fatalf("expected cap at 5 queries, got %d", len(got))
	}
}

func TestExpand_MalformedOutputDegradesToEmpty(t *testing.T) {
	llm := &mockCompleter{err: fmt.Errorf("decode: %w", domain.ErrMalformedResponse)}
	svc := New(llm, zap.NewNop())

	got, err := svc.Expand(context.Background(), "suit")
	if err != nil {
		t.Fatalf("malformed output should not be an error, got %v", err)
	}
	if !OutOfDomain(got) {
		t.Fatalf("expected out-of-domain result, got %v", got)
	}
}

func TestExpand_UpstreamFailurePropagates(t *testing.T) {
	llm := &mockCompleter{err: fmt.Errorf("boom: %w", domain.ErrUpstreamUnavailable)}
	svc := New(llm, zap.NewNop())

	_, err := svc.Expand(context.Background(), "suit")
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestOutOfDomain(t *testing.T) {
	cases := []struct {
		name    string
		queries []string
		want    bool
	}{
		{"nil", nil, true},
		{"empty", []string{}, true},
		{"single blank", []string{""}, true},
		{"whitespace only", []string{"  ", "\t"}, true},
		{"real phrase", []string{"suit formal"}, false},
		{"mixed", []string{"", "dress pants"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := OutOfDomain(tc.queries); got != tc.want {
				t.Errorf("OutOfDomain(%v) = %v, want %v", tc.queries, got, tc.want)
			}
		})
	}
}
