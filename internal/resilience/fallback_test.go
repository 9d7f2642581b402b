package resilience

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func newStringGroup(primary string, fallbacks ...string) *FallbackGroup[string] {
	fg := NewFallbackGroup(primary, primary, FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour},
	})
	for _, f := range fallbacks {
		fg.AddFallback(f, f)
	}
	return fg
}

func TestFallbackGroup_PrimaryServesFirst(t *testing.T) {
	t.Parallel()

	fg := newStringGroup("primary", "secondary")
	got, err := ExecuteWithResult(fg, func(v string) (string, error) {
		return "served by " + v, nil
	})
	if err != nil {
		t.Fatalf("ExecuteWithResult: %v", err)
	}
	if got != "served by primary" {
		t.Fatalf("result = %q, want served by primary", got)
	}
}

func TestFallbackGroup_FailsOverInOrder(t *testing.T) {
	t.Parallel()

	fg := newStringGroup("primary", "second", "third")
	var tried []string
	got, err := ExecuteWithResult(fg, func(v string) (string, error) {
		tried = append(tried, v)
		if v != "third" {
			return "", errBackend
		}
		return v, nil
	})
	if err != nil {
		t.Fatalf("ExecuteWithResult: %v", err)
	}
	if got != "third" {
		t.Fatalf("result = %q, want third", got)
	}
	want := []string{"primary", "second", "third"}
	if len(tried) != len(want) {
		t.Fatalf("tried %v, want %v", tried, want)
	}
	for i := range want {
		if tried[i] != want[i] {
			t.Errorf("tried[%d] = %q, want %q", i, tried[i], want[i])
		}
	}
}

func TestFallbackGroup_AllFail(t *testing.T) {
	t.Parallel()

	fg := newStringGroup("primary", "secondary")
	_, err := ExecuteWithResult(fg, func(string) (string, error) {
		return "", errBackend
	})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
	if !strings.Contains(err.Error(), `"secondary"`) {
		t.Errorf("err = %v, want the last backend named", err)
	}
}

func TestFallbackGroup_SkipsOpenBreaker(t *testing.T) {
	t.Parallel()

	fg := newStringGroup("primary", "secondary")

	// Trip the primary's breaker (MaxFailures = 2).
	for range 2 {
		_, _ = ExecuteWithResult(fg, func(v string) (string, error) {
			if v == "primary" {
				return "", errBackend
			}
			return v, nil
		})
	}

	var tried []string
	got, err := ExecuteWithResult(fg, func(v string) (string, error) {
		tried = append(tried, v)
		return v, nil
	})
	if err != nil {
		t.Fatalf("ExecuteWithResult: %v", err)
	}
	if got != "secondary" {
		t.Fatalf("result = %q, want secondary", got)
	}
	if len(tried) != 1 || tried[0] != "secondary" {
		t.Errorf("tried = %v, want only the secondary", tried)
	}
}

func TestFallbackGroup_SingleBackendStillBreaks(t *testing.T) {
	t.Parallel()

	fg := NewFallbackGroup("only", "only", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour},
	})
	_, _ = ExecuteWithResult(fg, func(string) (string, error) {
		return "", errBackend
	})

	calls := 0
	_, err := ExecuteWithResult(fg, func(string) (string, error) {
		calls++
		return "", nil
	})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed while the breaker is open", err)
	}
	if calls != 0 {
		t.Errorf("backend called %d times behind an open breaker, want 0", calls)
	}
}
