package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func failing(context.Context) error { return errBoom }

func succeeding(context.Context) error { return nil }

func newTestBreaker(threshold int, timeout time.Duration) (*Breaker, *time.Time) {
	b := NewBreaker(BreakerOpts{FailThreshold: threshold, Timeout: timeout})
	current := time.Now()
	b.now = func() time.Time { return current }
	return b, &current
}

func TestBreakerTripsAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := b.Call(ctx, failing); !errors.Is(err, errBoom) {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %s, want open", b.State())
	}
	if err := b.Call(ctx, failing); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("open breaker returned %v", err)
	}
}

func TestBreakerSuccessResetsCount(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)
	ctx := context.Background()

	b.Call(ctx, failing)
	b.Call(ctx, failing)
	b.Call(ctx, succeeding)
	b.Call(ctx, failing)
	b.Call(ctx, failing)

	if b.State() != StateClosed {
		t.Fatalf("state = %s, want closed", b.State())
	}
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	b, clock := newTestBreaker(1, time.Minute)
	ctx := context.Background()

	b.Call(ctx, failing)
	if b.State() != StateOpen {
		t.Fatalf("state = %s, want open", b.State())
	}

	*clock = clock.Add(2 * time.Minute)
	if b.State() != StateHalfOpen {
		t.Fatalf("state = %s, want half-open after timeout", b.State())
	}

	// Failed probe reopens immediately.
	if err := b.Call(ctx, failing); !errors.Is(err, errBoom) {
		t.Fatalf("probe returned %v", err)
	}
	if b.State() != StateOpen {
		t.Fatalf("state after failed probe = %s, want open", b.State())
	}

	// Successful probe closes.
	*clock = clock.Add(2 * time.Minute)
	if err := b.Call(ctx, succeeding); err != nil {
		t.Fatalf("probe returned %v", err)
	}
	if b.State() != StateClosed {
		t.Fatalf("state after good probe = %s, want closed", b.State())
	}
}

func TestBreakerDefaults(t *testing.T) {
	b := NewBreaker(BreakerOpts{})
	if b.opts != DefaultBreakerOpts {
		t.Errorf("opts = %+v", b.opts)
	}
}

func TestStateString(t *testing.T) {
	if StateClosed.String() != "closed" || StateOpen.String() != "open" || StateHalfOpen.String() != "half-open" {
		t.Error("state names wrong")
	}
}
