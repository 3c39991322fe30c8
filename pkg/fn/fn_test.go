package fn

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestResult_Basics(t *testing.T) {
	ok := Ok(7)
	if !ok.IsOk() || ok.IsErr() {
		t.Error("Ok result misreported")
	}
	if v, _ := ok.Unwrap(); v != 7 {
		t.Errorf("expected 7, got %d", v)
	}

	boom := errors.New("boom")
	bad := Err[int](boom)
	if bad.IsOk() {
		t.Error("Err result misreported")
	}
	if bad.UnwrapOr(42) != 42 {
		t.Error("UnwrapOr did not fall back")
	}
	if _, err := FromPair(0, boom).Unwrap(); !errors.Is(err, boom) {
		t.Error("FromPair lost the error")
	}
}

func TestThen_ShortCircuits(t *testing.T) {
	calls := 0
	first := func(_ context.Context, s string) Result[int] {
		return Errf[int]("stage one failed on %q", s)
	}
	second := func(_ context.Context, n int) Result[int] {
		calls++
		return Ok(n * 2)
	}

	r := Then(first, second)(context.Background(), "in")
	if r.IsOk() {
		t.Fatal("expected error result")
	}
	if calls != 0 {
		t.Errorf("second stage ran %d times after failure", calls)
	}
}

func TestCollect(t *testing.T) {
	boom := errors.New("boom")
	r := Collect([]Result[int]{Ok(1), Err[int](boom), Ok(3)})
	if _, err := r.Unwrap(); !errors.Is(err, boom) {
		t.Errorf("expected first error, got %v", err)
	}

	vals, err := Collect([]Result[int]{Ok(1), Ok(2)}).Unwrap()
	if err != nil || len(vals) != 2 || vals[1] != 2 {
		t.Errorf("unexpected collect result: %v %v", vals, err)
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	attempts := 0
	opts := RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: time.Millisecond}
	r := Retry(context.Background(), opts, func(context.Context) Result[string] {
		attempts++
		if attempts < 3 {
			return Errf[string]("attempt %d", attempts)
		}
		return Ok("done")
	})
	if v, err := r.Unwrap(); err != nil || v != "done" {
		t.Fatalf("unexpected result: %v %v", v, err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	attempts := 0
	opts := RetryOpts{MaxAttempts: 2, InitialWait: time.Millisecond, MaxWait: time.Millisecond}
	r := Retry(context.Background(), opts, func(context.Context) Result[int] {
		attempts++
		return Errf[int]("always fails")
	})
	if r.IsOk() {
		t.Fatal("expected failure after exhausting attempts")
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opts := RetryOpts{MaxAttempts: 5, InitialWait: time.Minute, MaxWait: time.Minute}
	r := Retry(ctx, opts, func(context.Context) Result[int] {
		return Errf[int]("fail")
	})
	if _, err := r.Unwrap(); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestParMapResult_PreservesOrder(t *testing.T) {
	items := []int{5, 4, 3, 2, 1}
	results := ParMapResult(items, 2, func(n int) Result[int] {
		time.Sleep(time.Duration(n) * time.Millisecond)
		return Ok(n * 10)
	})
	vals, err := Collect(results).Unwrap()
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range vals {
		if v != items[i]*10 {
			t.Errorf("position %d: got %d, want %d", i, v, items[i]*10)
		}
	}
}

func TestBatch(t *testing.T) {
	got := Batch([]int{1, 2, 3, 4, 5}, 2)
	if len(got) != 3 || len(got[0]) != 2 || len(got[2]) != 1 {
		t.Errorf("unexpected batches: %v", got)
	}
	if Batch([]int{1}, 0) != nil {
		t.Error("expected nil for non-positive batch size")
	}
}
