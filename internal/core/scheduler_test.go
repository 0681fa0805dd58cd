package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPollRunsUntilDone(t *testing.T) {
	count := 0
	err := Poll(context.Background(), time.Millisecond, func(ctx context.Context) (bool, error) {
		count++
		return count == 3, nil
	})
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 steps, got %d", count)
	}
}

func TestPollStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	count := 0
	err := Poll(context.Background(), time.Millisecond, func(ctx context.Context) (bool, error) {
		count++
		return false, boom
	})
	if !errors.Is(err, boom) || count != 1 {
		t.Fatalf("unexpected result: %v after %d steps", err, count)
	}
}

func TestPollHonorsContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := Poll(ctx, 5*time.Millisecond, func(ctx context.Context) (bool, error) {
		return false, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
