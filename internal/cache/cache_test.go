package cache

import (
	"errors"
	"testing"
	"time"
)

func TestGetOrComputeComputesOnce(t *testing.T) {
	c := New(time.Minute)
	key := Key("AAA", "BBB", "0-100-10", 0.01, 0.04)

	calls := 0
	compute := func() ([]float64, error) {
		calls++
		return []float64{1, 2, 3}, nil
	}

	first, err := c.GetOrCompute(key, compute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := c.GetOrCompute(key, compute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if calls != 1 {
		t.Errorf("expected a single computation, got %d", calls)
	}
	if len(first) != 3 || len(second) != 3 {
		t.Errorf("unexpected path lengths: %d, %d", len(first), len(second))
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 cached path, got %d", c.Len())
	}
}

func TestGetOrComputeDoesNotCacheErrors(t *testing.T) {
	c := New(time.Minute)
	key := Key("AAA", "BBB", "0-100-10", 0.01, 0.04)

	failure := errors.New("filter diverged")
	calls := 0
	_, err := c.GetOrCompute(key, func() ([]float64, error) {
		calls++
		return nil, failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("expected the compute error back, got %v", err)
	}

	// A later attempt must compute again: failures are transient per key.
	path, err := c.GetOrCompute(key, func() ([]float64, error) {
		calls++
		return []float64{9}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected recomputation after an error, got %d calls", calls)
	}
	if len(path) != 1 || path[0] != 9 {
		t.Errorf("unexpected path %v", path)
	}
}

func TestKeyDistinguishesParameters(t *testing.T) {
	base := Key("AAA", "BBB", "0-100-10", 0.01, 0.04)

	variants := []string{
		Key("BBB", "AAA", "0-100-10", 0.01, 0.04), // direction matters
		Key("AAA", "BBB", "0-200-10", 0.01, 0.04), // window matters
		Key("AAA", "BBB", "0-100-10", 0.02, 0.04), // q matters
		Key("AAA", "BBB", "0-100-10", 0.01, 0.05), // r matters
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d collides with the base key %q", i, base)
		}
	}

	if Key("AAA", "BBB", "0-100-10", 0.01, 0.04) != base {
		t.Error("identical inputs must produce identical keys")
	}
}
