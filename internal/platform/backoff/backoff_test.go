package backoff_test

import (
	"testing"
	"time"

	"github.com/fortuna/oddspipeline/internal/platform/backoff"
)

func TestPolicyExponentialWithCap(t *testing.T) {
	p := backoff.NewPolicy(60 * time.Second)

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		32 * time.Second,
		60 * time.Second, // 2^6 = 64s, capped to 60s
		60 * time.Second,
	}

	for i, w := range want {
		got := p.Next()
		if got != w {
			t.Errorf("attempt %d: got %v, want %v", i, got, w)
		}
	}
}

func TestPolicyResetsAfterCleanClose(t *testing.T) {
	p := backoff.NewPolicy(60 * time.Second)
	p.Next()
	p.Next()
	p.Next()
	p.Reset()

	got := p.Next()
	if got != 1*time.Second {
		t.Errorf("after reset, got %v, want 1s", got)
	}
}
