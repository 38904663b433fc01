package entertainment

import "testing"

func TestThrottleAllowsFirstFrameImmediately(t *testing.T) {
	tr := NewThrottle(20)
	if !tr.Allow() {
		t.Fatalf("expected first frame to be admitted")
	}
}

func TestThrottleDropsBurstBeyondRate(t *testing.T) {
	tr := NewThrottle(20)
	tr.Allow()
	admitted := 0
	for i := 0; i < 50; i++ {
		if tr.Allow() {
			admitted++
		}
	}
	if admitted > 1 {
		t.Fatalf("expected a tight burst right after the first frame to be mostly dropped, admitted %d", admitted)
	}
}

func TestNewThrottleDefaultsWhenFPSNotPositive(t *testing.T) {
	tr := NewThrottle(0)
	if tr.limiter == nil {
		t.Fatalf("expected a usable limiter with default fps")
	}
}
