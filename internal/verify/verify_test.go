package verify

import (
	"image"
	"image/color"
	"testing"
	"time"
)

func TestSamplePlanCoversLoopBoundaries(t *testing.T) {
	// 10s source looped into 60s: boundaries at 10,20,30,40,50 plus
	// intra-loop points at 5 and 25.
	plan := samplePlan(60*time.Second, 10*time.Second, 500*time.Millisecond, 10)

	want := map[time.Duration]bool{
		5 * time.Second:  true,
		25 * time.Second: true,
	}
	for _, ts := range plan {
		delete(want, ts)
	}
	for ts := range want {
		t.Errorf("plan missing intra-loop sample at %v", ts)
	}

	boundaries := 0
	for _, ts := range plan {
		if ts > 0 && ts%(10*time.Second) == 0 {
			boundaries++
		}
	}
	if boundaries == 0 {
		t.Error("plan contains no loop-boundary samples")
	}

	for i := 1; i < len(plan); i++ {
		if plan[i] <= plan[i-1] {
			t.Errorf("plan not strictly increasing: %v", plan)
		}
	}
}

func TestSamplePlanRespectsBudget(t *testing.T) {
	plan := samplePlan(8*time.Hour, 10*time.Second, 500*time.Millisecond, 6)
	if len(plan) != 6 {
		t.Errorf("expected plan capped at 6 samples, got %d", len(plan))
	}
}

func TestSamplePlanNeverSamplesPastEnd(t *testing.T) {
	gap := 500 * time.Millisecond
	plan := samplePlan(10*time.Second, 3*time.Second, gap, 20)
	for _, ts := range plan {
		if ts+gap >= 10*time.Second {
			t.Errorf("sample at %v has no room for its comparison pair", ts)
		}
	}
}

func TestSamplePlanSourceLongerThanTotal(t *testing.T) {
	// A 30s source covering a 10s total has no boundaries; the plan
	// must still produce at least one sampleable point.
	plan := samplePlan(10*time.Second, 30*time.Second, 500*time.Millisecond, 6)
	if len(plan) == 0 {
		t.Fatal("expected at least one sample for an unlooped background")
	}
}

func TestSamplePlanZeroTotal(t *testing.T) {
	if plan := samplePlan(0, 10*time.Second, 500*time.Millisecond, 6); plan != nil {
		t.Errorf("expected nil plan for zero total, got %v", plan)
	}
}

func gradientImage(shift uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 8), uint8(y * 8), shift, 255})
		}
	}
	return img
}

func TestHashPixelsDeterministic(t *testing.T) {
	a := hashPixels(gradientImage(0))
	b := hashPixels(gradientImage(0))
	if a != b {
		t.Error("identical pixel content must fingerprint identically")
	}
}

func TestHashPixelsDistinguishesContent(t *testing.T) {
	a := hashPixels(gradientImage(0))
	b := hashPixels(gradientImage(1))
	if a == b {
		t.Error("different pixel content must fingerprint differently")
	}
}
