package frames

import "testing"

func TestMeasurePrefersSharpFrames(t *testing.T) {
	sharp := measure(checkerboard(64, 4))
	blurry := measure(flat(64, 128))
	if sharp.sharpness <= blurry.sharpness {
		t.Fatalf("expected checkerboard sharper than flat: %.3f vs %.3f", sharp.sharpness, blurry.sharpness)
	}
	if sharp.quality(64, 64) <= blurry.quality(64, 64) {
		t.Fatalf("expected higher quality for sharp frame")
	}
}

func TestQualityPenalizesExtremesOfExposure(t *testing.T) {
	dark := measure(flat(64, 5))
	mid := measure(flat(64, 128))
	if dark.quality(64, 64) >= mid.quality(64, 64) {
		t.Fatalf("expected near-black frame to score below midrange: %.3f vs %.3f",
			dark.quality(64, 64), mid.quality(64, 64))
	}
}

func TestQualityRewardsResolution(t *testing.T) {
	m := measure(flat(64, 128))
	if m.quality(1920, 1080) <= m.quality(64, 64) {
		t.Fatalf("expected larger frames to score higher at equal content")
	}
}

func TestAverageHashSeparatesContent(t *testing.T) {
	a := averageHash(gradient(64, true))
	b := averageHash(gradient(64, false))
	if hammingDistance(a, a) != 0 {
		t.Fatalf("identical images must hash identically")
	}
	if hammingDistance(a, b) < 16 {
		t.Fatalf("expected orthogonal gradients to hash far apart, got distance %d", hammingDistance(a, b))
	}
}

func TestAverageHashResolutionInvariant(t *testing.T) {
	small := averageHash(gradient(32, true))
	large := averageHash(gradient(256, true))
	if d := hammingDistance(small, large); d > 8 {
		t.Fatalf("expected scale-invariant hashes, got distance %d", d)
	}
}
