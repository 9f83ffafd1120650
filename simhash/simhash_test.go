package simhash

import "testing"

func TestFingerprintDeterministic(t *testing.T) {
	text := "gentle daily cleansing gel for all skin types"
	if Fingerprint(text) != Fingerprint(text) {
		t.Error("identical texts produced different fingerprints")
	}
}

func TestFingerprintSimilarTexts(t *testing.T) {
	fp1 := Fingerprint("gentle daily cleansing gel for all skin types with glycerin")
	fp2 := Fingerprint("gentle daily cleansing gel for all skin kinds with glycerin")

	if dist := Distance(fp1, fp2); dist > 10 {
		t.Errorf("near-identical texts have distance %d", dist)
	}
}

func TestFingerprintDifferentTexts(t *testing.T) {
	fp1 := Fingerprint("gentle daily cleansing gel for all skin types")
	fp2 := Fingerprint("stainless steel torque wrench with ratcheting head")

	if dist := Distance(fp1, fp2); dist < 5 {
		t.Errorf("unrelated texts have distance %d", dist)
	}
}

func TestFingerprintEmptyInput(t *testing.T) {
	if fp := Fingerprint(""); fp != 0 {
		t.Errorf("empty input should produce fingerprint 0, got %064b", fp)
	}
	if fp := Fingerprint("   \t\n  "); fp != 0 {
		t.Errorf("whitespace-only input should produce fingerprint 0, got %064b", fp)
	}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b uint64
		want int
	}{
		{"identical", 0xFF, 0xFF, 0},
		{"all different", 0, ^uint64(0), 64},
		{"one bit", 0, 1, 1},
		{"two bits", 0, 3, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Distance(tt.a, tt.b); got != tt.want {
				t.Errorf("Distance(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSimilar(t *testing.T) {
	fp1 := Fingerprint("the quick brown fox")
	fp2 := Fingerprint("the quick brown fox")
	if !Similar(fp1, fp2, 0) {
		t.Error("identical fingerprints should be similar at threshold 0")
	}

	fp3 := Fingerprint("a completely different text about nothing related")
	dist := Distance(fp1, fp3)
	if Similar(fp1, fp3, dist-1) {
		t.Errorf("should not be similar below distance %d", dist)
	}
	if !Similar(fp1, fp3, dist) {
		t.Errorf("should be similar at threshold equal to distance %d", dist)
	}
}
