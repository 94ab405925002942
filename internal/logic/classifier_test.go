package logic

import (
	"math/rand"
	"testing"
)

func TestClassifyExclusive(t *testing.T) {
	c := NewClassifier(VariantExclusive, Threshold)

	tests := []struct {
		name   string
		sample Sample
		want   Gesture
	}{
		{"left", Sample{X: -8, Y: 1, Z: 0}, GestureLeft},
		{"right", Sample{X: 8, Y: 1, Z: 0}, GestureRight},
		{"vertical", Sample{X: 0, Y: 8, Z: 0}, GestureVertical},
		{"vertical negative y is nothing", Sample{X: 0, Y: -8, Z: 0}, GestureNone},
		{"horizontal", Sample{X: 1, Y: 0, Z: 9.8}, GestureHorizontal},
		{"horizontal negative z", Sample{X: 1, Y: 0, Z: -9.8}, GestureHorizontal},
		{"z beats x when y does not dominate", Sample{X: 7, Y: 1, Z: 9}, GestureHorizontal},
		{"y dominance blocks z", Sample{X: 1, Y: 3, Z: 9}, GestureNone},
		{"y dominance blocks x", Sample{X: 6, Y: -7, Z: 0}, GestureNone},
		{"idle", Sample{X: 0.1, Y: 0.2, Z: 0.3}, GestureNone},
		{"exactly threshold x", Sample{X: 5, Y: 0, Z: 0}, GestureNone},
		{"exactly threshold negative x", Sample{X: -5, Y: 0, Z: 0}, GestureNone},
		{"exactly threshold y", Sample{X: 0, Y: 5, Z: 0}, GestureNone},
		{"exactly threshold z", Sample{X: 0, Y: 0, Z: 5}, GestureNone},
		{"equal x and y falls to x chain", Sample{X: 6, Y: 6, Z: 0}, GestureRight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.sample)
			if tt.want == GestureNone {
				if len(got) != 0 {
					t.Errorf("Classify(%+v) = %v, want nothing", tt.sample, got)
				}
				return
			}
			if len(got) != 1 || got[0] != tt.want {
				t.Errorf("Classify(%+v) = %v, want [%s]", tt.sample, got, tt.want)
			}
		})
	}
}

func TestClassifyIndependent(t *testing.T) {
	c := NewClassifier(VariantIndependent, Threshold)

	tests := []struct {
		name   string
		sample Sample
		want   []Gesture
	}{
		{"left only", Sample{X: -8, Y: 1, Z: 0}, []Gesture{GestureLeft}},
		{"left and horizontal", Sample{X: -8, Y: 1, Z: 9}, []Gesture{GestureLeft, GestureHorizontal}},
		{"vertical and horizontal", Sample{X: 0, Y: 8, Z: -7}, []Gesture{GestureVertical, GestureHorizontal}},
		{"horizontal despite y dominance", Sample{X: 1, Y: 3, Z: 9}, []Gesture{GestureHorizontal}},
		{"nothing", Sample{X: 5, Y: 5, Z: 5}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.sample)
			if len(got) != len(tt.want) {
				t.Fatalf("Classify(%+v) = %v, want %v", tt.sample, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("gesture %d: got %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestClassifyBelowThresholdNeverFires(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	c := NewClassifier(VariantExclusive, Threshold)

	for i := 0; i < 5000; i++ {
		s := Sample{
			X: rng.Float64()*10 - 5,
			Y: rng.Float64()*10 - 5,
			Z: rng.Float64()*10 - 5,
		}
		if got := c.Classify(s); len(got) != 0 {
			t.Fatalf("Classify(%+v) = %v, want nothing", s, got)
		}
	}
}

func TestNewClassifierDefaults(t *testing.T) {
	c := NewClassifier("", 0)
	if c.Variant() != VariantExclusive {
		t.Errorf("variant: got %s, want %s", c.Variant(), VariantExclusive)
	}
	if c.threshold != Threshold {
		t.Errorf("threshold: got %v, want %v", c.threshold, Threshold)
	}
}

func TestParseVariantAndPolicy(t *testing.T) {
	if _, err := ParseVariant("independent"); err != nil {
		t.Errorf("ParseVariant(independent): %v", err)
	}
	if _, err := ParseVariant("fuzzy"); err == nil {
		t.Error("expected error for unknown variant")
	}
	if _, err := ParsePolicy("window"); err != nil {
		t.Errorf("ParsePolicy(window): %v", err)
	}
	if _, err := ParsePolicy("never"); err == nil {
		t.Error("expected error for unknown policy")
	}
}
