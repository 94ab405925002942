package logic

import "math"

// Classifier maps a single sample to gestures. It keeps no history.
type Classifier struct {
	variant   Variant
	threshold float64
}

// NewClassifier creates a classifier. A threshold <= 0 selects Threshold.
func NewClassifier(variant Variant, threshold float64) Classifier {
	if threshold <= 0 {
		threshold = Threshold
	}
	if variant == "" {
		variant = VariantExclusive
	}
	return Classifier{variant: variant, threshold: threshold}
}

// Variant returns the configured rule set.
func (c Classifier) Variant() Variant {
	return c.variant
}

// Classify returns the gestures detected in s, primary gesture first.
// Returns nil when nothing crosses the threshold.
// Comparisons are strict: a reading of exactly the threshold is not a gesture.
func (c Classifier) Classify(s Sample) []Gesture {
	if c.variant == VariantIndependent {
		var out []Gesture
		if g := c.planar(s); g != GestureNone {
			out = append(out, g)
		}
		if math.Abs(s.Z) > c.threshold {
			out = append(out, GestureHorizontal)
		}
		return out
	}

	if g := c.exclusive(s); g != GestureNone {
		return []Gesture{g}
	}
	return nil
}

// exclusive applies the y, then z, then x chain.
func (c Classifier) exclusive(s Sample) Gesture {
	if math.Abs(s.Y) > math.Abs(s.X) {
		if s.Y > c.threshold {
			return GestureVertical
		}
		return GestureNone
	}
	if math.Abs(s.Z) > c.threshold {
		return GestureHorizontal
	}
	return c.lateral(s)
}

// planar applies the y/x chain without the z check.
func (c Classifier) planar(s Sample) Gesture {
	if math.Abs(s.Y) > math.Abs(s.X) {
		if s.Y > c.threshold {
			return GestureVertical
		}
		return GestureNone
	}
	return c.lateral(s)
}

func (c Classifier) lateral(s Sample) Gesture {
	switch {
	case s.X > c.threshold:
		return GestureRight
	case s.X < -c.threshold:
		return GestureLeft
	}
	return GestureNone
}
