package logic

import "time"

// Effect describes the feedback bundle started for a gesture or the alarm.
type Effect struct {
	// Clip is the audio clip name, played at full volume.
	Clip string
	// Vibrate is the vibration duration, zero for none.
	Vibrate time.Duration
	// Flash turns the flashlight on at FlashIntensity.
	Flash          bool
	FlashIntensity float64
	// Hold is the delay before cleanup runs, zero when nothing needs cleaning up.
	Hold time.Duration
	// StopAudio pauses the clip when cleanup runs.
	StopAudio bool
}

// AlarmClip is the clip played when a wrong credential is submitted.
const AlarmClip = "alarm"

// EffectFor returns the effect bundle for g.
// The second result is false for GestureNone.
func EffectFor(g Gesture) (Effect, bool) {
	switch g {
	case GestureLeft:
		return Effect{Clip: "left"}, true
	case GestureRight:
		return Effect{Clip: "right"}, true
	case GestureVertical:
		return Effect{
			Clip:           "vertical",
			Flash:          true,
			FlashIntensity: 1.0,
			Hold:           EffectDuration,
		}, true
	case GestureHorizontal:
		return Effect{
			Clip:    "horizontal",
			Vibrate: EffectDuration,
			Hold:    EffectDuration,
		}, true
	}
	return Effect{}, false
}

// AlarmEffect returns the punishment effect for a failed disarm.
func AlarmEffect() Effect {
	return Effect{
		Clip:           AlarmClip,
		Vibrate:        EffectDuration,
		Flash:          true,
		FlashIntensity: 1.0,
		Hold:           EffectDuration,
		StopAudio:      true,
	}
}

// Clips lists every clip name the effect table refers to.
func Clips() []string {
	out := make([]string, 0, len(Gestures)+1)
	for _, g := range Gestures {
		e, _ := EffectFor(g)
		out = append(out, e.Clip)
	}
	return append(out, AlarmClip)
}
