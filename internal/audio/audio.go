// Package audio plays the named feedback clips on a single channel.
package audio

// Player plays one clip at a time.
type Player interface {
	// Play stops whatever is playing and starts clip at full volume.
	Play(clip string) error

	// Pause stops the current clip. Safe to call when nothing is playing.
	Pause() error
}
