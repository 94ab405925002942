package audio

import "sync"

// FakePlayer records played clips for test assertions.
type FakePlayer struct {
	mu sync.Mutex

	// Played lists every clip passed to a successful Play, in order.
	Played []string

	// Current is the clip playing now, empty when paused or idle.
	Current string

	// Pauses counts Pause calls.
	Pauses int

	// PlayError, if set, is returned by Play.
	PlayError error
}

// NewFakePlayer creates a FakePlayer.
func NewFakePlayer() *FakePlayer {
	return &FakePlayer{}
}

// Play records the clip and makes it current.
func (f *FakePlayer) Play(clip string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PlayError != nil {
		return f.PlayError
	}
	f.Played = append(f.Played, clip)
	f.Current = clip
	return nil
}

// Pause records the call and clears the current clip.
func (f *FakePlayer) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Pauses++
	f.Current = ""
	return nil
}

// Last returns the most recently played clip, empty if none.
func (f *FakePlayer) Last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Played) == 0 {
		return ""
	}
	return f.Played[len(f.Played)-1]
}
