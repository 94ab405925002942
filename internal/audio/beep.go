package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
)

// SampleRate is the output rate the speaker is initialised with.
// Clips recorded at other rates are resampled.
const SampleRate beep.SampleRate = 44100

// BeepPlayer plays <dir>/<clip>.mp3 through the system speaker.
// Clips play at unity gain, the loudest level that does not clip.
type BeepPlayer struct {
	dir string

	mu      sync.Mutex
	ready   bool
	current beep.StreamSeekCloser
	ctrl    *beep.Ctrl
}

// NewBeepPlayer creates a player reading clips from dir.
// The speaker is initialised lazily on the first Play.
func NewBeepPlayer(dir string) *BeepPlayer {
	return &BeepPlayer{dir: dir}
}

// Play stops the current clip and starts clip.
func (p *BeepPlayer) Play(clip string) error {
	f, err := os.Open(p.path(clip))
	if err != nil {
		return fmt.Errorf("open clip %q: %w", clip, err)
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("decode clip %q: %w", clip, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.ready {
		if err := speaker.Init(SampleRate, SampleRate.N(time.Second/10)); err != nil {
			streamer.Close()
			return fmt.Errorf("init speaker: %w", err)
		}
		p.ready = true
	}

	speaker.Clear()
	p.closeCurrent()

	var s beep.Streamer = streamer
	if format.SampleRate != SampleRate {
		s = beep.Resample(4, format.SampleRate, SampleRate, streamer)
	}
	p.current = streamer
	p.ctrl = &beep.Ctrl{Streamer: s}
	speaker.Play(p.ctrl)
	return nil
}

// Pause stops the current clip.
func (p *BeepPlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctrl == nil {
		return nil
	}
	speaker.Lock()
	p.ctrl.Paused = true
	speaker.Unlock()
	return nil
}

// Close stops playback and releases the current clip.
func (p *BeepPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ready {
		speaker.Clear()
	}
	p.closeCurrent()
	return nil
}

func (p *BeepPlayer) closeCurrent() {
	if p.current != nil {
		p.current.Close()
	}
	p.current = nil
	p.ctrl = nil
}

func (p *BeepPlayer) path(clip string) string {
	return filepath.Join(p.dir, clip+".mp3")
}

// CheckClips verifies every clip file exists under dir.
func CheckClips(dir string, clips []string) error {
	var missing []string
	for _, c := range clips {
		path := filepath.Join(dir, c+".mp3")
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				missing = append(missing, path)
				continue
			}
			return fmt.Errorf("stat clip: %w", err)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing clips: %v", missing)
	}
	return nil
}
