package motion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sweeney/panic-alarm/internal/logic"
)

// IIOBase is where the kernel exposes Industrial I/O devices.
const IIOBase = "/sys/bus/iio/devices"

// IIOSource polls a Linux IIO accelerometer through sysfs.
// Raw readings are multiplied by the device scale, giving m/s^2.
type IIOSource struct {
	dev      string
	interval time.Duration
	hub      *hub

	mu     sync.Mutex
	scale  [3]float64
	cancel context.CancelFunc
}

// NewIIOSource creates a source for the device directory dev (e.g.
// /sys/bus/iio/devices/iio:device0). An empty dev picks the first device
// exposing an accelerometer.
func NewIIOSource(dev string, interval time.Duration) (*IIOSource, error) {
	if dev == "" {
		found, err := FindAccelerometer(IIOBase)
		if err != nil {
			return nil, err
		}
		dev = found
	}
	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	return &IIOSource{dev: dev, interval: interval, hub: newHub()}, nil
}

// Device returns the sysfs directory being read.
func (s *IIOSource) Device() string {
	return s.dev
}

// RequestPermission checks that the raw axis files are readable.
// Permission errors are a refusal, anything else is a platform error.
func (s *IIOSource) RequestPermission(ctx context.Context) (bool, error) {
	for _, axis := range []string{"x", "y", "z"} {
		f, err := os.Open(filepath.Join(s.dev, "in_accel_"+axis+"_raw"))
		if err != nil {
			if errors.Is(err, os.ErrPermission) {
				return false, nil
			}
			return false, fmt.Errorf("open %s axis: %w", axis, err)
		}
		f.Close()
	}

	scale, err := s.readScale()
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	s.scale = scale
	s.mu.Unlock()
	return true, nil
}

// Subscribe registers fn and starts polling if it is the first subscriber.
func (s *IIOSource) Subscribe(ctx context.Context, fn func(logic.Sample)) (Handle, error) {
	h, first := s.hub.add(fn)
	if first {
		s.start()
	}
	return h, nil
}

// Unsubscribe removes h and stops polling when no subscribers remain.
func (s *IIOSource) Unsubscribe(h Handle) error {
	empty, err := s.hub.remove(h)
	if empty {
		s.stop()
	}
	return err
}

// UnsubscribeAll removes every subscriber and stops polling.
func (s *IIOSource) UnsubscribeAll() error {
	s.hub.clear()
	s.stop()
	return nil
}

// Read takes one sample.
func (s *IIOSource) Read() (logic.Sample, error) {
	s.mu.Lock()
	scale := s.scale
	s.mu.Unlock()
	if scale == [3]float64{} {
		var err error
		if scale, err = s.readScale(); err != nil {
			return logic.Sample{}, err
		}
		s.mu.Lock()
		s.scale = scale
		s.mu.Unlock()
	}

	var v [3]float64
	for i, axis := range []string{"x", "y", "z"} {
		raw, err := readInt(filepath.Join(s.dev, "in_accel_"+axis+"_raw"))
		if err != nil {
			return logic.Sample{}, fmt.Errorf("read %s axis: %w", axis, err)
		}
		v[i] = float64(raw) * scale[i]
	}
	return logic.Sample{X: v[0], Y: v[1], Z: v[2]}, nil
}

func (s *IIOSource) start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.poll(ctx)
}

// stop cancels polling without waiting for the goroutine: a listener may be
// blocked handing a sample to the caller of stop.
func (s *IIOSource) stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (s *IIOSource) poll(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	failing := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		sample, err := s.Read()
		if err != nil {
			if !failing {
				log.Printf("motion: iio read error: %v", err)
				failing = true
			}
			continue
		}
		if failing {
			log.Printf("motion: iio reads recovered")
			failing = false
		}
		s.hub.broadcast(sample)
	}
}

// readScale reads the shared scale, falling back to per-axis scales.
func (s *IIOSource) readScale() ([3]float64, error) {
	if v, ok := readFloatIfExists(filepath.Join(s.dev, "in_accel_scale")); ok {
		return [3]float64{v, v, v}, nil
	}
	var out [3]float64
	for i, axis := range []string{"x", "y", "z"} {
		v, ok := readFloatIfExists(filepath.Join(s.dev, "in_accel_"+axis+"_scale"))
		if !ok {
			return out, fmt.Errorf("no accelerometer scale in %s", s.dev)
		}
		out[i] = v
	}
	return out, nil
}

// FindAccelerometer returns the first IIO device under base that exposes
// in_accel_x_raw, in name order.
func FindAccelerometer(base string) (string, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		return "", fmt.Errorf("list iio devices: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "iio:device") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, n := range names {
		dev := filepath.Join(base, n)
		if _, err := os.Stat(filepath.Join(dev, "in_accel_x_raw")); err == nil {
			return dev, nil
		}
	}
	return "", fmt.Errorf("no iio accelerometer under %s", base)
}

func readInt(path string) (int64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	fields := strings.Fields(string(b))
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty value in %s", path)
	}
	v, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", fields[0], err)
	}
	return v, nil
}

func readFloatIfExists(path string) (float64, bool) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
