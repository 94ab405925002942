package motion

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/sweeney/panic-alarm/internal/logic"
)

// DefaultSubject is the NATS subject carrying JSON samples.
const DefaultSubject = "motion.accel"

// Connect opens a NATS connection that keeps reconnecting forever.
func Connect(url string) (*nats.Conn, error) {
	return nats.Connect(
		url,
		nats.Name("panic-alarm"),
		nats.Timeout(3*time.Second),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
	)
}

// NATSSource receives samples published as {"x":..,"y":..,"z":..} on a subject,
// typically by a phone or a sensor bridge.
type NATSSource struct {
	nc      *nats.Conn
	subject string
	hub     *hub

	mu  sync.Mutex
	sub *nats.Subscription
}

// NewNATSSource creates a source on an existing connection.
func NewNATSSource(nc *nats.Conn, subject string) *NATSSource {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSSource{nc: nc, subject: subject, hub: newHub()}
}

// RequestPermission grants access while the connection is usable.
func (s *NATSSource) RequestPermission(ctx context.Context) (bool, error) {
	if s.nc == nil || s.nc.IsClosed() {
		return false, fmt.Errorf("nats connection closed")
	}
	return s.nc.IsConnected(), nil
}

// Subscribe registers fn. The NATS subscription is opened with the first
// listener and closed with the last.
func (s *NATSSource) Subscribe(ctx context.Context, fn func(logic.Sample)) (Handle, error) {
	h, first := s.hub.add(fn)
	if !first {
		return h, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sub, err := s.nc.Subscribe(s.subject, s.handle)
	if err != nil {
		s.hub.remove(h)
		return 0, fmt.Errorf("subscribe %s: %w", s.subject, err)
	}
	s.sub = sub
	return h, nil
}

// Unsubscribe removes h.
func (s *NATSSource) Unsubscribe(h Handle) error {
	empty, err := s.hub.remove(h)
	if empty {
		s.closeSub()
	}
	return err
}

// UnsubscribeAll removes every listener and closes the NATS subscription.
func (s *NATSSource) UnsubscribeAll() error {
	s.hub.clear()
	s.closeSub()
	return nil
}

func (s *NATSSource) handle(msg *nats.Msg) {
	sample, err := DecodeSample(msg.Data)
	if err != nil {
		log.Printf("motion: bad sample on %s: %v", msg.Subject, err)
		return
	}
	s.hub.broadcast(sample)
}

func (s *NATSSource) closeSub() {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()
	if sub == nil {
		return
	}
	if err := sub.Unsubscribe(); err != nil {
		log.Printf("motion: nats unsubscribe: %v", err)
	}
}

// DecodeSample parses a JSON sample.
func DecodeSample(data []byte) (logic.Sample, error) {
	var s logic.Sample
	if err := json.Unmarshal(data, &s); err != nil {
		return logic.Sample{}, fmt.Errorf("decode sample: %w", err)
	}
	return s, nil
}
