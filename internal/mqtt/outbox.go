package mqtt

import "log"

// message is a formatted publish waiting for the broker.
type message struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox keeps the newest messages published while disconnected, oldest
// first. The caller synchronizes.
type outbox struct {
	msgs    []message
	limit   int
	dropped int
}

func newOutbox(limit int) *outbox {
	if limit <= 0 {
		limit = 1
	}
	return &outbox{msgs: make([]message, 0, limit), limit: limit}
}

// add queues m, evicting the oldest message when full.
func (o *outbox) add(m message) {
	if len(o.msgs) == o.limit {
		if o.dropped == 0 {
			log.Printf("mqtt: outbox full (%d messages), dropping oldest", o.limit)
		}
		o.dropped++
		copy(o.msgs, o.msgs[1:])
		o.msgs = o.msgs[:len(o.msgs)-1]
	}
	o.msgs = append(o.msgs, m)
}

// take empties the outbox and reports how many messages were evicted since
// the last take.
func (o *outbox) take() ([]message, int) {
	if len(o.msgs) == 0 {
		d := o.dropped
		o.dropped = 0
		return nil, d
	}
	out := make([]message, len(o.msgs))
	copy(out, o.msgs)
	o.msgs = o.msgs[:0]
	d := o.dropped
	o.dropped = 0
	return out, d
}

func (o *outbox) len() int {
	return len(o.msgs)
}
