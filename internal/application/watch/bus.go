package watch

import "github.com/penwyp/go-x-monitor/internal/core/model"

const busCapacity = 4096

// Bus is the order-preserving message queue between every producer (stream
// loop, lifecycle tasks, analysis tasks) and the single orchestrator
// consumer. The buffer is sized far beyond any realistic backlog; the
// orchestrator drains it completely on every iteration, so producers do not
// block in practice.
type Bus struct {
	ch chan model.Message
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{ch: make(chan model.Message, busCapacity)}
}

// Send enqueues one message in FIFO order.
func (b *Bus) Send(msg model.Message) {
	b.ch <- msg
}

// Drain removes and returns every queued message without blocking.
func (b *Bus) Drain() []model.Message {
	var msgs []model.Message
	for {
		select {
		case msg := <-b.ch:
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}
