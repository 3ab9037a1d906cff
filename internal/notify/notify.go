package notify

import (
	"context"
	"log"
	"time"
)

// Sender delivers one observer message over one channel.
type Sender interface {
	Send(ctx context.Context, event, message string) error
}

// Fanout delivers to every configured sender with a bounded timeout.
// Delivery is best effort: failures are logged and never returned, so
// a broken observer can never affect a claim or a download.
type Fanout struct {
	Senders []Sender
	Timeout time.Duration
}

func (f Fanout) Notify(event, message string) {
	if len(f.Senders) == 0 {
		return
	}
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for _, s := range f.Senders {
		if err := s.Send(ctx, event, message); err != nil {
			log.Printf("notify: %s: %v", event, err)
		}
	}
}
