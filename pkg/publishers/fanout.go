package publishers

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// DeliveryError reports one publisher that failed to accept an event.
type DeliveryError struct {
	PublisherID string
	Type        string
	Err         error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s publisher[%s]: %v", e.Type, e.PublisherID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Fanout delivers each event to a fixed set of publishers.
type Fanout struct {
	publishers []Publisher
}

// NewFanout groups pubs, dropping nil entries.
func NewFanout(pubs []Publisher) *Fanout {
	cp := make([]Publisher, 0, len(pubs))
	for _, p := range pubs {
		if p != nil {
			cp = append(cp, p)
		}
	}
	return &Fanout{publishers: cp}
}

// Publish delivers evt to every publisher concurrently and waits for all of
// them. It returns how many accepted the event; failures are joined as
// *DeliveryError values in publisher order.
func (f *Fanout) Publish(ctx context.Context, evt Event) (int, error) {
	if f.Size() == 0 {
		return 0, nil
	}

	errs := make([]error, len(f.publishers))
	var wg sync.WaitGroup
	for i, p := range f.publishers {
		wg.Add(1)
		go func(i int, p Publisher) {
			defer wg.Done()
			if err := p.Publish(ctx, evt); err != nil {
				errs[i] = &DeliveryError{PublisherID: p.ID(), Type: p.Type(), Err: err}
			}
		}(i, p)
	}
	wg.Wait()

	delivered := 0
	for _, err := range errs {
		if err == nil {
			delivered++
		}
	}
	return delivered, errors.Join(errs...)
}

// Size returns the number of publishers.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.publishers)
}

// Close releases connection-holding publishers in reverse order.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	for i := len(f.publishers) - 1; i >= 0; i-- {
		p := f.publishers[i]
		c, ok := p.(closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s publisher[%s]: %w", p.Type(), p.ID(), err))
		}
	}
	return errors.Join(errs...)
}
