// Package notify delivers restock alerts, inventory summaries and error reports.
// Delivery is best effort: failures are returned to the caller to be logged, they
// are never retried.
package notify

import (
	"context"
	"errors"
	"fmt"
)

// Dispatcher delivers a message to one destination.
type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}

// Error is a failed delivery.
type Error struct {
	Channel string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("notify %s: status %d", e.Channel, e.Status)
	}
	return fmt.Sprintf("notify %s: %v", e.Channel, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Multi sends every message to all of its dispatchers, one failing does not
// prevent delivery to the others.
type Multi []Dispatcher

func (m Multi) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, d := range m {
		err := d.Send(ctx, msg)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
