package queue

import (
	"context"
	"errors"
)

// ErrClosed is returned when sending to a closed queue.
var ErrClosed = errors.New("queue closed")

// Client sends messages to a queue backend.
type Client interface {
	Send(ctx context.Context, msg Message) error
}
