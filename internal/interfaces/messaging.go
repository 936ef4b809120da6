package interfaces

import "context"

// MessagePublisher mirrors broadcast events to the AMQP fanout
// exchange for out-of-process subscribers. Publishing is best-effort:
// failures are logged and swallowed, never surfaced to the caller of
// the mutation.
type MessagePublisher interface {
	PublishOrderEvent(ctx context.Context, ev Event) error
}

type MessageConsumer interface {
	ConsumeOrderEvents(ctx context.Context, handler OrderEventHandler) error
}

type OrderEventHandler func(ctx context.Context, body []byte) error
