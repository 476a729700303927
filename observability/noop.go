package observability

import "context"

// NoOpObserver discards all events. It is the default observer for stores
// constructed without one.
type NoOpObserver struct{}

func (NoOpObserver) OnEvent(ctx context.Context, event Event) {}
