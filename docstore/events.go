package docstore

import "github.com/tailored-agentic-units/docstore/observability"

// Store event types. Background failures are only visible through these
// events and the logger; the API contract does not propagate them.
const (
	EventWarmLoad       observability.EventType = "docstore.warmload"
	EventWarmLoadError  observability.EventType = "docstore.warmload.error"
	EventFlush          observability.EventType = "docstore.flush"
	EventFlushError     observability.EventType = "docstore.flush.error"
	EventWrite          observability.EventType = "docstore.write"
	EventWriteError     observability.EventType = "docstore.write.error"
	EventDecodeFallback observability.EventType = "docstore.decode.fallback"
	EventEvict          observability.EventType = "docstore.evict"
	EventSubscriberDrop observability.EventType = "docstore.subscriber.drop"
)
