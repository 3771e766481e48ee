package chat

import (
	"context"
	"time"

	"personahub/store"
)

// Event types emitted on a streaming send.
const (
	EventUserMessage = "user_message"
	EventChunk       = "chunk"
	EventComplete    = "complete"
	EventError       = "error"
)

// chunkDelay paces the simulated stream so clients render progressively.
const chunkDelay = 10 * time.Millisecond

// Event is one frame of a streamed turn.
type Event struct {
	Type    string         `json:"type"`
	Content string         `json:"content,omitempty"`
	Message *store.Message `json:"message,omitempty"`
	Err     string         `json:"error,omitempty"`
}

// ProcessMessageStream runs ProcessMessage and re-emits the reply as a
// simulated stream: first the persisted inbound message, then the reply one
// character at a time, then a complete frame carrying the full outbound row.
//
// The reply is computed in full before the first chunk is sent; the stream
// is a presentation device, not incremental generation. The channel closes
// after the complete (or error) frame. A consumer that stops reading does
// not block the pipeline past the context's cancellation.
func (p *Pipeline) ProcessMessageStream(ctx context.Context, userID, conversationID uint, content string, fileIDs []uint) <-chan Event {
	events := make(chan Event, 16)

	go func() {
		defer close(events)

		emit := func(ev Event) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		outbound, err := p.ProcessMessage(ctx, userID, conversationID, content, fileIDs)
		if err != nil {
			emit(Event{Type: EventError, Err: err.Error()})
			return
		}

		inbound := p.lastInbound(conversationID, outbound.ID)
		if inbound != nil {
			if !emit(Event{Type: EventUserMessage, Message: inbound}) {
				return
			}
		}

		for _, r := range outbound.Content {
			if !emit(Event{Type: EventChunk, Content: string(r)}) {
				return
			}
			select {
			case <-time.After(chunkDelay):
			case <-ctx.Done():
				return
			}
		}

		emit(Event{Type: EventComplete, Message: outbound})
	}()

	return events
}

// lastInbound finds the user message immediately preceding the outbound row.
func (p *Pipeline) lastInbound(conversationID, outboundID uint) *store.Message {
	recent, err := p.store.RecentMessages(conversationID, historyWindow)
	if err != nil {
		return nil
	}
	for _, m := range recent {
		if m.ID < outboundID && m.Role == "user" {
			return &m
		}
	}
	return nil
}
