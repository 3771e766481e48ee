// Package chat runs the message pipeline: it serializes turns per
// conversation, assembles the persona's team, drives it over the prepared
// history and persists both the reply and its diagnostic transcript.
package chat

import "sync"

// Gate serializes message processing per conversation. Different
// conversations proceed concurrently; two messages into the same
// conversation queue behind one mutex.
//
// The registry mutex only guards map access, so the get-or-create step can
// never hand two callers different locks for the same conversation.
type Gate struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

// NewGate creates an empty gate.
func NewGate() *Gate {
	return &Gate{locks: make(map[uint]*sync.Mutex)}
}

// Lock acquires the conversation's mutex, creating it on first use.
func (g *Gate) Lock(conversationID uint) {
	g.mu.Lock()
	l, ok := g.locks[conversationID]
	if !ok {
		l = &sync.Mutex{}
		g.locks[conversationID] = l
	}
	g.mu.Unlock()

	l.Lock()
}

// Unlock releases the conversation's mutex. Unlocking a conversation that
// was never locked panics, same as sync.Mutex.
func (g *Gate) Unlock(conversationID uint) {
	g.mu.Lock()
	l, ok := g.locks[conversationID]
	g.mu.Unlock()

	if !ok {
		panic("chat: unlock of unknown conversation")
	}
	l.Unlock()
}
