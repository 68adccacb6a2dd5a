package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Messenger defines the interface for communication gateways (Telegram, Discord)
type Messenger interface {
	// Start listens for messages until ctx is done
	Start(ctx context.Context) error
	// Send sends a message to a specific chat
	Send(chatID string, text string) error
	// Stop gracefully shuts down the gateway
	Stop() error
}

// Handler turns one incoming chat message into a reply.
type Handler interface {
	Handle(ctx context.Context, chatID string, text string) string
}

// Mux routes outgoing messages to the gateway that owns the chat. Chat ids
// are owned by prefix; ids without a known prefix go to the default gateway.
type Mux struct {
	mu       sync.RWMutex
	def      Messenger
	prefixes map[string]Messenger
}

func NewMux(def Messenger) *Mux {
	return &Mux{def: def, prefixes: make(map[string]Messenger)}
}

// Route sends chat ids starting with prefix to m.
func (x *Mux) Route(prefix string, m Messenger) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.prefixes[prefix] = m
	if x.def == nil {
		x.def = m
	}
}

func (x *Mux) Send(chatID string, text string) error {
	x.mu.RLock()
	defer x.mu.RUnlock()
	for prefix, m := range x.prefixes {
		if strings.HasPrefix(chatID, prefix) {
			return m.Send(chatID, text)
		}
	}
	if x.def == nil {
		return fmt.Errorf("no gateway for chat %s", chatID)
	}
	return x.def.Send(chatID, text)
}

// chunks splits text into pieces of at most limit runes, preferring line breaks.
func chunks(text string, limit int) []string {
	r := []rune(text)
	if len(r) <= limit {
		return []string{text}
	}
	var out []string
	for len(r) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if r[i-1] == '\n' {
				cut = i
				break
			}
		}
		out = append(out, string(r[:cut]))
		r = r[cut:]
	}
	if len(r) > 0 {
		out = append(out, string(r))
	}
	return out
}
