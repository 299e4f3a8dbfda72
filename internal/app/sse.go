package app

import (
	"log/slog"
	"sync"
)

type SSEEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type SSEHub struct {
	log *slog.Logger

	mu   sync.RWMutex
	subs map[string]map[chan SSEEvent]struct{} // topic -> set(ch)
}

func NewSSEHub(logger *slog.Logger) *SSEHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &SSEHub{
		log:  logger,
		subs: map[string]map[chan SSEEvent]struct{}{},
	}
}

func (h *SSEHub) Subscribe(topics []string, buf int) (<-chan SSEEvent, func()) {
	if buf <= 0 {
		buf = 16
	}
	ch := make(chan SSEEvent, buf)

	h.mu.Lock()
	for _, t := range topics {
		if h.subs[t] == nil {
			h.subs[t] = map[chan SSEEvent]struct{}{}
		}
		h.subs[t][ch] = struct{}{}
	}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			for _, t := range topics {
				if set, ok := h.subs[t]; ok {
					delete(set, ch)
					if len(set) == 0 {
						delete(h.subs, t)
					}
				}
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers ev once to every subscriber of any of topics.
func (h *SSEHub) Publish(ev SSEEvent, topics ...string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := map[chan SSEEvent]struct{}{}
	for _, t := range topics {
		for ch := range h.subs[t] {
			if _, dup := seen[ch]; dup {
				continue
			}
			seen[ch] = struct{}{}
			select {
			case ch <- ev:
			default:
				h.log.Debug("sse: dropping event for slow consumer", "type", ev.Type, "topic", t)
			}
		}
	}
}

/* ---- topic helpers ---- */

func TopicRole(role string) string { return "role:" + role }
func TopicOrdersGlobal() string    { return "orders:global" }
func TopicInventory() string       { return "inventory:global" }

// TopicsFor returns the topics a user of role listens to.
func TopicsFor(role string) []string {
	topics := []string{TopicRole(role), TopicOrdersGlobal()}
	if role == RoleAdmin {
		topics = append(topics, TopicInventory())
	}
	return topics
}
