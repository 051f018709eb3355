package orchestrator

import "sync"

// ProgressEvent reports one step of scene image generation. Events
// are advisory: slow consumers miss events rather than stalling
// generation.
type ProgressEvent struct {
	SessionID  string `json:"session_id"`
	Stage      string `json:"stage"` // "scene_started", "scene_done", "complete"
	SceneIndex int    `json:"scene_index"`
	TotalScene int    `json:"total_scenes"`
	ImageOK    bool   `json:"image_ok"`
}

// ProgressHub fans generation progress out to per-session
// subscribers.
type ProgressHub struct {
	mu   sync.Mutex
	subs map[string]map[chan ProgressEvent]struct{}
}

func NewProgressHub() *ProgressHub {
	return &ProgressHub{subs: make(map[string]map[chan ProgressEvent]struct{})}
}

// Subscribe registers a listener for one session's events. The
// returned cancel func must be called exactly once; it closes the
// channel.
func (h *ProgressHub) Subscribe(sessionID string) (<-chan ProgressEvent, func()) {
	ch := make(chan ProgressEvent, 64)

	h.mu.Lock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[chan ProgressEvent]struct{})
	}
	h.subs[sessionID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[sessionID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, sessionID)
			}
		}
		h.mu.Unlock()
		close(ch)
	}
	return ch, cancel
}

// Publish delivers ev to all subscribers of its session, dropping it
// for any subscriber whose buffer is full.
func (h *ProgressHub) Publish(ev ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[ev.SessionID] {
		select {
		case ch <- ev:
		default:
		}
	}
}
