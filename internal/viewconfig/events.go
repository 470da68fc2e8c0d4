package viewconfig

import "time"

type EventType string

const (
	EventSettingsChanged     EventType = "settings_changed"
	EventSelectedFormChanged EventType = "selected_form_changed"
	EventSettingsSaved       EventType = "settings_saved"
	EventSettingsLoaded      EventType = "settings_loaded"
)

type Event struct {
	Type     EventType         `json:"type"`
	FormID   string            `json:"formId,omitempty"`
	FormIDs  []string          `json:"formIds,omitempty"`
	Settings *FormViewSettings `json:"settings,omitempty"`
	At       time.Time         `json:"at"`
}

// SavedFunc receives the exact settings one SaveSettings call persisted.
type SavedFunc func(saved []FormViewSettings, at time.Time)

// Subscribe registers a listener. Delivery never blocks the store: when the
// buffer is full the event is dropped for that listener. The returned func
// unsubscribes and closes the channel.
func (s *Store) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subsMu.Unlock()

	var done bool
	return ch, func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		if done {
			return
		}
		done = true
		delete(s.subs, id)
		close(ch)
	}
}

func (s *Store) emit(ev Event) {
	if ev.At.IsZero() {
		ev.At = s.now()
	}
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for id, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			s.log.Debug("view settings event dropped", "subscriber", id, "type", ev.Type)
		}
	}
}

// OnSaved registers fn for every successful save, in save order. Unlike
// Subscribe nothing is ever dropped, so fn runs on the saving goroutine and
// must hand the batch off rather than block. The returned func unregisters.
func (s *Store) OnSaved(fn SavedFunc) func() {
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.savedHooks[id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.savedHooks, id)
		s.subsMu.Unlock()
	}
}

func (s *Store) notifySaved(batch []FormViewSettings, at time.Time) {
	s.subsMu.Lock()
	hooks := make([]SavedFunc, 0, len(s.savedHooks))
	for _, fn := range s.savedHooks {
		hooks = append(hooks, fn)
	}
	s.subsMu.Unlock()
	for _, fn := range hooks {
		out := make([]FormViewSettings, len(batch))
		for i := range batch {
			out[i] = batch[i].Clone()
		}
		fn(out, at)
	}
}
