package realtime

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/diabolofocus/form-displays-sub000/internal/observability"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/logger"
	"github.com/diabolofocus/form-displays-sub000/internal/viewconfig"
)

// Transport is the part of a bus the relay needs.
type Transport interface {
	Publish(ctx context.Context, msg Message) error
	StartForwarder(ctx context.Context, onMsg func(m Message)) error
}

// Relay publishes this instance's saved settings and adopts those saved by
// other instances.
type Relay struct {
	store     *viewconfig.Store
	transport Transport
	origin    string
	log       *logger.Logger
	metrics   *observability.Metrics

	// saves waiting to be published; never dropped, drained in order
	mu      sync.Mutex
	pending []savedBatch
	wake    chan struct{}
}

type savedBatch struct {
	settings []viewconfig.FormViewSettings
	at       time.Time
}

func NewRelay(store *viewconfig.Store, transport Transport, origin string, log *logger.Logger, metrics *observability.Metrics) *Relay {
	if log == nil {
		log = logger.Nop()
	}
	return &Relay{
		store:     store,
		transport: transport,
		origin:    strings.TrimSpace(origin),
		log:       log.With("service", "SettingsRelay", "origin", origin),
		metrics:   metrics,
		wake:      make(chan struct{}, 1),
	}
}

// Start subscribes to the bus and to local saves. Both stop when ctx is
// done. A slow bus delays publishing but never loses a save.
func (r *Relay) Start(ctx context.Context) error {
	if r.store == nil || r.transport == nil {
		return fmt.Errorf("relay needs a store and a transport")
	}
	if r.origin == "" {
		return fmt.Errorf("relay origin required")
	}
	if err := r.transport.StartForwarder(ctx, r.onRemote); err != nil {
		return fmt.Errorf("start settings forwarder: %w", err)
	}

	unregister := r.store.OnSaved(r.enqueue)
	go func() {
		defer unregister()
		for {
			select {
			case <-ctx.Done():
				return
			case <-r.wake:
				for _, b := range r.drain() {
					r.publish(ctx, b)
				}
			}
		}
	}()
	r.log.Info("settings relay started")
	return nil
}

func (r *Relay) enqueue(saved []viewconfig.FormViewSettings, at time.Time) {
	if len(saved) == 0 {
		return
	}
	r.mu.Lock()
	r.pending = append(r.pending, savedBatch{settings: saved, at: at})
	r.mu.Unlock()
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Relay) drain() []savedBatch {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.pending
	r.pending = nil
	return out
}

func (r *Relay) publish(ctx context.Context, b savedBatch) {
	for i := range b.settings {
		fs := b.settings[i]
		err := r.transport.Publish(ctx, Message{
			Origin:   r.origin,
			Type:     viewconfig.EventSettingsSaved,
			FormID:   fs.FormID,
			Settings: &fs,
			At:       b.at,
		})
		r.metrics.IncBusPublish(err)
		if err != nil {
			r.log.Warn("publish saved settings failed", "form_id", fs.FormID, "error", err)
		}
	}
}

func (r *Relay) onRemote(m Message) {
	if m.Origin == r.origin || m.Settings == nil {
		return
	}
	if m.Settings.FormID == "" {
		m.Settings.FormID = m.FormID
	}
	if r.store.ApplyRemote(*m.Settings) {
		r.log.Debug("adopted remote settings", "form_id", m.Settings.FormID, "from", m.Origin)
	}
}
