// Package realtime shares persisted view settings between dashboard
// instances over a pub/sub bus.
package realtime

import (
	"time"

	"github.com/diabolofocus/form-displays-sub000/internal/viewconfig"
)

// Message is one persisted settings change as seen on the bus.
type Message struct {
	// Origin identifies the publishing instance so it can skip its own echo.
	Origin   string                       `json:"origin"`
	Type     viewconfig.EventType         `json:"type"`
	FormID   string                       `json:"formId"`
	Settings *viewconfig.FormViewSettings `json:"settings,omitempty"`
	At       time.Time                    `json:"at"`
}
