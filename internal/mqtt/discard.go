package mqtt

import "github.com/sweeney/debounced-button/internal/logic"

// Discard is a Publisher that drops everything. Used when no broker is configured.
type Discard struct{}

func (Discard) Publish(logic.Event) error       { return nil }
func (Discard) PublishSystem(SystemEvent) error { return nil }
func (Discard) Close() error                    { return nil }
func (Discard) IsConnected() bool               { return false }
