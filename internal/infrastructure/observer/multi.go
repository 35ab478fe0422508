package observer

import (
	"gamescorer/internal/domain"
	"gamescorer/internal/ports"
)

// Multi fans an event out to several observers in order.
type Multi []ports.Observer

var _ ports.Observer = Multi(nil)

// Notify forwards event to every non-nil observer.
func (m Multi) Notify(event domain.Event) {
	for _, o := range m {
		if o != nil {
			o.Notify(event)
		}
	}
}
