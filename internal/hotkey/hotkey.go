// Package hotkey delivers the manual-override toggle. The toggle arrives
// as SIGUSR1, which any terminal or window-manager binding can send
// without the process grabbing the keyboard.
package hotkey

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Listener converts SIGUSR1 into toggle events.
type Listener struct {
	toggles chan struct{}
}

func New() *Listener {
	return &Listener{toggles: make(chan struct{}, 4)}
}

// Toggles is the event channel. It is closed when Run returns.
func (l *Listener) Toggles() <-chan struct{} { return l.toggles }

// Run pumps signals into the toggle channel until the context ends. Events
// are dropped, not queued, when nobody drains them fast enough: a stale
// toggle executed minutes later would flip the mode at the wrong moment.
func (l *Listener) Run(ctx context.Context) error {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGUSR1)
	defer signal.Stop(sigs)
	defer close(l.toggles)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sigs:
			select {
			case l.toggles <- struct{}{}:
			default:
			}
		}
	}
}
