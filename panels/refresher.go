package panels

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tostemail20-glitch/MTCapplys/datastructs"
	"github.com/tostemail20-glitch/MTCapplys/store"
	"github.com/tostemail20-glitch/MTCapplys/surface"
)

// DefaultInterval is how often panels are reconciled with state.
const DefaultInterval = 7 * time.Second

// Refresher periodically rewrites every registered panel from current
// section state. It runs as a single background task, never blocks a
// handler, and tolerates stale reads: panels are display, not decision
// state.
type Refresher struct {
	Store    store.Store
	Surface  surface.Surface
	Interval time.Duration

	once sync.Once
}

// Start launches the refresh loop. It is owned by whoever composes the
// process and guarded so repeated calls start exactly one loop.
func (r *Refresher) Start(ctx context.Context) {
	r.once.Do(func() {
		go r.loop(ctx)
	})
}

func (r *Refresher) loop(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RefreshAll()
		}
	}
}

// RefreshAll reconciles every registered panel once. Per-panel failures
// are logged and skipped so one broken panel never stalls the rest; a
// message positively reported gone loses its registration.
func (r *Refresher) RefreshAll() {
	reg, err := r.Store.LoadRegistry()
	if err != nil {
		fmt.Printf("#[Panels]: failed to load registry: %v\n", err)
		return
	}
	for _, p := range reg.Panels {
		if err := r.refreshPanel(reg, &p); err != nil {
			fmt.Printf("#[Panels]: skipping panel %s: %v\n", p.MessageID, err)
		}
	}
}

func (r *Refresher) refreshPanel(reg *datastructs.Registry, p *datastructs.Panel) error {
	found, err := r.Surface.FetchMessage(p.ChannelID, p.MessageID)
	if err != nil {
		return err
	}
	if !found {
		// the message is confirmed gone, drop the registration
		if err := Unregister(r.Store, p.MessageID); err != nil {
			return err
		}
		fmt.Printf("#[Panels]: unregistered vanished panel %s\n", p.MessageID)
		return nil
	}

	var content *surface.Content
	switch p.Kind {
	case datastructs.PanelApply:
		known, err := r.Surface.CustomEmojiIDs()
		if err != nil {
			// render without custom emoji rather than skip the panel
			known = nil
		}
		content, err = BuildApplyContent(r.Store, reg.MainMessage, p.Sections, known)
		if err != nil {
			return err
		}
	case datastructs.PanelAdmin:
		content, err = BuildAdminContent(r.Store)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown panel kind %q", p.Kind)
	}
	return r.Surface.EditMessage(p.ChannelID, p.MessageID, content)
}
