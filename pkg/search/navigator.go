package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/linkedin-outreach/pkg/browser"
	"github.com/linkedin-outreach/pkg/config"
	"github.com/linkedin-outreach/pkg/logger"
	"github.com/linkedin-outreach/pkg/stealth"
)

// Navigator issues the keyword query and switches the result scope to
// people. Failures here make the rest of the run meaningless, so both
// operations capture a screenshot and propagate the error upward.
type Navigator struct {
	cfg     *config.AcquireConfig
	sel     *config.Selectors
	surface browser.Surface
	timing  *stealth.TimingController
	log     *zap.SugaredLogger
}

func New(cfg *config.Config, s browser.Surface, timing *stealth.TimingController) *Navigator {
	return &Navigator{
		cfg:     &cfg.Acquire,
		sel:     &cfg.Selectors,
		surface: s,
		timing:  timing,
		log:     logger.WithComponent("search"),
	}
}

// Search activates the global search input, types the keywords and
// submits with a key press.
func (n *Navigator) Search(ctx context.Context, keywords string) error {
	n.log.Infof("Searching for: %s", keywords)

	if err := n.search(ctx, keywords); err != nil {
		n.surface.CaptureFailure("search")
		return fmt.Errorf("search for %q failed: %w", keywords, err)
	}
	return nil
}

func (n *Navigator) search(ctx context.Context, keywords string) error {
	if _, err := n.surface.WaitFor(ctx, browser.Q(n.sel.SearchInput), n.cfg.SearchTimeout); err != nil {
		return err
	}
	if err := n.surface.Click(ctx, browser.Q(n.sel.SearchInput)); err != nil {
		return err
	}
	if err := n.surface.Type(ctx, browser.Q(n.sel.SearchInput), keywords); err != nil {
		return err
	}
	if err := n.surface.PressEnter(ctx); err != nil {
		return err
	}
	return n.timing.SleepPageLoad(ctx)
}

// SwitchToPeopleScope clicks the "People" scope pill. The pill carries no
// stable attribute, so it is matched structurally by its label. Clicking
// it does not reliably fire a navigation event; the settle delay covers
// the in-place rerender case.
func (n *Navigator) SwitchToPeopleScope(ctx context.Context) error {
	n.log.Info("Switching results to people scope")

	el, err := n.surface.WaitFor(ctx, browser.Q(n.sel.PeopleScope), n.cfg.SearchTimeout)
	if err != nil {
		n.surface.CaptureFailure("search")
		return fmt.Errorf("people scope control not found: %w", err)
	}
	if err := el.Click(ctx); err != nil {
		n.surface.CaptureFailure("search")
		return fmt.Errorf("failed to switch to people scope: %w", err)
	}

	return n.timing.SleepPageLoad(ctx)
}
