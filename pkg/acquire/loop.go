package acquire

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/linkedin-outreach/pkg/browser"
	"github.com/linkedin-outreach/pkg/config"
	"github.com/linkedin-outreach/pkg/logger"
	"github.com/linkedin-outreach/pkg/stealth"
)

// Outcome classifies a single connect-button interaction by whichever
// confirmation control appeared first.
type Outcome int

const (
	// OutcomeUnknown: no confirmation control appeared within the timeout.
	OutcomeUnknown Outcome = iota
	// OutcomeSend: an invite was sent.
	OutcomeSend
	// OutcomeDismiss: the modal demanded input we do not supply (e.g. a
	// mandatory note) and was dismissed.
	OutcomeDismiss
	// outcomeSkipped: element not visible, nothing was clicked.
	outcomeSkipped
	// outcomeError: the interaction failed partway; recovered locally.
	outcomeError
)

// Counters is the loop's progress record. It always reflects true
// progress up to termination, whatever caused the stop.
type Counters struct {
	ConnectionsMade         int
	ProfilesScanned         int
	ActionableElementsFound int
	ConsecutiveEmptyPages   int
	PagesVisited            int
	LastSuccess             time.Time
}

// Loop iterates result pages, resolves each connect button through the
// modal outcome race, and stops on the first of: target reached, too
// many consecutive unproductive pages, too long since the last sent
// invite, or no further pages.
type Loop struct {
	cfg     *config.AcquireConfig
	sel     *config.Selectors
	surface browser.Surface
	timing  *stealth.TimingController
	log     *zap.SugaredLogger

	now func() time.Time
}

func New(cfg *config.Config, s browser.Surface, timing *stealth.TimingController) *Loop {
	return &Loop{
		cfg:     &cfg.Acquire,
		sel:     &cfg.Selectors,
		surface: s,
		timing:  timing,
		log:     logger.WithComponent("acquire"),
		now:     time.Now,
	}
}

// Run acquires connections until the target is reached or an exhaustion
// condition holds. The returned error is non-nil only for context
// cancellation or an unexpected page-level failure; expected conditions
// (missing elements, disabled pagination) terminate cleanly.
func (l *Loop) Run(ctx context.Context, target int) (Counters, error) {
	c := Counters{LastSuccess: l.now()}

	for c.ConnectionsMade < target {
		if c.ConsecutiveEmptyPages >= l.cfg.MaxEmptyPages {
			l.log.Infof("Stopping: %d consecutive pages without a sent invite", c.ConsecutiveEmptyPages)
			break
		}
		if idle := l.now().Sub(c.LastSuccess); idle > l.cfg.MaxIdle {
			l.log.Infof("Stopping: %s since last sent invite", idle.Round(time.Second))
			break
		}

		c.PagesVisited++

		if err := l.timing.SleepSettle(ctx); err != nil {
			return c, err
		}
		l.nudgeScroll(ctx)

		cards, err := l.surface.FindAll(ctx, browser.Q(l.sel.ProfileCard))
		if err != nil || len(cards) == 0 {
			l.log.Warnf("Page %d: no profile cards visible", c.PagesVisited)
		}
		c.ProfilesScanned += len(cards)

		buttons, err := l.surface.FindAll(ctx, browser.Q(l.sel.ConnectButton))
		if err != nil || len(buttons) == 0 {
			l.log.Infof("Page %d: no connect buttons", c.PagesVisited)
		}
		c.ActionableElementsFound += len(buttons)

		sent := 0
		for _, el := range buttons {
			if c.ConnectionsMade >= target {
				break
			}
			if err := ctx.Err(); err != nil {
				return c, err
			}

			outcome := l.resolve(ctx, el)
			if outcome == outcomeSkipped {
				continue
			}
			if outcome == OutcomeSend {
				c.ConnectionsMade++
				sent++
				c.ConsecutiveEmptyPages = 0
				c.LastSuccess = l.now()
				l.log.Infof("Invite sent (%d/%d)", c.ConnectionsMade, target)
			}

			// Rate bound: a long pause after every attempt, whatever came of it.
			if err := l.timing.SleepInteraction(ctx); err != nil {
				return c, err
			}
		}

		if sent == 0 {
			c.ConsecutiveEmptyPages++
		}
		if c.ConnectionsMade >= target {
			break
		}

		more, err := l.nextPage(ctx)
		if err != nil {
			return c, err
		}
		if !more {
			l.log.Info("Stopping: no further result pages")
			break
		}
	}

	return c, nil
}

// resolve handles one connect button end to end. Every failure here is
// local: one bad element must never abort the page.
func (l *Loop) resolve(ctx context.Context, el browser.Element) Outcome {
	visible, err := el.Visible()
	if err != nil || !visible {
		return outcomeSkipped
	}

	if err := el.Click(ctx); err != nil {
		l.log.Debugf("Connect click failed: %v", err)
		return outcomeError
	}

	// Brief pause for the confirmation modal to mount.
	if err := l.timing.SleepAction(ctx); err != nil {
		return outcomeError
	}

	idx, control, err := l.surface.RaceAny(ctx, l.cfg.ModalTimeout,
		browser.Q(l.sel.SendWithoutNote),
		browser.Q(l.sel.SendNow),
		browser.Q(l.sel.DismissModal),
	)
	if err != nil {
		l.log.Debug("No confirmation control appeared")
		l.dismissBestEffort(ctx)
		return OutcomeUnknown
	}

	switch idx {
	case 0, 1:
		if err := control.Click(ctx); err != nil {
			l.log.Debugf("Send click failed: %v", err)
			return outcomeError
		}
		return OutcomeSend
	default:
		if err := control.Click(ctx); err != nil {
			l.log.Debugf("Dismiss click failed: %v", err)
			return outcomeError
		}
		return OutcomeDismiss
	}
}

func (l *Loop) dismissBestEffort(ctx context.Context) {
	if !l.surface.Exists(browser.Q(l.sel.DismissModal)) {
		return
	}
	if err := l.surface.Click(ctx, browser.Q(l.sel.DismissModal)); err != nil {
		l.log.Debugf("Best-effort dismiss failed: %v", err)
	}
}

// nudgeScroll forces lazily rendered cards into the DOM. Best effort.
func (l *Loop) nudgeScroll(ctx context.Context) {
	for i := 0; i < l.cfg.ScrollPasses; i++ {
		if err := l.surface.Scroll(ctx, 600); err != nil {
			l.log.Debugf("Scroll nudge failed: %v", err)
			return
		}
	}
}

// nextPage advances pagination. A missing or disabled Next control means
// the result set is exhausted, which is a clean stop, not an error.
func (l *Loop) nextPage(ctx context.Context) (bool, error) {
	el, err := l.surface.WaitFor(ctx, browser.Q(l.sel.NextButton), l.cfg.PaginationTimeout)
	if err != nil {
		return false, nil
	}

	if paginationDisabled(el) {
		return false, nil
	}

	if err := el.Click(ctx); err != nil {
		return false, fmt.Errorf("pagination click failed: %w", err)
	}
	if err := l.timing.SleepPageLoad(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// paginationDisabled treats the DOM disabled attribute, the ARIA disabled
// state and a disabled style class as equally authoritative: any one of
// them means no more pages.
func paginationDisabled(el browser.Element) bool {
	if _, ok, _ := el.Attribute("disabled"); ok {
		return true
	}
	if v, ok, _ := el.Attribute("aria-disabled"); ok && v == "true" {
		return true
	}
	if v, ok, _ := el.Attribute("class"); ok && strings.Contains(v, "disabled") {
		return true
	}
	return false
}
