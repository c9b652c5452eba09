package stealth

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/linkedin-outreach/pkg/config"
	"github.com/linkedin-outreach/pkg/logger"
)

// TimingController is the injected delay policy. Every pause the run
// takes goes through it, so a zeroed TimingConfig yields an instant,
// deterministic run for tests.
type TimingController struct {
	config *config.TimingConfig
	log    *zap.SugaredLogger
	rand   *rand.Rand
}

func NewTimingController(cfg *config.TimingConfig) *TimingController {
	return &TimingController{
		config: cfg,
		log:    logger.WithComponent("timing"),
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (t *TimingController) RandomDelay(min, max time.Duration) time.Duration {
	if min >= max {
		return min
	}

	base := min + time.Duration(t.rand.Int63n(int64(max-min)))

	variation := float64(base) * t.config.HumanVariation * (t.rand.Float64()*2 - 1)
	final := base + time.Duration(variation)

	if final < min {
		final = min
	}

	return final
}

func (t *TimingController) ActionDelay() time.Duration {
	return t.RandomDelay(t.config.MinActionDelay, t.config.MaxActionDelay)
}

func (t *TimingController) ThinkDelay() time.Duration {
	return t.RandomDelay(t.config.MinThinkTime, t.config.MaxThinkTime)
}

// SettleDelay is the pause before reading freshly rendered page content.
func (t *TimingController) SettleDelay() time.Duration {
	return t.RandomDelay(t.config.MinSettleDelay, t.config.MaxSettleDelay)
}

// InteractionGap is the long pause after every attempted connection,
// successful or not, bounding the request rate.
func (t *TimingController) InteractionGap() time.Duration {
	return t.RandomDelay(t.config.MinInteractionGap, t.config.MaxInteractionGap)
}

func (t *TimingController) PageLoadDelay() time.Duration {
	base := t.config.PageLoadWait
	variation := time.Duration(float64(base) * t.config.HumanVariation * t.rand.Float64())
	return base + variation
}

func (t *TimingController) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func (t *TimingController) SleepAction(ctx context.Context) error {
	return t.Sleep(ctx, t.ActionDelay())
}

func (t *TimingController) SleepThink(ctx context.Context) error {
	return t.Sleep(ctx, t.ThinkDelay())
}

func (t *TimingController) SleepSettle(ctx context.Context) error {
	return t.Sleep(ctx, t.SettleDelay())
}

func (t *TimingController) SleepInteraction(ctx context.Context) error {
	return t.Sleep(ctx, t.InteractionGap())
}

func (t *TimingController) SleepPageLoad(ctx context.Context) error {
	return t.Sleep(ctx, t.PageLoadDelay())
}
