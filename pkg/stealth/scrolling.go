package stealth

import (
	"context"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/linkedin-outreach/pkg/config"
	"github.com/linkedin-outreach/pkg/logger"
)

// ScrollController breaks a scroll distance into an irregular sequence of
// steps, pauses and occasional scroll-backs. The acquisition loop uses it
// to nudge lazily rendered result cards into the DOM.
type ScrollController struct {
	config *config.ScrollingConfig
	timing *TimingController
	log    *zap.SugaredLogger
	rand   *rand.Rand
}

type ScrollAction struct {
	Delta     int
	Duration  time.Duration
	Direction string
}

func NewScrollController(cfg *config.ScrollingConfig, timing *TimingController) *ScrollController {
	return &ScrollController{
		config: cfg,
		timing: timing,
		log:    logger.WithComponent("scroll"),
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *ScrollController) GenerateScrollSequence(totalDistance int) []ScrollAction {
	if !s.config.Enabled {
		return []ScrollAction{{Delta: totalDistance, Duration: 0, Direction: "down"}}
	}

	actions := make([]ScrollAction, 0)
	remaining := totalDistance

	for remaining > 0 {
		speed := s.config.MinScrollSpeed +
			s.rand.Intn(s.config.MaxScrollSpeed-s.config.MinScrollSpeed+1)

		scrollAmount := s.calculateScrollAmount(remaining, speed)

		if remaining > scrollAmount*2 && s.rand.Float64() < s.config.ScrollBackChance {
			backAmount := scrollAmount / 3
			actions = append(actions, ScrollAction{
				Delta:     backAmount,
				Duration:  s.calculateScrollDuration(backAmount),
				Direction: "up",
			})
		}

		actions = append(actions, ScrollAction{
			Delta:     scrollAmount,
			Duration:  s.calculateScrollDuration(scrollAmount),
			Direction: "down",
		})

		remaining -= scrollAmount

		if s.rand.Float64() < s.config.PauseChance {
			actions = append(actions, ScrollAction{
				Duration:  time.Duration(500+s.rand.Intn(2000)) * time.Millisecond,
				Direction: "pause",
			})
		}
	}

	return actions
}

func (s *ScrollController) calculateScrollAmount(remaining, speed int) int {
	baseAmount := speed + s.rand.Intn(speed/2+1)

	variation := float64(baseAmount) * 0.2 * (s.rand.Float64()*2 - 1)
	amount := int(float64(baseAmount) + variation)

	if amount > remaining {
		amount = remaining
	}
	if amount < 10 {
		amount = 10
	}

	return amount
}

func (s *ScrollController) calculateScrollDuration(distance int) time.Duration {
	if s.config.SmoothScrolling {
		baseDuration := float64(distance) / 2.0
		variation := baseDuration * 0.3 * (s.rand.Float64()*2 - 1)
		return time.Duration(baseDuration+variation) * time.Millisecond
	}

	return time.Duration(50+s.rand.Intn(100)) * time.Millisecond
}

func (s *ScrollController) GenerateSmoothScrollSteps(totalDelta int) []int {
	if !s.config.SmoothScrolling {
		return []int{totalDelta}
	}

	numSteps := int(math.Abs(float64(totalDelta)) / 20)
	if numSteps < 5 {
		numSteps = 5
	}
	if numSteps > 50 {
		numSteps = 50
	}

	steps := make([]int, numSteps)
	remaining := totalDelta

	for i := 0; i < numSteps; i++ {
		if i == numSteps-1 {
			steps[i] = remaining
			break
		}

		step := totalDelta / numSteps
		variation := int(float64(step) * 0.1 * (s.rand.Float64()*2 - 1))
		step += variation

		if step > remaining && remaining > 0 {
			step = remaining
		}

		steps[i] = step
		remaining -= step
	}

	return steps
}

func (s *ScrollController) ExecuteScroll(ctx context.Context, scrollFn func(delta int) error, actions []ScrollAction) error {
	for _, action := range actions {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if action.Direction == "pause" {
			if err := s.timing.Sleep(ctx, action.Duration); err != nil {
				return err
			}
			continue
		}

		delta := action.Delta
		if action.Direction == "up" {
			delta = -delta
		}

		if s.config.SmoothScrolling {
			steps := s.GenerateSmoothScrollSteps(delta)
			stepDelay := action.Duration / time.Duration(len(steps))

			for _, step := range steps {
				if err := scrollFn(step); err != nil {
					return err
				}
				if err := s.timing.Sleep(ctx, stepDelay); err != nil {
					return err
				}
			}
		} else {
			if err := scrollFn(delta); err != nil {
				return err
			}
			if err := s.timing.Sleep(ctx, action.Duration); err != nil {
				return err
			}
		}
	}

	return nil
}
