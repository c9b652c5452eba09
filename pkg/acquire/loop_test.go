package acquire

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkedin-outreach/pkg/browser"
	"github.com/linkedin-outreach/pkg/config"
	"github.com/linkedin-outreach/pkg/stealth"
)

type fakeElement struct {
	visible  bool
	attrs    map[string]string
	clickErr error
	clicks   int
	onClick  func()
}

func (e *fakeElement) Click(ctx context.Context) error {
	e.clicks++
	if e.onClick != nil {
		e.onClick()
	}
	return e.clickErr
}

func (e *fakeElement) Text() (string, error) { return "", nil }

func (e *fakeElement) Visible() (bool, error) { return e.visible, nil }

func (e *fakeElement) Attribute(name string) (string, bool, error) {
	v, ok := e.attrs[name]
	return v, ok, nil
}

type fakePage struct {
	cards   int
	buttons []*fakeElement
	next    *fakeElement // nil means no pagination control on the page
}

type raceOutcome struct {
	idx int
	el  *fakeElement
	err error
}

// fakeSurface serves scripted pages and modal race outcomes so the loop
// can be driven without a browser.
type fakeSurface struct {
	sel     *config.Selectors
	pages   []fakePage
	current int

	races   []raceOutcome
	raceIdx int

	dismissExists bool
	dismissClicks int
	captures      []string
}

func (s *fakeSurface) page() fakePage {
	if s.current >= len(s.pages) {
		return fakePage{}
	}
	return s.pages[s.current]
}

func (s *fakeSurface) Navigate(ctx context.Context, url string) error { return nil }

func (s *fakeSurface) WaitFor(ctx context.Context, q browser.Query, timeout time.Duration) (browser.Element, error) {
	if q.String() == s.sel.NextButton {
		if next := s.page().next; next != nil {
			return next, nil
		}
	}
	return nil, errors.New("element not found")
}

func (s *fakeSurface) FindAll(ctx context.Context, q browser.Query) ([]browser.Element, error) {
	switch q.String() {
	case s.sel.ProfileCard:
		cards := make([]browser.Element, s.page().cards)
		for i := range cards {
			cards[i] = &fakeElement{visible: true}
		}
		return cards, nil
	case s.sel.ConnectButton:
		buttons := make([]browser.Element, 0, len(s.page().buttons))
		for _, b := range s.page().buttons {
			buttons = append(buttons, b)
		}
		return buttons, nil
	}
	return nil, nil
}

func (s *fakeSurface) Exists(q browser.Query) bool {
	return q.String() == s.sel.DismissModal && s.dismissExists
}

func (s *fakeSurface) Click(ctx context.Context, q browser.Query) error {
	if q.String() == s.sel.DismissModal {
		s.dismissClicks++
	}
	return nil
}

func (s *fakeSurface) Type(ctx context.Context, q browser.Query, text string) error { return nil }

func (s *fakeSurface) PressEnter(ctx context.Context) error { return nil }

func (s *fakeSurface) RaceAny(ctx context.Context, timeout time.Duration, queries ...browser.Query) (int, browser.Element, error) {
	if s.raceIdx >= len(s.races) {
		return 0, nil, errors.New("no control appeared")
	}
	r := s.races[s.raceIdx]
	s.raceIdx++
	if r.err != nil {
		return 0, nil, r.err
	}
	return r.idx, r.el, nil
}

func (s *fakeSurface) Scroll(ctx context.Context, deltaY int) error { return nil }

func (s *fakeSurface) Eval(ctx context.Context, js string) error { return nil }

func (s *fakeSurface) CurrentURL() string { return "" }

func (s *fakeSurface) Screenshot(path string) error { return nil }

func (s *fakeSurface) CaptureFailure(category string) string {
	s.captures = append(s.captures, category)
	return ""
}

func (s *fakeSurface) Close() error { return nil }

// enabledNext wires a pagination control that advances the fake to its
// next page when clicked.
func enabledNext(s *fakeSurface) *fakeElement {
	return &fakeElement{visible: true, onClick: func() { s.current++ }}
}

func sendOutcome() raceOutcome {
	return raceOutcome{idx: 0, el: &fakeElement{visible: true}}
}

func dismissOutcome() raceOutcome {
	return raceOutcome{idx: 2, el: &fakeElement{visible: true}}
}

func newTestLoop(t *testing.T, s *fakeSurface) *Loop {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Stealth.Timing = config.TimingConfig{}
	s.sel = &cfg.Selectors

	return New(cfg, s, stealth.NewTimingController(&cfg.Stealth.Timing))
}

func TestRunZeroTarget(t *testing.T) {
	s := &fakeSurface{}
	loop := newTestLoop(t, s)

	c, err := loop.Run(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, 0, c.ConnectionsMade)
	assert.Equal(t, 0, c.ProfilesScanned)
	assert.Equal(t, 0, c.ActionableElementsFound)
	assert.Equal(t, 0, c.PagesVisited)
}

func TestRunCountsOnlySentInvites(t *testing.T) {
	buttons := []*fakeElement{
		{visible: true},
		{visible: true},
		{visible: true},
	}
	s := &fakeSurface{
		pages: []fakePage{{cards: 10, buttons: buttons}},
		races: []raceOutcome{sendOutcome(), dismissOutcome(), sendOutcome()},
	}
	loop := newTestLoop(t, s)

	c, err := loop.Run(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, 2, c.ConnectionsMade)
	assert.Equal(t, 10, c.ProfilesScanned)
	assert.Equal(t, 3, c.ActionableElementsFound)
	assert.Equal(t, 1, c.PagesVisited)
}

func TestRunStopsAtTarget(t *testing.T) {
	buttons := make([]*fakeElement, 5)
	races := make([]raceOutcome, 0, 5)
	for i := range buttons {
		buttons[i] = &fakeElement{visible: true}
		races = append(races, sendOutcome())
	}
	s := &fakeSurface{
		pages: []fakePage{{cards: 5, buttons: buttons}},
		races: races,
	}
	loop := newTestLoop(t, s)

	c, err := loop.Run(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, 2, c.ConnectionsMade)
	assert.Equal(t, 2, s.raceIdx, "no connect attempts past the target")
	assert.Equal(t, 0, buttons[2].clicks)
}

func TestRunStopsAfterConsecutiveEmptyPages(t *testing.T) {
	s := &fakeSurface{}
	// More empty pages available than the loop should ever visit.
	for i := 0; i < 10; i++ {
		s.pages = append(s.pages, fakePage{cards: 10, next: enabledNext(s)})
	}
	loop := newTestLoop(t, s)

	c, err := loop.Run(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, 0, c.ConnectionsMade)
	assert.Equal(t, 5, c.PagesVisited)
	assert.Equal(t, 5, c.ConsecutiveEmptyPages)
}

func TestRunEmptyStreakResetsOnSend(t *testing.T) {
	s := &fakeSurface{}
	s.pages = []fakePage{
		{cards: 10, next: enabledNext(s)},
		{cards: 10, next: enabledNext(s)},
		{cards: 10, buttons: []*fakeElement{{visible: true}}, next: enabledNext(s)},
		{cards: 10, next: enabledNext(s)},
		{cards: 10, next: enabledNext(s)},
		{cards: 10, next: enabledNext(s)},
		{cards: 10, next: enabledNext(s)},
		{cards: 10, next: enabledNext(s)},
	}
	s.races = []raceOutcome{sendOutcome()}
	loop := newTestLoop(t, s)

	c, err := loop.Run(context.Background(), 5)
	require.NoError(t, err)

	// Two empty pages, one productive page, then five more empty pages.
	assert.Equal(t, 1, c.ConnectionsMade)
	assert.Equal(t, 8, c.PagesVisited)
	assert.Equal(t, 5, c.ConsecutiveEmptyPages)
}

func TestRunStopsOnDisabledPagination(t *testing.T) {
	s := &fakeSurface{}
	disabled := &fakeElement{visible: true, attrs: map[string]string{"disabled": ""}}
	s.pages = []fakePage{
		{cards: 10, buttons: []*fakeElement{{visible: true}}, next: enabledNext(s)},
		{cards: 10, buttons: []*fakeElement{{visible: true}}, next: enabledNext(s)},
		{cards: 10, buttons: []*fakeElement{{visible: true}}, next: disabled},
	}
	s.races = []raceOutcome{sendOutcome(), sendOutcome(), sendOutcome()}
	loop := newTestLoop(t, s)

	c, err := loop.Run(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, 3, c.PagesVisited)
	assert.Equal(t, 3, c.ConnectionsMade)
	assert.Equal(t, 0, disabled.clicks, "a disabled control is never clicked")
}

func TestPaginationDisabledSignals(t *testing.T) {
	tests := []struct {
		name  string
		attrs map[string]string
		want  bool
	}{
		{"enabled", map[string]string{"class": "artdeco-pagination__button"}, false},
		{"disabled attribute", map[string]string{"disabled": ""}, true},
		{"aria-disabled", map[string]string{"aria-disabled": "true"}, true},
		{"aria-enabled", map[string]string{"aria-disabled": "false"}, false},
		{"disabled class", map[string]string{"class": "artdeco-button--disabled"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el := &fakeElement{visible: true, attrs: tt.attrs}
			assert.Equal(t, tt.want, paginationDisabled(el))
		})
	}
}

func TestRunStopsWhenNextButtonMissing(t *testing.T) {
	s := &fakeSurface{
		pages: []fakePage{{cards: 10}},
	}
	loop := newTestLoop(t, s)

	c, err := loop.Run(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, 1, c.PagesVisited)
}

func TestRunSkipsInvisibleButtons(t *testing.T) {
	hidden := &fakeElement{visible: false}
	s := &fakeSurface{
		pages: []fakePage{{cards: 3, buttons: []*fakeElement{hidden}}},
	}
	loop := newTestLoop(t, s)

	c, err := loop.Run(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, 0, hidden.clicks)
	assert.Equal(t, 0, s.raceIdx, "skipped elements never reach the modal race")
	assert.Equal(t, 1, c.ActionableElementsFound, "hidden buttons still count as found")
	assert.Equal(t, 0, c.ConnectionsMade)
}

func TestRunUnknownOutcomeDismissesLeftoverModal(t *testing.T) {
	s := &fakeSurface{
		pages:         []fakePage{{cards: 3, buttons: []*fakeElement{{visible: true}}}},
		races:         []raceOutcome{{err: errors.New("timeout")}},
		dismissExists: true,
	}
	loop := newTestLoop(t, s)

	c, err := loop.Run(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, 0, c.ConnectionsMade)
	assert.Equal(t, 1, s.dismissClicks)
}

func TestRunRecoversFromElementFailures(t *testing.T) {
	broken := &fakeElement{visible: true, clickErr: errors.New("node detached")}
	good := &fakeElement{visible: true}
	s := &fakeSurface{
		pages: []fakePage{{cards: 2, buttons: []*fakeElement{broken, good}}},
		races: []raceOutcome{sendOutcome()},
	}
	loop := newTestLoop(t, s)

	c, err := loop.Run(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, 1, c.ConnectionsMade)
}

func TestRunStopsOnIdleTimeout(t *testing.T) {
	s := &fakeSurface{}
	for i := 0; i < 3; i++ {
		s.pages = append(s.pages, fakePage{cards: 10, next: enabledNext(s)})
	}
	loop := newTestLoop(t, s)

	start := time.Now()
	calls := 0
	loop.now = func() time.Time {
		calls++
		if calls == 1 {
			return start
		}
		return start.Add(6 * time.Minute)
	}

	c, err := loop.Run(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, 0, c.PagesVisited)
	assert.Equal(t, 0, c.ConnectionsMade)
}

func TestRunHonorsContextCancellation(t *testing.T) {
	buttons := []*fakeElement{{visible: true}, {visible: true}}
	s := &fakeSurface{
		pages: []fakePage{{cards: 2, buttons: buttons}},
		races: []raceOutcome{sendOutcome(), sendOutcome()},
	}
	loop := newTestLoop(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, err := loop.Run(ctx, 5)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, c.ConnectionsMade)
}
