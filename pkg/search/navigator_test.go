package search

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
	clicks int
}

func (e *fakeElement) Click(ctx context.Context) error        { e.clicks++; return nil }
func (e *fakeElement) Text() (string, error)                  { return "", nil }
func (e *fakeElement) Visible() (bool, error)                 { return true, nil }
func (e *fakeElement) Attribute(string) (string, bool, error) { return "", false, nil }

type fakeSurface struct {
	sel *config.Selectors

	searchInputPresent bool
	peopleScope        *fakeElement

	typed        []string
	enterPresses int
	captures     []string
}

func (s *fakeSurface) Navigate(ctx context.Context, url string) error { return nil }

func (s *fakeSurface) WaitFor(ctx context.Context, q browser.Query, timeout time.Duration) (browser.Element, error) {
	switch q.String() {
	case s.sel.SearchInput:
		if s.searchInputPresent {
			return &fakeElement{}, nil
		}
	case s.sel.PeopleScope:
		if s.peopleScope != nil {
			return s.peopleScope, nil
		}
	}
	return nil, errors.New("element not found")
}

func (s *fakeSurface) FindAll(ctx context.Context, q browser.Query) ([]browser.Element, error) {
	return nil, nil
}

func (s *fakeSurface) Exists(q browser.Query) bool { return false }

func (s *fakeSurface) Click(ctx context.Context, q browser.Query) error { return nil }

func (s *fakeSurface) Type(ctx context.Context, q browser.Query, text string) error {
	s.typed = append(s.typed, text)
	return nil
}

func (s *fakeSurface) PressEnter(ctx context.Context) error {
	s.enterPresses++
	return nil
}

func (s *fakeSurface) RaceAny(ctx context.Context, timeout time.Duration, queries ...browser.Query) (int, browser.Element, error) {
	return 0, nil, errors.New("no control appeared")
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

func newTestNavigator(t *testing.T, s *fakeSurface) *Navigator {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Stealth.Timing = config.TimingConfig{}
	s.sel = &cfg.Selectors

	return New(cfg, s, stealth.NewTimingController(&cfg.Stealth.Timing))
}

func TestSearchTypesKeywordsAndSubmits(t *testing.T) {
	s := &fakeSurface{searchInputPresent: true}
	n := newTestNavigator(t, s)

	err := n.Search(context.Background(), "golang engineer")
	require.NoError(t, err)

	assert.Equal(t, []string{"golang engineer"}, s.typed)
	assert.Equal(t, 1, s.enterPresses)
	assert.Empty(t, s.captures)
}

func TestSearchFailsLoudlyWhenInputMissing(t *testing.T) {
	s := &fakeSurface{}
	n := newTestNavigator(t, s)

	err := n.Search(context.Background(), "golang engineer")
	require.Error(t, err)

	assert.Contains(t, err.Error(), "golang engineer")
	assert.Equal(t, []string{"search"}, s.captures)
}

func TestSwitchToPeopleScope(t *testing.T) {
	pill := &fakeElement{}
	s := &fakeSurface{peopleScope: pill}
	n := newTestNavigator(t, s)

	err := n.SwitchToPeopleScope(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, pill.clicks)
}

func TestSwitchToPeopleScopeMissingControl(t *testing.T) {
	s := &fakeSurface{}
	n := newTestNavigator(t, s)

	err := n.SwitchToPeopleScope(context.Background())
	require.Error(t, err)

	assert.Equal(t, []string{"search"}, s.captures)
}
