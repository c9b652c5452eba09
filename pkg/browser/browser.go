package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/linkedin-outreach/pkg/config"
	"github.com/linkedin-outreach/pkg/logger"
	"github.com/linkedin-outreach/pkg/stealth"
)

const (
	elementTimeout = 30 * time.Second
	existsTimeout  = 2 * time.Second
)

// Browser drives a single Chrome session through go-rod and implements
// Surface. It is the one exclusive resource of a run: launched once,
// closed on every exit path.
type Browser struct {
	config      *config.BrowserConfig
	rod         *rod.Browser
	page        *rod.Page
	log         *zap.SugaredLogger
	fingerprint *stealth.FingerprintManager
	mouse       *stealth.MouseController
	timing      *stealth.TimingController
	scroll      *stealth.ScrollController
	typing      *stealth.TypingController
}

type Options struct {
	Config      *config.Config
	Fingerprint *stealth.FingerprintManager
	Mouse       *stealth.MouseController
	Timing      *stealth.TimingController
	Scroll      *stealth.ScrollController
	Typing      *stealth.TypingController
}

func New(opts Options) *Browser {
	return &Browser{
		config:      &opts.Config.Browser,
		log:         logger.WithComponent("browser"),
		fingerprint: opts.Fingerprint,
		mouse:       opts.Mouse,
		timing:      opts.Timing,
		scroll:      opts.Scroll,
		typing:      opts.Typing,
	}
}

func (b *Browser) Launch(ctx context.Context) error {
	b.log.Info("Launching browser...")

	if err := os.MkdirAll(b.config.UserDataDir, 0755); err != nil {
		return fmt.Errorf("failed to create user data directory: %w", err)
	}

	fp := b.fingerprint.Generate()

	l := launcher.New().
		Headless(b.config.Headless).
		UserDataDir(b.config.UserDataDir).
		Set("no-first-run").
		Set("no-default-browser-check")

	if b.config.Bin != "" {
		l = l.Bin(b.config.Bin)
	}
	for _, arg := range b.fingerprint.GetBrowserArgs() {
		name, value, _ := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if value != "" {
			l = l.Set(flags.Flag(name), value)
		} else {
			l = l.Set(flags.Flag(name))
		}
	}

	url, err := l.Launch()
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}
	b.rod = browser

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("failed to create page: %w", err)
	}

	if fp.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: fp.UserAgent}); err != nil {
			b.log.Warnf("Failed to set user agent: %v", err)
		}
	}

	for _, script := range b.fingerprint.GetStealthScripts() {
		if _, err := page.EvalOnNewDocument(script); err != nil {
			b.log.Warnf("Failed to inject stealth script: %v", err)
		}
	}

	b.page = page
	b.log.Info("Browser launched")
	return nil
}

func (b *Browser) Navigate(ctx context.Context, url string) error {
	b.log.Debugf("Navigating to %s", url)

	page := b.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("page load timeout for %s: %w", url, err)
	}

	return b.timing.SleepPageLoad(ctx)
}

func (b *Browser) element(ctx context.Context, q Query, timeout time.Duration) (*rod.Element, error) {
	page := b.page.Context(ctx).Timeout(timeout)
	if q.XPath != "" {
		return page.ElementX(q.XPath)
	}
	return page.Element(q.CSS)
}

func (b *Browser) WaitFor(ctx context.Context, q Query, timeout time.Duration) (Element, error) {
	el, err := b.element(ctx, q, timeout)
	if err != nil {
		return nil, fmt.Errorf("element not found: %s: %w", q, err)
	}
	return &rodElement{b: b, el: el}, nil
}

func (b *Browser) FindAll(ctx context.Context, q Query) ([]Element, error) {
	page := b.page.Context(ctx)

	var els rod.Elements
	var err error
	if q.XPath != "" {
		els, err = page.ElementsX(q.XPath)
	} else {
		els, err = page.Elements(q.CSS)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find elements: %s: %w", q, err)
	}

	out := make([]Element, len(els))
	for i, el := range els {
		out[i] = &rodElement{b: b, el: el}
	}
	return out, nil
}

func (b *Browser) Exists(q Query) bool {
	_, err := b.element(context.Background(), q, existsTimeout)
	return err == nil
}

func (b *Browser) Click(ctx context.Context, q Query) error {
	el, err := b.element(ctx, q, elementTimeout)
	if err != nil {
		return fmt.Errorf("element not found: %s: %w", q, err)
	}
	if err := b.clickElement(ctx, el); err != nil {
		return err
	}
	b.log.Debugf("Clicked element: %s", q)
	return nil
}

// clickElement moves the mouse along a humanized bezier path to the
// element center before clicking.
func (b *Browser) clickElement(ctx context.Context, el *rod.Element) error {
	el = el.Context(ctx)

	if err := el.ScrollIntoView(); err != nil {
		b.log.Debugf("Scroll into view failed: %v", err)
	}

	box, err := el.Shape()
	if err != nil {
		return fmt.Errorf("failed to get element shape: %w", err)
	}
	if box == nil || len(box.Quads) == 0 {
		return fmt.Errorf("element has no visible shape")
	}

	quad := box.Quads[0]
	centerX := (quad[0] + quad[2] + quad[4] + quad[6]) / 4
	centerY := (quad[1] + quad[3] + quad[5] + quad[7]) / 4

	path := b.mouse.GeneratePath(
		stealth.Point{X: 0, Y: 0},
		stealth.Point{X: centerX, Y: centerY},
	)
	for _, point := range path {
		if err := b.page.Mouse.MoveTo(proto.Point{X: point.X, Y: point.Y}); err != nil {
			return fmt.Errorf("mouse move failed: %w", err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := b.timing.SleepAction(ctx); err != nil {
		return err
	}

	if err := b.page.Mouse.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

func (b *Browser) Type(ctx context.Context, q Query, text string) error {
	el, err := b.element(ctx, q, elementTimeout)
	if err != nil {
		return fmt.Errorf("element not found: %s: %w", q, err)
	}

	if err := b.clickElement(ctx, el); err != nil {
		return err
	}
	if err := b.timing.SleepAction(ctx); err != nil {
		return err
	}

	el = el.Context(ctx)
	typeFn := func(char rune) error {
		return el.Input(string(char))
	}
	backspaceFn := func() error {
		return el.Type(input.Backspace)
	}

	if err := b.typing.ExecuteTyping(ctx, typeFn, backspaceFn, text); err != nil {
		return fmt.Errorf("typing failed: %w", err)
	}

	b.log.Debugf("Typed text into element: %s", q)
	return nil
}

func (b *Browser) PressEnter(ctx context.Context) error {
	if err := b.page.Context(ctx).Keyboard.Press(input.Enter); err != nil {
		return fmt.Errorf("enter key press failed: %w", err)
	}
	return nil
}

// RaceAny issues concurrent waits for all queries and resolves to
// whichever appears first. The index identifies the winner; the losing
// waits are abandoned without side effects.
func (b *Browser) RaceAny(ctx context.Context, timeout time.Duration, queries ...Query) (int, Element, error) {
	page := b.page.Context(ctx).Timeout(timeout)

	winner := -1
	race := page.Race()
	for i, q := range queries {
		if q.XPath != "" {
			race = race.ElementX(q.XPath)
		} else {
			race = race.Element(q.CSS)
		}
		idx := i
		race = race.Handle(func(el *rod.Element) error {
			winner = idx
			return nil
		})
	}

	el, err := race.Do()
	if err != nil {
		return -1, nil, fmt.Errorf("no candidate element appeared: %w", err)
	}
	return winner, &rodElement{b: b, el: el}, nil
}

func (b *Browser) Scroll(ctx context.Context, deltaY int) error {
	actions := b.scroll.GenerateScrollSequence(deltaY)

	scrollFn := func(delta int) error {
		return b.page.Context(ctx).Mouse.Scroll(0, float64(delta), 1)
	}
	return b.scroll.ExecuteScroll(ctx, scrollFn, actions)
}

func (b *Browser) Eval(ctx context.Context, js string) error {
	if _, err := b.page.Context(ctx).Evaluate(rod.Eval(js)); err != nil {
		return fmt.Errorf("evaluate failed: %w", err)
	}
	return nil
}

func (b *Browser) CurrentURL() string {
	info, err := b.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (b *Browser) Screenshot(filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}

	data, err := b.page.Screenshot(true, nil)
	if err != nil {
		return fmt.Errorf("screenshot failed: %w", err)
	}

	return os.WriteFile(filename, data, 0644)
}

func (b *Browser) CaptureFailure(category string) string {
	name := fmt.Sprintf("%s-%s.png", category, time.Now().Format("20060102-150405"))
	path := filepath.Join(b.config.ScreenshotDir, name)

	if err := b.Screenshot(path); err != nil {
		b.log.Warnf("Failed to capture %s diagnostic screenshot: %v", category, err)
		return ""
	}
	b.log.Infof("Saved diagnostic screenshot: %s", path)
	return path
}

func (b *Browser) Page() *rod.Page {
	return b.page
}

func (b *Browser) Close() error {
	if b.rod != nil {
		return b.rod.Close()
	}
	return nil
}

type rodElement struct {
	b  *Browser
	el *rod.Element
}

func (e *rodElement) Click(ctx context.Context) error {
	return e.b.clickElement(ctx, e.el)
}

func (e *rodElement) Text() (string, error) {
	text, err := e.el.Text()
	if err != nil {
		return "", fmt.Errorf("failed to get text: %w", err)
	}
	return text, nil
}

func (e *rodElement) Visible() (bool, error) {
	return e.el.Visible()
}

func (e *rodElement) Attribute(name string) (string, bool, error) {
	value, err := e.el.Attribute(name)
	if err != nil {
		return "", false, fmt.Errorf("failed to get attribute %s: %w", name, err)
	}
	if value == nil {
		return "", false, nil
	}
	return *value, true, nil
}
