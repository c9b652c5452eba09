package browser

import (
	"context"
	"strings"
	"time"
)

// Query addresses an element either by CSS selector or by an XPath
// expression. XPath carries the structural matches (accessible label or
// contained text) for controls without stable attributes.
type Query struct {
	CSS   string
	XPath string
}

// Q builds a Query from a raw selector string. Strings starting with "/"
// or "(" are treated as XPath.
func Q(s string) Query {
	if strings.HasPrefix(s, "/") || strings.HasPrefix(s, "(") {
		return Query{XPath: s}
	}
	return Query{CSS: s}
}

func (q Query) String() string {
	if q.XPath != "" {
		return q.XPath
	}
	return q.CSS
}

// Element is a handle to a single rendered control.
type Element interface {
	Click(ctx context.Context) error
	Text() (string, error)
	// Visible reports whether the element is currently rendered, per its
	// computed style. Result pages can contain off-screen or stale handles.
	Visible() (bool, error)
	// Attribute returns the attribute value and whether it is present.
	Attribute(name string) (string, bool, error)
}

// Surface is the capability set the automation core consumes from a
// controllable browser page. Every operation may fail with a timeout or
// not-found condition.
type Surface interface {
	Navigate(ctx context.Context, url string) error
	WaitFor(ctx context.Context, q Query, timeout time.Duration) (Element, error)
	FindAll(ctx context.Context, q Query) ([]Element, error)
	Exists(q Query) bool
	Click(ctx context.Context, q Query) error
	Type(ctx context.Context, q Query, text string) error
	PressEnter(ctx context.Context) error
	// RaceAny waits concurrently for the first of the given queries to
	// appear and returns its index and handle. Losers are abandoned
	// without side effects.
	RaceAny(ctx context.Context, timeout time.Duration, queries ...Query) (int, Element, error)
	Scroll(ctx context.Context, deltaY int) error
	Eval(ctx context.Context, js string) error
	CurrentURL() string
	Screenshot(path string) error
	// CaptureFailure stores a diagnostic screenshot tagged with a failure
	// category and timestamp, returning the path (empty on error).
	CaptureFailure(category string) string
	Close() error
}
