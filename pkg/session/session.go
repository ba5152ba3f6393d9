package session

import (
	"context"
	"time"
)

// Element is a handle to one matched DOM element.
type Element interface {
	// Text returns the visible text content of the element.
	Text(ctx context.Context) (string, error)

	// Attribute returns the named attribute value, or "" if unset.
	Attribute(ctx context.Context, name string) (string, error)

	// Click scrolls the element into view and clicks it.
	Click(ctx context.Context) error

	// Type sends text to the element, optionally clearing its value first.
	Type(ctx context.Context, text string, clearFirst bool) error
}

// Session is a single live browser-like automation session. All calls may
// block up to a bounded timeout and must respect ctx cancellation.
type Session interface {
	// Navigate loads a URL and waits for the page to be ready.
	Navigate(ctx context.Context, url string) error

	// FindAll returns every element matching the selector. Zero matches is
	// not an error; the result is simply empty.
	FindAll(ctx context.Context, selector string) ([]Element, error)

	// CurrentURL returns the URL of the current page.
	CurrentURL(ctx context.Context) (string, error)

	// PageSource returns the serialized HTML of the current page.
	PageSource(ctx context.Context) (string, error)

	// Close terminates the session and releases its resources.
	Close(ctx context.Context) error
}

// Cookie is a driver-neutral representation of one stored cookie, used for
// best-effort persistence across session rotation.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Expires  time.Time
	Secure   bool
	HTTPOnly bool
}

// CookieCarrier is implemented by drivers that can export and import cookies.
// Rotation uses it when available and silently skips it otherwise.
type CookieCarrier interface {
	Cookies(ctx context.Context) ([]Cookie, error)
	SetCookies(ctx context.Context, cookies []Cookie) error
}

// Factory opens a new session with the given identity.
type Factory func(ctx context.Context, identity Identity) (Session, error)
