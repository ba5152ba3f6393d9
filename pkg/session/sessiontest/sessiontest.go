// Package sessiontest provides a scripted, deterministic Session
// implementation for exercising the engine without a browser.
package sessiontest

import (
	"context"
	"sync"

	"github.com/calewin/fieldhand/pkg/session"
)

// Element is a scripted DOM element.
type Element struct {
	TextValue string
	Attrs     map[string]string
	ClickErr  error
	TypeErr   error

	// ClickFailures bounds how many clicks return ClickErr. Zero means
	// every click fails while ClickErr is set.
	ClickFailures int

	ClickCount int
	TypedText  []string
}

func (e *Element) Text(ctx context.Context) (string, error) {
	return e.TextValue, nil
}

func (e *Element) Attribute(ctx context.Context, name string) (string, error) {
	return e.Attrs[name], nil
}

func (e *Element) Click(ctx context.Context) error {
	e.ClickCount++
	if e.ClickErr != nil && (e.ClickFailures == 0 || e.ClickCount <= e.ClickFailures) {
		return e.ClickErr
	}
	return nil
}

func (e *Element) Type(ctx context.Context, text string, clearFirst bool) error {
	if e.TypeErr != nil {
		return e.TypeErr
	}
	if clearFirst {
		e.TypedText = nil
	}
	e.TypedText = append(e.TypedText, text)
	return nil
}

// Page is one scripted page state: its source and the elements each selector
// resolves to.
type Page struct {
	URL      string
	Source   string
	Elements map[string][]*Element
}

// Session replays scripted pages. Navigations consume the queue first, then
// fall back to the URL-keyed page set, then to an empty page.
type Session struct {
	mu          sync.Mutex
	pages       map[string]*Page
	queue       []*Page
	current     *Page
	NavigateErr map[string]error

	Navigations []string
	Closed      bool
}

func New() *Session {
	return &Session{
		pages:       make(map[string]*Page),
		NavigateErr: make(map[string]error),
		current:     &Page{},
	}
}

// AddPage registers a page served whenever its URL is navigated to.
func (s *Session) AddPage(p *Page) *Session {
	s.pages[p.URL] = p
	return s
}

// QueuePage appends a page served by the next navigation regardless of URL.
// Queued pages let a test script different responses for repeated visits.
func (s *Session) QueuePage(p *Page) *Session {
	s.queue = append(s.queue, p)
	return s
}

// SetCurrent makes p the current page without a navigation.
func (s *Session) SetCurrent(p *Page) *Session {
	s.current = p
	return s
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Navigations = append(s.Navigations, url)
	if err := s.NavigateErr[url]; err != nil {
		return err
	}
	switch {
	case len(s.queue) > 0:
		s.current = s.queue[0]
		s.queue = s.queue[1:]
	case s.pages[url] != nil:
		s.current = s.pages[url]
	default:
		s.current = &Page{URL: url}
	}
	return nil
}

func (s *Session) FindAll(ctx context.Context, selector string) ([]session.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	scripted := s.current.Elements[selector]
	elements := make([]session.Element, len(scripted))
	for i, e := range scripted {
		elements[i] = e
	}
	return elements, nil
}

func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current.URL != "" {
		return s.current.URL, nil
	}
	return "about:blank", nil
}

func (s *Session) PageSource(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Source, nil
}

func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

// Factory returns a session.Factory that always hands out s.
func Factory(s *Session) session.Factory {
	return func(ctx context.Context, identity session.Identity) (session.Session, error) {
		return s, nil
	}
}

// SequenceFactory hands out the given sessions in order, recording the
// identity each one was opened with. Useful for rotation tests.
type SequenceFactory struct {
	mu         sync.Mutex
	sessions   []*Session
	Identities []session.Identity
}

func NewSequenceFactory(sessions ...*Session) *SequenceFactory {
	return &SequenceFactory{sessions: sessions}
}

func (f *SequenceFactory) Factory() session.Factory {
	return func(ctx context.Context, identity session.Identity) (session.Session, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.Identities = append(f.Identities, identity)
		if len(f.sessions) == 0 {
			return New(), nil
		}
		next := f.sessions[0]
		if len(f.sessions) > 1 {
			f.sessions = f.sessions[1:]
		}
		return next, nil
	}
}

// Opened returns how many sessions the factory has handed out.
func (f *SequenceFactory) Opened() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Identities)
}
