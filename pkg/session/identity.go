package session

import (
	"math/rand"

	"github.com/google/uuid"
)

// Identity is the browser persona a session presents: user agent, platform,
// languages, and viewport. Rotation opens each new session with a fresh one.
type Identity struct {
	ID             string
	UserAgent      string
	Platform       string
	Languages      []string
	ViewportWidth  int
	ViewportHeight int
}

// personas is the built-in pool of consistent browser profiles. UA, platform,
// and viewport must agree with each other or the mismatch itself is a signal.
var personas = []Identity{
	{
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		Platform:       "Win32",
		Languages:      []string{"en-US", "en"},
		ViewportWidth:  1920,
		ViewportHeight: 1080,
	},
	{
		UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		Platform:       "MacIntel",
		Languages:      []string{"en-US", "en"},
		ViewportWidth:  1728,
		ViewportHeight: 1117,
	},
	{
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
		Platform:       "Win32",
		Languages:      []string{"en-GB", "en"},
		ViewportWidth:  1536,
		ViewportHeight: 864,
	},
	{
		UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		Platform:       "Linux x86_64",
		Languages:      []string{"en-US", "en"},
		ViewportWidth:  1920,
		ViewportHeight: 1080,
	},
}

// NewIdentity samples a persona from the pool and stamps it with a unique ID.
func NewIdentity(rng *rand.Rand) Identity {
	id := personas[rng.Intn(len(personas))]
	id.ID = uuid.New().String()
	langs := make([]string, len(id.Languages))
	copy(langs, id.Languages)
	id.Languages = langs
	return id
}
