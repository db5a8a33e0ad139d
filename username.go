package gitauth

import (
	"context"
	"fmt"
	"os"

	"github.com/go-git/go-git/v5/plumbing/transport"
)

// UsernameAuth is the credential issued for username-probe rounds. It
// carries a username and nothing else; transports that advertise
// MethodUsername consume it to decide which real methods to offer next.
type UsernameAuth struct {
	Username string
}

// Name implements transport.AuthMethod.
func (a *UsernameAuth) Name() string {
	return "username-probe"
}

func (a *UsernameAuth) String() string {
	return fmt.Sprintf("%s - %s", a.Name(), a.Username)
}

// UsernameSource answers username-probe rounds from an ordered candidate
// list. Each round consumes the next candidate: the callback hint first
// when present, then the configured credential.username, then the static
// candidates. Resolution itself never fails while candidates remain; a
// candidate is only spent when the server rejects it and the transport
// calls back.
type UsernameSource struct {
	// Candidates are the static usernames to offer, in order. Duplicates
	// of earlier entries are skipped at resolve time.
	Candidates []string
}

// DefaultUsernames returns the built-in candidate list: the empty username
// (let the server pick), "git" (the near-universal hosting convention), and
// the current user's login name when $USER is set.
func DefaultUsernames() []string {
	candidates := []string{"", "git"}
	if u := os.Getenv("USER"); u != "" {
		candidates = append(candidates, u)
	}
	return candidates
}

// NewUsernameSource creates a username source with the given candidates,
// or DefaultUsernames when none are given.
func NewUsernameSource(candidates ...string) *UsernameSource {
	if len(candidates) == 0 {
		candidates = DefaultUsernames()
	}
	return &UsernameSource{Candidates: candidates}
}

// Name implements Source.
func (s *UsernameSource) Name() string { return "username" }

// Methods implements Source.
func (s *UsernameSource) Methods() Methods { return MethodUsername }

// MaxAttempts implements Source. The budget covers every static candidate
// plus the two per-request slots (hint and configured username).
func (s *UsernameSource) MaxAttempts() int { return len(s.Candidates) + 2 }

// Resolve implements Source.
//
//nolint:ireturn // credential callbacks traffic in transport.AuthMethod
func (s *UsernameSource) Resolve(ctx context.Context, req *Request) (transport.AuthMethod, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	candidates := s.candidatesFor(req)
	if req.Round >= len(candidates) {
		return nil, WrapErrorf(ErrCredentialsUnavailable, "tried all %d username candidates", len(candidates))
	}
	return &UsernameAuth{Username: candidates[req.Round]}, nil
}

// candidatesFor builds the effective candidate list for one request:
// hint, configured username, then the static candidates, keeping the first
// occurrence of each value. The empty username stays a valid candidate, so
// deduplication treats presence and emptiness separately.
func (s *UsernameSource) candidatesFor(req *Request) []string {
	var effective []string
	seen := make(map[string]struct{}, len(s.Candidates)+2)
	add := func(name string) {
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		effective = append(effective, name)
	}

	if req.Username != "" {
		add(req.Username)
	}
	if cfgUser, ok := req.Config.DefaultUsername(req.URL); ok {
		add(cfgUser)
	}
	for _, c := range s.Candidates {
		add(c)
	}
	return effective
}
