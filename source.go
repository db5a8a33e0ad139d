package gitauth

import (
	"context"
	"fmt"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

// Source produces credentials of one kind. Implementations must be
// stateless with respect to negotiation: per-attempt progress lives in the
// Attempt tracker and reaches the source through Request.Round, so a single
// Source value can serve many handlers.
type Source interface {
	// Name returns a stable identifier used for attempt bookkeeping, log
	// lines, and error reports. Names must be unique within a chain.
	Name() string

	// Methods returns the method bits this source can satisfy. The source
	// is only consulted when the server's advertised set overlaps it.
	Methods() Methods

	// MaxAttempts returns how many times this source may be tried within
	// one attempt before the selector skips it. Always at least 1.
	MaxAttempts() int

	// Resolve produces a credential for the request, or an error describing
	// why none is available. Returning (nil, nil) elects unauthenticated
	// access. Resolve must not block on user interaction; secrets arrive
	// through the providers configured on the source.
	Resolve(ctx context.Context, req *Request) (transport.AuthMethod, error)
}

// Request carries the per-round inputs a source needs to resolve a
// credential. Handlers build one per Negotiate call; sources treat it as
// read-only.
type Request struct {
	// URL is the remote URL exactly as the transport supplied it.
	URL string

	// Endpoint is the parsed form of URL, including scp-style
	// "git@host:path" remotes. Nil when the URL could not be parsed;
	// sources that need host or scheme should fail soft in that case.
	Endpoint *transport.Endpoint

	// Username is the effective username for this round: the callback hint
	// when the transport supplied one, else the username embedded in the
	// URL, else the configured default, else "git" for SSH remotes.
	Username string

	// Config is the git configuration view. Never nil; an empty
	// configuration answers every lookup with not-found.
	Config *Config

	// FS is the filesystem key files and credential-store files are read
	// from. Never nil.
	FS billy.Filesystem

	// Round is how many times this source was already tried within the
	// current attempt. Zero on the first try. Sources that iterate a
	// candidate list use it as the cursor.
	Round int
}

// Chain is a priority-ordered list of credential sources. Earlier entries
// are preferred. Chains are immutable after construction and safe to share
// across handlers.
type Chain []Source

// Validate checks the chain for construction mistakes: empty chains, nil
// entries, non-positive retry budgets, and duplicate source names (the
// attempt tracker keys its reports on names, so they must be unique).
func (c Chain) Validate() error {
	if len(c) == 0 {
		return fmt.Errorf("credential chain is empty")
	}
	seen := make(map[string]struct{}, len(c))
	for i, src := range c {
		if src == nil {
			return fmt.Errorf("credential chain entry %d is nil", i)
		}
		name := src.Name()
		if name == "" {
			return fmt.Errorf("credential chain entry %d has an empty name", i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("credential chain has duplicate source %q", name)
		}
		seen[name] = struct{}{}
		if src.MaxAttempts() < 1 {
			return fmt.Errorf("credential source %q has non-positive retry budget", name)
		}
	}
	return nil
}

// PassphraseProvider supplies the passphrase for an encrypted private key.
// keyPath identifies the key being decrypted so interactive providers can
// name it. Returning an error aborts decryption for the round.
type PassphraseProvider func(ctx context.Context, keyPath string) (string, error)

// StaticPassphrase returns a provider that always supplies the given
// passphrase.
func StaticPassphrase(passphrase string) PassphraseProvider {
	return func(_ context.Context, _ string) (string, error) {
		return passphrase, nil
	}
}

// Credentials is a username/password pair produced by a
// CredentialsProvider.
type Credentials struct {
	Username string
	Password string
}

// CredentialsProvider supplies username/password pairs for plaintext
// authentication. Implementations range from static values to credential
// helpers to application prompts.
type CredentialsProvider interface {
	// Credentials returns the pair to try for the request's remote.
	// Returning an error wrapped in (or equal to) ErrCredentialsUnavailable
	// signals that no pair exists; other errors are treated the same way
	// by the built-in source.
	Credentials(ctx context.Context, req *Request) (Credentials, error)
}

// CredentialsProviderFunc adapts a function to the CredentialsProvider
// interface.
type CredentialsProviderFunc func(ctx context.Context, req *Request) (Credentials, error)

// Credentials implements CredentialsProvider.
func (f CredentialsProviderFunc) Credentials(ctx context.Context, req *Request) (Credentials, error) {
	return f(ctx, req)
}

// StaticCredentials returns a provider that always supplies the given pair.
func StaticCredentials(username, password string) CredentialsProvider {
	return CredentialsProviderFunc(func(_ context.Context, _ *Request) (Credentials, error) {
		return Credentials{Username: username, Password: password}, nil
	})
}
