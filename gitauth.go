package gitauth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

// Negotiator is the shape of Handler.Negotiate, so bound handlers can be
// passed to transport layers as plain functions.
type Negotiator func(ctx context.Context, remoteURL, username string, allowed Methods) (transport.AuthMethod, error)

// Handler drives credential negotiation for one transport operation. It
// owns the attempt state and walks its source chain on every round.
//
// A Handler is not safe for concurrent use. Chains and Config values are
// immutable after construction and may be shared between handlers.
type Handler struct {
	chain  Chain
	config *Config
	fs     billy.Filesystem
	logger *slog.Logger

	attempt *Attempt
}

// New creates a Handler. With no options it loads the global git
// configuration (degrading to empty) and assembles the default chain:
// username probe, SSH agent, SSH key discovery, config-resolved plaintext
// credentials, anonymous access.
func New(opts ...Option) (*Handler, error) {
	o := applyOptions(opts)

	config := o.config
	if config == nil {
		// Unreadable configuration must not block negotiation; LoadConfig
		// hands back an empty view alongside the error.
		config, _ = LoadConfig()
	}
	fsys := o.fs
	if fsys == nil {
		fsys = osfs.New("/")
	}

	chain := o.sources
	if chain == nil {
		chain = defaultChain(o)
	}
	if err := chain.Validate(); err != nil {
		return nil, WrapError(err, "building credential chain")
	}

	return &Handler{
		chain:  chain,
		config: config,
		fs:     fsys,
		logger: o.logger,
	}, nil
}

// defaultChain assembles the built-in source order, applying the
// handler-level overrides to the sources they configure.
func defaultChain(o *handlerOptions) Chain {
	chain := Chain{
		NewUsernameSource(o.usernames...),
	}

	agentSrc := NewSSHAgentSource()
	if o.agentDialer != nil {
		agentSrc.WithDialer(o.agentDialer)
	}
	chain = append(chain, agentSrc)

	if o.keyPrivatePath != "" {
		chain = append(chain, keyOpts(NewSSHKeyFileSource(o.keyPrivatePath, o.keyPublicPath), o))
	}
	chain = append(chain, keyOpts(NewSSHKeySource(), o))

	if o.userpassSet {
		chain = append(chain, NewUserPassSource(o.userpass.Username, o.userpass.Password))
	} else {
		userpass := NewConfigUserPassSource()
		if o.helperRunner != nil {
			userpass.WithHelperRunner(o.helperRunner)
		}
		chain = append(chain, userpass)
	}

	return append(chain, NewAnonymousSource())
}

func keyOpts(src *SSHKeySource, o *handlerOptions) *SSHKeySource {
	if o.passphrase != nil {
		src.WithPassphraseProvider(o.passphrase)
	}
	if o.passphraseTries > 0 {
		src.WithMaxAttempts(o.passphraseTries)
	}
	return src
}

// Negotiate returns the next credential to try for remoteURL, given the
// transport's username hint and the server's advertised method set. Being
// called again for the same remote means the previous credential was
// rejected; the rejection is recorded and the next source is consulted.
//
// All source failures are absorbed into the attempt state. The only errors
// Negotiate returns are ErrExhausted (wrapped with the last source and its
// failure) and the context's own error when ctx is done. A nil method with
// a nil error means "proceed without authentication".
//
//nolint:ireturn // credential callbacks traffic in transport.AuthMethod
func (h *Handler) Negotiate(ctx context.Context, remoteURL, username string, allowed Methods) (transport.AuthMethod, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if h.attempt == nil || h.attempt.url != remoteURL {
		h.attempt = newAttempt(remoteURL, username, allowed, len(h.chain))
		if h.logger != nil {
			h.logger.DebugContext(ctx, "starting credential negotiation",
				slog.String("url", redactURL(remoteURL)),
				slog.String("allowed", allowed.String()))
		}
	} else {
		rejected := h.attempt.issuedName
		h.attempt.beginRound(username, allowed)
		if rejected != "" && h.logger != nil {
			h.logger.DebugContext(ctx, "credential rejected by remote",
				slog.String("source", rejected),
				slog.String("allowed", allowed.String()))
		}
	}

	a := h.attempt
	req := &Request{
		URL:      remoteURL,
		Endpoint: parseEndpoint(remoteURL),
		Username: a.username,
		Config:   h.config,
		FS:       h.fs,
	}
	if req.Username == "" && req.Endpoint != nil {
		req.Username = req.Endpoint.User
	}

	for {
		idx, ok := nextSource(a, h.chain)
		if !ok {
			err := exhaustedError(a)
			if h.logger != nil {
				h.logger.DebugContext(ctx, "credential negotiation exhausted",
					slog.String("url", redactURL(a.url)),
					slog.Any("tried", a.Tried()))
			}
			return nil, err
		}

		src := h.chain[idx]
		req.Round = a.timesTried(idx)
		method, err := src.Resolve(ctx, req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			a.recordFailure(idx, src.Name(), err)
			if h.logger != nil {
				h.logger.DebugContext(ctx, "credential source failed",
					slog.String("source", src.Name()),
					slog.String("error", err.Error()))
			}
			continue
		}

		a.noteIssued(idx, src.Name())
		if h.logger != nil {
			h.logger.DebugContext(ctx, "credential issued",
				slog.String("source", src.Name()))
		}
		return method, nil
	}
}

// Reset discards the current attempt so the handler can serve a new
// operation. Negotiate also starts fresh on its own when the remote URL
// changes.
func (h *Handler) Reset() {
	h.attempt = nil
}

// Exhausted reports whether the current attempt has no eligible source
// left under its most recent advertised method set. False before the first
// Negotiate call.
func (h *Handler) Exhausted() bool {
	if h.attempt == nil {
		return false
	}
	_, ok := nextSource(h.attempt, h.chain)
	return !ok
}

// Attempt returns the current attempt state for inspection, or nil before
// the first Negotiate call.
func (h *Handler) Attempt() *Attempt {
	return h.attempt
}

// exhaustedError builds the terminal error, naming the last source tried
// and why it failed, or stating that nothing was eligible.
func exhaustedError(a *Attempt) error {
	if a.lastErr != nil {
		return WrapErrorf(ErrExhausted, "no credential source remains for %s (last tried %s: %v)",
			redactURL(a.url), a.lastSource, a.lastErr)
	}
	return WrapErrorf(ErrExhausted, "no credential source is eligible for %s under advertised methods %s",
		redactURL(a.url), a.allowed)
}
