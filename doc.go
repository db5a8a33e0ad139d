// Package gitauth selects the next credential to try during a git transport
// operation.
//
// Git transports (clone, fetch, push) authenticate through a callback: the
// server advertises which authentication methods it accepts, the callback
// produces a credential, and the transport either proceeds or calls back
// again for the next one. This package implements that callback's brain. It
// keeps per-operation attempt state, walks a priority-ordered chain of
// credential sources, skips sources the server did not ask for or that
// already spent their retry budget, and reports a terminal error only when
// every eligible source is exhausted.
//
// Credentials are expressed as go-git transport.AuthMethod values, so the
// output plugs directly into go-git remotes as well as any transport layer
// that speaks the same vocabulary.
//
// # Credential Sources
//
// Five source kinds ship with the package, tried in this default order:
//
//   - UsernameSource - answers username-probe rounds from a candidate list
//     ("", "git", $USER by default, plus the callback hint and the
//     credential.username from git configuration)
//   - SSHAgentSource - identities held by the running SSH agent
//   - SSHKeySource - private key files, either explicit paths or discovered
//     from ~/.ssh and the OpenSSH client configuration's IdentityFile
//   - UserPassSource - username/password pairs, either static or resolved
//     from git configuration (credential helpers and credential-store files)
//   - AnonymousSource - unauthenticated access, offered only when the server
//     advertises default access
//
// Custom sources implement the Source interface and slot into the chain at
// any position.
//
// # Negotiation
//
// Create one Handler per transport operation and call Negotiate from the
// credential callback:
//
//	handler, err := gitauth.New(
//	    gitauth.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//
//	// Inside the transport's credential callback:
//	method, err := handler.Negotiate(ctx, remoteURL, usernameHint, allowed)
//	if errors.Is(err, gitauth.ErrExhausted) {
//	    return err // give up, nothing left to try
//	}
//
// Being called again is the signal that the previous credential was
// rejected; the handler records the rejection against the source that
// produced it and moves on. A nil method with a nil error means "proceed
// without authentication" (the anonymous source elected it).
//
// Explicit material overrides the discovery behavior:
//
//	handler, err := gitauth.New(
//	    gitauth.WithKeyPair("/home/ci/.ssh/deploy", "/home/ci/.ssh/deploy.pub"),
//	    gitauth.WithPassphraseProvider(promptOperator),
//	)
//
// Or replace the chain wholesale:
//
//	handler, err := gitauth.New(gitauth.WithSources(
//	    gitauth.NewUserPassSource("ci-bot", token),
//	    gitauth.NewAnonymousSource(),
//	))
//
// # Secret Handling
//
// Passphrases and passwords enter through provider callbacks
// (PassphraseProvider, CredentialsProvider) supplied by the application.
// The package never prompts, never persists secrets, and redacts userinfo
// from URLs before logging them.
//
// # Thread Safety
//
// A Handler is not safe for concurrent use: it mutates attempt state on
// every call. Run one Handler per concurrent operation. Chains, sources, and
// Config values are read-only after construction and may be shared freely
// across handlers.
//
// # Limitations
//
// The package decides which credential to try next; it does not perform
// network authentication itself, verify host keys (inject a
// HostKeyCallback on SSHKeySource for that), or implement
// keyboard-interactive exchanges.
package gitauth
