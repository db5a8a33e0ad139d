package gitauth

import (
	"context"
	"errors"

	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"github.com/kayagokalp/gitauth/internal/credfile"
	"github.com/kayagokalp/gitauth/internal/helperexec"
)

// HelperRunner executes a configured credential helper command and returns
// its stdout. Implementations surface non-zero exits and execution problems
// as errors. The default runner spawns the process; tests inject fakes.
type HelperRunner interface {
	Run(ctx context.Context, argv []string, input string) (stdout string, err error)
}

// UserPassSource produces plaintext username/password credentials. The pair
// comes from its CredentialsProvider: a static pair, the git-configuration
// mechanisms (credential helpers and store files), or an
// application-supplied callback.
//
// The credential shape follows the remote: HTTP(S) endpoints get basic
// auth, SSH endpoints get password auth.
type UserPassSource struct {
	// Provider supplies the username/password pair per request.
	Provider CredentialsProvider
}

// NewUserPassSource creates a source with a fixed username/password pair.
// Tokens go in the password with the scheme's conventional username.
func NewUserPassSource(username, password string) *UserPassSource {
	return &UserPassSource{Provider: StaticCredentials(username, password)}
}

// NewConfigUserPassSource creates a source that resolves pairs from git
// configuration: the configured credential helper first (with
// git-credential-store files read natively instead of spawned), then the
// conventional credential-store locations.
func NewConfigUserPassSource() *UserPassSource {
	return &UserPassSource{Provider: &configCredentials{runner: helperexec.NewCommandRunner()}}
}

// WithProvider replaces the credentials provider.
func (s *UserPassSource) WithProvider(p CredentialsProvider) *UserPassSource {
	s.Provider = p
	return s
}

// WithHelperRunner replaces how configured credential helpers are executed.
// It only affects config-backed sources; tests use it to fake helper
// processes.
func (s *UserPassSource) WithHelperRunner(r HelperRunner) *UserPassSource {
	if cp, ok := s.Provider.(*configCredentials); ok {
		cp.runner = r
	}
	return s
}

// Name implements Source.
func (s *UserPassSource) Name() string { return "userpass" }

// Methods implements Source.
func (s *UserPassSource) Methods() Methods { return MethodUserPass }

// MaxAttempts implements Source. Providers answer deterministically within
// one attempt; interactive retry loops belong to the application driving
// the provider.
func (s *UserPassSource) MaxAttempts() int { return 1 }

// Resolve implements Source. Fails with ErrCredentialsUnavailable when the
// provider has no pair for this remote or the remote's protocol has no
// notion of password authentication.
//
//nolint:ireturn // credential callbacks traffic in transport.AuthMethod
func (s *UserPassSource) Resolve(ctx context.Context, req *Request) (transport.AuthMethod, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Provider == nil {
		return nil, WrapError(ErrCredentialsUnavailable, "no credentials provider configured")
	}
	creds, err := s.Provider.Credentials(ctx, req)
	if err != nil {
		if errors.Is(err, ErrCredentialsUnavailable) {
			return nil, err
		}
		return nil, WrapErrorf(ErrCredentialsUnavailable, "credentials provider: %v", err)
	}

	if isSSHEndpoint(req.Endpoint) {
		return &gitssh.Password{
			User:     usernameOr(creds.Username, req),
			Password: creds.Password,
		}, nil
	}
	if req.Endpoint == nil || isHTTPEndpoint(req.Endpoint) {
		return &githttp.BasicAuth{
			Username: usernameOr(creds.Username, req),
			Password: creds.Password,
		}, nil
	}
	return nil, WrapErrorf(ErrCredentialsUnavailable, "%s remotes do not support password authentication", req.Endpoint.Protocol)
}

// usernameOr picks the username for a plaintext credential: the provider's
// answer first, then the request's username, then the configured
// credential.username.
func usernameOr(fromProvider string, req *Request) string {
	if fromProvider != "" {
		return fromProvider
	}
	if req.Username != "" {
		return req.Username
	}
	if u, ok := req.Config.DefaultUsername(req.URL); ok {
		return u
	}
	return ""
}

// configCredentials resolves pairs the way git itself would: ask the
// configured helper, then fall back to the credential-store files.
type configCredentials struct {
	runner HelperRunner
}

// Credentials implements CredentialsProvider.
func (c *configCredentials) Credentials(ctx context.Context, req *Request) (Credentials, error) {
	if helper, ok := req.Config.Helper(req.URL); ok {
		if _, isStore := helper.IsStore(); !isStore {
			if creds, found, err := c.runHelper(ctx, helper, req); err != nil {
				return Credentials{}, err
			} else if found {
				return creds, nil
			}
		}
	}

	username, password, found, err := credfile.Lookup(req.FS, req.Config.CredentialsFiles(req.URL), req.URL)
	if err != nil {
		return Credentials{}, WrapErrorf(ErrCredentialsUnavailable, "reading credential store: %v", err)
	}
	if !found {
		return Credentials{}, WrapError(ErrCredentialsUnavailable, "no helper or store entry for remote")
	}
	return Credentials{Username: username, Password: password}, nil
}

// runHelper executes the helper's "get" operation with the standard
// credential attributes on stdin. A helper that answers without a password
// counts as not-found so the store fallback still runs.
func (c *configCredentials) runHelper(ctx context.Context, helper HelperCommand, req *Request) (Credentials, bool, error) {
	argv, ok := helper.Argv()
	if !ok {
		return Credentials{}, false, nil
	}
	argv = append(argv, "get")

	protocol, host := credentialContext(req.URL)
	attrs := helperexec.Attributes{
		Protocol: protocol,
		Host:     host,
		Username: usernameOr("", req),
	}
	stdout, err := c.runner.Run(ctx, argv, attrs.Encode())
	if err != nil {
		return Credentials{}, false, WrapErrorf(ErrCredentialsUnavailable, "credential helper %q: %v", helper.Raw, err)
	}
	reply, err := helperexec.Decode(stdout)
	if err != nil {
		return Credentials{}, false, WrapErrorf(ErrCredentialsUnavailable, "credential helper %q: %v", helper.Raw, err)
	}
	if reply["password"] == "" {
		return Credentials{}, false, nil
	}
	return Credentials{Username: reply["username"], Password: reply["password"]}, true, nil
}
