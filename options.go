package gitauth

import (
	"log/slog"

	"github.com/go-git/go-billy/v5"
)

// Option configures a Handler.
type Option func(*handlerOptions)

// handlerOptions holds the configuration assembled by Option functions.
type handlerOptions struct {
	sources Chain
	config  *Config
	fs      billy.Filesystem
	logger  *slog.Logger

	usernames []string

	keyPrivatePath string
	keyPublicPath  string

	userpass        Credentials
	userpassSet     bool
	passphrase      PassphraseProvider
	passphraseTries int
	agentDialer     AgentDialer
	helperRunner    HelperRunner
}

// defaultOptions returns options with defaults applied.
func defaultOptions() *handlerOptions {
	return &handlerOptions{}
}

// applyOptions applies the supplied options in order.
func applyOptions(opts []Option) *handlerOptions {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// WithSources replaces the default chain with an explicit one. Order is
// priority: earlier sources are tried first.
func WithSources(sources ...Source) Option {
	return func(o *handlerOptions) {
		o.sources = append(Chain{}, sources...)
	}
}

// WithConfig sets the git configuration view. When unset, the global git
// configuration is loaded, degrading to empty on any problem.
func WithConfig(cfg *Config) Option {
	return func(o *handlerOptions) {
		o.config = cfg
	}
}

// WithFilesystem sets the filesystem key files and credential-store files
// are read from. Defaults to the OS filesystem. Tests use an in-memory
// filesystem.
func WithFilesystem(fsys billy.Filesystem) Option {
	return func(o *handlerOptions) {
		o.fs = fsys
	}
}

// WithLogger enables structured logging of negotiation progress. Secrets
// never appear in log output; URLs are redacted.
func WithLogger(logger *slog.Logger) Option {
	return func(o *handlerOptions) {
		o.logger = logger
	}
}

// WithUsernames overrides the username-probe candidates offered by the
// default chain's username source.
func WithUsernames(usernames ...string) Option {
	return func(o *handlerOptions) {
		o.usernames = usernames
	}
}

// WithKeyPair adds an explicit SSH key pair to the default chain, tried
// before key discovery. publicPath may be empty.
func WithKeyPair(privatePath, publicPath string) Option {
	return func(o *handlerOptions) {
		o.keyPrivatePath = privatePath
		o.keyPublicPath = publicPath
	}
}

// WithUserPass pins the plaintext credentials in the default chain instead
// of resolving them from git configuration.
func WithUserPass(username, password string) Option {
	return func(o *handlerOptions) {
		o.userpass = Credentials{Username: username, Password: password}
		o.userpassSet = true
	}
}

// WithPassphraseProvider supplies passphrases for encrypted private keys
// to the default chain's key sources.
func WithPassphraseProvider(p PassphraseProvider) Option {
	return func(o *handlerOptions) {
		o.passphrase = p
	}
}

// WithPassphraseRetries overrides how often an encrypted key's passphrase
// provider is re-consulted within one attempt (default 3).
func WithPassphraseRetries(n int) Option {
	return func(o *handlerOptions) {
		o.passphraseTries = n
	}
}

// WithAgentDialer replaces how the default chain's agent source connects
// to the SSH agent. Tests use an in-memory keyring.
func WithAgentDialer(d AgentDialer) Option {
	return func(o *handlerOptions) {
		o.agentDialer = d
	}
}

// WithHelperRunner replaces how the default chain executes configured
// credential helpers. Tests use it to fake helper processes.
func WithHelperRunner(r HelperRunner) Option {
	return func(o *handlerOptions) {
		o.helperRunner = r
	}
}
