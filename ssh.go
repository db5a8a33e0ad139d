package gitauth

import (
	"context"
	"errors"
	"os"

	"github.com/adrg/xdg"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
	sshcfg "github.com/kevinburke/ssh_config"
	gossh "golang.org/x/crypto/ssh"

	"github.com/kayagokalp/gitauth/internal/keyscan"
)

// defaultSSHUsername is the username virtually all git hosting uses for
// SSH remotes.
const defaultSSHUsername = "git"

// defaultPassphraseAttempts bounds how often an encrypted key's passphrase
// provider is re-consulted within one attempt.
const defaultPassphraseAttempts = 3

// SSHKeySource produces public-key credentials from private key files. In
// explicit mode it reads a configured key pair; in discovery mode it scans
// the per-host IdentityFile entries from the OpenSSH client configuration
// and the well-known names under ~/.ssh, using the first readable key.
type SSHKeySource struct {
	// PrivateKeyPath is the private key to read. Empty enables discovery.
	PrivateKeyPath string

	// PublicKeyPath is the matching public key. It is accepted for
	// completeness and validated for existence when set; only the private
	// key is read, since the public half derives from it.
	PublicKeyPath string

	// Username for the SSH connection. When empty, the request's username
	// is used, then the configured credential.username, then "git".
	Username string

	// Passphrase supplies passphrases for encrypted keys. Nil means
	// encrypted keys fail with ErrDecryptFailed without retries.
	Passphrase PassphraseProvider

	// Retries overrides the per-attempt budget. Zero selects the default:
	// defaultPassphraseAttempts with a passphrase provider, 1 without
	// (retrying an identical outcome is pointless).
	Retries int

	// HostKeyCallback for host key verification (optional).
	HostKeyCallback gossh.HostKeyCallback

	// SSHConfig resolves per-host IdentityFile entries in discovery mode.
	// Nil uses the standard user and system OpenSSH configuration files.
	SSHConfig *sshcfg.UserSettings
}

// NewSSHKeySource creates a key source in discovery mode.
func NewSSHKeySource() *SSHKeySource {
	return &SSHKeySource{}
}

// NewSSHKeyFileSource creates a key source reading an explicit key pair.
// publicPath may be empty.
func NewSSHKeyFileSource(privatePath, publicPath string) *SSHKeySource {
	return &SSHKeySource{
		PrivateKeyPath: privatePath,
		PublicKeyPath:  publicPath,
	}
}

// WithUsername pins the SSH username instead of deriving it per request.
func (s *SSHKeySource) WithUsername(username string) *SSHKeySource {
	s.Username = username
	return s
}

// WithPassphrase sets a fixed passphrase for encrypted keys.
func (s *SSHKeySource) WithPassphrase(passphrase string) *SSHKeySource {
	s.Passphrase = StaticPassphrase(passphrase)
	return s
}

// WithPassphraseProvider sets the passphrase callback for encrypted keys.
func (s *SSHKeySource) WithPassphraseProvider(p PassphraseProvider) *SSHKeySource {
	s.Passphrase = p
	return s
}

// WithMaxAttempts overrides the per-attempt retry budget.
func (s *SSHKeySource) WithMaxAttempts(n int) *SSHKeySource {
	s.Retries = n
	return s
}

// WithHostKeyCallback sets the host key verification callback.
func (s *SSHKeySource) WithHostKeyCallback(callback gossh.HostKeyCallback) *SSHKeySource {
	s.HostKeyCallback = callback
	return s
}

// WithSSHConfig replaces the OpenSSH client configuration used for
// IdentityFile discovery. Tests point this at fixture files.
func (s *SSHKeySource) WithSSHConfig(settings *sshcfg.UserSettings) *SSHKeySource {
	s.SSHConfig = settings
	return s
}

// Name implements Source. Explicit sources embed their key path so several
// of them can share a chain.
func (s *SSHKeySource) Name() string {
	if s.PrivateKeyPath != "" {
		return "ssh-key:" + s.PrivateKeyPath
	}
	return "ssh-key"
}

// Methods implements Source.
func (s *SSHKeySource) Methods() Methods { return MethodSSHKey }

// MaxAttempts implements Source.
func (s *SSHKeySource) MaxAttempts() int {
	if s.Retries > 0 {
		return s.Retries
	}
	if s.Passphrase != nil {
		return defaultPassphraseAttempts
	}
	return 1
}

// Resolve implements Source. The first readable candidate key decides the
// outcome: an unencrypted key is used directly, an encrypted key consults
// the passphrase provider. Encrypted keys that cannot be decrypted are
// remembered while scanning continues, so an unencrypted key later in the
// candidate order still wins; when nothing else is usable the decryption
// failure is reported instead of a bare not-found.
//
//nolint:ireturn // credential callbacks traffic in transport.AuthMethod
func (s *SSHKeySource) Resolve(ctx context.Context, req *Request) (transport.AuthMethod, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	candidates, err := s.candidates(req)
	if err != nil {
		return nil, err
	}

	var encryptedErr error
	for _, path := range candidates {
		pem, err := util.ReadFile(req.FS, path)
		if err != nil {
			continue
		}
		signer, err := gossh.ParsePrivateKey(pem)
		if err == nil {
			return s.auth(signer, req), nil
		}

		var missing *gossh.PassphraseMissingError
		if !errors.As(err, &missing) {
			// Not a key file at all; keep scanning.
			continue
		}
		if s.Passphrase == nil {
			if encryptedErr == nil {
				encryptedErr = WrapErrorf(ErrDecryptFailed, "key %s is encrypted and no passphrase provider is configured", path)
			}
			continue
		}
		passphrase, perr := s.Passphrase(ctx, path)
		if perr != nil {
			return nil, WrapErrorf(ErrDecryptFailed, "obtaining passphrase for %s: %v", path, perr)
		}
		signer, err = gossh.ParsePrivateKeyWithPassphrase(pem, []byte(passphrase))
		if err != nil {
			return nil, WrapErrorf(ErrDecryptFailed, "decrypting %s: %v", path, err)
		}
		return s.auth(signer, req), nil
	}

	if encryptedErr != nil {
		return nil, encryptedErr
	}
	if s.PrivateKeyPath != "" {
		return nil, WrapErrorf(ErrKeyNotFound, "reading private key %s", s.PrivateKeyPath)
	}
	return nil, WrapError(ErrKeyNotFound, "no usable private key at configured or well-known paths")
}

// candidates returns the private key paths to try, in order.
func (s *SSHKeySource) candidates(req *Request) ([]string, error) {
	if s.PrivateKeyPath != "" {
		if s.PublicKeyPath != "" {
			if _, err := req.FS.Stat(s.PublicKeyPath); err != nil {
				return nil, WrapErrorf(ErrKeyNotFound, "reading public key %s", s.PublicKeyPath)
			}
		}
		return []string{s.PrivateKeyPath}, nil
	}

	host := ""
	if req.Endpoint != nil {
		host = req.Endpoint.Host
	}
	settings := s.SSHConfig
	if settings == nil {
		settings = &sshcfg.UserSettings{}
	}
	return keyscan.Candidates(req.FS, userHome(), host, settings), nil
}

//nolint:ireturn // go-git's auth methods are consumed via the interface
func (s *SSHKeySource) auth(signer gossh.Signer, req *Request) transport.AuthMethod {
	auth := &ssh.PublicKeys{
		User:   sshUsername(s.Username, req),
		Signer: signer,
	}
	if s.HostKeyCallback != nil {
		auth.HostKeyCallback = s.HostKeyCallback
	}
	return auth
}

// sshUsername picks the username for an SSH credential: explicit source
// configuration first, then the request's username, then the configured
// credential.username, then the hosting convention "git".
func sshUsername(explicit string, req *Request) string {
	if explicit != "" {
		return explicit
	}
	if req.Username != "" {
		return req.Username
	}
	if u, ok := req.Config.DefaultUsername(req.URL); ok {
		return u
	}
	return defaultSSHUsername
}

// userHome is the home directory key discovery resolves "~" against.
func userHome() string {
	if xdg.Home != "" {
		return xdg.Home
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home
}
