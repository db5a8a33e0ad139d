package gitauth

import (
	"context"
	"io"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
	sshagent "github.com/xanzy/ssh-agent"
	gossh "golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

// AgentDialer opens a connection to an SSH agent. The returned closer
// releases the connection; it may be nil when there is nothing to release
// (in-memory agents, Pageant).
type AgentDialer interface {
	Dial() (agent.Agent, io.Closer, error)
}

// systemAgentDialer reaches the agent the environment points at:
// SSH_AUTH_SOCK on unix, Pageant or the OpenSSH named pipe on Windows.
type systemAgentDialer struct{}

func (systemAgentDialer) Dial() (agent.Agent, io.Closer, error) {
	if !sshagent.Available() {
		return nil, nil, WrapError(ErrAgentUnavailable, "no ssh agent detected")
	}
	ag, conn, err := sshagent.New()
	if err != nil {
		return nil, nil, WrapErrorf(ErrAgentUnavailable, "connecting to ssh agent: %v", err)
	}
	var closer io.Closer
	if conn != nil {
		closer = conn
	}
	return ag, closer, nil
}

// SSHAgentSource produces public-key credentials backed by identities held
// in a running SSH agent. Resolution probes the agent for at least one
// identity; the signing connection itself is opened lazily when the
// transport first uses the credential, mirroring how go-git's own agent
// auth behaves.
type SSHAgentSource struct {
	// Username for the SSH connection. When empty, the request's username
	// is used, then the configured credential.username, then "git".
	Username string

	// Dialer connects to the agent. Nil means the system agent.
	Dialer AgentDialer
}

// NewSSHAgentSource creates an agent-backed source using the system agent.
func NewSSHAgentSource() *SSHAgentSource {
	return &SSHAgentSource{}
}

// WithUsername pins the SSH username instead of deriving it per request.
func (s *SSHAgentSource) WithUsername(username string) *SSHAgentSource {
	s.Username = username
	return s
}

// WithDialer replaces the agent connection mechanism. Tests use this with
// an in-memory keyring.
func (s *SSHAgentSource) WithDialer(d AgentDialer) *SSHAgentSource {
	s.Dialer = d
	return s
}

// Name implements Source.
func (s *SSHAgentSource) Name() string { return "ssh-agent" }

// Methods implements Source.
func (s *SSHAgentSource) Methods() Methods { return MethodSSHAgent }

// MaxAttempts implements Source. The agent either has usable identities or
// it does not; retrying within one attempt cannot change the answer.
func (s *SSHAgentSource) MaxAttempts() int { return 1 }

// Resolve implements Source. Fails with ErrAgentUnavailable when no agent
// is reachable and ErrNoIdentity when the agent holds no keys.
//
//nolint:ireturn // credential callbacks traffic in transport.AuthMethod
func (s *SSHAgentSource) Resolve(ctx context.Context, req *Request) (transport.AuthMethod, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dialer := s.dialer()

	ag, closer, err := dialer.Dial()
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, err
	}
	keys, err := ag.List()
	if closer != nil {
		closer.Close()
	}
	if err != nil {
		return nil, WrapErrorf(ErrAgentUnavailable, "listing agent identities: %v", err)
	}
	if len(keys) == 0 {
		return nil, WrapError(ErrNoIdentity, "ssh agent")
	}

	return &ssh.PublicKeysCallback{
		User: sshUsername(s.Username, req),
		// Re-dial when the transport asks for signers: signing runs over
		// the agent connection, so it must outlive this call. The
		// connection's lifetime is then owned by the transport session.
		Callback: func() ([]gossh.Signer, error) {
			ag, _, err := dialer.Dial()
			if err != nil {
				return nil, err
			}
			return ag.Signers()
		},
	}, nil
}

func (s *SSHAgentSource) dialer() AgentDialer {
	if s.Dialer != nil {
		return s.Dialer
	}
	return systemAgentDialer{}
}
