package gitauth

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"io"
	"os"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh/agent"
)

// keyringDialer serves an in-memory agent, standing in for the system one.
type keyringDialer struct {
	ag    agent.Agent
	err   error
	dials int
}

func (d *keyringDialer) Dial() (agent.Agent, io.Closer, error) {
	d.dials++
	if d.err != nil {
		return nil, nil, d.err
	}
	return d.ag, nil, nil
}

func newKeyring(t *testing.T, identities int) agent.Agent {
	t.Helper()
	keyring := agent.NewKeyring()
	for i := 0; i < identities; i++ {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)
		require.NoError(t, keyring.Add(agent.AddedKey{PrivateKey: priv}))
	}
	return keyring
}

func agentRequest(username string) *Request {
	url := "ssh://git@example.com/org/repo.git"
	return &Request{
		URL:      url,
		Endpoint: parseEndpoint(url),
		Username: username,
		Config:   NewConfig(nil),
		FS:       memfs.New(),
	}
}

func TestSSHAgentSource_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("identities produce a signer callback", func(t *testing.T) {
		dialer := &keyringDialer{ag: newKeyring(t, 2)}
		src := NewSSHAgentSource().WithDialer(dialer)

		method, err := src.Resolve(ctx, agentRequest(""))
		require.NoError(t, err)

		cb, ok := method.(*gitssh.PublicKeysCallback)
		require.True(t, ok)
		signers, err := cb.Callback()
		require.NoError(t, err)
		assert.Len(t, signers, 2)
	})

	t.Run("empty agent reports no identity", func(t *testing.T) {
		dialer := &keyringDialer{ag: newKeyring(t, 0)}
		src := NewSSHAgentSource().WithDialer(dialer)

		_, err := src.Resolve(ctx, agentRequest(""))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNoIdentity)
	})

	t.Run("unreachable agent reports unavailable", func(t *testing.T) {
		dialer := &keyringDialer{err: WrapError(ErrAgentUnavailable, "no socket")}
		src := NewSSHAgentSource().WithDialer(dialer)

		_, err := src.Resolve(ctx, agentRequest(""))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAgentUnavailable)
	})

	t.Run("username precedence", func(t *testing.T) {
		dialer := &keyringDialer{ag: newKeyring(t, 1)}

		method, err := NewSSHAgentSource().WithDialer(dialer).Resolve(ctx, agentRequest(""))
		require.NoError(t, err)
		assert.Equal(t, "git", method.(*gitssh.PublicKeysCallback).User)

		method, err = NewSSHAgentSource().WithDialer(dialer).Resolve(ctx, agentRequest("alice"))
		require.NoError(t, err)
		assert.Equal(t, "alice", method.(*gitssh.PublicKeysCallback).User)

		method, err = NewSSHAgentSource().WithDialer(dialer).WithUsername("deploy").Resolve(ctx, agentRequest("alice"))
		require.NoError(t, err)
		assert.Equal(t, "deploy", method.(*gitssh.PublicKeysCallback).User)
	})

	t.Run("callback dials its own connection", func(t *testing.T) {
		dialer := &keyringDialer{ag: newKeyring(t, 1)}
		src := NewSSHAgentSource().WithDialer(dialer)

		method, err := src.Resolve(ctx, agentRequest(""))
		require.NoError(t, err)
		assert.Equal(t, 1, dialer.dials)

		_, err = method.(*gitssh.PublicKeysCallback).Callback()
		require.NoError(t, err)
		assert.Equal(t, 2, dialer.dials)
	})

	t.Run("identity", func(t *testing.T) {
		src := NewSSHAgentSource()
		assert.Equal(t, "ssh-agent", src.Name())
		assert.Equal(t, MethodSSHAgent, src.Methods())
		assert.Equal(t, 1, src.MaxAttempts())
	})
}

func TestSystemAgentDialer(t *testing.T) {
	if os.Getenv("SSH_AUTH_SOCK") == "" {
		t.Skip("SSH_AUTH_SOCK not set; skipping system agent test")
	}

	ag, closer, err := systemAgentDialer{}.Dial()
	require.NoError(t, err)
	require.NotNil(t, ag)
	if closer != nil {
		defer closer.Close()
	}

	_, err = ag.List()
	assert.NoError(t, err)
}
