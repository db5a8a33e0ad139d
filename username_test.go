package gitauth

import (
	"context"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usernameRequest(t *testing.T, username string, round int, cfg *Config) *Request {
	t.Helper()
	if cfg == nil {
		cfg = NewConfig(nil)
	}
	return &Request{
		URL:      "https://example.com/org/repo.git",
		Endpoint: parseEndpoint("https://example.com/org/repo.git"),
		Username: username,
		Config:   cfg,
		FS:       memfs.New(),
		Round:    round,
	}
}

func TestUsernameSource_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("candidates are consumed in order", func(t *testing.T) {
		src := NewUsernameSource("alice", "bob")

		for round, want := range []string{"alice", "bob"} {
			got, err := src.Resolve(ctx, usernameRequest(t, "", round, nil))
			require.NoError(t, err)
			auth, ok := got.(*UsernameAuth)
			require.True(t, ok)
			assert.Equal(t, want, auth.Username)
		}
	})

	t.Run("hint is offered first", func(t *testing.T) {
		src := NewUsernameSource("alice")

		got, err := src.Resolve(ctx, usernameRequest(t, "hinted", 0, nil))
		require.NoError(t, err)
		assert.Equal(t, "hinted", got.(*UsernameAuth).Username)

		got, err = src.Resolve(ctx, usernameRequest(t, "hinted", 1, nil))
		require.NoError(t, err)
		assert.Equal(t, "alice", got.(*UsernameAuth).Username)
	})

	t.Run("configured username follows the hint", func(t *testing.T) {
		cfg, err := ParseConfig(strings.NewReader("[credential]\n\tusername = cfguser\n"))
		require.NoError(t, err)
		src := NewUsernameSource("alice")

		got, err := src.Resolve(ctx, usernameRequest(t, "hinted", 1, cfg))
		require.NoError(t, err)
		assert.Equal(t, "cfguser", got.(*UsernameAuth).Username)
	})

	t.Run("duplicates collapse to the first occurrence", func(t *testing.T) {
		src := NewUsernameSource("git", "ci")

		// The hint equals a static candidate; round 1 must not repeat it.
		got, err := src.Resolve(ctx, usernameRequest(t, "git", 1, nil))
		require.NoError(t, err)
		assert.Equal(t, "ci", got.(*UsernameAuth).Username)
	})

	t.Run("empty username is a real candidate", func(t *testing.T) {
		src := NewUsernameSource("", "git")

		got, err := src.Resolve(ctx, usernameRequest(t, "", 0, nil))
		require.NoError(t, err)
		assert.Equal(t, "", got.(*UsernameAuth).Username)
	})

	t.Run("exhausting candidates fails soft", func(t *testing.T) {
		src := NewUsernameSource("alice")

		_, err := src.Resolve(ctx, usernameRequest(t, "", 1, nil))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCredentialsUnavailable)
	})

	t.Run("budget covers candidates plus request slots", func(t *testing.T) {
		src := NewUsernameSource("a", "b", "c")
		assert.Equal(t, 5, src.MaxAttempts())
		assert.Equal(t, MethodUsername, src.Methods())
		assert.Equal(t, "username", src.Name())
	})
}

func TestDefaultUsernames(t *testing.T) {
	t.Setenv("USER", "worker")
	assert.Equal(t, []string{"", "git", "worker"}, DefaultUsernames())

	t.Setenv("USER", "")
	assert.Equal(t, []string{"", "git"}, DefaultUsernames())
}

func TestUsernameSource_ThroughHandler(t *testing.T) {
	// Each rejection consumes one candidate; running out exhausts the
	// attempt only because nothing else is in the chain.
	ctx := context.Background()
	h := newTestHandler(t, NewUsernameSource("alice", "bob"))

	got, err := h.Negotiate(ctx, "https://example.com/r.git", "", MethodUsername)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.(*UsernameAuth).Username)

	got, err = h.Negotiate(ctx, "https://example.com/r.git", "", MethodUsername)
	require.NoError(t, err)
	assert.Equal(t, "bob", got.(*UsernameAuth).Username)

	_, err = h.Negotiate(ctx, "https://example.com/r.git", "", MethodUsername)
	require.ErrorIs(t, err, ErrExhausted)
}

func TestUsernameAuth(t *testing.T) {
	auth := &UsernameAuth{Username: "alice"}
	assert.Equal(t, "username-probe", auth.Name())
	assert.Equal(t, "username-probe - alice", auth.String())
}
