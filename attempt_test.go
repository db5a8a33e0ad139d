package gitauth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttempt_RecordFailure(t *testing.T) {
	t.Run("tracks counts and last error", func(t *testing.T) {
		a := newAttempt("https://example.com/repo.git", "", AllMethods, 3)
		errKey := errors.New("key failed")

		a.recordFailure(1, "ssh-key", errKey)
		a.recordFailure(1, "ssh-key", errKey)

		assert.Equal(t, 2, a.timesTried(1))
		assert.Equal(t, 0, a.timesTried(0))
		assert.Equal(t, "ssh-key", a.LastSource())
		assert.Equal(t, errKey, a.LastError())
	})

	t.Run("tried lists each source once in order", func(t *testing.T) {
		a := newAttempt("https://example.com/repo.git", "", AllMethods, 3)

		a.recordFailure(2, "userpass", errors.New("a"))
		a.recordFailure(0, "username", errors.New("b"))
		a.recordFailure(2, "userpass", errors.New("c"))

		assert.Equal(t, []string{"userpass", "username"}, a.Tried())
	})

	t.Run("tried is a copy", func(t *testing.T) {
		a := newAttempt("https://example.com/repo.git", "", AllMethods, 2)
		a.recordFailure(0, "username", errors.New("x"))

		got := a.Tried()
		got[0] = "mutated"
		assert.Equal(t, []string{"username"}, a.Tried())
	})

	t.Run("index outside chain panics", func(t *testing.T) {
		a := newAttempt("https://example.com/repo.git", "", AllMethods, 2)
		assert.Panics(t, func() {
			a.recordFailure(5, "ghost", errors.New("x"))
		})
		assert.Panics(t, func() {
			a.noteIssued(-1, "ghost")
		})
	})
}

func TestAttempt_BeginRound(t *testing.T) {
	t.Run("outstanding credential becomes a rejection", func(t *testing.T) {
		a := newAttempt("https://example.com/repo.git", "", AllMethods, 2)
		a.noteIssued(1, "ssh-key")

		a.beginRound("", MethodUserPass)

		assert.Equal(t, 1, a.timesTried(1))
		assert.Equal(t, "ssh-key", a.LastSource())
		require.Error(t, a.LastError())
		assert.ErrorIs(t, a.LastError(), ErrRejected)
		assert.Equal(t, MethodUserPass, a.Allowed())
	})

	t.Run("no outstanding credential records nothing", func(t *testing.T) {
		a := newAttempt("https://example.com/repo.git", "", AllMethods, 2)

		a.beginRound("", MethodSSHKey)

		assert.Empty(t, a.Tried())
		assert.NoError(t, a.LastError())
	})

	t.Run("non-empty hint replaces username, empty keeps it", func(t *testing.T) {
		a := newAttempt("https://example.com/repo.git", "alice", AllMethods, 2)

		a.beginRound("", AllMethods)
		assert.Equal(t, "alice", a.Username())

		a.beginRound("bob", AllMethods)
		assert.Equal(t, "bob", a.Username())
	})
}
