package gitauth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextSource(t *testing.T) {
	chain := Chain{
		&stubSource{name: "first", methods: MethodSSHAgent},
		&stubSource{name: "second", methods: MethodSSHKey, max: 2},
		&stubSource{name: "third", methods: MethodUserPass},
	}

	t.Run("first overlapping source wins", func(t *testing.T) {
		a := newAttempt("https://example.com/r.git", "", AllMethods, len(chain))
		idx, ok := nextSource(a, chain)
		assert.True(t, ok)
		assert.Equal(t, 0, idx)
	})

	t.Run("advertised set filters sources", func(t *testing.T) {
		a := newAttempt("https://example.com/r.git", "", MethodUserPass, len(chain))
		idx, ok := nextSource(a, chain)
		assert.True(t, ok)
		assert.Equal(t, 2, idx)
	})

	t.Run("spent budget skips to next", func(t *testing.T) {
		a := newAttempt("https://example.com/r.git", "", AllMethods, len(chain))
		a.recordFailure(0, "first", errors.New("x"))

		idx, ok := nextSource(a, chain)
		assert.True(t, ok)
		assert.Equal(t, 1, idx)
	})

	t.Run("larger budget keeps a source eligible", func(t *testing.T) {
		a := newAttempt("https://example.com/r.git", "", MethodSSHKey, len(chain))
		a.recordFailure(1, "second", errors.New("x"))

		idx, ok := nextSource(a, chain)
		assert.True(t, ok)
		assert.Equal(t, 1, idx)

		a.recordFailure(1, "second", errors.New("x"))
		_, ok = nextSource(a, chain)
		assert.False(t, ok)
	})

	t.Run("restarts from the front every round", func(t *testing.T) {
		// A higher-priority source with budget left is preferred even after
		// a lower one was tried.
		wide := Chain{
			&stubSource{name: "key", methods: MethodSSHKey, max: 3},
			&stubSource{name: "pass", methods: MethodUserPass},
		}
		a := newAttempt("https://example.com/r.git", "", AllMethods, len(wide))
		a.recordFailure(1, "pass", errors.New("x"))

		idx, ok := nextSource(a, wide)
		assert.True(t, ok)
		assert.Equal(t, 0, idx)
	})

	t.Run("empty advertised set is immediately ineligible", func(t *testing.T) {
		a := newAttempt("https://example.com/r.git", "", 0, len(chain))
		idx, ok := nextSource(a, chain)
		assert.False(t, ok)
		assert.Equal(t, -1, idx)
	})

	t.Run("all budgets spent", func(t *testing.T) {
		a := newAttempt("https://example.com/r.git", "", AllMethods, len(chain))
		a.recordFailure(0, "first", errors.New("x"))
		a.recordFailure(1, "second", errors.New("x"))
		a.recordFailure(1, "second", errors.New("x"))
		a.recordFailure(2, "third", errors.New("x"))

		_, ok := nextSource(a, chain)
		assert.False(t, ok)
	})
}

func TestChain_Validate(t *testing.T) {
	t.Run("valid chain", func(t *testing.T) {
		chain := Chain{
			&stubSource{name: "a", methods: MethodSSHKey},
			&stubSource{name: "b", methods: MethodUserPass},
		}
		assert.NoError(t, chain.Validate())
	})

	t.Run("empty chain", func(t *testing.T) {
		assert.Error(t, Chain{}.Validate())
	})

	t.Run("nil entry", func(t *testing.T) {
		chain := Chain{&stubSource{name: "a", methods: MethodSSHKey}, nil}
		err := chain.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "nil")
	})

	t.Run("duplicate names", func(t *testing.T) {
		chain := Chain{
			&stubSource{name: "dup", methods: MethodSSHKey},
			&stubSource{name: "dup", methods: MethodUserPass},
		}
		err := chain.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate")
	})

	t.Run("distinct key paths are distinct names", func(t *testing.T) {
		chain := Chain{
			NewSSHKeyFileSource("/home/u/.ssh/a", ""),
			NewSSHKeyFileSource("/home/u/.ssh/b", ""),
		}
		assert.NoError(t, chain.Validate())
	})

	t.Run("non-positive budget", func(t *testing.T) {
		chain := Chain{&stubSource{name: "a", methods: MethodSSHKey, max: -1}}
		err := chain.Validate()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "retry budget")
	})

	t.Run("empty name", func(t *testing.T) {
		chain := Chain{&stubSource{methods: MethodSSHKey}}
		assert.Error(t, chain.Validate())
	})
}
