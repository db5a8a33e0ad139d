package gitauth

import (
	"errors"
	"fmt"
)

// Sentinel errors describing why a credential source could not produce a
// credential. All of them can be checked with errors.Is(). Every error
// except ErrExhausted is absorbed by the negotiation loop and recorded
// against the failing source; ErrExhausted is the only error Negotiate
// returns to the caller.

// ErrAgentUnavailable is returned when no SSH agent is reachable
// (SSH_AUTH_SOCK unset, socket gone, or the agent refused the connection).
var ErrAgentUnavailable = errors.New("ssh agent unavailable")

// ErrNoIdentity is returned when the SSH agent is reachable but holds no
// identities.
var ErrNoIdentity = errors.New("ssh agent holds no identities")

// ErrKeyNotFound is returned when no usable private key file exists at the
// configured or discovered paths.
var ErrKeyNotFound = errors.New("ssh private key not found")

// ErrDecryptFailed is returned when an encrypted private key could not be
// decrypted: the passphrase was wrong, or no passphrase could be obtained.
var ErrDecryptFailed = errors.New("ssh private key decryption failed")

// ErrCredentialsUnavailable is returned when no username/password pair could
// be produced (no helper configured, helper produced nothing, store files
// have no matching entry).
var ErrCredentialsUnavailable = errors.New("credentials unavailable")

// ErrRejected records the implicit server rejection of an issued credential:
// the transport calling Negotiate again means the previous credential did
// not work. It appears as a source's last error, never as a return value.
var ErrRejected = errors.New("credential rejected by remote")

// ErrExhausted is returned by Negotiate when no eligible credential source
// remains for the current attempt. It is terminal: further calls for the
// same attempt keep returning it.
var ErrExhausted = errors.New("authentication methods exhausted")

// WrapError wraps an error with additional context while preserving
// the ability to check against sentinel errors using errors.Is().
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// WrapErrorf wraps an error with formatted additional context while
// preserving the ability to check against sentinel errors using errors.Is().
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
