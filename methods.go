package gitauth

import "strings"

// Methods is a bitmask of authentication methods a server is willing to
// accept for the current round. Transports receive the set from the server
// and pass it to Negotiate; sources declare which bits they can satisfy.
type Methods uint32

const (
	// MethodUserPass is plaintext username/password authentication
	// (HTTP basic auth, SSH password auth).
	MethodUserPass Methods = 1 << iota

	// MethodSSHKey is public-key authentication with a key read from disk.
	MethodSSHKey

	// MethodSSHAgent is public-key authentication with identities held by a
	// running SSH agent. Servers that accept key auth generally accept both
	// MethodSSHKey and MethodSSHAgent.
	MethodSSHAgent

	// MethodSSHInteractive is keyboard-interactive authentication. No
	// built-in source claims it; consumers with an interactive transport
	// can implement a Source for it.
	MethodSSHInteractive

	// MethodDefault is unauthenticated ("default") access, satisfied by the
	// anonymous source.
	MethodDefault

	// MethodUsername is the username-probe round some transports run before
	// real authentication: the server wants a username only, so it can
	// decide which methods to advertise next.
	MethodUsername
)

// AllMethods has every method bit set. Useful for transports that do not
// relay the server's advertised set.
const AllMethods = MethodUserPass | MethodSSHKey | MethodSSHAgent |
	MethodSSHInteractive | MethodDefault | MethodUsername

var methodNames = []struct {
	bit  Methods
	name string
}{
	{MethodUserPass, "userpass"},
	{MethodSSHKey, "ssh-key"},
	{MethodSSHAgent, "ssh-agent"},
	{MethodSSHInteractive, "ssh-interactive"},
	{MethodDefault, "default"},
	{MethodUsername, "username"},
}

// Has reports whether every bit in want is set in m.
func (m Methods) Has(want Methods) bool {
	return m&want == want
}

// String returns the set's method names joined with "|", or "none" for the
// empty set. Unknown bits render as "unknown".
func (m Methods) String() string {
	if m == 0 {
		return "none"
	}
	names := make([]string, 0, len(methodNames))
	known := Methods(0)
	for _, mn := range methodNames {
		if m.Has(mn.bit) {
			names = append(names, mn.name)
		}
		known |= mn.bit
	}
	if m&^known != 0 {
		names = append(names, "unknown")
	}
	return strings.Join(names, "|")
}
