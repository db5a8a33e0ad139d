// Package keyscan discovers SSH private key files: the per-host
// IdentityFile entries from the OpenSSH client configuration, then the
// well-known filenames under ~/.ssh.
package keyscan

import (
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	sshcfg "github.com/kevinburke/ssh_config"
)

// DefaultKeyNames are the well-known private key filenames under ~/.ssh,
// in preference order. Modern key types come first.
var DefaultKeyNames = []string{"id_ed25519", "id_ecdsa", "id_rsa", "id_dsa"}

// Candidates returns the private key paths worth trying for host, in
// order: IdentityFile entries resolved for the host first (user intent),
// then the defaults under <home>/.ssh. Paths are tilde-expanded against
// home, deduplicated, and filtered to files that exist on fsys. A nil
// settings or empty host skips the IdentityFile half.
func Candidates(fsys billy.Filesystem, home, host string, settings *sshcfg.UserSettings) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(path string) {
		if path == "" {
			return
		}
		path = ExpandTilde(path, home)
		if _, dup := seen[path]; dup {
			return
		}
		seen[path] = struct{}{}
		if _, err := fsys.Stat(path); err != nil {
			return
		}
		out = append(out, path)
	}

	if host != "" && settings != nil {
		for _, identity := range settings.GetAll(host, "IdentityFile") {
			add(identity)
		}
	}
	if home != "" {
		for _, name := range DefaultKeyNames {
			add(filepath.Join(home, ".ssh", name))
		}
	}
	return out
}

// ExpandTilde resolves a leading "~" or "~/" against home. Other paths
// pass through unchanged, including "~user" forms this package does not
// resolve.
func ExpandTilde(path, home string) string {
	if home == "" {
		return path
	}
	if path == "~" {
		return home
	}
	if len(path) >= 2 && path[0] == '~' && (path[1] == '/' || path[1] == filepath.Separator) {
		return filepath.Join(home, path[2:])
	}
	return path
}
