package gitauth

import (
	"io"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	gitcfg "github.com/go-git/go-git/v5/config"
	format "github.com/go-git/go-git/v5/plumbing/format/config"
)

// Config is a read-only view of git configuration, scoped to the credential
// settings this package consumes: credential.username, credential.helper,
// and their URL-scoped variants like [credential "https://example.com"].
//
// Lookups never fail. Absent or unreadable configuration, malformed
// sections, and unparseable remote URLs all degrade to not-found.
type Config struct {
	raw *format.Config
}

// LoadConfig reads the user's global git configuration through go-git. The
// returned Config is always usable: when loading fails the Config is empty
// and the error reports why.
func LoadConfig() (*Config, error) {
	cfg, err := gitcfg.LoadConfig(gitcfg.GlobalScope)
	if err != nil {
		return NewConfig(nil), WrapError(err, "loading global git config")
	}
	return NewConfig(cfg.Raw), nil
}

// NewConfig wraps an already-parsed configuration. A nil raw config yields
// an empty Config whose every lookup reports not-found.
func NewConfig(raw *format.Config) *Config {
	if raw == nil {
		raw = format.New()
	}
	return &Config{raw: raw}
}

// ParseConfig reads git-config syntax from r. Handy for fixtures and for
// callers that manage config files themselves.
func ParseConfig(r io.Reader) (*Config, error) {
	raw := format.New()
	if err := format.NewDecoder(r).Decode(raw); err != nil {
		return nil, WrapError(err, "parsing git config")
	}
	return &Config{raw: raw}, nil
}

// DefaultUsername returns the credential.username configured for the remote
// URL. A subsection scoped to the URL's protocol and host wins over the
// bare [credential] section.
func (c *Config) DefaultUsername(remoteURL string) (string, bool) {
	return c.lookup(remoteURL, "username")
}

// Helper returns the credential.helper configured for the remote URL, using
// the same scoping rules as DefaultUsername. The helper value is returned
// as written; see HelperCommand for its interpretations.
func (c *Config) Helper(remoteURL string) (HelperCommand, bool) {
	raw, ok := c.lookup(remoteURL, "helper")
	if !ok {
		return HelperCommand{}, false
	}
	return HelperCommand{Raw: raw}, true
}

// CredentialsFiles returns the credential-store files to consult for this
// remote, most specific first. A configured store helper with an explicit
// --file wins; otherwise the conventional locations are returned:
// ~/.git-credentials and the XDG config path git/credentials.
func (c *Config) CredentialsFiles(remoteURL string) []string {
	if helper, ok := c.Helper(remoteURL); ok {
		if file, isStore := helper.IsStore(); isStore && file != "" {
			return []string{expandHome(file)}
		}
	}
	var files []string
	if xdg.Home != "" {
		files = append(files, filepath.Join(xdg.Home, ".git-credentials"))
	}
	files = append(files, filepath.Join(xdg.ConfigHome, "git", "credentials"))
	return files
}

// lookup finds key in the credential sections, URL-scoped subsections
// first. Later matching subsections override earlier ones; the bare section
// is the fallback. Empty values count as unset, matching git's treatment of
// an empty helper string.
func (c *Config) lookup(remoteURL, key string) (string, bool) {
	protocol, host := credentialContext(remoteURL)

	value := ""
	found := false
	for _, section := range c.raw.Sections {
		if !strings.EqualFold(section.Name, "credential") {
			continue
		}
		if !found {
			if v, ok := lastOption(section.Options, key); ok {
				value, found = v, true
			}
		}
		for _, sub := range section.Subsections {
			if !credentialURLMatches(sub.Name, protocol, host) {
				continue
			}
			if v, ok := lastOption(sub.Options, key); ok {
				value, found = v, true
			}
		}
	}
	if !found || value == "" {
		return "", false
	}
	return value, true
}

// lastOption returns the last value set for key, matching git's
// last-one-wins rule. Keys compare case-insensitively.
func lastOption(opts format.Options, key string) (string, bool) {
	value := ""
	found := false
	for _, opt := range opts {
		if strings.EqualFold(opt.Key, key) {
			value, found = opt.Value, true
		}
	}
	return value, found
}

// credentialURLMatches reports whether a [credential "<pattern>"]
// subsection applies to the remote's protocol and host. Patterns with a
// scheme must match both; bare-host patterns match any protocol.
func credentialURLMatches(pattern, protocol, host string) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || host == "" {
		return false
	}
	if !strings.Contains(pattern, "://") {
		return strings.EqualFold(strings.TrimSuffix(pattern, "/"), host)
	}
	u, err := url.Parse(pattern)
	if err != nil {
		return false
	}
	if !strings.EqualFold(u.Scheme, protocol) {
		return false
	}
	return strings.EqualFold(u.Host, host)
}

// HelperCommand is a credential.helper value as written in configuration.
// Git recognizes three spellings: a bare name ("store", "cache") invoking
// git-credential-<name>, an absolute path invoking the program directly,
// and a "!" prefix running the remainder through the shell.
type HelperCommand struct {
	// Raw is the helper value exactly as configured.
	Raw string
}

// Argv returns the command line that runs this helper, without the
// trailing operation argument ("get", "store", "erase"). Returns false for
// an empty value. Arguments are split on whitespace; helpers needing shell
// quoting use the "!" form, which is handed to sh untouched.
func (h HelperCommand) Argv() ([]string, bool) {
	raw := strings.TrimSpace(h.Raw)
	if raw == "" {
		return nil, false
	}
	if rest, ok := strings.CutPrefix(raw, "!"); ok {
		rest = strings.TrimSpace(rest)
		if rest == "" {
			return nil, false
		}
		// The appended operation argument reaches the snippet as "$1".
		return []string{"sh", "-c", rest + ` "$@"`, "sh"}, true
	}
	fields := strings.Fields(raw)
	if strings.HasPrefix(fields[0], "/") || strings.Contains(fields[0], string(filepath.Separator)) {
		return fields, true
	}
	return append([]string{"git", "credential-" + fields[0]}, fields[1:]...), true
}

// IsStore reports whether the helper is git-credential-store, and if so
// which --file it was given ("" when it relies on the default locations).
// The store helper only reads files, so callers can read the same files
// natively instead of spawning it.
func (h HelperCommand) IsStore() (file string, ok bool) {
	fields := strings.Fields(strings.TrimSpace(h.Raw))
	if len(fields) == 0 || fields[0] != "store" {
		return "", false
	}
	for i := 1; i < len(fields); i++ {
		if v, found := strings.CutPrefix(fields[i], "--file="); found {
			file = v
		} else if fields[i] == "--file" && i+1 < len(fields) {
			file = fields[i+1]
			i++
		}
	}
	return file, true
}

// expandHome resolves a leading "~/" against the user's home directory.
func expandHome(path string) string {
	if path == "~" {
		return xdg.Home
	}
	if strings.HasPrefix(path, "~/") && xdg.Home != "" {
		return filepath.Join(xdg.Home, path[2:])
	}
	return path
}
