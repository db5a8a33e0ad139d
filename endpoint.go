package gitauth

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
)

// parseEndpoint parses a remote URL into go-git's endpoint form, which
// understands scp-style "git@host:path" remotes as well as regular URLs.
// Returns nil when the URL cannot be parsed; sources degrade gracefully on
// a nil endpoint.
func parseEndpoint(remoteURL string) *transport.Endpoint {
	if remoteURL == "" {
		return nil
	}
	ep, err := transport.NewEndpoint(remoteURL)
	if err != nil {
		return nil
	}
	return ep
}

// isSSHEndpoint reports whether the endpoint speaks an SSH-family protocol.
func isSSHEndpoint(ep *transport.Endpoint) bool {
	if ep == nil {
		return false
	}
	switch ep.Protocol {
	case "ssh", "git+ssh":
		return true
	}
	return false
}

// isHTTPEndpoint reports whether the endpoint speaks HTTP or HTTPS.
func isHTTPEndpoint(ep *transport.Endpoint) bool {
	if ep == nil {
		return false
	}
	return ep.Protocol == "http" || ep.Protocol == "https"
}

// redactURL strips the password from a remote URL's userinfo so the URL is
// safe to log. URLs without a password, and scp-style remotes (which cannot
// carry one), pass through unchanged.
func redactURL(remoteURL string) string {
	u, err := url.Parse(remoteURL)
	if err != nil || u.User == nil {
		return remoteURL
	}
	if _, has := u.User.Password(); !has {
		return remoteURL
	}
	u.User = url.User(u.User.Username())
	return u.String()
}

// credentialContext reduces a remote URL to the protocol+host pair git
// configuration matches credential sections against. Falls back to the raw
// URL when parsing fails.
func credentialContext(remoteURL string) (protocol, host string) {
	ep := parseEndpoint(remoteURL)
	if ep == nil {
		return "", strings.TrimSpace(remoteURL)
	}
	host = ep.Host
	if ep.Port > 0 && !isDefaultPort(ep.Protocol, ep.Port) {
		host = ep.Host + ":" + strconv.Itoa(ep.Port)
	}
	return ep.Protocol, host
}

func isDefaultPort(protocol string, port int) bool {
	switch protocol {
	case "http":
		return port == 80
	case "https":
		return port == 443
	case "ssh", "git+ssh":
		return port == 22
	case "git":
		return port == 9418
	}
	return false
}
