package security

import (
	"net/netip"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

var ErrUnsafeURL = errors.New("unsafe url")

type URLOptions struct {
	// AllowHTTP permits plain http. https is always allowed.
	AllowHTTP bool
	// AllowLocalNetworks permits localhost and loopback, private and link-local IPs.
	AllowLocalNetworks bool
}

// APIBaseURLOptions is used for the chat API base url, which may point at a server
// running on the same machine.
var APIBaseURLOptions = URLOptions{AllowHTTP: true, AllowLocalNetworks: true}

// ImageURLOptions is used for image urls attached to a message. The API provider
// fetches them, so only public https urls are accepted.
var ImageURLOptions = URLOptions{}

// ValidateURL checks the scheme and host of rawURL. IP literals are checked without
// DNS lookups, hostnames only by name.
func ValidateURL(rawURL string, opts URLOptions) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.Wrapf(ErrUnsafeURL, "could not parse %q: %v", rawURL, err)
	}

	switch parsed.Scheme {
	case "https":
	case "http":
		if !opts.AllowHTTP {
			return errors.Wrapf(ErrUnsafeURL, "%q: http is not allowed", rawURL)
		}
	default:
		return errors.Wrapf(ErrUnsafeURL, "%q: scheme %q is not allowed", rawURL, parsed.Scheme)
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return errors.Wrapf(ErrUnsafeURL, "%q has no host", rawURL)
	}

	if !opts.AllowLocalNetworks &&
		(host == "localhost" || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".local")) {
		return errors.Wrapf(ErrUnsafeURL, "local host %q", host)
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		return nil
	}
	if addr.Zone() != "" && !opts.AllowLocalNetworks {
		return errors.Wrapf(ErrUnsafeURL, "zoned address %q", host)
	}
	addr = addr.Unmap()
	if addr.IsUnspecified() || addr.IsMulticast() {
		return errors.Wrapf(ErrUnsafeURL, "address %q", host)
	}
	if !opts.AllowLocalNetworks &&
		(addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast()) {
		return errors.Wrapf(ErrUnsafeURL, "local network address %q", host)
	}

	return nil
}
