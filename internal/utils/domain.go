package utils

import (
	"strings"

	"golang.org/x/net/idna"
)

// NormalizeDomain reduces any user-supplied merchant URL or hostname to a
// bare lowercase domain: scheme, www. prefix, port, path, query and
// trailing dots/slashes are all stripped. Unicode hosts are IDNA-mapped to
// their ASCII form so the same merchant always keys to the same row.
//
// There is no failure mode: garbage in, garbage normalized.
func NormalizeDomain(raw string) string {
	d := strings.TrimSpace(strings.ToLower(raw))

	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	d = strings.TrimPrefix(d, "www.")

	// Drop credentials, path, query and fragment in that order.
	if i := strings.IndexByte(d, '@'); i >= 0 {
		d = d[i+1:]
	}
	for _, sep := range []byte{'/', '?', '#'} {
		if i := strings.IndexByte(d, sep); i >= 0 {
			d = d[:i]
		}
	}
	if i := strings.IndexByte(d, ':'); i >= 0 {
		d = d[:i]
	}
	d = strings.Trim(d, ".")

	if ascii, err := idna.Lookup.ToASCII(d); err == nil && ascii != "" {
		d = ascii
	}
	return d
}

// IsSubdomainForm reports whether the domain already carries a subdomain
// label, e.g. "shop.example.com" or "api.example.co.uk". Anything with
// more than two labels counts.
func IsSubdomainForm(domain string) bool {
	return strings.Count(domain, ".") >= 2
}

// CandidateOrigins returns the origins a probe should try, most likely
// first. For apex-form domains the common API subdomains are added; a
// domain that is already a subdomain is probed as-is.
func CandidateOrigins(domain string) []string {
	origins := []string{"https://" + domain}
	if !IsSubdomainForm(domain) {
		origins = append(origins,
			"https://api."+domain,
			"https://x402."+domain,
		)
	}
	return origins
}

// HostMatchesDomain reports whether host equals domain or is a subdomain
// of it. Both sides are expected in normalized form.
func HostMatchesDomain(host, domain string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	return host == domain || strings.HasSuffix(host, "."+domain)
}
