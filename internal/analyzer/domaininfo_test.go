package analyzer

import (
	"testing"
)

const registeredWhois = `Domain Name: EXAMPLE.COM
Registrar: Example Registrar, Inc.
Creation Date: 1995-08-14T04:00:00Z
Registry Expiry Date: 2027-08-13T04:00:00Z
Name Server: A.IANA-SERVERS.NET
Domain Status: clientTransferProhibited
`

func TestParseWhois_Registered(t *testing.T) {
	t.Parallel()

	info := parseWhois(registeredWhois)
	if info == nil || !info.Registered {
		t.Fatalf("expected registered, got %+v", info)
	}
	if info.Registrar != "Example Registrar, Inc." {
		t.Errorf("registrar not extracted: %q", info.Registrar)
	}
	if info.CreatedAt != "1995-08-14T04:00:00Z" {
		t.Errorf("creation date not extracted: %q", info.CreatedAt)
	}
}

func TestParseWhois_Available(t *testing.T) {
	t.Parallel()

	info := parseWhois("No match for domain \"FREE-EXAMPLE.COM\".\n")
	if info == nil || info.Registered {
		t.Errorf("expected unregistered, got %+v", info)
	}
}

func TestParseWhois_NoSignalDefaultsRegistered(t *testing.T) {
	t.Parallel()

	info := parseWhois("% rate limit exceeded, try again later\n")
	if info == nil || !info.Registered {
		t.Errorf("ambiguous output should default to registered, got %+v", info)
	}
}

func TestWhoisField_CaseInsensitive(t *testing.T) {
	t.Parallel()

	if got := whoisField("REGISTRAR: Acme Names\n", "registrar:"); got != "Acme Names" {
		t.Errorf("case-insensitive match failed: %q", got)
	}
	if got := whoisField("created: 2001-01-01\n", "creation date:"); got != "" {
		t.Errorf("wrong key must not match: %q", got)
	}
}
