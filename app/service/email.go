package service

import "strings"

// Domains whose mailboxes ignore dots and +suffixes in the local part.
// googlemail.com is the same mailbox namespace as gmail.com, so it is
// folded into gmail.com to keep the two aliases from registering twice.
var emailDomainAliases = map[string]string{
	"googlemail.com": "gmail.com",
}

var dotInsensitiveDomains = map[string]bool{
	"gmail.com": true,
}

// CanonicalizeEmail normalizes an email address for uniqueness checks:
// trims whitespace, lowercases, collapses provider alias domains, and
// for dot-insensitive providers strips dots and +suffix from the local
// part. The canonical form is only used as a lookup key; the address as
// typed is what gets stored and mailed.
func CanonicalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))

	local, domain, found := strings.Cut(email, "@")
	if !found {
		return email
	}

	if alias, ok := emailDomainAliases[domain]; ok {
		domain = alias
	}

	if dotInsensitiveDomains[domain] {
		if idx := strings.Index(local, "+"); idx != -1 {
			local = local[:idx]
		}
		local = strings.ReplaceAll(local, ".", "")
	}

	return local + "@" + domain
}
