package auth

import (
	"regexp"
	"strings"

	"github.com/warp/hrms/generic"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ValidSlug reports whether s is a well-formed tenant key.
func ValidSlug(s string) bool {
	return len(s) <= 63 && slugPattern.MatchString(s)
}

// TenantKeyFromEmail derives the tenant key from a login email: the first
// label of the domain, so alice@acme.com and alice@acme.co.uk both map to
// "acme".
func TenantKeyFromEmail(email string) (string, error) {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", generic.Invalid("email", "must be a valid address")
	}
	domain := strings.ToLower(email[at+1:])
	label, _, _ := strings.Cut(domain, ".")
	if !ValidSlug(label) {
		return "", generic.Invalid("email", "domain %q does not name an organization", domain)
	}
	return label, nil
}
