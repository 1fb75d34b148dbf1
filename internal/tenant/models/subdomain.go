package models

import (
	"regexp"
	"strings"

	dErrors "synergy/pkg/domain-errors"
)

// Subdomain is the tenant's slice of the public hostname (the "harvard" in
// harvard.zappschool.com). It self-validates on construction so an invalid
// subdomain never exists in memory. Global uniqueness is enforced at the
// repository level, not here.
type Subdomain string

var validSubdomain = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// reservedSubdomains cannot be claimed by tenants; they route platform
// infrastructure.
var reservedSubdomains = map[string]struct{}{
	"www": {}, "api": {}, "admin": {}, "platform": {}, "mail": {}, "smtp": {},
	"ftp": {}, "support": {}, "help": {}, "billing": {}, "app": {}, "static": {},
	"cdn": {},
}

// ParseSubdomain validates and normalizes a subdomain: 3-63 characters,
// lowercase alphanumeric plus interior hyphens, not in the reserved set.
func ParseSubdomain(raw string) (Subdomain, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "subdomain is required")
	}
	if len(s) < 3 || len(s) > 63 {
		return "", dErrors.Newf(dErrors.CodeValidation, "subdomain must be 3-63 characters, got %d", len(s))
	}
	if !validSubdomain.MatchString(s) {
		return "", dErrors.Newf(dErrors.CodeValidation, "subdomain must be lowercase alphanumeric with hyphens: %q", raw)
	}
	if _, reserved := reservedSubdomains[s]; reserved {
		return "", dErrors.Newf(dErrors.CodeValidation, "subdomain %q is reserved", s)
	}
	return Subdomain(s), nil
}

func (s Subdomain) String() string { return string(s) }

// FullDomain joins the subdomain with the configured suffix, e.g.
// "harvard" + ".zappschool.com".
func (s Subdomain) FullDomain(suffix string) string {
	return string(s) + suffix
}

// SchemaName derives the tenant's database schema name deterministically.
// Hyphens are not legal in unquoted SQL identifiers, so they become
// underscores.
func (s Subdomain) SchemaName() string {
	return "tenant_" + strings.ReplaceAll(string(s), "-", "_")
}
