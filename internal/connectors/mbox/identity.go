package mbox

import (
	"net/mail"
	"regexp"
	"strings"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
)

// obfuscations are the spam-protection substitutions archives apply
// to the @ sign, undone before parsing the address.
var obfuscations = []string{" at ", "_at_", " en "}

// addrWithComment matches the "user@host (Display Name)" header shape.
var addrWithComment = regexp.MustCompile(`^(\S+@\S+)\s+\((.+)\)$`)

// Deobfuscate rewrites an obfuscated From header to a parseable
// address.
func Deobfuscate(from string) string {
	for _, pattern := range obfuscations {
		if strings.Contains(from, pattern) {
			from = strings.Replace(from, pattern, "@", 1)
			break
		}
	}
	return from
}

// ShIdentity synthesises an identity from a From header. Both the
// "Name <user@host>" and "user@host (Name)" shapes are understood;
// anything else lands in the name component. Unresolvable parts yield
// nil components, never an error.
func ShIdentity(from string) domain.Identity {
	var id domain.Identity

	from = strings.TrimSpace(Deobfuscate(from))
	if from == "" {
		return id
	}

	if m := addrWithComment.FindStringSubmatch(from); m != nil {
		id.Email = domain.StringPtr(m[1])
		id.Name = domain.StringPtr(strings.TrimSpace(m[2]))
		return id
	}

	if addr, err := mail.ParseAddress(from); err == nil {
		id.Email = domain.StringPtr(addr.Address)
		if addr.Name != "" {
			id.Name = domain.StringPtr(addr.Name)
		}
		return id
	}

	id.Name = domain.StringPtr(from)
	return id
}

// EmailDomain returns the domain part of an address, or nil when the
// address has none.
func EmailDomain(email *string) *string {
	if email == nil {
		return nil
	}
	at := strings.LastIndex(*email, "@")
	if at < 0 || at == len(*email)-1 {
		return nil
	}
	return domain.StringPtr((*email)[at+1:])
}
