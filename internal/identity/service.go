// Package identity derives stable identifiers for normalised
// contributor identities. It is the in-process default for the
// identity-management collaborator: identifiers are deterministic
// per (source, identity tuple) and are not merged across sources.
package identity

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/core/ports/driven"
)

// Ensure Service implements the interface.
var _ driven.IdentityService = (*Service)(nil)

// namespace anchors UUID derivation so identifiers stay stable across
// processes and runs.
var namespace = uuid.MustParse("ab6090b2-8297-4a0e-9b56-77e6d0a32da2")

// noneComponent stands in for unresolved identity components in the
// canonical form, so (nil, "alice", nil) and ("alice", nil, nil)
// derive different identifiers.
const noneComponent = "none"

// Service derives identifiers locally with SHA-1 UUIDs.
type Service struct{}

// New creates a new identity service.
func New() *Service {
	return &Service{}
}

// UUID derives the stable identifier for an identity within a source.
// The derivation is a pure function of the normalised tuple plus the
// source name.
func (s *Service) UUID(_ context.Context, id domain.Identity, source string) (string, error) {
	canonical := CanonicalForm(id, source)
	return uuid.NewSHA1(namespace, []byte(canonical)).String(), nil
}

// CanonicalForm renders the identity tuple in its canonical string
// form: source, email, name and username joined with colons, lower
// cased, with unresolved components replaced by a fixed sentinel.
func CanonicalForm(id domain.Identity, source string) string {
	parts := []string{
		strings.ToLower(source),
		component(id.Email),
		component(id.Name),
		component(id.Username),
	}
	return strings.Join(parts, ":")
}

func component(v *string) string {
	if v == nil || *v == "" {
		return noneComponent
	}
	return strings.ToLower(strings.TrimSpace(*v))
}
