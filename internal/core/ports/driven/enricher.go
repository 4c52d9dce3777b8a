package driven

import (
	"context"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
)

// Enricher is the source-capability record: data-carrying configuration
// plus the strategy functions that turn a raw record into its enriched
// form. One implementation per source type replaces the per-source
// class hierarchy of older harvesters.
type Enricher interface {
	// FieldDate names the enriched date field the cursor is computed
	// from (e.g., "changeddate").
	FieldDate() string

	// UniqueID extracts the stable identifier from a raw record.
	UniqueID(raw domain.RawRecord) (string, error)

	// RichItem builds the enriched document for a raw record. Pure
	// except for identifier derivation and project-mapping lookups.
	// Missing fields degrade to null in the output, never to an error.
	RichItem(ctx context.Context, raw domain.RawRecord) (any, error)

	// Identities enumerates every human actor mentioned in the record,
	// one entry per occurrence, duplicates preserved: the identity
	// management collaborator does its own aggregation.
	Identities(raw domain.RawRecord) ([]domain.Identity, error)

	// Mappings returns engine mapping bodies to apply at index init,
	// keyed by document family.
	Mappings() map[string]string
}

// IdentityService is the identity-management collaborator consulted
// for identifier derivation. Identities are not merged globally across
// sources by this layer; the source name is part of the derivation.
type IdentityService interface {
	// UUID derives the stable identifier for a normalised identity
	// within the named source.
	UUID(ctx context.Context, identity domain.Identity, source string) (string, error)
}

// ProjectMapper resolves a (source, key) pair to a project bucket.
// Unresolved mappings yield the default bucket, not an error.
type ProjectMapper interface {
	// Project returns the mapped project and whether the mapping was
	// explicit.
	Project(source, key string) (string, bool)
}
