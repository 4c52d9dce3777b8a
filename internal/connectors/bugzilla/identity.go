package bugzilla

import (
	"github.com/custodia-labs/harvest-cli/internal/core/domain"
)

// RoleFields is one contributor mention in a bug: exactly one of the
// mutually exclusive source shapes is normally present. Explicit role
// fields take precedence over the generic who/changed_by fields when
// a caller passes several.
type RoleFields struct {
	// Reporter, AssignedTo and QAContact are list-wrapped role fields
	// carrying a text value and an optional display name.
	Reporter   *Person
	AssignedTo *Person
	QAContact  *Person

	// Who is a comment author reference.
	Who *Person

	// WhoLabel is the bare username from an activity table column.
	WhoLabel string

	// ChangedBy is the free-text actor of a change record.
	ChangedBy string
}

// ShIdentity synthesises a normalised identity from one contributor
// mention. Unresolvable fields yield nil components, never an error:
// callers must tolerate partially-populated identities.
func ShIdentity(roles RoleFields) domain.Identity {
	var id domain.Identity

	if roles.WhoLabel != "" {
		id.Username = domain.StringPtr(roles.WhoLabel)
	}
	if roles.ChangedBy != "" {
		id.Name = domain.StringPtr(roles.ChangedBy)
	}
	if roles.Who != nil {
		fillFromPerson(&id, roles.Who)
	}
	for _, role := range []*Person{roles.Reporter, roles.AssignedTo, roles.QAContact} {
		if role != nil {
			fillFromPerson(&id, role)
		}
	}

	return id
}

// fillFromPerson maps the element text to the username and the name
// attribute, when present, to the display name.
func fillFromPerson(id *domain.Identity, p *Person) {
	if p.Text != "" {
		id.Username = domain.StringPtr(p.Text)
	}
	if p.Name != "" {
		id.Name = domain.StringPtr(p.Name)
	}
}

// Identities enumerates every human actor mentioned in a bug: the
// reporter, assignee and QA contact, every comment author and every
// change-log actor. One entry per occurrence, duplicates preserved:
// the identity management collaborator aggregates on its side.
func Identities(bug *Bug, changes []domain.ChangeRecord) []domain.Identity {
	ids := make([]domain.Identity, 0)

	if bug.Reporter != nil {
		ids = append(ids, ShIdentity(RoleFields{Reporter: bug.Reporter}))
	}
	if bug.AssignedTo != nil {
		ids = append(ids, ShIdentity(RoleFields{AssignedTo: bug.AssignedTo}))
	}
	if bug.QAContact != nil && bug.QAContact.Text != "" {
		ids = append(ids, ShIdentity(RoleFields{QAContact: bug.QAContact}))
	}
	for i := range bug.Comments {
		ids = append(ids, ShIdentity(RoleFields{Who: &bug.Comments[i].Who}))
	}
	for _, change := range changes {
		ids = append(ids, ShIdentity(RoleFields{ChangedBy: change.ChangedBy}))
	}

	return ids
}
