package domain

// Identity is a normalised contributor representation.
// Components that could not be resolved are nil, never empty-string
// sentinels: callers must tolerate partially-populated identities.
type Identity struct {
	// Username is the source-local account name.
	Username *string `json:"username"`

	// Name is the display name.
	Name *string `json:"name"`

	// Email is the contact address after de-obfuscation.
	Email *string `json:"email"`
}

// StringPtr returns a pointer to s. Convenience for building identities.
func StringPtr(s string) *string {
	return &s
}

// Equal reports whether two identities normalise to the same tuple.
func (i Identity) Equal(other Identity) bool {
	return ptrEq(i.Username, other.Username) &&
		ptrEq(i.Name, other.Name) &&
		ptrEq(i.Email, other.Email)
}

// IsEmpty reports whether no component was resolved.
func (i Identity) IsEmpty() bool {
	return i.Username == nil && i.Name == nil && i.Email == nil
}

func ptrEq(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
