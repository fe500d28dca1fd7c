package gmail

import "strings"

// Reconcile verifies that the identity fetched with the secondary credential
// matches the user's primary identity. Comparison is exact after lowercasing
// both sides; aliases and plus-addressing are deliberately not normalized.
// On mismatch the caller must drop connected=true and must never hand data
// fetched via the mismatched credential to the end user.
func Reconcile(primaryEmail, fetchedEmail string) error {
	p := strings.ToLower(primaryEmail)
	f := strings.ToLower(fetchedEmail)
	if p != f {
		return &MismatchError{PrimaryEmail: p, FetchedEmail: f}
	}
	return nil
}
