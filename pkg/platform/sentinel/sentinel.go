package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: no record matches the id or filter
//   - ErrConflict: a unique value (share code) is already taken
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)
