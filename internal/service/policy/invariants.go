package policy

import (
	"net/http"

	"lorebook/internal/domain/models/wiki"
)

// InvariantKind names the write-time consistency rule a change violates.
type InvariantKind string

const (
	// OpennessViolation: a page would become more open than its directory.
	OpennessViolation InvariantKind = "openness"

	// EditabilityVisibilityViolation: internal editability combined with
	// private visibility would let users edit content they cannot view.
	EditabilityVisibilityViolation InvariantKind = "editability_visibility"
)

// InvariantError is a typed rejection from the consistency validator.
// The underlying write must not be attempted when one is returned.
type InvariantError struct {
	Kind    InvariantKind `json:"kind"`
	Message string        `json:"message"`
}

// Error implements the error interface
func (e *InvariantError) Error() string {
	return e.Message
}

// StatusCode maps invariant rejections to 400 (domain.HTTPError)
func (e *InvariantError) StatusCode() int {
	return http.StatusBadRequest
}

// ValidateVisibilityEditability checks the two write-time invariants for
// a proposed page state. directoryVisibility is the page's (current or
// target) directory visibility, nil for root-level pages, which skips the
// openness check.
//
// These invariants are enforced only on page create/edit/move paths.
// Lowering a directory's visibility after the fact does not re-validate
// descendants; a previously valid public page may end up under a private
// directory, and the read-time public shortcut still honors it.
func ValidateVisibilityEditability(visibility wiki.Visibility, editability wiki.Editability, directoryVisibility *wiki.Visibility) *InvariantError {
	if directoryVisibility != nil && visibility.IsMoreOpenThan(*directoryVisibility) {
		return &InvariantError{
			Kind:    OpennessViolation,
			Message: "a page cannot be more open than its directory; change the directory visibility first, or use a more restrictive setting for this page",
		}
	}

	if editability == wiki.EditabilityInternal && visibility == wiki.VisibilityPrivate {
		return &InvariantError{
			Kind:    EditabilityVisibilityViolation,
			Message: "a page cannot have internal editability when its visibility is private; change the visibility first, or use restricted editability",
		}
	}

	return nil
}
