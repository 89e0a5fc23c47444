package person

import (
	"context"
	"errors"
)

var (
	// ErrRejected is returned by write operations when the remote API answers
	// with a non-success status. Callers treat it as "nothing happened".
	ErrRejected = errors.New("person: request rejected by remote api")

	// ErrUnavailable wraps transport and decoding failures.
	ErrUnavailable = errors.New("person: remote api unavailable")
)

// Repository is the remote Person store.
//
// Read operations never fail on a non-success status: FindAll returns an
// empty list and FindByID returns a zero Person. Errors are reserved for
// transport and decoding failures.
type Repository interface {
	// FindAll returns every record in the order the remote API lists them
	FindAll(ctx context.Context) ([]Person, error)

	// FindByID returns the record with the given identifier, or a zero Person
	FindByID(ctx context.Context, id int) (Person, error)

	// Create submits a new record
	Create(ctx context.Context, p Person) error

	// Update replaces the record with p.PersonID
	Update(ctx context.Context, p Person) error

	// Delete removes the record with the given identifier
	Delete(ctx context.Context, id int) error
}
