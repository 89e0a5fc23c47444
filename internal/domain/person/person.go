// Package person holds the Person record managed by the remote Person API.
package person

import (
	"strings"

	"github.com/erp/personportal/internal/domain/shared"
)

// Field limits enforced before a record is submitted upstream.
const (
	MaxNameLength    = 100
	MaxContactLength = 50
	MaxEmailLength   = 200
)

// Person is a flat Person record. Identifiers are assigned by the remote
// system only; zero means the record has not been created yet.
type Person struct {
	PersonID int    `json:"personID"`
	Name     string `json:"name"`
	Contact  string `json:"contact"`
	Email    string `json:"email"`
}

// IsNew reports whether the record still needs to be created upstream.
func (p Person) IsNew() bool {
	return p.PersonID == 0
}

// Normalize trims surrounding whitespace from every text field.
func (p Person) Normalize() Person {
	p.Name = strings.TrimSpace(p.Name)
	p.Contact = strings.TrimSpace(p.Contact)
	p.Email = strings.TrimSpace(p.Email)
	return p
}

// Validate checks the invariants the local layer can verify on its own.
func (p Person) Validate() error {
	if p.PersonID < 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Person ID cannot be negative")
	}
	if len([]rune(p.Name)) > MaxNameLength {
		return shared.NewDomainError(shared.CodeInvalidInput, "Name is too long")
	}
	if len([]rune(p.Contact)) > MaxContactLength {
		return shared.NewDomainError(shared.CodeInvalidInput, "Contact is too long")
	}
	if len([]rune(p.Email)) > MaxEmailLength {
		return shared.NewDomainError(shared.CodeInvalidInput, "Email is too long")
	}
	return nil
}
