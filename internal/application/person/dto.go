package person

import (
	"strings"

	"github.com/erp/personportal/internal/domain/person"
)

// SavePersonRequest is the form posted by the add/edit page.
type SavePersonRequest struct {
	PersonID int    `form:"PersonID" binding:"min=0"`
	Name     string `form:"Name" binding:"max=100"`
	Contact  string `form:"Contact" binding:"max=50"`
	Email    string `form:"Email" binding:"omitempty,email,max=200"`
}

// Normalize trims surrounding whitespace from the text fields.
func (r SavePersonRequest) Normalize() SavePersonRequest {
	r.Name = strings.TrimSpace(r.Name)
	r.Contact = strings.TrimSpace(r.Contact)
	r.Email = strings.TrimSpace(r.Email)
	return r
}

// ToPerson converts the form into a normalized domain record
func (r SavePersonRequest) ToPerson() person.Person {
	return person.Person{
		PersonID: r.PersonID,
		Name:     r.Name,
		Contact:  r.Contact,
		Email:    r.Email,
	}.Normalize()
}

// DeleteSelectedRequest is the batch delete form.
type DeleteSelectedRequest struct {
	SelectedPersons []int `form:"selectedPersons"`
}

// PersonResponse is the browser-facing JSON shape of a record
type PersonResponse struct {
	PersonID int    `json:"personID"`
	Name     string `json:"name"`
	Contact  string `json:"contact"`
	Email    string `json:"email"`
}

// ToPersonResponse maps a domain record to its JSON shape
func ToPersonResponse(p person.Person) PersonResponse {
	return PersonResponse{
		PersonID: p.PersonID,
		Name:     p.Name,
		Contact:  p.Contact,
		Email:    p.Email,
	}
}

// ToPersonResponses keeps the input order and never returns nil.
func ToPersonResponses(people []person.Person) []PersonResponse {
	out := make([]PersonResponse, 0, len(people))
	for _, p := range people {
		out = append(out, ToPersonResponse(p))
	}
	return out
}

// SaveOutcome tells the caller which message, if any, a Save earned.
type SaveOutcome int

const (
	// SaveRejected means the remote API answered with a non-success status
	SaveRejected SaveOutcome = iota
	SaveCreated
	SaveUpdated
)

// ExportFile is a generated workbook ready to stream.
type ExportFile struct {
	FileName    string
	ContentType string
	Content     []byte
	ArchiveKey  string // empty when the copy was not archived
}
