package domain

import "github.com/google/uuid"

// PartyRole distinguishes the sides of a negotiation.
type PartyRole string

const (
	PartyRoleBuyer  PartyRole = "buyer"
	PartyRoleSeller PartyRole = "seller"
	PartyRoleAgent  PartyRole = "agent"
)

// Party is a read-only projection from the party directory, used to
// resolve names for thread and comparison views. This core never mutates
// parties.
type Party struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	Email    string    `json:"email"`
	Role     PartyRole `json:"role"`
}
