package domain

import "strings"

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

type User struct {
	ID                string `db:"id"`
	FirstName         string `db:"first_name"`
	LastName          string `db:"last_name"`
	Email             string `db:"email"`
	Hash              string `db:"password_hash"`
	Role              string `db:"role"`
	PaymentCustomerID string `db:"payment_customer_id"`
}

func (u User) Name() string { return strings.TrimSpace(u.FirstName + " " + u.LastName) }

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// NewUser normalizes the email to lowercase and requires every identity field.
// The hash must already be computed by the caller.
func NewUser(id, firstName, lastName, email, hash, role string) (User, error) {
	u := User{
		ID:        id,
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Hash:      hash,
		Role:      role,
	}
	switch {
	case u.ID == "":
		return User{}, Invalid("id", "is required")
	case u.FirstName == "":
		return User{}, Invalid("first_name", "is required")
	case u.LastName == "":
		return User{}, Invalid("last_name", "is required")
	case u.Email == "":
		return User{}, Invalid("email", "is required")
	case u.Hash == "":
		return User{}, Invalid("password", "is required")
	case u.Role != RoleUser && u.Role != RoleAdmin:
		return User{}, Invalid("role", "must be USER or ADMIN")
	}
	return u, nil
}
