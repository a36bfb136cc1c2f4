package domain

import "time"

// AccountRole distinguishes the two marketplace sides.
type AccountRole string

const (
	AccountRoleBrand   AccountRole = "brand"
	AccountRoleCreator AccountRole = "creator"
)

// AccountStatus represents lifecycle states for a marketplace account.
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusSuspended AccountStatus = "suspended"
)

// Account is the domain model for brand and creator principals.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         AccountRole
	Status       AccountStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SenderRole maps the account side to its message sender role.
func (a *Account) SenderRole() SenderRole {
	if a.Role == AccountRoleCreator {
		return SenderRoleCreator
	}
	return SenderRoleBrand
}
