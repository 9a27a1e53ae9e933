package models

import "time"

type UserRole string

const (
	RoleAdmin   UserRole = "Admin"
	RoleManager UserRole = "Manager"
	RoleAuditor UserRole = "Auditor"
	RoleUser    UserRole = "User"
)

var UserRoles = []UserRole{RoleAdmin, RoleManager, RoleAuditor, RoleUser}

func (r UserRole) Valid() bool { return oneOf(r, UserRoles) }

// MaxFailedLogins failed logins lock the account.
const MaxFailedLogins = 5

type User struct {
	Base
	FirstName    string   `gorm:"size:100;not null" json:"firstName"`
	LastName     string   `gorm:"size:100;not null" json:"lastName"`
	Email        string   `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string   `gorm:"not null" json:"-"`
	Role         UserRole `gorm:"type:varchar(20);not null" json:"role"`
	Department   string   `gorm:"size:100" json:"department,omitempty"`
	IsActive     bool     `gorm:"not null" json:"isActive"`

	FailedLoginAttempts int        `json:"failedLoginAttempts"`
	LastLogin           *time.Time `json:"lastLogin,omitempty"`
	LastActivity        *time.Time `gorm:"index" json:"lastActivity,omitempty"`
	LastIP              string     `gorm:"size:64" json:"lastIp,omitempty"`
}

// Profile holds the fields a user edits on their own account. An empty
// PasswordHash leaves the password unchanged.
type Profile struct {
	FirstName    string
	LastName     string
	Department   string
	PasswordHash string
}

func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

func (u User) Locked() bool {
	return u.FailedLoginAttempts >= MaxFailedLogins
}

// UserRef is the short user card embedded in related entities.
type UserRef struct {
	ID        uint   `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

func (u *User) Ref() *UserRef {
	if u == nil {
		return nil
	}
	return &UserRef{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}
}
