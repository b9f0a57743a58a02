package models

import "time"

// User is an account holder. UserName is stored as given; uniqueness is
// enforced on its lowercase form.
type User struct {
	ID           string
	UserName     string
	FullName     string
	Email        string
	Bio          string
	Company      string
	IsActive     bool
	IsLocal      bool
	IsClosed     bool
	PasswordHash []byte
	CreatedAt    time.Time
}

// UserDetails is a User together with its memberships, as returned by
// UserService.Get.
type UserDetails struct {
	User
	PersonalOrgName string
	Orgs            []OrgMembership
	Workspaces      []WorkspaceMembership
}
