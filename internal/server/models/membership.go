package models

// OrgMembership links a user to an organization.
type OrgMembership struct {
	OrgID   string
	UserID  string
	IsOwner bool
	// OrgName is filled by listings that join the organization.
	OrgName string
}

// WorkspaceMembership links a user to a workspace.
type WorkspaceMembership struct {
	WorkspaceID   string
	UserID        string
	IsOwner       bool
	WorkspaceName string
}
