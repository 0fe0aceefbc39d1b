package models

import "slices"

// StorageType tells where a group's data is durably kept.
type StorageType string

const (
	// StorageLocal keeps the group only in the local record store.
	StorageLocal StorageType = "LOCAL"
	// StorageSheet additionally mirrors the group to a spreadsheet web app.
	StorageSheet StorageType = "SHEET"
)

// MemberStatus is the membership state reported to the sheet mirror.
type MemberStatus string

const (
	MemberActive    MemberStatus = "active"
	MemberPending   MemberStatus = "pending"
	MemberRequested MemberStatus = "requested"
)

// Group is a set of users sharing expenses.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string `json:"id"`

	// Name is the display name of the group (e.g., "Roommates").
	Name string `json:"name"`

	// Members are the user IDs of active members. Only active members take
	// part in new expenses.
	Members []string `json:"members"`

	// PendingMembers were invited and have not answered yet.
	PendingMembers []string `json:"pendingMembers"`

	// JoinRequests asked to join and wait for approval.
	JoinRequests []string `json:"joinRequests"`

	// CreatedBy is the admin's user ID.
	CreatedBy string `json:"createdBy"`

	// CreatedAt is the Unix timestamp in milliseconds.
	CreatedAt int64 `json:"createdAt"`

	StorageType StorageType `json:"storageType"`

	// ConnectionString is the mirror web app URL when StorageType is SHEET.
	ConnectionString string `json:"connectionString,omitempty"`
}

// IsMember reports whether userID is an active member.
func (g *Group) IsMember(userID string) bool {
	return slices.Contains(g.Members, userID)
}

// Mirrored reports whether the group should be pushed to a remote sheet.
func (g *Group) Mirrored() bool {
	return g.StorageType == StorageSheet && g.ConnectionString != ""
}
