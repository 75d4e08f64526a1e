package models

import "time"

// MemberStatus is the lifecycle state of a family member row
type MemberStatus string

const (
	StatusInvited  MemberStatus = "invited"
	StatusActive   MemberStatus = "active"
	StatusInactive MemberStatus = "inactive"
	StatusPending  MemberStatus = "pending"
)

// Valid reports whether s is one of the known statuses
func (s MemberStatus) Valid() bool {
	switch s {
	case StatusInvited, StatusActive, StatusInactive, StatusPending:
		return true
	}
	return false
}

// FamilyMember is one entry on the invite-only membership list.
// UserID stays nil until the invited email signs in for the first time.
type FamilyMember struct {
	ID              int64        `json:"id"`
	UserID          *int64       `json:"user_id,omitempty"`
	Email           string       `json:"email"`
	FullName        *string      `json:"full_name,omitempty"`
	Status          MemberStatus `json:"status"`
	InvitedAt       time.Time    `json:"invited_at"`
	AcceptedAt      *time.Time   `json:"accepted_at,omitempty"`
	InvitationToken string       `json:"-"`
	InvitedBy       *int64       `json:"invited_by,omitempty"`
	InviterName     string       `json:"inviter_name,omitempty"` // Populated via JOIN
}

// IsActive reports whether the member passes the access gate
func (m *FamilyMember) IsActive() bool {
	return m.Status == StatusActive && m.UserID != nil
}

// CanBeCancelled reports whether deleting the row cancels an invitation
// rather than removing an accepted member
func (m *FamilyMember) CanBeCancelled() bool {
	return m.Status == StatusInvited || m.Status == StatusPending
}

// BelongsTo reports whether the row is linked to the given identity
func (m *FamilyMember) BelongsTo(userID int64) bool {
	return m.UserID != nil && *m.UserID == userID
}

// FamilyStats summarises the membership list
type FamilyStats struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Invited  int `json:"invited"`
	Inactive int `json:"inactive"`
	Pending  int `json:"pending"`
}

// Add counts one member in the bucket for its status
func (s *FamilyStats) Add(status MemberStatus, n int) {
	s.Total += n
	switch status {
	case StatusActive:
		s.Active += n
	case StatusInvited:
		s.Invited += n
	case StatusInactive:
		s.Inactive += n
	case StatusPending:
		s.Pending += n
	}
}
