package models

import "time"

// InvitationSummary is returned to the inviter after a successful invite
type InvitationSummary struct {
	ID        int64        `json:"id"`
	Email     string       `json:"email"`
	FullName  *string      `json:"full_name,omitempty"`
	Status    MemberStatus `json:"status"`
	InvitedAt time.Time    `json:"invited_at"`
	EmailSent bool         `json:"email_sent"`
}

// InvitationStatus is what an unauthenticated holder of an invitation token may see
type InvitationStatus struct {
	Email       string       `json:"email"`
	Status      MemberStatus `json:"status"`
	InviterName string       `json:"inviter_name,omitempty"`
	InvitedAt   time.Time    `json:"invited_at"`
}
