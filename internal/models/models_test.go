package models

import (
	"testing"
	"time"
)

func TestSessionIsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{
			name:      "future expiration",
			expiresAt: time.Now().Add(1 * time.Hour),
			want:      false,
		},
		{
			name:      "just expired",
			expiresAt: time.Now().Add(-1 * time.Second),
			want:      true,
		},
		{
			name:      "expired yesterday",
			expiresAt: time.Now().Add(-24 * time.Hour),
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := Session{
				ID:        "test-session",
				UserID:    1,
				ExpiresAt: tt.expiresAt,
				CreatedAt: time.Now().Add(-1 * time.Hour),
			}
			result := session.IsExpired()
			if result != tt.want {
				t.Errorf("Session.IsExpired() = %v, want %v", result, tt.want)
			}
		})
	}
}

func TestFamilyMemberState(t *testing.T) {
	uid := int64(7)
	tests := []struct {
		name        string
		member      FamilyMember
		active      bool
		cancellable bool
	}{
		{"invited without identity", FamilyMember{Status: StatusInvited}, false, true},
		{"pending", FamilyMember{Status: StatusPending}, false, true},
		{"active with identity", FamilyMember{Status: StatusActive, UserID: &uid}, true, false},
		{"active row missing identity", FamilyMember{Status: StatusActive}, false, false},
		{"inactive", FamilyMember{Status: StatusInactive, UserID: &uid}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.member.IsActive(); got != tt.active {
				t.Errorf("IsActive() = %v, want %v", got, tt.active)
			}
			if got := tt.member.CanBeCancelled(); got != tt.cancellable {
				t.Errorf("CanBeCancelled() = %v, want %v", got, tt.cancellable)
			}
		})
	}
}

func TestFamilyMemberBelongsTo(t *testing.T) {
	uid := int64(3)
	m := FamilyMember{UserID: &uid}
	if !m.BelongsTo(3) {
		t.Error("expected member to belong to identity 3")
	}
	if m.BelongsTo(4) {
		t.Error("member should not belong to identity 4")
	}
	if (&FamilyMember{}).BelongsTo(0) {
		t.Error("unlinked member should belong to nobody")
	}
}

func TestMemberStatusValid(t *testing.T) {
	for _, s := range []MemberStatus{StatusInvited, StatusActive, StatusInactive, StatusPending} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if MemberStatus("banned").Valid() {
		t.Error("unknown status reported valid")
	}
}

func TestFamilyStatsAdd(t *testing.T) {
	var s FamilyStats
	s.Add(StatusActive, 2)
	s.Add(StatusInvited, 1)
	s.Add(StatusInactive, 1)

	if s.Total != 4 || s.Active != 2 || s.Invited != 1 || s.Inactive != 1 || s.Pending != 0 {
		t.Errorf("unexpected stats: %+v", s)
	}
}

func TestAlbumIsShareable(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	tests := []struct {
		name  string
		album Album
		want  bool
	}{
		{"private", Album{IsPublic: false}, false},
		{"public no expiry", Album{IsPublic: true}, true},
		{"public not yet expired", Album{IsPublic: true, ExpiresAt: &future}, true},
		{"public expired", Album{IsPublic: true, ExpiresAt: &past}, false},
		{"public expiring exactly now", Album{IsPublic: true, ExpiresAt: &now}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.album.IsShareable(now); got != tt.want {
				t.Errorf("IsShareable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProfileDisplayName(t *testing.T) {
	name := "Grandma"
	empty := ""
	tests := []struct {
		name    string
		profile Profile
		want    string
	}{
		{"full name", Profile{Email: "g@example.com", FullName: &name}, "Grandma"},
		{"nil name", Profile{Email: "g@example.com"}, "g@example.com"},
		{"empty name", Profile{Email: "g@example.com", FullName: &empty}, "g@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.profile.DisplayName(); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCommentIsEdited(t *testing.T) {
	created := time.Now()
	c := Comment{CreatedAt: created, UpdatedAt: created}
	if c.IsEdited() {
		t.Error("fresh comment reported as edited")
	}
	c.UpdatedAt = created.Add(time.Second)
	if !c.IsEdited() {
		t.Error("updated comment not reported as edited")
	}
}
