package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestUserViewExcludesCredentials(t *testing.T) {
	now := time.Now().UTC()
	user := &User{
		Ident:        Ident{ID: "u-1"},
		Email:        "a@b.c",
		FirstName:    "First",
		LastName:     "Last",
		PasswordHash: "$2a$10$secret",
		RoleID:       "r-1",
		Role: &Role{
			Ident:       Ident{ID: "r-1"},
			Type:        "READER",
			Permissions: []Permission{{Type: PermUserRead}},
		},
		Status:    UserStatusActive,
		AuditInfo: AuditInfo{CreatedAt: &now, CreatedBy: "system"},
	}

	view := user.View()
	if view.ID != "u-1" || view.Email != "a@b.c" || view.Status != UserStatusActive {
		t.Fatalf("unexpected view: %+v", view)
	}
	if view.Role == nil || view.Role.Type != "READER" {
		t.Fatalf("role not projected: %+v", view.Role)
	}

	raw, err := json.Marshal(view)
	if err != nil {
		t.Fatalf("marshal view: %v", err)
	}
	serialized := string(raw)
	if strings.Contains(serialized, "secret") || strings.Contains(serialized, "passwordHash") {
		t.Fatalf("credentials leaked into view: %s", serialized)
	}
	if strings.Contains(serialized, "createdBy") {
		t.Fatalf("lifecycle internals leaked into view: %s", serialized)
	}
}

func TestUserViewWithoutRole(t *testing.T) {
	user := &User{Ident: Ident{ID: "u-1"}, Email: "a@b.c"}
	view := user.View()
	if view.Role != nil {
		t.Fatalf("expected nil role view")
	}
}

func TestTokenView(t *testing.T) {
	expires := time.Now().Add(time.Hour).UTC()
	tok := &Token{
		Ident:    Ident{ID: "t-1"},
		UserID:   "u-1",
		Token:    "opaque",
		Type:     TokenTypeAccess,
		ExpireAt: expires,
	}

	view := tok.View()
	if view.Token != "opaque" || view.Type != TokenTypeAccess || !view.ExpireAt.Equal(expires) {
		t.Fatalf("unexpected token view: %+v", view)
	}

	raw, err := json.Marshal(view)
	if err != nil {
		t.Fatalf("marshal view: %v", err)
	}
	if strings.Contains(string(raw), "u-1") {
		t.Fatalf("user binding leaked into token view: %s", raw)
	}
}
