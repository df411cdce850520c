package auth

import (
	"testing"

	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/model"
)

func reader() *model.User {
	return &model.User{
		Role: &model.Role{
			Type: "READER",
			Permissions: []model.Permission{
				{Type: model.PermUserRead},
			},
		},
	}
}

func TestHasPermission(t *testing.T) {
	user := reader()
	if !HasPermission(user, model.PermUserRead) {
		t.Fatalf("expected role permission to be granted")
	}
	if HasPermission(user, model.PermUserWrite) {
		t.Fatalf("permission not on the role was granted")
	}
}

func TestHasPermissionPrivilegedAccounts(t *testing.T) {
	admin := &model.User{IsAdmin: true}
	if !HasPermission(admin, model.PermUserWrite) {
		t.Fatalf("admin accounts pass every permission check")
	}
	system := &model.User{IsSystem: true}
	if !HasPermission(system, model.PermUserWrite) {
		t.Fatalf("system accounts pass every permission check")
	}
}

func TestHasPermissionEdgeCases(t *testing.T) {
	if HasPermission(nil, model.PermUserRead) {
		t.Fatalf("nil user was granted a permission")
	}
	if HasPermission(&model.User{}, model.PermUserRead) {
		t.Fatalf("user without a role was granted a permission")
	}
}

func TestHasAnyPermission(t *testing.T) {
	user := reader()
	if !HasAnyPermission(user, model.PermUserWrite, model.PermUserRead) {
		t.Fatalf("expected at least one permission to match")
	}
	if HasAnyPermission(user, model.PermUserWrite) {
		t.Fatalf("no listed permission is on the role")
	}
	if HasAnyPermission(user) {
		t.Fatalf("empty permission list must not pass")
	}
}

func TestDuplicatePermissionTypes(t *testing.T) {
	user := &model.User{
		Role: &model.Role{
			Permissions: []model.Permission{
				{Type: model.PermUserRead, Description: "first"},
				{Type: model.PermUserRead, Description: "second"},
			},
		},
	}
	index := permissionIndex(user)
	if index[model.PermUserRead].Description != "first" {
		t.Fatalf("first occurrence must win on duplicates, got %q", index[model.PermUserRead].Description)
	}
}
