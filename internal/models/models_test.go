// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"testing"
	"time"
)

func TestIsProtectedCategory(t *testing.T) {
	for _, name := range []string{"general", "master", "free", "info"} {
		if !IsProtectedCategory(name) {
			t.Errorf("%q should be protected", name)
		}
	}
	for _, name := range []string{"", "notice", "General", "market"} {
		if IsProtectedCategory(name) {
			t.Errorf("%q should not be protected", name)
		}
	}
}

func TestCategoryPath(t *testing.T) {
	if got := CategoryPath("general"); got != "/home/general" {
		t.Errorf("general: got %q", got)
	}
	if got := CategoryPath("free"); got != "/home/category/free" {
		t.Errorf("free: got %q", got)
	}
}

func TestUserRoleAndProfile(t *testing.T) {
	u := &User{Role: RoleUser, Nickname: "kal", Affiliation: "KNU"}
	if u.IsAdmin() {
		t.Error("user role should not be admin")
	}
	if !u.HasProfile() {
		t.Error("expected complete profile")
	}
	if !u.Needs2FASetup() {
		t.Error("new user should need 2FA setup")
	}

	u.Affiliation = ""
	if u.HasProfile() {
		t.Error("profile without affiliation should be incomplete")
	}
}

func TestPostUpdateEmpty(t *testing.T) {
	if !(PostUpdate{}).Empty() {
		t.Error("zero update should be empty")
	}
	title := "x"
	if (PostUpdate{Title: &title}).Empty() {
		t.Error("update with title should not be empty")
	}
}

func TestPostWasEdited(t *testing.T) {
	now := time.Now()
	p := &Post{CreatedAt: now, UpdatedAt: now}
	if p.WasEdited() {
		t.Error("fresh post should not count as edited")
	}
	p.UpdatedAt = now.Add(time.Minute)
	if !p.WasEdited() {
		t.Error("expected edited post")
	}
}
