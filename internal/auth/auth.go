// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package auth is the identity service: registration, credential checks and
// the designation of the single master account.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"campusboard/internal/models"
	"campusboard/internal/store"
)

// MinPasswordLen is the shortest password accepted at registration.
const MinPasswordLen = 6

// Code identifies an authentication failure shown to the user.
type Code string

const (
	CodeMissingFields      Code = "missing_fields"
	CodeInvalidEmail       Code = "invalid_email"
	CodeWeakPassword       Code = "weak_password"
	CodeEmailInUse         Code = "email_in_use"
	CodeInvalidCredentials Code = "invalid_credentials"
)

// Error is a user-facing authentication failure. The code maps to a
// localised message; the raw cause is never shown.
type Error struct {
	Code Code
}

func (e *Error) Error() string {
	return "auth: " + string(e.Code)
}

// Is lets errors.Is match on the code alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// CodeOf returns the code of an auth error, or "" for anything else.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// Master identifies the one account with administrator powers.
type Master struct {
	email string
}

// NewMaster designates email as the master identity.
func NewMaster(email string) Master {
	return Master{email: strings.ToLower(strings.TrimSpace(email))}
}

// Is reports whether email belongs to the master. Comparison ignores case;
// an unset master matches nobody.
func (m Master) Is(email string) bool {
	return m.email != "" && strings.EqualFold(strings.TrimSpace(email), m.email)
}

// Email returns the configured master address.
func (m Master) Email() string {
	return m.email
}

// Users is the subset of the user store the identity service needs.
type Users interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, email, password, nickname, affiliation string, role models.Role) (*models.User, error)
	CheckPassword(user *models.User, password string) bool
	SetRole(ctx context.Context, userID uuid.UUID, role models.Role) error
}

// Registration is the sign-up form.
type Registration struct {
	Email       string
	Password    string
	Nickname    string
	Affiliation string
}

// Service registers and authenticates members.
type Service struct {
	users  Users
	master Master
}

// NewService creates an identity service.
func NewService(users Users, master Master) *Service {
	return &Service{users: users, master: master}
}

// Master returns the master designation the service was built with.
func (s *Service) Master() Master {
	return s.master
}

// Register validates the form and creates the account and its profile in
// one step. The master email gets the admin role; everyone else is a user.
func (s *Service) Register(ctx context.Context, reg Registration) (*models.User, error) {
	reg.Email = strings.TrimSpace(reg.Email)
	reg.Nickname = strings.TrimSpace(reg.Nickname)
	reg.Affiliation = strings.TrimSpace(reg.Affiliation)

	if reg.Email == "" || reg.Password == "" || reg.Nickname == "" || reg.Affiliation == "" {
		return nil, &Error{Code: CodeMissingFields}
	}
	if !validEmail(reg.Email) {
		return nil, &Error{Code: CodeInvalidEmail}
	}
	if utf8.RuneCountInString(reg.Password) < MinPasswordLen {
		return nil, &Error{Code: CodeWeakPassword}
	}

	role := models.RoleUser
	if s.master.Is(reg.Email) {
		role = models.RoleAdmin
	}

	u, err := s.users.Create(ctx, reg.Email, reg.Password, reg.Nickname, reg.Affiliation, role)
	if errors.Is(err, store.ErrEmailTaken) {
		return nil, &Error{Code: CodeEmailInUse}
	}
	if err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}
	slog.Info("user registered", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// Authenticate checks credentials and returns the user. The stored role is
// reconciled with the master designation so that changing MASTER_EMAIL
// takes effect at the next sign-in.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, &Error{Code: CodeMissingFields}
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if u == nil || !s.users.CheckPassword(u, password) {
		return nil, &Error{Code: CodeInvalidCredentials}
	}

	want := models.RoleUser
	if s.master.Is(u.Email) {
		want = models.RoleAdmin
	}
	if u.Role != want {
		if err := s.users.SetRole(ctx, u.ID, want); err != nil {
			return nil, fmt.Errorf("reconcile role: %w", err)
		}
		slog.Info("user role reconciled", "user_id", u.ID, "from", u.Role, "to", want)
		u.Role = want
	}
	return u, nil
}

// validEmail accepts a bare address such as "name@univ.ac.kr".
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	_, domain, ok := strings.Cut(email, "@")
	return ok && strings.Contains(domain, ".")
}
