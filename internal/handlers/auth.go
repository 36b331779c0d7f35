// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"encoding/base64"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"

	"campusboard/internal/auth"
	"campusboard/internal/middleware"
	"campusboard/internal/models"
	"campusboard/internal/render"
	"campusboard/internal/session"
)

// totpIssuer is the name shown in authenticator apps.
const totpIssuer = "CampusBoard"

// Sessions is the part of the session store the auth handlers use.
type Sessions interface {
	Create(ctx context.Context, w http.ResponseWriter, data *session.Data) (string, error)
	Update(ctx context.Context, r *http.Request, data *session.Data) error
	Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// TOTPUsers loads users and records the master's TOTP enrollment.
type TOTPUsers interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetTOTPSecret(ctx context.Context, userID uuid.UUID, secret string) error
	EnableTOTP(ctx context.Context, userID uuid.UUID) error
}

// Auth groups all authentication-related HTTP handlers.
type Auth struct {
	renderer *render.Renderer
	sessions Sessions
	accounts *auth.Service
	users    TOTPUsers
}

// NewAuth creates a new Auth handler group.
func NewAuth(renderer *render.Renderer, sessions Sessions, accounts *auth.Service, users TOTPUsers) *Auth {
	return &Auth{
		renderer: renderer,
		sessions: sessions,
		accounts: accounts,
		users:    users,
	}
}

// Landing renders the public front page.
func (a *Auth) Landing(w http.ResponseWriter, r *http.Request) {
	a.renderer.Page(w, r, "landing", &render.PageData{Title: "app.tagline"})
}

// SignInPage renders the sign-in form.
func (a *Auth) SignInPage(w http.ResponseWriter, r *http.Request) {
	data := &render.PageData{Title: "signin.title", Data: map[string]any{}}
	if r.URL.Query().Get("registered") == "1" {
		data.Flashes = []render.Flash{{Type: "success", Message: "signup.done"}}
	}
	a.renderer.Page(w, r, "signin", data)
}

// SignInSubmit checks the credentials and opens a session. The profile is
// copied into the session so protected pages never wait on a profile read.
func (a *Auth) SignInSubmit(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	password := r.FormValue("password")

	user, err := a.accounts.Authenticate(r.Context(), email, password)
	if err != nil {
		a.renderer.Page(w, r, "signin", &render.PageData{
			Title:   "signin.title",
			Status:  authErrorStatus(err),
			Flashes: []render.Flash{authFlash(err)},
			Data:    map[string]any{"Email": email},
		})
		return
	}

	admin := user.IsAdmin()
	_, err = a.sessions.Create(r.Context(), w, &session.Data{
		UserID:      user.ID,
		Email:       user.Email,
		Nickname:    user.Nickname,
		Affiliation: user.Affiliation,
		Role:        string(user.Role),
		TwoFADone:   !admin,
	})
	if err != nil {
		slog.Error("session create failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// The master finishes signing in with a TOTP code.
	switch {
	case !admin:
		http.Redirect(w, r, "/home", http.StatusSeeOther)
	case user.Needs2FASetup():
		http.Redirect(w, r, "/signin/2fa/setup", http.StatusSeeOther)
	default:
		http.Redirect(w, r, "/signin/2fa/verify", http.StatusSeeOther)
	}
}

// SignUpPage renders the registration form.
func (a *Auth) SignUpPage(w http.ResponseWriter, r *http.Request) {
	a.renderer.Page(w, r, "signup", &render.PageData{Title: "signup.title", Data: map[string]any{}})
}

// SignUpSubmit creates the account and its profile, then sends the new
// member to sign in.
func (a *Auth) SignUpSubmit(w http.ResponseWriter, r *http.Request) {
	reg := auth.Registration{
		Email:       r.FormValue("email"),
		Password:    r.FormValue("password"),
		Nickname:    r.FormValue("nickname"),
		Affiliation: r.FormValue("affiliation"),
	}

	flash := validateProfile(reg.Nickname, reg.Affiliation)
	if flash == nil {
		if _, err := a.accounts.Register(r.Context(), reg); err != nil {
			f := authFlash(err)
			flash = &f
		}
	}
	if flash != nil {
		a.renderer.Page(w, r, "signup", &render.PageData{
			Title:   "signup.title",
			Status:  http.StatusUnprocessableEntity,
			Flashes: []render.Flash{*flash},
			Data: map[string]any{
				"Email":       reg.Email,
				"Nickname":    reg.Nickname,
				"Affiliation": reg.Affiliation,
			},
		})
		return
	}

	http.Redirect(w, r, "/signin?registered=1", http.StatusSeeOther)
}

// SignOut destroys the session and returns to the landing page.
func (a *Auth) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		slog.Error("session destroy failed", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// twoFAUser returns the admin behind the request, or redirects and returns
// nil. Members without the admin role have nothing to verify.
func (a *Auth) twoFAUser(w http.ResponseWriter, r *http.Request) (*session.Data, *models.User) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		http.Redirect(w, r, "/signin", http.StatusSeeOther)
		return nil, nil
	}
	if !sess.IsAdmin() || sess.TwoFADone {
		http.Redirect(w, r, "/home", http.StatusSeeOther)
		return nil, nil
	}

	user, err := a.users.FindByID(r.Context(), sess.UserID)
	if err != nil || user == nil {
		slog.Error("user lookup for 2fa failed", "user_id", sess.UserID, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, nil
	}
	return sess, user
}

// TwoFASetupPage generates a TOTP secret and displays the QR code.
func (a *Auth) TwoFASetupPage(w http.ResponseWriter, r *http.Request) {
	sess, user := a.twoFAUser(w, r)
	if user == nil {
		return
	}
	if user.TOTPEnabled {
		http.Redirect(w, r, "/signin/2fa/verify", http.StatusSeeOther)
		return
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: sess.Email,
	})
	if err != nil {
		slog.Error("totp generate failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if err := a.users.SetTOTPSecret(r.Context(), user.ID, key.Secret()); err != nil {
		slog.Error("save totp secret failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	a.renderSetup(w, r, key.URL(), key.Secret(), nil)
}

// renderSetup shows the enrollment page for the otpauth URL of secret, with
// an optional error.
func (a *Auth) renderSetup(w http.ResponseWriter, r *http.Request, otpURL, secret string, flash *render.Flash) {
	qrPNG, err := qrcode.Encode(otpURL, qrcode.Medium, 256)
	if err != nil {
		slog.Error("qr code generation failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	data := &render.PageData{
		Title: "twofa.setup.title",
		Data: map[string]any{
			"QRCode": template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(qrPNG)),
			"Secret": secret,
		},
	}
	if flash != nil {
		data.Status = http.StatusUnprocessableEntity
		data.Flashes = []render.Flash{*flash}
	}
	a.renderer.Page(w, r, "2fa_setup", data)
}

// TwoFAVerifyPage renders the code entry form for an enrolled master.
func (a *Auth) TwoFAVerifyPage(w http.ResponseWriter, r *http.Request) {
	_, user := a.twoFAUser(w, r)
	if user == nil {
		return
	}
	if !user.TOTPEnabled || user.TOTPSecret == nil {
		http.Redirect(w, r, "/signin/2fa/setup", http.StatusSeeOther)
		return
	}

	a.renderer.Page(w, r, "2fa_verify", &render.PageData{Title: "twofa.verify.title"})
}

// TwoFASubmit validates the TOTP code for both enrollment and sign-in and
// completes authentication.
func (a *Auth) TwoFASubmit(w http.ResponseWriter, r *http.Request) {
	sess, user := a.twoFAUser(w, r)
	if user == nil {
		return
	}
	if user.TOTPSecret == nil {
		http.Redirect(w, r, "/signin/2fa/setup", http.StatusSeeOther)
		return
	}

	if !totp.Validate(r.FormValue("code"), *user.TOTPSecret) {
		slog.Warn("invalid totp code", "user_id", user.ID)
		flash := render.Flash{Type: "error", Message: "twofa.invalid_code"}
		if !user.TOTPEnabled {
			a.renderSetup(w, r, totpURL(user.Email, *user.TOTPSecret), *user.TOTPSecret, &flash)
			return
		}
		a.renderer.Page(w, r, "2fa_verify", &render.PageData{
			Title:   "twofa.verify.title",
			Status:  http.StatusUnprocessableEntity,
			Flashes: []render.Flash{flash},
		})
		return
	}

	if !user.TOTPEnabled {
		if err := a.users.EnableTOTP(r.Context(), user.ID); err != nil {
			slog.Error("enable totp failed", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	}

	sess.TwoFADone = true
	if err := a.sessions.Update(r.Context(), r, sess); err != nil {
		slog.Error("session update failed", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	slog.Info("master verified", "user_id", user.ID)
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

// totpURL rebuilds the otpauth:// URI for a secret that is already stored,
// when a wrong first code sends the master back to the QR code. Parameters
// match what totp.Generate uses.
func totpURL(account, secret string) string {
	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", totpIssuer)
	v.Set("algorithm", "SHA1")
	v.Set("digits", "6")
	v.Set("period", "30")
	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + totpIssuer + ":" + account,
		RawQuery: v.Encode(),
	}
	return u.String()
}

// authFlash maps an identity error to its localised message.
func authFlash(err error) render.Flash {
	if code := auth.CodeOf(err); code != "" {
		return render.Flash{Type: "error", Message: "error.auth." + string(code)}
	}
	slog.Error("auth request failed", "error", err)
	return render.Flash{Type: "error", Message: "error.generic"}
}

func authErrorStatus(err error) int {
	switch auth.CodeOf(err) {
	case "":
		return http.StatusInternalServerError
	case auth.CodeInvalidCredentials:
		return http.StatusUnauthorized
	default:
		return http.StatusUnprocessableEntity
	}
}
