package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/chestkeeper/chestkeeper/internal/server/auth"
)

var loginPage = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html>
<body>
<h1>Sign in</h1>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
<form method="post" action="/login">
  <input type="text" name="_username" placeholder="Login" autofocus>
  <input type="password" name="_password" placeholder="Password">
  <input type="text" name="_totp" placeholder="Authenticator code (if enrolled)">
  <button type="submit">Sign in</button>
</form>
</body>
</html>
`))

// User-facing error messages keyed by the ?error= query value. Credential
// failures and unknown accounts share one message on purpose.
var loginErrors = map[string]string{
	"credentials": "Incorrect username or password",
	"inactive":    "Your account is inactive",
	"internal":    "Something went wrong, please try again",
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	data := struct{ Error string }{Error: loginErrors[r.URL.Query().Get("error")]}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = loginPage.Execute(w, data)
}

func (s *Server) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	_ = r.ParseForm()

	creds := auth.Credentials{
		Username: r.PostFormValue("_username"),
		Password: r.PostFormValue("_password"),
	}

	user, err := s.backend.GetUser(ctx, creds)
	if err != nil {
		if errors.Is(err, auth.ErrDirectoryUnavailable) || errors.Is(err, auth.ErrNoDirectory) {
			// Operator problem; do not disguise it as a credential failure.
			s.logger.Error(ctx, "directory error during login", "error", err)
			http.Error(w, "authentication service unavailable", http.StatusServiceUnavailable)
			return
		}
		s.logger.Error(ctx, "unexpected error resolving user", "error", err)
		s.failLogin(w, r, "internal")
		return
	}

	ok, err := s.backend.CheckCredentials(ctx, creds, user)
	if err != nil {
		if errors.Is(err, auth.ErrAccountInactive) {
			s.failLogin(w, r, "inactive")
			return
		}
		s.logger.Error(ctx, "unexpected error checking credentials", "error", err)
		s.failLogin(w, r, "internal")
		return
	}
	if !ok {
		s.failLogin(w, r, "credentials")
		return
	}

	// Second factor, once the user has confirmed enrollment.
	if user.TOTPConfirmed && user.TOTPSecret != nil {
		if !auth.VerifyTOTP(r.PostFormValue("_totp"), *user.TOTPSecret) {
			s.failLogin(w, r, "credentials")
			return
		}
	}

	token, err := auth.GenerateToken(user.ID, user.Login, s.jwtSecret, s.sessionValidity)
	if err != nil {
		s.logger.Error(ctx, "minting session token failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.sessionValidity.Seconds()),
	})

	redirect := s.backend.OnSuccess(ctx, user)
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}

// failLogin books the failed attempt and redirects back to the login form.
// The redirect target always comes from the backend; only the message tag is
// added here.
func (s *Server) failLogin(w http.ResponseWriter, r *http.Request, tag string) {
	redirect := s.backend.OnFailure(r.Context(), s.failureContext(r))
	http.Redirect(w, r, fmt.Sprintf("%s?error=%s", redirect, tag), http.StatusSeeOther)
}

// failureContext attributes the failed attempt: the form value wins, a stale
// session cookie is the fallback.
func (s *Server) failureContext(r *http.Request) auth.FailureContext {
	fc := auth.FailureContext{FormUsername: r.PostFormValue("_username")}

	if c, err := r.Cookie(sessionCookieName); err == nil {
		if login, err := auth.GetLoginFromToken(c.Value, s.jwtSecret); err == nil {
			fc.SessionUsername = login
		}
	}

	return fc
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"user_id": claims.UserID,
		"login":   claims.Login,
	})
}
