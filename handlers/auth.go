package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"flylow/internal/auth"
	"flylow/models"
	"flylow/services/accounts"
	"flylow/services/oauth"
	"flylow/services/sessions"
)

// GenericAuthMessage is shown for auth failures without a specific message.
const GenericAuthMessage = "Failed to authenticate. Please try again."

var authMessages = map[string]string{
	accounts.CodeEmailInUse:    "Email is already in use.",
	accounts.CodeInvalidEmail:  "Invalid email address.",
	accounts.CodeWeakPassword:  "Password is too weak.",
	accounts.CodeUserDisabled:  "This account has been disabled.",
	accounts.CodeUserNotFound:  "No user found with this email.",
	accounts.CodeWrongPassword: "Incorrect password.",
}

// AuthMessage maps a provider error code to the message shown to the user.
func AuthMessage(code string) string {
	if msg, ok := authMessages[code]; ok {
		return msg
	}
	return GenericAuthMessage
}

func authStatus(code string) int {
	switch code {
	case accounts.CodeEmailInUse:
		return http.StatusConflict
	case accounts.CodeInvalidEmail, accounts.CodeWeakPassword:
		return http.StatusBadRequest
	case accounts.CodeUserDisabled:
		return http.StatusForbidden
	case "":
		return http.StatusInternalServerError
	default:
		return http.StatusUnauthorized
	}
}

type accountService interface {
	SignUp(email, password string) (models.Account, error)
	SignIn(email, password string) (models.Account, error)
	Get(id string) (models.Account, bool)
	LinkExternal(provider, externalID, email string) (models.Account, bool, error)
}

type sessionService interface {
	Create(accountID, userAgent, ipAddress string) (models.Session, error)
	Validate(token string) (models.Session, error)
	Revoke(token string) error
	Subscribe(fn sessions.Listener) func()
}

var (
	_ accountService = (*accounts.Service)(nil)
	_ sessionService = (*sessions.Service)(nil)
)

// AuthHandler handles sign-up, sign-in, sign-out and the auth-state stream.
type AuthHandler struct {
	accounts accountService
	sessions sessionService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(accountsSvc accountService, sessionsSvc sessionService) *AuthHandler {
	return &AuthHandler{accounts: accountsSvc, sessions: sessionsSvc}
}

// CredentialsRequest is the sign-in and sign-up body.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is returned after a successful sign-in or sign-up.
type SessionResponse struct {
	Token     string         `json:"token"`
	ExpiresAt string         `json:"expiresAt"`
	Account   models.Account `json:"account"`
}

// authenticate runs sign-up or sign-in and opens a session.
func (h *AuthHandler) authenticate(r *http.Request, signUp bool, email, password string) (models.Account, models.Session, error) {
	var (
		account models.Account
		err     error
	)
	if signUp {
		account, err = h.accounts.SignUp(email, password)
	} else {
		account, err = h.accounts.SignIn(email, password)
	}
	if err != nil {
		return models.Account{}, models.Session{}, err
	}

	session, err := h.sessions.Create(account.ID, r.Header.Get("User-Agent"), clientIPAddress(r))
	if err != nil {
		return models.Account{}, models.Session{}, fmt.Errorf("create session: %w", err)
	}
	return account, session, nil
}

func (h *AuthHandler) credentials(w http.ResponseWriter, r *http.Request, signUp bool) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, session, err := h.authenticate(r, signUp, req.Email, req.Password)
	if err != nil {
		code := accounts.Code(err)
		if code == "" {
			log.Printf("[auth] %v", err)
		}
		writeJSON(w, authStatus(code), map[string]string{"error": AuthMessage(code), "code": code})
		return
	}

	auth.SetSessionCookie(w, r, session)
	status := http.StatusOK
	if signUp {
		status = http.StatusCreated
	}
	writeJSON(w, status, SessionResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.Format(time.RFC3339),
		Account:   account,
	})
}

// SignUp registers an email/password account and signs it in.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	h.credentials(w, r, true)
}

// SignIn signs in with email and password.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	h.credentials(w, r, false)
}

// SignOut revokes the caller's session.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.revoke(r)
	auth.ClearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

func (h *AuthHandler) revoke(r *http.Request) {
	token := auth.TokenFromRequest(r)
	if token == "" {
		return
	}
	if err := h.sessions.Revoke(token); err != nil && !errors.Is(err, sessions.ErrSessionNotFound) {
		log.Printf("[auth] revoke session: %v", err)
	}
}

// Me returns the signed-in account, or null when the caller is anonymous.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFromRequest(r)
	if token == "" {
		writeJSON(w, http.StatusOK, map[string]any{"user": nil})
		return
	}
	session, err := h.sessions.Validate(token)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"user": nil})
		return
	}
	account, ok := h.accounts.Get(session.AccountID)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"user": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": account})
}

// Events streams auth-state changes for the caller's account as server-sent
// events. The subscription ends with the request.
func (h *AuthHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	token := auth.TokenFromRequest(r)
	accountID := ""
	if session, err := h.sessions.Validate(token); err == nil {
		accountID = session.AccountID
	}

	events := make(chan models.AuthEvent, 8)
	unsubscribe := h.sessions.Subscribe(func(e models.AuthEvent) {
		if accountID == "" || e.AccountID != accountID {
			return
		}
		select {
		case events <- e:
		default:
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	initial := models.AuthEvent{AccountID: accountID, SignedIn: accountID != "", At: time.Now().UTC()}
	if err := writeEvent(w, initial); err != nil {
		return
	}
	flusher.Flush()

	keepAlive := time.NewTicker(30 * time.Second)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-events:
			if !e.SignedIn {
				// another device signing out leaves this session valid
				if _, err := h.sessions.Validate(token); err == nil {
					continue
				}
			}
			if err := writeEvent(w, e); err != nil {
				return
			}
			flusher.Flush()
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, e models.AuthEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: auth\ndata: %s\n\n", data)
	return err
}

// OAuthComplete finishes a provider login: it links or creates the account,
// opens a session and sends the browser to the landing page.
func (h *AuthHandler) OAuthComplete(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")
	if mode != oauth.ModeSignUp {
		mode = oauth.ModeSignIn
	}
	fail := func(err error) {
		log.Printf("[auth] oauth %s failed: %v", mode, err)
		http.Redirect(w, r, "/signin?mode="+mode+"&error=oauth", http.StatusSeeOther)
	}

	identity, err := oauth.IdentityFromRequest(r)
	if err != nil {
		fail(err)
		return
	}
	account, created, err := h.accounts.LinkExternal(identity.Provider, identity.ExternalID, strings.ToLower(identity.Email))
	if err != nil {
		fail(err)
		return
	}
	session, err := h.sessions.Create(account.ID, r.Header.Get("User-Agent"), clientIPAddress(r))
	if err != nil {
		fail(err)
		return
	}
	if created {
		log.Printf("[auth] created %s account %s", identity.Provider, account.ID)
	}

	auth.SetSessionCookie(w, r, session)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
