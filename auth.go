package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"
)

const sessionName = "session"

const (
	roleUser       = "user"
	roleAdmin      = "admin"
	roleSuperadmin = "superadmin"
)

var roleRank = map[string]int{
	roleUser:       1,
	roleAdmin:      2,
	roleSuperadmin: 3,
}

func roleAtLeast(role, min string) bool {
	have, ok := roleRank[role]
	return ok && have >= roleRank[min]
}

type sessionUser struct {
	ID       int
	Username string
	Role     string
}

type ctxKey int

const userKey ctxKey = iota

func currentUser(r *http.Request) sessionUser {
	u, _ := r.Context().Value(userKey).(sessionUser)
	return u
}

func newSessionStore(cfg ServerConfig) *sessions.CookieStore {
	s := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	s.Options.Path = "/"
	s.Options.HttpOnly = true
	s.Options.Secure = cfg.SecureCookie
	s.Options.SameSite = http.SameSiteLaxMode
	// expiry is enforced through last_activity, not the cookie lifetime
	s.Options.MaxAge = 0
	return s
}

func expireSession(w http.ResponseWriter, r *http.Request, session *sessions.Session) {
	session.Values = map[any]any{}
	session.Options.MaxAge = -1
	session.Save(r, w)
}

// requireRole rejects requests without a live session or whose role ranks
// below min. A session idle for longer than idleTimeout is destroyed.
func requireRole(min string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := store.Get(r, sessionName)

		userID, ok := session.Values["user_id"].(int)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		lastActivity, ok := session.Values["last_activity"].(int64)
		if !ok || time.Since(time.Unix(lastActivity, 0)) > idleTimeout {
			expireSession(w, r, session)
			writeError(w, http.StatusUnauthorized, "Session expired")
			return
		}

		role, _ := session.Values["role"].(string)
		if !roleAtLeast(role, min) {
			writeError(w, http.StatusForbidden, "Insufficient permissions")
			return
		}

		session.Values["last_activity"] = time.Now().Unix()
		if err := session.Save(r, w); err != nil {
			internalError(w, r, "Session error", err)
			return
		}

		username, _ := session.Values["username"].(string)
		ctx := context.WithValue(r.Context(), userKey, sessionUser{ID: userID, Username: username, Role: role})
		next(w, r.WithContext(ctx))
	}
}

func requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return requireRole(roleUser, next)
}

func requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return requireRole(roleAdmin, next)
}

func loginHandler(w http.ResponseWriter, r *http.Request) {
	var credentials struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	if err := decodeJSON(r, &credentials); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var user User
	var hashedPassword string
	err := db.QueryRowContext(r.Context(),
		"SELECT id, username, first_name, last_name, role, password FROM users WHERE username = $1",
		credentials.Username).Scan(&user.ID, &user.Username, &user.FirstName, &user.LastName, &user.Role, &hashedPassword)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		internalError(w, r, "Login failed", err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(credentials.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	session, _ := store.Get(r, sessionName)
	session.Values["user_id"] = user.ID
	session.Values["username"] = user.Username
	session.Values["role"] = user.Role
	session.Values["last_activity"] = time.Now().Unix()
	if err := session.Save(r, w); err != nil {
		internalError(w, r, "Session error", err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func logoutHandler(w http.ResponseWriter, r *http.Request) {
	session, _ := store.Get(r, sessionName)
	expireSession(w, r, session)
	writeMessage(w, http.StatusOK, nil, "Logged out")
}

func checkAuthHandler(w http.ResponseWriter, r *http.Request) {
	var user User
	err := db.QueryRowContext(r.Context(),
		"SELECT id, username, first_name, last_name, role FROM users WHERE id = $1", currentUser(r).ID).
		Scan(&user.ID, &user.Username, &user.FirstName, &user.LastName, &user.Role)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		internalError(w, r, "Failed to load user", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
