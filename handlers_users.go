package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

func getUsersHandler(w http.ResponseWriter, r *http.Request) {
	rows, err := db.QueryContext(r.Context(),
		"SELECT id, username, first_name, last_name, role FROM users ORDER BY last_name, first_name")
	if err != nil {
		internalError(w, r, "Failed to fetch users", err)
		return
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.Username, &user.FirstName, &user.LastName, &user.Role); err != nil {
			internalError(w, r, "Failed to fetch users", err)
			return
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		internalError(w, r, "Failed to fetch users", err)
		return
	}

	writeJSON(w, http.StatusOK, users)
}

func createUserHandler(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		internalError(w, r, "Error hashing password", err)
		return
	}

	user := User{Username: req.Username, FirstName: req.FirstName, LastName: req.LastName, Role: req.Role}
	err = db.QueryRowContext(r.Context(),
		"INSERT INTO users (username, password, first_name, last_name, role) VALUES ($1, $2, $3, $4, $5) RETURNING id",
		req.Username, string(hashedPassword), req.FirstName, req.LastName, req.Role).Scan(&user.ID)
	if isUniqueViolation(err) {
		writeError(w, http.StatusConflict, "Username already exists")
		return
	}
	if err != nil {
		internalError(w, r, "Error creating user", err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

func updateUserHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var req userRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !authorizeUserChange(w, r, id, req.Role) {
		return
	}

	query := "UPDATE users SET username = $1, first_name = $2, last_name = $3, role = $4 WHERE id = $5"
	args := []any{req.Username, req.FirstName, req.LastName, req.Role, id}
	if req.Password != "" {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			internalError(w, r, "Error hashing password", err)
			return
		}
		query = "UPDATE users SET username = $1, first_name = $2, last_name = $3, role = $4, password = $6 WHERE id = $5"
		args = append(args, string(hashedPassword))
	}

	res, err := db.ExecContext(r.Context(), query, args...)
	if isUniqueViolation(err) {
		writeError(w, http.StatusConflict, "Username already exists")
		return
	}
	if err != nil {
		internalError(w, r, "Error updating user", err)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	writeJSON(w, http.StatusOK, User{ID: id, Username: req.Username, FirstName: req.FirstName, LastName: req.LastName, Role: req.Role})
}

func deleteUserHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}
	if id == currentUser(r).ID {
		writeError(w, http.StatusBadRequest, "You cannot delete your own account")
		return
	}
	if !authorizeUserChange(w, r, id, "") {
		return
	}

	res, err := db.ExecContext(r.Context(), "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		internalError(w, r, "Error deleting user", err)
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	writeMessage(w, http.StatusOK, nil, "User deleted successfully")
}

func storedRole(ctx context.Context, id int) (string, error) {
	var role string
	err := db.QueryRowContext(ctx, "SELECT role FROM users WHERE id = $1", id).Scan(&role)
	return role, err
}

// checkManageUser keeps superadmin accounts and the superadmin role in the
// hands of superadmins.
func checkManageUser(callerRole, targetRole, requestedRole string) error {
	if targetRole != roleSuperadmin && requestedRole != roleSuperadmin {
		return nil
	}
	if !roleAtLeast(callerRole, roleSuperadmin) {
		return newRuleError(http.StatusForbidden, "Insufficient permissions")
	}
	return nil
}

func authorizeUserChange(w http.ResponseWriter, r *http.Request, id int, requestedRole string) bool {
	role, err := storedRole(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "User not found")
		return false
	}
	if err != nil {
		internalError(w, r, "Error loading user", err)
		return false
	}
	if err := checkManageUser(currentUser(r).Role, role, requestedRole); err != nil {
		writeRuleError(w, r, err)
		return false
	}
	return true
}
