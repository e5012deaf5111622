package main

import (
	"net/http"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

const storedRoleQuery = "SELECT role FROM users WHERE id"

var (
	owner    = sessionUser{ID: 2, Username: "root", Role: roleSuperadmin}
	userVars = map[string]string{"id": "9"}
)

func roleRow(role string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"role"}).AddRow(role)
}

func TestCheckManageUser(t *testing.T) {
	tests := []struct {
		caller, target, requested string
		allowed                   bool
	}{
		{roleAdmin, roleUser, roleAdmin, true},
		{roleAdmin, roleAdmin, roleUser, true},
		{roleAdmin, roleUser, roleSuperadmin, false},
		{roleAdmin, roleSuperadmin, roleAdmin, false},
		{roleAdmin, roleSuperadmin, "", false},
		{roleSuperadmin, roleSuperadmin, roleAdmin, true},
		{roleSuperadmin, roleUser, roleSuperadmin, true},
	}
	for _, tt := range tests {
		err := checkManageUser(tt.caller, tt.target, tt.requested)
		if tt.allowed {
			assert.NoError(t, err, "%+v", tt)
			continue
		}
		assert.Equal(t, http.StatusForbidden, ruleStatus(t, err), "%+v", tt)
	}
}

func TestAdminCannotChangeSuperadmin(t *testing.T) {
	body := `{"username":"root","first_name":"Ro","last_name":"Ot","role":"admin","password":"taken-over"}`

	mock := mockDB(t)
	mock.ExpectQuery(storedRoleQuery).WithArgs(9).WillReturnRows(roleRow(roleSuperadmin))

	rec := callAs(updateUserHandler, supervisor, http.MethodPut, strings.NewReader(body), userVars)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminCannotDeleteSuperadmin(t *testing.T) {
	mock := mockDB(t)
	mock.ExpectQuery(storedRoleQuery).WithArgs(9).WillReturnRows(roleRow(roleSuperadmin))

	rec := callAs(deleteUserHandler, supervisor, http.MethodDelete, nil, userVars)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdateUser(t *testing.T) {
	body := `{"username":"amy","first_name":"Amy","last_name":"Lee","role":"admin"}`

	t.Run("admin edits a user", func(t *testing.T) {
		mock := mockDB(t)
		mock.ExpectQuery(storedRoleQuery).WithArgs(9).WillReturnRows(roleRow(roleUser))
		mock.ExpectExec("UPDATE users SET").WithArgs("amy", "Amy", "Lee", roleAdmin, 9).
			WillReturnResult(sqlmock.NewResult(0, 1))

		rec := callAs(updateUserHandler, supervisor, http.MethodPut, strings.NewReader(body), userVars)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("superadmin edits a superadmin", func(t *testing.T) {
		mock := mockDB(t)
		mock.ExpectQuery(storedRoleQuery).WillReturnRows(roleRow(roleSuperadmin))
		mock.ExpectExec("UPDATE users SET").WillReturnResult(sqlmock.NewResult(0, 1))

		rec := callAs(updateUserHandler, owner, http.MethodPut, strings.NewReader(body), userVars)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		mock := mockDB(t)
		mock.ExpectQuery(storedRoleQuery).WillReturnRows(sqlmock.NewRows([]string{"role"}))

		rec := callAs(updateUserHandler, supervisor, http.MethodPut, strings.NewReader(body), userVars)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestDeleteUser(t *testing.T) {
	mock := mockDB(t)
	mock.ExpectQuery(storedRoleQuery).WithArgs(9).WillReturnRows(roleRow(roleUser))
	mock.ExpectExec("DELETE FROM users").WithArgs(9).WillReturnResult(sqlmock.NewResult(0, 1))

	rec := callAs(deleteUserHandler, supervisor, http.MethodDelete, nil, userVars)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = callAs(deleteUserHandler, sessionUser{ID: 9, Role: roleAdmin}, http.MethodDelete, nil, userVars)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
