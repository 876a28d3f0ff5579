// Package auth holds what the API server and its clients share about authentication:
// the JWT claims, the login payloads and the role dispatch.
package auth

import (
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
)

// LoginPath is where unauthenticated users (or unknown roles) are sent.
const LoginPath = "/login"

var rolePaths = map[string]string{
	user.RoleAdmin:   "/admin",
	user.RoleSchool:  "/school",
	user.RoleTeacher: "/teacher",
	user.RoleStudent: "/student",
	user.RoleParent:  "/parent",
}

// RedirectPath returns the dashboard route of role.
func RedirectPath(role string) string {
	if path, ok := rolePaths[role]; ok {
		return path
	}
	return LoginPath
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SessionUser is the user data returned on login, with its role-specific nested profile.
type SessionUser struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Email       string              `json:"email"`
	Role        string              `json:"role"`
	School      *school.School      `json:"school,omitempty"`
	SchoolAdmin *school.SchoolAdmin `json:"schoolAdmin,omitempty"`
	Teacher     *school.Teacher     `json:"teacher,omitempty"`
	Student     *school.Student     `json:"student,omitempty"`
	Parent      *school.Parent      `json:"parent,omitempty"`
}

func NewSessionUser(usr user.User, prof school.Profile) SessionUser {
	return SessionUser{
		ID:          usr.ID,
		Name:        usr.Name,
		Email:       usr.Email,
		Role:        usr.Role,
		School:      prof.School,
		SchoolAdmin: prof.SchoolAdmin,
		Teacher:     prof.Teacher,
		Student:     prof.Student,
		Parent:      prof.Parent,
	}
}

type LoginResponse struct {
	Token    string      `json:"token"`
	User     SessionUser `json:"user"`
	Redirect string      `json:"redirect"`
}
