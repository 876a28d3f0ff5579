package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/shule/core"
)

// Roles
const (
	RoleAdmin   = "admin"
	RoleSchool  = "school" // school administrator
	RoleTeacher = "teacher"
	RoleParent  = "parent"
	RoleStudent = "student"
)

var (
	AllRoles = []string{RoleAdmin, RoleSchool, RoleTeacher, RoleParent, RoleStudent}

	// SchoolRoles are the roles bound to a single School.
	SchoolRoles = []string{RoleSchool, RoleTeacher, RoleParent, RoleStudent}

	rolePriorities = map[string]int{
		RoleAdmin:   50,
		RoleSchool:  40,
		RoleTeacher: 30,
		RoleParent:  20,
		RoleStudent: 10,
	}

	Roles = []Role{
		{Name: "Administrator", Value: RoleAdmin},
		{Name: "School", Value: RoleSchool},
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Parent", Value: RoleParent},
		{Name: "Student", Value: RoleStudent},
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

// IsValidRole reports whether role is one of AllRoles.
func IsValidRole(role string) bool {
	_, ok := rolePriorities[role]
	return ok
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	SchoolID     string    `json:"school_id,omitempty"`
	ProfileID    string    `json:"profile_id,omitempty"` // Teacher, Student, Parent or SchoolAdmin ID
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) HasRole(roles ...string) bool {
	for _, role := range roles {
		if u.Role == role {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool       { return u.Role == RoleAdmin }
func (u *User) IsSchoolAdmin() bool { return u.Role == RoleSchool }
func (u *User) IsTeacher() bool     { return u.Role == RoleTeacher }
func (u *User) IsParent() bool      { return u.Role == RoleParent }
func (u *User) IsStudent() bool     { return u.Role == RoleStudent }

// CanManageSchool reports whether the User may administer the given School.
func (u *User) CanManageSchool(schoolID string) bool {
	return u.IsAdmin() || (u.IsSchoolAdmin() && u.SchoolID == schoolID)
}

// BelongsToSchool reports whether the User may read the given School's data.
func (u *User) BelongsToSchool(schoolID string) bool {
	return u.IsAdmin() || (schoolID != "" && u.SchoolID == schoolID)
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Role            string `json:"role" validate:"required,role"`
	SchoolID        string `json:"school_id" validate:"omitempty,uuid"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`

	ProfileID string `json:"-"` // set when the account is created along with its profile
}

func (nu *NewUser) Clean() {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	nu.SchoolID = core.CleanString(nu.SchoolID)
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nu.Clean()
	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ctx, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string `json:"name"`
	Email           string `json:"email" validate:"omitempty,email"`
	IsActive        *bool  `json:"is_active"`
	Password        string `json:"password" validate:"omitempty"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

// Clean fills in the blanks from origUsr.
func (uu *UpdateUser) Clean(origUsr User) {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}
}

func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, validate *validator.Validate, svc Service) error {
	uu.Clean(origUsr)
	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ctx, uu.Email, origUsr)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

type GetFilter struct {
	ID    string
	Email string
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Roles       []string  `query:"role"`
	SchoolID    string    `query:"school_id"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.SchoolID == "" && qf.IsActive == nil &&
		qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.SchoolID = core.CleanString(qf.SchoolID)
}

// Match reports whether usr satisfies every set field of the filter (in-memory filtering).
// Search does a case-insensitive match on one of User.Name or User.Email.
func (qf *QueryFilter) Match(usr User) bool {
	if qf.Search != "" && !(core.ContainsFold(usr.Name, qf.Search) || core.ContainsFold(usr.Email, qf.Search)) {
		return false
	}
	if len(qf.Roles) > 0 && !usr.HasRole(qf.Roles...) {
		return false
	}
	if qf.SchoolID != "" && usr.SchoolID != qf.SchoolID {
		return false
	}
	if qf.IsActive != nil && usr.IsActive != *qf.IsActive {
		return false
	}
	if !qf.CreatedFrom.IsZero() && usr.CreatedAt.Before(qf.CreatedFrom) {
		return false
	}
	if !qf.CreatedTo.IsZero() && usr.CreatedAt.After(qf.CreatedTo) {
		return false
	}
	return true
}
