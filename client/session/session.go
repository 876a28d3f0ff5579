// Package session keeps the authenticated state of an API client: the bearer token
// and the profile fields decoded from it, persisted across runs.
package session

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/trezcool/shule/core/auth"
)

var nowFunc = time.Now // mockable

// State is the flat session state. The zero State is logged out.
type State struct {
	Token         string    `json:"token"`
	UserID        string    `json:"userId"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Role          string    `json:"role"`
	SchoolID      string    `json:"schoolId"`
	TeacherID     string    `json:"teacherId"`
	StudentID     string    `json:"studentId"`
	ParentID      string    `json:"parentId"`
	AdminID       string    `json:"adminId"`
	SchoolAdminID string    `json:"schoolAdminId"`
	ExpiresAt     time.Time `json:"expiresAt"`
	IssuedAt      time.Time `json:"issuedAt"`
}

type Store struct {
	mu      sync.RWMutex
	state   State
	storage Storage
	logger  logrus.FieldLogger
}

// Open returns a Store rehydrated from storage.
// An unreadable saved state is logged and the Store starts logged out.
func Open(storage Storage, logger logrus.FieldLogger) *Store {
	s := &Store{storage: storage, logger: logger}
	st, err := storage.Load()
	if err != nil {
		logger.WithError(err).Error("loading session")
		return s
	}
	s.state = st
	return s
}

// SetAuthFromLogin stores the session of a login response.
// A token that cannot be decoded is logged and leaves the Store unchanged.
func (s *Store) SetAuthFromLogin(resp auth.LoginResponse) error {
	claims, err := auth.ParseUnverified(resp.Token)
	if err != nil {
		s.logger.WithError(err).Error("decoding login token")
		return nil
	}

	st := State{
		Token:         resp.Token,
		UserID:        first(claims.ID, claims.Subject, resp.User.ID),
		Email:         first(claims.Email, resp.User.Email),
		Name:          first(claims.Name, resp.User.Name),
		Role:          first(claims.Role, resp.User.Role),
		SchoolID:      claims.SchoolID,
		TeacherID:     claims.TeacherID,
		StudentID:     claims.StudentID,
		ParentID:      claims.ParentID,
		AdminID:       claims.AdminID,
		SchoolAdminID: claims.SchoolAdminID,
		ExpiresAt:     time.Unix(claims.ExpiresAt, 0).UTC(),
		IssuedAt:      time.Unix(claims.IssuedAt, 0).UTC(),
	}
	fillFromProfile(&st, resp.User)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
	return errors.Wrap(s.storage.Save(st), "saving session")
}

// fillFromProfile sets the ids missing from the token from the nested profiles.
func fillFromProfile(st *State, usr auth.SessionUser) {
	if st.SchoolID == "" && usr.School != nil {
		st.SchoolID = usr.School.ID
	}
	if st.SchoolAdminID == "" && usr.SchoolAdmin != nil {
		st.SchoolAdminID = usr.SchoolAdmin.ID
	}
	if st.TeacherID == "" && usr.Teacher != nil {
		st.TeacherID = usr.Teacher.ID
	}
	if st.StudentID == "" && usr.Student != nil {
		st.StudentID = usr.Student.ID
	}
	if st.ParentID == "" && usr.Parent != nil {
		st.ParentID = usr.Parent.ID
	}
}

func first(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// ClearAuth logs out: every field is reset and the empty state persisted.
func (s *Store) ClearAuth() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{}
	return errors.Wrap(s.storage.Clear(), "clearing session")
}

// IsTokenValid reports whether a token is held and not expired yet.
func (s *Store) IsTokenValid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token != "" && !s.state.ExpiresAt.IsZero() && nowFunc().Before(s.state.ExpiresAt)
}

func (s *Store) IsAuthenticated() bool {
	return s.IsTokenValid()
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

func (s *Store) Role() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Role
}

func (s *Store) HasRole(roles ...string) bool {
	role := s.Role()
	for _, r := range roles {
		if role != "" && r == role {
			return true
		}
	}
	return false
}

// RedirectPath is the dashboard of the session role, or the login page when logged out.
func (s *Store) RedirectPath() string {
	if !s.IsAuthenticated() {
		return auth.LoginPath
	}
	return auth.RedirectPath(s.Role())
}

// Snapshot returns a copy of the current State.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}
