package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

// NewUserRepository shares db's tables, so a Reset of db empties the repository.
func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.user.table))
	for _, u := range repo.db.user.table {
		users = append(users, *u)
	}
	return users
}

func (repo *userRepository) CheckEmailUniqueness(_ context.Context, email string, excludedUsers ...user.User) error {
	tbl := repo.db.user
	tbl.RLock()
	defer tbl.RUnlock()

	for _, usr := range repo.query() {
		if usr.Email == email && !isExcluded(usr, excludedUsers) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	tbl := repo.db.user
	tbl.Lock()
	defer tbl.Unlock()

	for _, u := range tbl.table {
		if u.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
	}
	tbl.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	tbl := repo.db.user
	tbl.RLock()
	defer tbl.RUnlock()

	if filter.ID != "" {
		if usr, ok := tbl.table[filter.ID]; ok {
			return *usr, nil
		}
		return user.User{}, user.ErrNotFound
	}
	if filter.Email != "" {
		for _, usr := range tbl.table {
			if usr.Email == filter.Email {
				return *usr, nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, orderings ...core.DBOrdering) ([]user.User, error) {
	tbl := repo.db.user
	tbl.RLock()
	defer tbl.RUnlock()

	users := make([]user.User, 0)
	for _, usr := range repo.query() {
		if filter == nil || filter.Match(usr) {
			users = append(users, usr)
		}
	}
	sortUsers(users, orderings)
	return users, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	tbl := repo.db.user
	tbl.Lock()
	defer tbl.Unlock()

	origUsr, ok := tbl.table[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	for _, u := range tbl.table {
		if u.ID != usr.ID && u.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
	}
	origUsr.Name = usr.Name
	origUsr.Email = usr.Email
	origUsr.IsActive = usr.IsActive
	origUsr.LastLogin = usr.LastLogin
	origUsr.UpdatedAt = usr.UpdatedAt
	if usr.PasswordHash != nil {
		origUsr.PasswordHash = usr.PasswordHash
	}
	return *origUsr, nil
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids ...string) error {
	tbl := repo.db.user
	tbl.Lock()
	defer tbl.Unlock()
	for _, id := range ids {
		delete(tbl.table, id)
	}
	return nil
}

func isExcluded(usr user.User, excludedUsers []user.User) bool {
	for _, u := range excludedUsers {
		if u.ID == usr.ID {
			return true
		}
	}
	return false
}

// sortUsers orders users by the given orderings, newest first by default.
func sortUsers(users []user.User, orderings []core.DBOrdering) {
	if len(orderings) == 0 {
		orderings = []core.DBOrdering{{Field: "created_at"}}
	}
	sort.SliceStable(users, func(i, j int) bool {
		a, b := users[i], users[j]
		for _, ord := range orderings {
			var cmp int
			switch ord.Field {
			case "name":
				cmp = strings.Compare(a.Name, b.Name)
			case "email":
				cmp = strings.Compare(a.Email, b.Email)
			case "role":
				cmp = strings.Compare(a.Role, b.Role)
			case "is_active":
				cmp = compareBool(a.IsActive, b.IsActive)
			case "created_at":
				cmp = a.CreatedAt.Compare(b.CreatedAt)
			case "updated_at":
				cmp = a.UpdatedAt.Compare(b.UpdatedAt)
			case "last_login":
				cmp = a.LastLogin.Compare(b.LastLogin)
			}
			if cmp == 0 {
				continue
			}
			if ord.Ascending {
				return cmp < 0
			}
			return cmp > 0
		}
		return false
	})
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}
