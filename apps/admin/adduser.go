package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

var errNotAdmin = errors.New("the account exists and is not an administrator; school members are managed through their school")

// addUser creates an active administrator, or renames, activates and sets the password of an existing one.
func (cli *commandLine) addUser(name, email, pwd string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)

	now := time.Now().UTC()
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
	create := core.IsNotFound(err)
	if err != nil && !create {
		return err
	}
	if create {
		usr = user.User{ID: uuid.New().String(), Email: email, Role: user.RoleAdmin, CreatedAt: now}
	} else if !usr.IsAdmin() {
		return errNotAdmin
	}
	usr.Name = name
	usr.IsActive = true
	usr.UpdatedAt = now
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	if create {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	}
	return errors.Wrap(err, "saving user")
}
