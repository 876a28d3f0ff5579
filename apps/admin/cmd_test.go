package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/storage/database/inmem"
	"github.com/trezcool/shule/tests"
)

var usrRepo user.Repository

func setup(t *testing.T) *commandLine {
	t.Helper()
	usrRepo = inmemdb.NewUserRepository(inmemdb.Open())
	return &commandLine{usrRepo: usrRepo}
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string
	wantErr    error
	wantErrStr string
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		require.Error(t, err)
		assert.Equal(t, tt.wantErrStr, err.Error())
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-email", "root@test.cd", "-name", "Root"}, wantErr: errHelp},
		{name: "no role flag", args: []string{"adduser", "-email", "jabali@test.cd", "-name", "Jabali", "-role", "teacher"}, pwd: testutil.Password, wantErrStr: "flag provided but not defined: -role"},
		{name: "admin", args: []string{"adduser", "-email", " ROOT@test.cd", "-name", "Root"}, pwd: testutil.Password},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPassword(tt.pwd)
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	root, err := usrRepo.GetUser(ctx, user.GetFilter{Email: "root@test.cd"})
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, root.Role)
	assert.Empty(t, root.SchoolID)
	assert.True(t, root.IsActive)
	assert.NoError(t, root.CheckPassword(testutil.Password))

	_, err = usrRepo.GetUser(ctx, user.GetFilter{Email: "jabali@test.cd"})
	assert.Error(t, err)

	t.Run("existing admin is updated", func(t *testing.T) {
		testutil.CreateUser(t, usrRepo, "N Dog", "ndog@test.cd", "", user.RoleAdmin, false)
		mockPassword(testutil.Password)
		require.NoError(t, cli.run([]string{"admin", "adduser", "-email", "ndog@test.cd", "-name", "Baraka"}))

		usr, err := usrRepo.GetUser(ctx, user.GetFilter{Email: "ndog@test.cd"})
		require.NoError(t, err)
		assert.Equal(t, "Baraka", usr.Name)
		assert.True(t, usr.IsActive)
		assert.NoError(t, usr.CheckPassword(testutil.Password))

		users, err := usrRepo.QueryUsers(ctx, &user.QueryFilter{Search: "ndog"})
		require.NoError(t, err)
		assert.Len(t, users, 1)
	})

	t.Run("school member is left alone", func(t *testing.T) {
		testutil.CreateUser(t, usrRepo, "Zawadi", "zawadi@test.cd", "", user.RoleStudent, false)
		mockPassword(testutil.Password)
		err := cli.run([]string{"admin", "adduser", "-email", "zawadi@test.cd", "-name", "Zawadi"})
		assert.Equal(t, errNotAdmin, err)

		usr, err := usrRepo.GetUser(ctx, user.GetFilter{Email: "zawadi@test.cd"})
		require.NoError(t, err)
		assert.Equal(t, user.RoleStudent, usr.Role)
		assert.False(t, usr.IsActive)
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Jabali", "jabali@test.cd", testutil.Password, user.RoleTeacher, true)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@test.cd"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@test.cd"}, pwd: "lol", wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", "JABALI@test.cd"}, pwd: "lmao"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPassword(tt.pwd)
			err := cli.run(append([]string{"admin"}, tt.args...))
			tt.check(t, err)
			if err == nil {
				refreshed, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
				require.NoError(t, err)
				assert.False(t, bytes.Equal(refreshed.PasswordHash, usr.PasswordHash), "failed to update the password")
				assert.NoError(t, refreshed.CheckPassword("lmao"))
			}
		})
	}
}
