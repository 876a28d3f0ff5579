package user_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/tests"
)

func TestService_Create(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	nu := user.NewUser{
		Name:            " Jabali ",
		Email:           " JABALI@test.cd",
		Role:            user.RoleAdmin,
		Password:        testutil.Password,
		PasswordConfirm: testutil.Password,
	}
	require.NoError(t, nu.Validate(ctx, env.Validate, env.UserSvc))
	usr, err := env.UserSvc.Create(ctx, nu)
	require.NoError(t, err)
	assert.Equal(t, "Jabali", usr.Name)
	assert.Equal(t, "jabali@test.cd", usr.Email)
	assert.True(t, usr.IsActive)
	assert.NoError(t, usr.CheckPassword(testutil.Password))

	got, err := env.UserSvc.GetByEmail(ctx, "Jabali@Test.cd ")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)

	// welcome mail
	sent := env.Mail.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "welcome", sent[0].TemplateName)
	assert.Contains(t, sent[0].TextContent, "Sign in with jabali@test.cd")

	t.Run("email taken", func(t *testing.T) {
		dup := nu
		dup.Email = "jabali@TEST.cd"
		err := dup.Validate(ctx, env.Validate, env.UserSvc)
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, []core.FieldError{{Field: "email", Error: user.ErrEmailExists.Error()}}, vErr.Fields)
	})
}

func TestNewUser_Validate(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	schoolID := testutil.NewID()

	newUser := func(role, schoolID, pwd string) user.NewUser {
		return user.NewUser{Name: "Amani Kazadi", Email: "amani@test.cd", Role: role, SchoolID: schoolID, Password: pwd, PasswordConfirm: pwd}
	}
	tests := []struct {
		name    string
		nu      user.NewUser
		wantFld string
		wantTag string
	}{
		{name: "valid", nu: newUser(user.RoleTeacher, schoolID, testutil.Password)},
		{name: "admins need no school", nu: newUser(user.RoleAdmin, "", testutil.Password)},
		{name: "unknown role", nu: newUser("janitor", schoolID, testutil.Password), wantFld: "role", wantTag: "role"},
		{name: "school required", nu: newUser(user.RoleStudent, "", testutil.Password), wantFld: "school_id", wantTag: "school_required"},
		{name: "too short", nu: newUser(user.RoleTeacher, schoolID, "Ab1!"), wantFld: "password", wantTag: "pwdminlen"},
		{name: "all numeric", nu: newUser(user.RoleTeacher, schoolID, "1234567890"), wantFld: "password", wantTag: "pwdnotallnum"},
		{name: "not complex", nu: newUser(user.RoleTeacher, schoolID, "abcdefgh1"), wantFld: "password", wantTag: "pwdcplx"},
		{name: "whitespace", nu: newUser(user.RoleTeacher, schoolID, "Ab1! cdefg"), wantFld: "password", wantTag: "pwdnospace"},
		{name: "similar to name", nu: newUser(user.RoleTeacher, schoolID, "Amani.Kazadi1"), wantFld: "password", wantTag: "pwdtoosim"},
		{
			name:    "confirmation mismatch",
			nu:      user.NewUser{Name: "A", Email: "a@test.cd", Role: user.RoleAdmin, Password: testutil.Password, PasswordConfirm: "nope"},
			wantFld: "password_confirm", wantTag: "eqfield",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nu.Validate(ctx, env.Validate, env.UserSvc)
			if tt.wantTag == "" {
				assert.NoError(t, err)
				return
			}
			var vErrs validator.ValidationErrors
			require.True(t, errors.As(err, &vErrs), "got %v", err)
			require.Len(t, vErrs, 1)
			assert.Equal(t, tt.wantFld, vErrs[0].Field())
			assert.Equal(t, tt.wantTag, vErrs[0].Tag())
		})
	}
}

func TestService_PasswordReset(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, env.UserRepo, "Jabali", "jabali@test.cd", testutil.Password, user.RoleTeacher, true)
	testutil.CreateUser(t, env.UserRepo, "N Dog", "ndog@test.cd", testutil.Password, user.RoleStudent, false)

	assert.True(t, core.IsNotFound(env.UserSvc.RequestPasswordReset(ctx, "nobody@test.cd")))
	assert.True(t, core.IsNotFound(env.UserSvc.RequestPasswordReset(ctx, "ndog@test.cd")))
	assert.Empty(t, env.Mail.SentMessages())

	require.NoError(t, env.UserSvc.RequestPasswordReset(ctx, "JABALI@test.cd"))
	sent := env.Mail.SentMessages()
	require.Len(t, sent, 1)
	data, ok := sent[0].TemplateData.(map[string]interface{})
	require.True(t, ok)
	uid, _ := data["UID"].(string)
	token, _ := data["Token"].(string)
	assert.Equal(t, user.EncodeUID(usr), uid)
	require.True(t, sent[0].HasContent())
	assert.Contains(t, sent[0].TextContent, "uid="+uid+"&token="+token)

	newPwd := "N3w!Secret#42"
	reset := user.ResetUserPassword{UID: uid, Token: token, Password: newPwd, PasswordConfirm: newPwd}
	require.NoError(t, reset.Validate(env.Validate))

	t.Run("invalid uid", func(t *testing.T) {
		bad := reset
		bad.UID = "%%%"
		var vErr *core.ValidationError
		assert.True(t, errors.As(env.UserSvc.ResetPassword(ctx, bad), &vErr))
	})

	require.NoError(t, env.UserSvc.ResetPassword(ctx, reset))
	got, err := env.UserSvc.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.NoError(t, got.CheckPassword(newPwd))
	assert.Error(t, got.CheckPassword(testutil.Password))

	// the link is single use
	var vErr *core.ValidationError
	assert.True(t, errors.As(env.UserSvc.ResetPassword(ctx, reset), &vErr))
}

func TestService_QueryUpdateDelete(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	admin := testutil.CreateUser(t, env.UserRepo, "Root", "root@test.cd", "", user.RoleAdmin, true)
	teacher := testutil.CreateUser(t, env.UserRepo, "Jabali", "jabali@test.cd", "", user.RoleTeacher, true)
	naughty := testutil.CreateUser(t, env.UserRepo, "N Dog", "ndog@test.cd", "", user.RoleStudent, false)

	inactive := false
	users, err := env.UserSvc.Query(ctx, &user.QueryFilter{IsActive: &inactive}, nil)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, naughty.ID, users[0].ID)

	users, err = env.UserSvc.Query(ctx, &user.QueryFilter{Roles: []string{user.RoleAdmin, user.RoleTeacher}}, nil)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	active := true
	upd, err := env.UserSvc.Update(ctx, naughty.ID, user.UpdateUser{IsActive: &active})
	require.NoError(t, err)
	assert.True(t, upd.IsActive)
	assert.Equal(t, naughty.Name, upd.Name)
	assert.Equal(t, naughty.Email, upd.Email)

	require.NoError(t, env.UserSvc.Delete(ctx, teacher.ID, naughty.ID))
	_, err = env.UserSvc.GetByID(ctx, teacher.ID)
	assert.True(t, core.IsNotFound(err))
	_, err = env.UserSvc.GetByID(ctx, admin.ID)
	assert.NoError(t, err)
}
