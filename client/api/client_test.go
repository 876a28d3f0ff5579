package apiclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/shule/apps/api/echo"
	apiclient "github.com/trezcool/shule/client/api"
	"github.com/trezcool/shule/core/user"
	metricsvc "github.com/trezcool/shule/services/metrics"
	"github.com/trezcool/shule/storage/cache"
	"github.com/trezcool/shule/tests"
)

func setup(t *testing.T) (*testutil.Env, *apiclient.Client) {
	t.Helper()

	env := testutil.NewEnv(t)
	server := echoapi.NewServer(echoapi.Deps{
		Conf:          env.Conf,
		Logger:        env.Logger,
		Validate:      env.Validate,
		Translator:    env.Translator,
		Blacklist:     cache.NewMemoryBlacklist(),
		Metrics:       metricsvc.New(),
		UserSvc:       env.UserSvc,
		SchoolSvc:     env.SchoolSvc,
		ExamSvc:       env.ExamSvc,
		AttendanceSvc: env.AttendanceSvc,
	})
	ts := httptest.NewServer(server)
	t.Cleanup(ts.Close)
	return env, apiclient.New(ts.URL+"/v1/", ts.Client())
}

func requireAPIError(t *testing.T, err error, status int, msg string) {
	t.Helper()
	var apiErr *apiclient.APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Equal(t, status, apiErr.Status)
	assert.Equal(t, msg, apiErr.Message)
}

func TestClient(t *testing.T) {
	env, client := setup(t)
	ctx := context.Background()
	s := env.CreateSchool(t, "Lycée Wima", "wima-")
	testutil.CreateUser(t, env.UserRepo, "N Dog", "ndog@test.cd", testutil.Password, user.RoleAdmin, false)

	t.Run("login failures", func(t *testing.T) {
		_, err := client.Login(ctx, "wima-teacher@test.cd", "nope")
		requireAPIError(t, err, http.StatusBadRequest, "invalid credentials")

		_, err = client.Login(ctx, "ndog@test.cd", testutil.Password)
		requireAPIError(t, err, http.StatusForbidden, "account deactivated")

		_, err = client.Login(ctx, "", "")
		requireAPIError(t, err, http.StatusBadRequest, "email: this field is required; password: this field is required")
	})

	resp, err := client.Login(ctx, "wima-teacher@test.cd", testutil.Password)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "/teacher", resp.Redirect)
	require.NotNil(t, resp.User.Teacher)
	assert.Equal(t, s.Teacher.ID, resp.User.Teacher.ID)

	me, err := client.Me(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, s.Teacher.UserID, me.ID)
	assert.Equal(t, user.RoleTeacher, me.Role)

	_, err = client.Me(ctx, "")
	requireAPIError(t, err, http.StatusUnauthorized, "missing or malformed jwt")

	require.NoError(t, client.Logout(ctx, resp.Token))
	_, err = client.Me(ctx, resp.Token)
	requireAPIError(t, err, http.StatusUnauthorized, "token has been revoked")
}
