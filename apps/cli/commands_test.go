package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/client/session"
	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/user"
	metricsvc "github.com/trezcool/shule/services/metrics"
	"github.com/trezcool/shule/storage/cache"
	"github.com/trezcool/shule/tests"
)

type cli struct {
	env     *testutil.Env
	apiURL  string
	storage *session.MemoryStorage
}

func setup(t *testing.T) *cli {
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
	return &cli{env: env, apiURL: ts.URL + "/v1", storage: session.NewMemoryStorage()}
}

// run executes shulectl with args and returns its output.
func (c *cli) run(args ...string) (string, error) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	out := new(bytes.Buffer)
	cmd := newRootCmd(logger, c.storage)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(append([]string{"--api-url", c.apiURL}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (c *cli) state(t *testing.T) session.State {
	t.Helper()
	st, err := c.storage.Load()
	require.NoError(t, err)
	return st
}

func TestShulectl(t *testing.T) {
	c := setup(t)
	s := c.env.CreateSchool(t, "Lycée Wima", "wima-")

	out, err := c.run("status")
	require.NoError(t, err)
	assert.Equal(t, "Not logged in\n", out)

	_, err = c.run("whoami")
	assert.Equal(t, errNotLoggedIn, err)

	_, err = c.run("login", "--email", "wima-parent@test.cd", "--password", "Wr0ng!Pass")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid credentials")
	assert.Equal(t, session.State{}, c.state(t))

	out, err = c.run("login", "--email", "wima-parent@test.cd", "--password", testutil.Password)
	require.NoError(t, err)
	assert.Contains(t, out, "Redirect: /parent")

	st := c.state(t)
	assert.Equal(t, s.Parent.UserID, st.UserID)
	assert.Equal(t, s.Parent.ID, st.ParentID)
	assert.Equal(t, s.School.ID, st.SchoolID)
	assert.Equal(t, user.RoleParent, st.Role)

	out, err = c.run("whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "<wima-parent@test.cd>")
	assert.Contains(t, out, "Role: parent")
	assert.Contains(t, out, "School: Lycée Wima")

	out, err = c.run("status")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as wima-parent@test.cd (parent)")

	token := st.Token
	out, err = c.run("logout")
	require.NoError(t, err)
	assert.Equal(t, "Logged out\n", out)
	assert.Equal(t, session.State{}, c.state(t))

	// the token was revoked server side
	_, err = c.run("whoami")
	assert.Equal(t, errNotLoggedIn, err)
	require.NoError(t, c.storage.Save(st))
	_, err = c.run("whoami")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token has been revoked")
	assert.Equal(t, token, c.state(t).Token)
}

func TestShulectl_apiURLFromEnv(t *testing.T) {
	c := setup(t)
	c.env.CreateSchool(t, "Lycée Wima", "wima-")
	t.Setenv("SHULE_API_URL", c.apiURL)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cmd := newRootCmd(logger, c.storage)
	cmd.SetOut(io.Discard)
	cmd.SetArgs([]string{"login", "--email", "wima-teacher@test.cd", "--password", testutil.Password})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, user.RoleTeacher, c.state(t).Role)
}

func TestShulectl_loginWithUnusableToken(t *testing.T) {
	c := setup(t)
	c.env.CreateSchool(t, "Lycée Wima", "wima-")

	_, err := c.run("login", "--email", "wima-parent@test.cd", "--password", testutil.Password)
	require.NoError(t, err)
	before := c.state(t)
	require.NotEmpty(t, before.Token)

	e := echo.New()
	e.POST("/v1/users/login", func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, auth.LoginResponse{
			Token:    "not-a-jwt",
			User:     auth.SessionUser{ID: testutil.NewID(), Name: "Mallory", Email: "mallory@test.cd", Role: user.RoleAdmin},
			Redirect: "/admin",
		})
	})
	ts := httptest.NewServer(e)
	t.Cleanup(ts.Close)
	c.apiURL = ts.URL + "/v1"

	out, err := c.run("login", "--email", "mallory@test.cd", "--password", testutil.Password)
	assert.Equal(t, errUnusableToken, err)
	assert.NotContains(t, out, "Mallory")
	assert.Equal(t, before, c.state(t))

	out, err = c.run("status")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as wima-parent@test.cd (parent)")
}
