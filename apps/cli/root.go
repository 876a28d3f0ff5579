package main

import (
	"fmt"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	apiclient "github.com/trezcool/shule/client/api"
	"github.com/trezcool/shule/client/session"
)

const defaultAPIURL = "http://localhost:8000/v1"

var readPasswordFunc = term.ReadPassword // mockable

// app is what the commands share once the flags are parsed.
type app struct {
	logger  logrus.FieldLogger
	client  *apiclient.Client
	session *session.Store
}

// newRootCmd builds shulectl. storage overrides the session file; for tests.
func newRootCmd(logger logrus.FieldLogger, storage session.Storage) *cobra.Command {
	v := viper.New()
	v.SetDefault("api-url", defaultAPIURL)
	_ = v.BindEnv("api-url", "SHULE_API_URL")
	_ = v.BindEnv("session", "SHULE_SESSION")

	a := &app{logger: logger}

	root := &cobra.Command{
		Use:           "shulectl",
		Short:         "Log in to the Shule API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.client = apiclient.New(v.GetString("api-url"))
			if storage == nil {
				path := v.GetString("session")
				if path == "" {
					var err error
					if path, err = session.DefaultPath(); err != nil {
						return err
					}
				}
				storage = session.NewFileStorage(path)
			}
			a.session = session.Open(storage, logger)
			return nil
		},
	}
	root.PersistentFlags().String("api-url", defaultAPIURL, "base URL of the API (env SHULE_API_URL)")
	root.PersistentFlags().String("session", "", "session file (env SHULE_SESSION, defaults to the user config dir)")
	_ = v.BindPFlag("api-url", root.PersistentFlags().Lookup("api-url"))
	_ = v.BindPFlag("session", root.PersistentFlags().Lookup("session"))

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newStatusCmd(a),
	)
	return root
}

func promptPassword(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	return string(pwd), nil
}
