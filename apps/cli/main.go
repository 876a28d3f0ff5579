// Command shulectl logs in to the Shule API and keeps the session on disk.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	if err := newRootCmd(logger, nil).Execute(); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}
