package main

import (
	"os"

	"github.com/taskdeck/taskdeck-backend/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logging.Logger.WithError(err).Error("taskdeckctl failed")
		os.Exit(1)
	}
}
