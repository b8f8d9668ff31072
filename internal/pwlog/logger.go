// Package pwlog provides the process-wide structured logger.
package pwlog

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the shared logger instance used across every subsystem. It defaults
// to a standard logrus logger so subsystems work before Init is called (e.g.
// in tests); Init reconfigures it from the environment for the real process.
var Log = logrus.New()

// Init configures Log from PHEROWAR_LOG_LEVEL and PHEROWAR_LOG_FORMAT.
func Init() {
	Log = logrus.New()
	Log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(os.Getenv("PHEROWAR_LOG_LEVEL"))
	if err != nil {
		level = logrus.InfoLevel
	}
	Log.SetLevel(level)

	if os.Getenv("PHEROWAR_LOG_FORMAT") == "json" {
		Log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
	}
}
