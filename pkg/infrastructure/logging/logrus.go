package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	logg *logrus.Logger
)

func GetLogger() *logrus.Logger {
	return logg
}

func init() {
	logg = logrus.New()
	logg.SetFormatter(&logrus.JSONFormatter{})
	logg.SetLevel(logrus.WarnLevel)
	// stdout carries results
	logg.SetOutput(os.Stderr)
}

// Configure sets the package logger level. verbose forces debug.
func Configure(level string, verbose bool) error {
	if verbose {
		logg.SetLevel(logrus.DebugLevel)
		return nil
	}
	if strings.TrimSpace(level) == "" {
		return nil
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logg.SetLevel(lvl)
	return nil
}

// SetOutput redirects the package logger
func SetOutput(w io.Writer) {
	logg.SetOutput(w)
}

// LogError logs err at error level tagged with where it happened. data is
// attached only when non-nil.
func LogError(logger *logrus.Logger, moduleName string, funcName string, context string, data any, err error) {
	fields := logrus.Fields{
		"module":   moduleName,
		"funcName": funcName,
		"context":  context,
	}
	if data != nil {
		fields["data"] = data
	}
	logger.WithFields(fields).Error(err.Error())
}
