// Package logging provides the structured logger shared by the mdarray packages.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

var logger atomic.Pointer[logrus.Logger]

func init() {
	logger.Store(newLogger(os.Stderr, logrus.WarnLevel, "text"))
}

func newLogger(out io.Writer, level logrus.Level, format string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)
	if format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}

// L returns the package logger.
func L() *logrus.Logger {
	return logger.Load()
}

// Configure replaces the package logger with one at the given level and format ("text" or "json").
func Configure(level, format string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	format = strings.ToLower(format)
	if format != "text" && format != "json" {
		return fmt.Errorf("logging: unknown format %q", format)
	}
	logger.Store(newLogger(L().Out, lvl, format))
	return nil
}

// SetOutput redirects the package logger. Used by tests to capture records.
func SetOutput(w io.Writer) {
	L().SetOutput(w)
}

// SetLevel changes the level of the package logger.
func SetLevel(level logrus.Level) {
	L().SetLevel(level)
}
