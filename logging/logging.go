// ABOUTME: Logger construction shared by every command
// ABOUTME: Wraps logrus with level and format parsing
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a logrus logger writing to w. format is "text" or "json".
func New(level, format string, w io.Writer) (*logrus.Logger, error) {
	if w == nil {
		w = os.Stderr
	}

	log := logrus.New()
	log.SetOutput(w)

	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log.SetLevel(lvl)

	switch format {
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}

	return log, nil
}

// Discard is a logger that drops everything, for quiet commands like the MCP server
// whose stdout carries protocol traffic.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
