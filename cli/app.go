// ABOUTME: Shared dependencies for CLI commands
// ABOUTME: Commands write through the cache and print to App.Out
package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/harperreed/crmdesk/feed"
	"github.com/harperreed/crmdesk/store"
	"github.com/harperreed/crmdesk/workflow"
)

// App is what every command runs against.
type App struct {
	Cache       *store.Cache
	Engine      *workflow.Engine
	FeedOptions feed.Options
	Log         logrus.FieldLogger
	Out         io.Writer
	Version     string
}

func (a *App) out() io.Writer {
	if a.Out == nil {
		return os.Stdout
	}
	return a.Out
}

// isTerminal reports whether output goes to an interactive terminal.
func (a *App) isTerminal() bool {
	f, ok := a.out().(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

func requireArg(fs *flag.FlagSet, what string) (string, error) {
	if fs.NArg() < 1 {
		return "", fmt.Errorf("%s required", what)
	}
	return fs.Arg(0), nil
}

func csv(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
