package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/tagvault/tagvault/internal/engine"
	"github.com/tagvault/tagvault/internal/query"
)

// ShellCmd runs an interactive query loop against one library snapshot.
func ShellCmd(app *App) *Command {
	flags := flag.NewFlagSet("shell", flag.ContinueOnError)
	paths := flags.Bool("paths", false, "print entry paths instead of ids")

	return &Command{
		Flags: flags,
		Usage: "shell [flags]",
		Short: "Interactive query shell",
		Long: `Open an interactive query shell. Each line is evaluated as a search
query against a snapshot taken when the shell starts.

Meta commands:
  :sort <key>     change the sort key
  :limit <n>      change the result cap (0 = unlimited)
  :reverse        toggle reverse ordering
  exit            leave the shell (Ctrl-D also works)`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			session, err := app.openLibrary(ctx)
			if err != nil {
				return err
			}
			defer session.Close()

			spec, err := searchSortSpec(app.Cfg, app.Cfg.Sort, false, -1)
			if err != nil {
				return err
			}

			line := liner.NewLiner()
			defer line.Close()

			line.SetCtrlCAborts(true)

			historyPath := shellHistoryPath()
			if historyPath != "" {
				if f, err := os.Open(historyPath); err == nil {
					_, _ = line.ReadHistory(f)
					_ = f.Close()
				}
			}

			for {
				input, err := line.Prompt("tv> ")
				if err != nil {
					if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
						break
					}

					return err
				}

				input = strings.TrimSpace(input)
				if input == "" {
					continue
				}

				if input == "exit" || input == "quit" {
					break
				}

				line.AppendHistory(input)

				if strings.HasPrefix(input, ":") {
					shellMeta(o, input, &spec)

					continue
				}

				shellEval(o, session, input, spec, *paths)
			}

			if historyPath != "" {
				if f, err := os.Create(historyPath); err == nil {
					_, _ = line.WriteHistory(f)
					_ = f.Close()
				}
			}

			return nil
		},
	}
}

// shellHistoryPath returns the history file location, creating its
// directory. Empty string disables history.
func shellHistoryPath() string {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}

		dir = filepath.Join(home, ".local", "state")
	}

	dir = filepath.Join(dir, "tv")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ""
	}

	return filepath.Join(dir, "history")
}

func shellMeta(o *IO, input string, spec *engine.SortSpec) {
	cmd, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case ":sort":
		key, err := engine.ParseSortKey(arg)
		if err != nil {
			o.ErrPrintln("error:", err)

			return
		}

		spec.Key = key
	case ":limit":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 0 {
			o.ErrPrintln("error: :limit takes a non-negative integer")

			return
		}

		spec.Limit = n
	case ":reverse":
		spec.Reverse = !spec.Reverse
	default:
		o.ErrPrintln("error: unknown meta command:", cmd)
	}
}

func shellEval(o *IO, s *session, input string, spec engine.SortSpec, paths bool) {
	root, err := query.Parse(input)
	if err != nil {
		var parseErr *query.ParseError
		if errors.As(err, &parseErr) {
			printParseError(o, parseErr)
		}

		o.ErrPrintln("error:", err)

		return
	}

	ids, err := s.Engine.Evaluate(root, spec)
	if err != nil {
		o.ErrPrintln("error:", err)

		return
	}

	for _, id := range ids {
		if paths {
			if entry, ok := s.Snap.Entry(id); ok {
				o.Println(entry.Path)
			}
		} else {
			o.Printf("%d\n", id)
		}
	}

	o.ErrPrintln(len(ids), "result(s)")
}
