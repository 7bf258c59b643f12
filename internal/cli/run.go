package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// App carries the resolved environment every command needs.
type App struct {
	Cfg     Config
	Sources ConfigSources
	Library string // absolute catalog path, empty when unconfigured
	Log     zerolog.Logger
	In      io.Reader
	WorkDir string
}

// Run is the main entry point. Returns exit code. A signal on sigCh
// cancels the command context; sigCh may be nil.
func Run(in io.Reader, out, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	o := NewIO(out, errOut)

	if len(args) < 2 {
		printUsage(o)

		return 0
	}

	flags, err := parseGlobalFlags(args[1:])
	if err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	workDir := flags.workDir
	if workDir == "" {
		workDir, err = os.Getwd()
		if err != nil {
			o.ErrPrintln("error: cannot get working directory:", err)

			return 1
		}
	}

	level := zerolog.WarnLevel
	if flags.verbose {
		level = zerolog.DebugLevel
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: errOut}).
		With().Timestamp().Logger().Level(level)

	overrides := Config{Library: flags.library}

	cfg, sources, err := LoadConfig(workDir, flags.configPath, overrides, flags.library != "", env)
	if err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	library := cfg.Library
	if library != "" && !filepath.IsAbs(library) {
		library = filepath.Join(workDir, library)
	}

	if len(flags.remaining) == 0 {
		printUsage(o)

		return 0
	}

	name := flags.remaining[0]
	if name == "-h" || name == "--help" {
		printUsage(o)

		return 0
	}

	app := &App{
		Cfg:     cfg,
		Sources: sources,
		Library: library,
		Log:     log,
		In:      in,
		WorkDir: workDir,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			<-sigCh
			cancel()
		}()
	}

	for _, cmd := range commands(app) {
		if cmd.Name() == name {
			return cmd.Run(ctx, o, flags.remaining[1:])
		}
	}

	o.ErrPrintln("error: unknown command:", name)
	printUsage(o)

	return 1
}

func commands(app *App) []*Command {
	return []*Command{
		SearchCmd(app),
		TagsCmd(app),
		ShellCmd(app),
		InitCmd(app),
		PrintConfigCmd(app),
	}
}

type globalFlags struct {
	workDir    string
	configPath string
	library    string
	verbose    bool
	remaining  []string
}

func parseGlobalFlags(args []string) (globalFlags, error) {
	var flags globalFlags

	idx := 0
	for idx < len(args) {
		consumed, err := parseFlag(args, idx, &flags)
		if err != nil {
			return globalFlags{}, err
		}

		if consumed == 0 {
			// Not a flag, this is the command
			flags.remaining = args[idx:]

			break
		}

		idx += consumed
	}

	return flags, nil
}

// parseFlag tries to parse a flag at args[idx]. Returns number of args consumed (0 if not a flag).
func parseFlag(args []string, idx int, flags *globalFlags) (int, error) {
	arg := args[idx]

	takesValue := func(target *string) (int, error) {
		if idx+1 >= len(args) {
			return 0, fmt.Errorf("%w: %s", errFlagRequiresArg, arg)
		}

		*target = args[idx+1]

		return 2, nil
	}

	switch {
	case arg == "-C" || arg == "--cwd":
		return takesValue(&flags.workDir)
	case strings.HasPrefix(arg, "--cwd="):
		flags.workDir = strings.TrimPrefix(arg, "--cwd=")

		return 1, nil
	case arg == "-c" || arg == "--config":
		return takesValue(&flags.configPath)
	case strings.HasPrefix(arg, "--config="):
		flags.configPath = strings.TrimPrefix(arg, "--config=")

		return 1, nil
	case arg == "--library":
		return takesValue(&flags.library)
	case strings.HasPrefix(arg, "--library="):
		flags.library = strings.TrimPrefix(arg, "--library=")

		return 1, nil
	case arg == "--verbose" || arg == "-v":
		flags.verbose = true

		return 1, nil
	case arg == "-h" || arg == "--help":
		flags.remaining = []string{"--help"}

		return len(args) - idx, nil
	case strings.HasPrefix(arg, "-") && arg != "-":
		return 0, fmt.Errorf("%w: %s", errUnknownFlag, arg)
	default:
		return 0, nil
	}
}

func printUsage(o *IO) {
	o.Println(`tv - personal file-tagging library manager

Usage: tv [options] <command> [args]

Options:
  -C, --cwd <dir>     Run as if started in <dir>
  -c, --config <file> Use specified config file
      --library <db>  Use specified catalog file
  -v, --verbose       Enable debug logging

Commands:`)

	cmds := commands(&App{})

	width := 0
	for _, cmd := range cmds {
		if len(cmd.Usage) > width {
			width = len(cmd.Usage)
		}
	}

	for _, cmd := range cmds {
		o.Println(cmd.HelpLine(width))
	}
}
