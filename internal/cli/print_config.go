package cli

import (
	"context"

	flag "github.com/spf13/pflag"
)

// PrintConfigCmd shows the effective configuration and where it came from.
func PrintConfigCmd(app *App) *Command {
	flags := flag.NewFlagSet("print-config", flag.ContinueOnError)

	return &Command{
		Flags: flags,
		Usage: "print-config",
		Short: "Print the effective configuration",
		Long: `Print the effective configuration as JSON, after merging the global
config, the project config, and any command-line overrides. The source
files that contributed are listed on stderr.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			formatted, err := FormatConfig(app.Cfg)
			if err != nil {
				return err
			}

			o.Println(formatted)

			if app.Sources.Global != "" {
				o.ErrPrintln("global config:", app.Sources.Global)
			}

			if app.Sources.Project != "" {
				o.ErrPrintln("project config:", app.Sources.Project)
			}

			return nil
		},
	}
}
