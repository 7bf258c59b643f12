package cli

import (
	"context"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/tagvault/tagvault/internal/store"
)

// DefaultCatalogName is the catalog file created by "tv init".
const DefaultCatalogName = "library.tv"

// InitCmd creates an empty catalog and a project config pointing at it.
func InitCmd(app *App) *Command {
	flags := flag.NewFlagSet("init", flag.ContinueOnError)

	return &Command{
		Flags: flags,
		Usage: "init [path]",
		Short: "Create an empty library catalog in the current directory",
		Long: `Create an empty library catalog and write a .tv.json project config
pointing at it. The optional path argument overrides the default
catalog file name (library.tv).`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			catalogPath := DefaultCatalogName
			if len(args) > 0 {
				catalogPath = args[0]
			}

			absPath := catalogPath
			if !filepath.IsAbs(absPath) {
				absPath = filepath.Join(app.WorkDir, catalogPath)
			}

			libraryID, err := store.Init(ctx, absPath)
			if err != nil {
				return err
			}

			cfg := app.Cfg
			cfg.Library = catalogPath

			configPath := filepath.Join(app.WorkDir, ConfigFileName)
			if err := WriteProjectConfig(configPath, cfg); err != nil {
				return err
			}

			o.Println("Initialized empty library:", absPath)
			o.Println("Library ID:", libraryID.String())

			return nil
		},
	}
}
