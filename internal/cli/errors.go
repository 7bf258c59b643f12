package cli

import "errors"

var (
	errConfigFileNotFound = errors.New("config file not found")
	errConfigInvalid      = errors.New("invalid config file")
	errFlagRequiresArg    = errors.New("flag requires an argument")
	errUnknownFlag        = errors.New("unknown flag")
	errNoLibrary          = errors.New("no library configured (run 'tv init' or set library in .tv.json)")
	errQueryRequired      = errors.New("search query is required")
)
