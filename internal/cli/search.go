package cli

import (
	"context"
	"errors"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/tagvault/tagvault/internal/engine"
	"github.com/tagvault/tagvault/internal/query"
)

// SearchCmd evaluates a query against the library and prints matches.
func SearchCmd(app *App) *Command {
	flags := flag.NewFlagSet("search", flag.ContinueOnError)
	sortName := flags.String("sort", "", "sort key: insertion, filename, date_added, date_created, date_modified")
	reverse := flags.Bool("reverse", false, "reverse the sort order")
	limit := flags.Int("limit", -1, "maximum number of results (0 = unlimited)")
	paths := flags.Bool("paths", false, "print entry paths instead of ids")
	explain := flags.Bool("explain", false, "print the normalized query before results")

	return &Command{
		Flags: flags,
		Usage: "search [flags] <query...>",
		Short: "Search the library for entries matching a query",
		Long: `Search the library for entries matching a boolean tag query.

Query terms may carry a prefix: tag: (default), tag_id:, path:,
filetype:, mediatype:, or special:. Terms combine with AND, OR, NOT
and parentheses; adjacent terms are ANDed. Quote values that contain
spaces or colons.

Examples:
  tv search cat
  tv search 'tag:Cat OR filetype:txt'
  tv search --paths 'mediatype:image AND NOT special:untagged'`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return errQueryRequired
			}

			queryString := strings.Join(args, " ")

			root, err := query.Parse(queryString)
			if err != nil {
				var parseErr *query.ParseError
				if errors.As(err, &parseErr) {
					printParseError(o, parseErr)
				}

				return err
			}

			if *explain {
				o.ErrPrintln("query:", root.String())
			}

			spec, err := searchSortSpec(app.Cfg, *sortName, *reverse, *limit)
			if err != nil {
				return err
			}

			session, err := app.openLibrary(ctx)
			if err != nil {
				return err
			}
			defer session.Close()

			ids, err := session.Engine.Evaluate(root, spec)
			if err != nil {
				return err
			}

			for _, id := range ids {
				if *paths {
					entry, ok := session.Snap.Entry(id)
					if !ok {
						continue
					}

					o.Println(entry.Path)
				} else {
					o.Printf("%d\n", id)
				}
			}

			return nil
		},
	}
}

// searchSortSpec resolves flag values against config defaults. A negative
// limit flag means "not set", so the config default applies.
func searchSortSpec(cfg Config, sortName string, reverse bool, limit int) (engine.SortSpec, error) {
	if sortName == "" {
		sortName = cfg.Sort
	}

	key, err := engine.ParseSortKey(sortName)
	if err != nil {
		return engine.SortSpec{}, err
	}

	if limit < 0 {
		limit = cfg.EffectiveLimit()
	}

	return engine.SortSpec{Key: key, Reverse: reverse, Limit: limit}, nil
}

// printParseError shows the query with a caret under the offending offset.
func printParseError(o *IO, parseErr *query.ParseError) {
	o.ErrPrintln("  " + parseErr.Query)
	o.ErrPrintln("  " + strings.Repeat(" ", parseErr.Pos) + "^")
}
