package cli

import (
	"context"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/tagvault/tagvault/internal/catalog"
)

// TagsCmd lists the tags defined in the library.
func TagsCmd(app *App) *Command {
	flags := flag.NewFlagSet("tags", flag.ContinueOnError)
	hidden := flags.Bool("hidden", false, "include hidden tags")

	return &Command{
		Flags: flags,
		Usage: "tags [flags]",
		Short: "List the tags defined in the library",
		Long: `List the tags defined in the library, one per line, in the form:

  <id>  <name>  [shorthand]  [aliases]  [parents]

Hidden tags are omitted unless --hidden is given.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			session, err := app.openLibrary(ctx)
			if err != nil {
				return err
			}
			defer session.Close()

			for _, id := range session.Snap.TagIDs() {
				tag, ok := session.Snap.Tag(id)
				if !ok || (tag.IsHidden && !*hidden) {
					continue
				}

				line := []string{tag.Name}

				if tag.Shorthand != "" {
					line = append(line, "("+tag.Shorthand+")")
				}

				if len(tag.Aliases) > 0 {
					line = append(line, "aka "+strings.Join(tag.Aliases, ", "))
				}

				if parents := parentNames(session, id); len(parents) > 0 {
					line = append(line, "< "+strings.Join(parents, ", "))
				}

				o.Printf("%d\t%s\n", tag.ID, strings.Join(line, "  "))
			}

			return nil
		},
	}
}

func parentNames(s *session, id catalog.TagID) []string {
	var names []string

	for _, parentID := range s.Snap.Parents(id) {
		if parent, ok := s.Snap.Tag(parentID); ok {
			names = append(names, parent.Name)
		}
	}

	return names
}
