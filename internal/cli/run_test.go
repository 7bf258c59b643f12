package cli

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// runTV invokes the CLI the way main does and captures both streams.
func runTV(t *testing.T, env map[string]string, args ...string) (int, string, string) {
	t.Helper()

	var out, errOut bytes.Buffer

	code := Run(strings.NewReader(""), &out, &errOut, append([]string{"tv"}, args...), env, nil)

	return code, out.String(), errOut.String()
}

// seedLibrary initializes a catalog via "tv init" and populates it with a
// small tag graph: Cat inherits from Pet, two tagged images, one untagged
// text file.
func seedLibrary(t *testing.T) (string, map[string]string) {
	t.Helper()

	workDir := t.TempDir()
	env := map[string]string{"XDG_CONFIG_HOME": t.TempDir()}

	code, out, errOut := runTV(t, env, "-C", workDir, "init")
	require.Equal(t, 0, code, "init failed: %s", errOut)
	require.Contains(t, out, "Initialized empty library")

	db, err := sql.Open("sqlite3", filepath.Join(workDir, DefaultCatalogName))
	require.NoError(t, err)

	for _, stmt := range []string{
		`INSERT INTO tags (id, name) VALUES (1, 'Pet'), (2, 'Cat')`,
		`INSERT INTO tag_parents (tag_id, parent_id) VALUES (2, 1)`,
		`INSERT INTO entries (id, path, suffix) VALUES
			(1, 'photos/a.jpg', 'jpg'),
			(2, 'photos/b.png', 'png'),
			(3, 'notes/c.txt', 'txt')`,
		`INSERT INTO entry_tags (entry_id, tag_id) VALUES (1, 2), (2, 2)`,
	} {
		_, err := db.ExecContext(context.Background(), stmt)
		require.NoError(t, err, "exec %s", stmt)
	}

	require.NoError(t, db.Close())

	return workDir, env
}

// Contract: search resolves the project config written by init, applies tag
// inheritance, and prints one entry id per line in insertion order.
func Test_Run_Search_Against_Initialized_Library(t *testing.T) {
	t.Parallel()

	workDir, env := seedLibrary(t)

	code, out, errOut := runTV(t, env, "-C", workDir, "search", "tag:Pet")
	require.Equal(t, 0, code, "stderr: %s", errOut)
	require.Equal(t, "1\n2\n", out, "Cat entries inherit the Pet search")

	code, out, _ = runTV(t, env, "-C", workDir, "search", "--paths", "special:untagged")
	require.Equal(t, 0, code)
	require.Equal(t, "notes/c.txt\n", out)

	code, out, _ = runTV(t, env, "-C", workDir, "search", "--limit", "1", "--reverse", "tag:Pet")
	require.Equal(t, 0, code)
	require.Equal(t, "2\n", out)
}

// Contract: a malformed query exits non-zero and points at the offending
// offset with a caret on stderr.
func Test_Run_Search_Reports_Parse_Errors(t *testing.T) {
	t.Parallel()

	workDir, env := seedLibrary(t)

	code, _, errOut := runTV(t, env, "-C", workDir, "search", "cat AND")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "cat AND")
	require.Contains(t, errOut, "    ^", "caret under the dangling AND")
	require.Contains(t, errOut, "expected term after AND")
}

// Contract: tags lists names with shorthand, aliases, and parents; hidden
// tags only show with --hidden.
func Test_Run_Tags_Lists_Graph(t *testing.T) {
	t.Parallel()

	workDir, env := seedLibrary(t)

	db, err := sql.Open("sqlite3", filepath.Join(workDir, DefaultCatalogName))
	require.NoError(t, err)

	_, err = db.ExecContext(context.Background(),
		`INSERT INTO tags (id, name, shorthand, is_hidden) VALUES (3, 'Archive', 'arc', 1)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	code, out, _ := runTV(t, env, "-C", workDir, "tags")
	require.Equal(t, 0, code)
	require.Contains(t, out, "Pet")
	require.Contains(t, out, "Cat  < Pet")
	require.NotContains(t, out, "Archive")

	code, out, _ = runTV(t, env, "-C", workDir, "tags", "--hidden")
	require.Equal(t, 0, code)
	require.Contains(t, out, "Archive  (arc)")
}

// Contract: commands that need a library fail cleanly when none is
// configured, and unknown commands or flags exit non-zero with usage help.
func Test_Run_Error_Paths(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()
	env := map[string]string{"XDG_CONFIG_HOME": t.TempDir()}

	code, _, errOut := runTV(t, env, "-C", workDir, "search", "cat")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "no library configured")

	code, _, errOut = runTV(t, env, "-C", workDir, "frobnicate")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "unknown command")

	code, _, errOut = runTV(t, env, "--bogus")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "unknown flag")

	code, _, _ = runTV(t, env, "--help")
	require.Equal(t, 0, code)
}

// Contract: print-config shows the merged configuration and names the
// project file it came from.
func Test_Run_PrintConfig_Shows_Effective_Config(t *testing.T) {
	t.Parallel()

	workDir, env := seedLibrary(t)

	code, out, errOut := runTV(t, env, "-C", workDir, "print-config")
	require.Equal(t, 0, code)
	require.Contains(t, out, `"library": "library.tv"`)
	require.Contains(t, errOut, filepath.Join(workDir, ConfigFileName))
}

// Contract: --library points a command at a catalog without any config
// file present.
func Test_Run_Library_Flag_Overrides_Config(t *testing.T) {
	t.Parallel()

	workDir, env := seedLibrary(t)
	elsewhere := t.TempDir()

	catalogPath := filepath.Join(workDir, DefaultCatalogName)

	code, out, errOut := runTV(t, env, "-C", elsewhere, "--library", catalogPath, "search", "tag:Cat")
	require.Equal(t, 0, code, "stderr: %s", errOut)
	require.Equal(t, "1\n2\n", out)
}

// Contract: the global help lists every command with the description
// column aligned to the longest usage string.
func Test_Run_Help_Aligns_Command_Listing(t *testing.T) {
	t.Parallel()

	env := map[string]string{"XDG_CONFIG_HOME": t.TempDir()}

	code, out, _ := runTV(t, env, "--help")
	require.Equal(t, 0, code)

	col := -1

	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.HasPrefix(line, "  search "):
			col = strings.Index(line, "Search")
		case strings.HasPrefix(line, "  init "):
			require.Equal(t, col, strings.Index(line, "Create"), "description columns align")
		}
	}

	require.Positive(t, col, "search listed in help")
}
