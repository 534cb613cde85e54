// Package command translates structured queries into validated argument vectors
// for the search and enumeration backends.
package command

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	xerrors "github.com/standardbeagle/xsearch/internal/errors"
	"github.com/standardbeagle/xsearch/internal/searchtypes"
	"github.com/standardbeagle/xsearch/internal/security"
)

// Backend names. These are the logical command names checked by the validator.
const (
	Ripgrep = "rg"
	GNUGrep = "grep"
	FindCmd = "find"
	ListCmd = "ls"
)

// Command is a validated argument vector for one backend.
// Unsupported lists query features the backend cannot honor.
type Command struct {
	Name        string
	Args        []string
	Unsupported []string
}

// String renders the command for logs. It is never passed to a shell.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	for _, a := range c.Args {
		parts = append(parts, security.ShellQuote(a))
	}
	return strings.Join(parts, " ")
}

var (
	errEmptyPattern = errors.New("pattern is required")
	errEmptyPath    = errors.New("path is required")
)

// ForSearch builds the content search command for the named backend
func ForSearch(backend string, q searchtypes.SearchQuery) (Command, error) {
	switch backend {
	case Ripgrep:
		return BuildRipgrep(q)
	case GNUGrep:
		return BuildGrep(q)
	default:
		return Command{}, fmt.Errorf("backend %q does not support content search", backend)
	}
}

// BuildRipgrep builds an rg invocation. The structured --json stream is always
// requested, also in files-only mode, so the summary's match count is available.
func BuildRipgrep(q searchtypes.SearchQuery) (Command, error) {
	if err := checkSearchQuery(q); err != nil {
		return Command{}, err
	}

	args := []string{"--json", "--no-config"}

	switch {
	case q.CaseInsensitive:
		args = append(args, "-i")
	case q.SmartCase:
		args = append(args, "-S")
	}
	if q.FixedString {
		args = append(args, "-F")
	}
	if q.WholeWord {
		args = append(args, "-w")
	}
	if q.Multiline {
		args = append(args, "-U", "--multiline-dotall")
	}
	if q.Hidden {
		args = append(args, "--hidden")
	}
	if q.NoIgnore {
		args = append(args, "--no-ignore")
	}
	if q.InvertMatch {
		args = append(args, "-v")
	}

	if !q.FilesOnly {
		before, after := q.ContextRadius()
		switch {
		case before == after && before > 0:
			args = append(args, "-C", strconv.Itoa(before))
		default:
			if before > 0 {
				args = append(args, "-B", strconv.Itoa(before))
			}
			if after > 0 {
				args = append(args, "-A", strconv.Itoa(after))
			}
		}
	}

	for _, t := range q.Types {
		args = append(args, "--type", t)
	}
	for _, t := range q.ExcludeTypes {
		args = append(args, "--type-not", t)
	}
	for _, g := range q.Globs {
		args = append(args, "--glob", g)
	}
	for _, g := range q.ExcludeGlobs {
		args = append(args, "--glob", "!"+g)
	}
	for _, d := range q.ExcludeDirs {
		args = append(args, "--glob", "!"+strings.Trim(d, "/"))
	}

	if q.MaxMatchesPerFile > 0 {
		args = append(args, "--max-count", strconv.Itoa(q.MaxMatchesPerFile))
	}
	if q.Threads > 0 {
		args = append(args, "--threads", strconv.Itoa(q.Threads))
	}
	if q.Encoding != "" {
		args = append(args, "--encoding", q.Encoding)
	}

	args = append(args, "--", q.Pattern, q.Path)
	return validated(Command{Name: Ripgrep, Args: args})
}

// BuildGrep builds the line-oriented fallback invocation
func BuildGrep(q searchtypes.SearchQuery) (Command, error) {
	if err := checkSearchQuery(q); err != nil {
		return Command{}, err
	}

	cmd := Command{Name: GNUGrep}
	args := []string{"-r", "-n", "-H", "-I", "--color=never"}

	if q.CaseInsensitive || (q.SmartCase && !hasUpper(q.Pattern)) {
		args = append(args, "-i")
	}
	if q.WholeWord {
		args = append(args, "-w")
	}
	if q.FixedString {
		args = append(args, "-F")
	} else {
		args = append(args, "-E")
	}
	if q.InvertMatch {
		args = append(args, "-v")
	}
	if q.FilesOnly {
		args = append(args, "-l")
	}
	if q.MaxMatchesPerFile > 0 {
		args = append(args, "-m", strconv.Itoa(q.MaxMatchesPerFile))
	}
	for _, g := range q.Globs {
		args = append(args, "--include="+g)
	}
	for _, g := range q.ExcludeGlobs {
		args = append(args, "--exclude="+g)
	}
	for _, d := range q.ExcludeDirs {
		args = append(args, "--exclude-dir="+strings.Trim(d, "/"))
	}

	if before, after := q.ContextRadius(); (before > 0 || after > 0) && !q.FilesOnly {
		cmd.Unsupported = append(cmd.Unsupported, "context lines")
	}
	if q.Multiline {
		cmd.Unsupported = append(cmd.Unsupported, "multiline patterns")
	}
	if len(q.Types) > 0 || len(q.ExcludeTypes) > 0 {
		cmd.Unsupported = append(cmd.Unsupported, "file type filters")
	}
	if q.Encoding != "" {
		cmd.Unsupported = append(cmd.Unsupported, "encoding")
	}

	cmd.Args = append(args, "--", q.Pattern, q.Path)
	return validated(cmd)
}

var (
	sizePattern  = regexp.MustCompile(`^[+-]?\d+[bcwkMG]?$`)
	permPattern  = regexp.MustCompile(`^[-/]?([0-7]{3,4}|[ugoa]*[-+=][rwxXst]+)$`)
	sincePattern = regexp.MustCompile(`^(\d+)([mhd])$`)
)

// BuildFind builds a find invocation for path enumeration
func BuildFind(q searchtypes.FileQuery) (Command, error) {
	if strings.TrimSpace(q.Path) == "" {
		return Command{}, xerrors.NewQueryError("path", errEmptyPath)
	}

	for _, n := range q.Names {
		if err := checkGlob("names", n); err != nil {
			return Command{}, err
		}
	}

	args := []string{q.Path}

	// GNU find warns when depth options follow other predicates
	if q.MinDepth > 0 {
		args = append(args, "-mindepth", strconv.Itoa(q.MinDepth))
	}
	if q.MaxDepth > 0 {
		args = append(args, "-maxdepth", strconv.Itoa(q.MaxDepth))
	}

	for _, d := range q.ExcludeDirs {
		args = append(args, "-not", "-path", "*/"+strings.Trim(d, "/")+"/*")
	}

	switch len(q.Names) {
	case 0:
	case 1:
		args = append(args, "-name", q.Names[0])
	default:
		args = append(args, "(")
		for i, n := range q.Names {
			if i > 0 {
				args = append(args, "-o")
			}
			args = append(args, "-name", n)
		}
		args = append(args, ")")
	}
	if q.IName != "" {
		args = append(args, "-iname", q.IName)
	}
	if q.PathPattern != "" {
		args = append(args, "-path", q.PathPattern)
	}
	if q.Regex != "" {
		if _, err := regexp.Compile(q.Regex); err != nil {
			return Command{}, xerrors.NewQueryError("regex", err)
		}
		args = append(args, "-regextype", "posix-extended", "-regex", q.Regex)
	}

	if q.EntryType != "" {
		switch q.EntryType {
		case "f", "d", "l":
			args = append(args, "-type", q.EntryType)
		default:
			return Command{}, xerrors.NewQueryError("entryType", fmt.Errorf("unknown entry type %q (want f, d or l)", q.EntryType))
		}
	}
	if q.Size != "" {
		if !sizePattern.MatchString(q.Size) {
			return Command{}, xerrors.NewQueryError("size", fmt.Errorf("invalid size %q", q.Size))
		}
		args = append(args, "-size", q.Size)
	}
	if q.Permissions != "" {
		if !permPattern.MatchString(q.Permissions) {
			return Command{}, xerrors.NewQueryError("permissions", fmt.Errorf("invalid mode %q", q.Permissions))
		}
		args = append(args, "-perm", q.Permissions)
	}
	if q.ModifiedWithin != "" {
		m := sincePattern.FindStringSubmatch(q.ModifiedWithin)
		if m == nil {
			return Command{}, xerrors.NewQueryError("modifiedWithin", fmt.Errorf("invalid duration %q (want e.g. 7d, 12h or 30m)", q.ModifiedWithin))
		}
		n, _ := strconv.Atoi(m[1])
		switch m[2] {
		case "d":
			args = append(args, "-mtime", "-"+strconv.Itoa(n))
		case "h":
			args = append(args, "-mmin", "-"+strconv.Itoa(n*60))
		case "m":
			args = append(args, "-mmin", "-"+strconv.Itoa(n))
		}
	}
	if q.Empty {
		args = append(args, "-empty")
	}

	args = append(args, "-print")
	return validated(Command{Name: FindCmd, Args: args})
}

// BuildList builds a single-directory listing. -p marks directories with a
// trailing slash so the parser can tell entries apart without stat calls.
func BuildList(q searchtypes.ListQuery) (Command, error) {
	if strings.TrimSpace(q.Path) == "" {
		return Command{}, xerrors.NewQueryError("path", errEmptyPath)
	}
	args := []string{"-1", "-p"}
	if q.All {
		args = append(args, "-A")
	}
	args = append(args, "--", q.Path)
	return validated(Command{Name: ListCmd, Args: args})
}

func checkSearchQuery(q searchtypes.SearchQuery) error {
	if q.Pattern == "" {
		return xerrors.NewQueryError("pattern", errEmptyPattern)
	}
	if strings.TrimSpace(q.Path) == "" {
		return xerrors.NewQueryError("path", errEmptyPath)
	}
	for _, g := range q.Globs {
		if err := checkGlob("globs", g); err != nil {
			return err
		}
	}
	for _, g := range q.ExcludeGlobs {
		if err := checkGlob("excludeGlobs", g); err != nil {
			return err
		}
	}
	if q.MaxMatchesPerFile < 0 {
		return xerrors.NewQueryError("maxMatchesPerFile", errors.New("must not be negative"))
	}
	return nil
}

func checkGlob(field, glob string) error {
	if glob == "" || !doublestar.ValidatePattern(glob) {
		return xerrors.NewQueryError(field, fmt.Errorf("invalid glob %q", glob))
	}
	return nil
}

func validated(c Command) (Command, error) {
	if err := security.Validate(c.Name, c.Args); err != nil {
		return Command{}, err
	}
	return c, nil
}

func hasUpper(s string) bool {
	return strings.ToLower(s) != s
}
