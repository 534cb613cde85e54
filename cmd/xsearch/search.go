package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/xsearch/internal/searchtypes"
)

func pagingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "per-page", Usage: "Files per page (default from config)"},
		&cli.IntFlag{Name: "page", Aliases: []string{"p"}, Usage: "1-based file page"},
		&cli.BoolFlag{Name: "sort-modified", Aliases: []string{"t"}, Usage: "Newest files first"},
	}
}

func searchCommandDef() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Aliases:   []string{"s"},
		Usage:     "Search file contents",
		ArgsUsage: "<pattern> [path]",
		Action:    searchCommand,
		Flags: append([]cli.Flag{
			&cli.BoolFlag{Name: "fixed-strings", Aliases: []string{"F"}, Usage: "Treat the pattern as literal text"},
			&cli.BoolFlag{Name: "ignore-case", Aliases: []string{"i"}, Usage: "Case-insensitive search"},
			&cli.BoolFlag{Name: "smart-case", Aliases: []string{"S"}, Usage: "Ignore case unless the pattern has an uppercase letter"},
			&cli.BoolFlag{Name: "word-regexp", Aliases: []string{"w"}, Usage: "Only match whole words"},
			&cli.BoolFlag{Name: "multiline", Aliases: []string{"U"}, Usage: "Let the pattern span lines (ripgrep only)"},
			&cli.BoolFlag{Name: "hidden", Usage: "Search hidden files"},
			&cli.BoolFlag{Name: "no-ignore", Usage: "Do not honor ignore files"},
			&cli.BoolFlag{Name: "invert-match", Usage: "Show lines that do not match"},
			&cli.IntFlag{Name: "context", Aliases: []string{"C"}, Usage: "Context lines around each match"},
			&cli.IntFlag{Name: "before-context", Aliases: []string{"B"}, Usage: "Context lines before each match"},
			&cli.IntFlag{Name: "after-context", Aliases: []string{"A"}, Usage: "Context lines after each match"},
			&cli.StringSliceFlag{Name: "type", Usage: "ripgrep file type to include (repeatable)"},
			&cli.StringSliceFlag{Name: "type-not", Usage: "ripgrep file type to skip (repeatable)"},
			&cli.StringSliceFlag{Name: "glob", Aliases: []string{"g"}, Usage: "Only search files matching the glob (repeatable)"},
			&cli.StringSliceFlag{Name: "exclude", Usage: "Skip files matching the glob (repeatable)"},
			&cli.StringSliceFlag{Name: "exclude-dir", Usage: "Skip directories with this name (repeatable)"},
			&cli.BoolFlag{Name: "files-with-matches", Aliases: []string{"l"}, Usage: "Only list matching files with counts"},
			&cli.IntFlag{Name: "max-count", Aliases: []string{"m"}, Usage: "Stop each file after this many matches"},
			&cli.IntFlag{Name: "matches-per-page", Usage: "Matches shown per file"},
			&cli.IntFlag{Name: "max-length", Usage: "Truncate match text to this many characters"},
			&cli.IntFlag{Name: "max-files", Usage: "Cap the number of files before paging"},
			&cli.StringFlag{Name: "encoding", Aliases: []string{"E"}, Usage: "Text encoding (ripgrep only)"},
			&cli.IntFlag{Name: "threads", Usage: "ripgrep worker threads"},
		}, pagingFlags()...),
	}
}

func filesCommandDef() *cli.Command {
	return &cli.Command{
		Name:      "files",
		Aliases:   []string{"f"},
		Usage:     "Enumerate paths with find",
		ArgsUsage: "[path]",
		Action:    filesCommand,
		Flags: append([]cli.Flag{
			&cli.StringSliceFlag{Name: "name", Aliases: []string{"n"}, Usage: "Base-name glob, repeat to OR"},
			&cli.StringFlag{Name: "iname", Usage: "Case-insensitive base-name glob"},
			&cli.StringFlag{Name: "path-glob", Usage: "Glob matched against the whole path"},
			&cli.StringFlag{Name: "regex", Usage: "POSIX extended regex matched against the whole path"},
			&cli.StringFlag{Name: "type", Usage: "Entry type: f, d or l"},
			&cli.IntFlag{Name: "min-depth", Usage: "Minimum depth"},
			&cli.IntFlag{Name: "max-depth", Usage: "Maximum depth"},
			&cli.StringFlag{Name: "size", Usage: "find -size expression, e.g. +10k"},
			&cli.StringFlag{Name: "perm", Usage: "find -perm expression"},
			&cli.StringFlag{Name: "within", Usage: "Modified within, e.g. 7d, 12h or 30m"},
			&cli.BoolFlag{Name: "empty", Usage: "Only empty files and directories"},
			&cli.StringSliceFlag{Name: "exclude-dir", Usage: "Skip directories with this name (repeatable)"},
			&cli.IntFlag{Name: "max-files", Usage: "Cap the number of paths before paging"},
		}, pagingFlags()...),
	}
}

func lsCommandDef() *cli.Command {
	return &cli.Command{
		Name:      "ls",
		Usage:     "List a directory",
		ArgsUsage: "[path]",
		Action:    lsCommand,
		Flags: append([]cli.Flag{
			&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "Include hidden entries"},
		}, pagingFlags()...),
	}
}

// intPtrFlag returns the flag value only when it was given on the command line
func intPtrFlag(c *cli.Context, name string) *int {
	if !c.IsSet(name) {
		return nil
	}
	v := c.Int(name)
	return &v
}

func searchQuery(c *cli.Context) (searchtypes.SearchQuery, error) {
	if c.NArg() == 0 {
		return searchtypes.SearchQuery{}, cli.Exit("search: missing <pattern>", exitError)
	}
	q := searchtypes.SearchQuery{
		Pattern:           c.Args().Get(0),
		Path:              c.Args().Get(1),
		FixedString:       c.Bool("fixed-strings"),
		CaseInsensitive:   c.Bool("ignore-case"),
		SmartCase:         c.Bool("smart-case"),
		WholeWord:         c.Bool("word-regexp"),
		Multiline:         c.Bool("multiline"),
		Hidden:            c.Bool("hidden"),
		NoIgnore:          c.Bool("no-ignore"),
		InvertMatch:       c.Bool("invert-match"),
		ContextLines:      c.Int("context"),
		BeforeContext:     intPtrFlag(c, "before-context"),
		AfterContext:      intPtrFlag(c, "after-context"),
		Types:             c.StringSlice("type"),
		ExcludeTypes:      c.StringSlice("type-not"),
		Globs:             c.StringSlice("glob"),
		ExcludeGlobs:      c.StringSlice("exclude"),
		ExcludeDirs:       c.StringSlice("exclude-dir"),
		FilesOnly:         c.Bool("files-with-matches"),
		MaxMatchesPerFile: c.Int("max-count"),
		FilesPerPage:      c.Int("per-page"),
		FilePageNumber:    c.Int("page"),
		MatchesPerPage:    c.Int("matches-per-page"),
		MaxMatchLength:    c.Int("max-length"),
		MaxFiles:          c.Int("max-files"),
		SortByModified:    c.Bool("sort-modified"),
		Encoding:          c.String("encoding"),
		Threads:           c.Int("threads"),
	}
	if c.IsSet("context") && q.ContextLines == 0 {
		zero := 0
		q.BeforeContext, q.AfterContext = &zero, &zero
	}
	return q, nil
}

func fileQuery(c *cli.Context) searchtypes.FileQuery {
	return searchtypes.FileQuery{
		Path:           c.Args().Get(0),
		Names:          c.StringSlice("name"),
		IName:          c.String("iname"),
		PathPattern:    c.String("path-glob"),
		Regex:          c.String("regex"),
		EntryType:      c.String("type"),
		MinDepth:       c.Int("min-depth"),
		MaxDepth:       c.Int("max-depth"),
		Size:           c.String("size"),
		Permissions:    c.String("perm"),
		ModifiedWithin: c.String("within"),
		Empty:          c.Bool("empty"),
		ExcludeDirs:    c.StringSlice("exclude-dir"),
		FilesPerPage:   c.Int("per-page"),
		FilePageNumber: c.Int("page"),
		MaxFiles:       c.Int("max-files"),
		SortByModified: c.Bool("sort-modified"),
	}
}

func listQuery(c *cli.Context) searchtypes.ListQuery {
	return searchtypes.ListQuery{
		Path:           c.Args().Get(0),
		All:            c.Bool("all"),
		FilesPerPage:   c.Int("per-page"),
		FilePageNumber: c.Int("page"),
		SortByModified: c.Bool("sort-modified"),
	}
}

// signalContext cancels on SIGINT/SIGTERM so a running backend is terminated
// through the supervisor instead of being orphaned
func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

func searchCommand(c *cli.Context) error {
	q, err := searchQuery(c)
	if err != nil {
		return err
	}
	logger := newLogger(c)
	engine, err := newEngine(c, logger)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}

	ctx, stop := signalContext(c)
	defer stop()
	return report(c, engine.Config().Project.Root, engine.Search(ctx, q))
}

func filesCommand(c *cli.Context) error {
	logger := newLogger(c)
	engine, err := newEngine(c, logger)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}

	ctx, stop := signalContext(c)
	defer stop()
	return report(c, engine.Config().Project.Root, engine.FindFiles(ctx, fileQuery(c)))
}

func lsCommand(c *cli.Context) error {
	logger := newLogger(c)
	engine, err := newEngine(c, logger)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}

	ctx, stop := signalContext(c)
	defer stop()
	return report(c, engine.Config().Project.Root, engine.ListDirectory(ctx, listQuery(c)))
}
