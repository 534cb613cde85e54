// Package search runs one query end to end: validate and build the argument
// vector, supervise the backend, parse its output, then sort, cap, window and
// reconcile the surviving matches into a SearchResult.
package search

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cli/safeexec"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/standardbeagle/xsearch/internal/command"
	"github.com/standardbeagle/xsearch/internal/config"
	xerrors "github.com/standardbeagle/xsearch/internal/errors"
	"github.com/standardbeagle/xsearch/internal/offsets"
	"github.com/standardbeagle/xsearch/internal/pagination"
	"github.com/standardbeagle/xsearch/internal/parser"
	"github.com/standardbeagle/xsearch/internal/process"
	"github.com/standardbeagle/xsearch/internal/searchtypes"
)

//go:generate mockgen -source=engine.go -destination=mocks/mock_runner.go -package=mocks Runner

// Runner executes one backend process. *process.Supervisor implements it.
type Runner interface {
	Run(ctx context.Context, name string, args []string, opts process.Options) *process.Result
	Check(ctx context.Context, name string, args []string, opts process.Options) bool
	Output(ctx context.Context, name string, args []string, opts process.Options) (string, error)
}

var _ Runner = (*process.Supervisor)(nil)

const (
	// MaxStderrRunes bounds the stderr text carried on an error result
	MaxStderrRunes = 4096

	warnFallback = "ripgrep is unavailable; using the grep fallback (no byte offsets, no multiline patterns, no backend statistics)"
	warnLegacy   = "ripgrep disabled by backends.prefer_legacy; using grep (no byte offsets, no multiline patterns, no backend statistics)"
)

type Engine struct {
	runner     Runner
	reconciler *offsets.Reconciler
	logger     zerolog.Logger

	lookPath func(string) (string, error)
	stat     func(string) (os.FileInfo, error)
	newID    func() string

	mu     sync.RWMutex
	cfg    *config.Config
	probes map[string]bool // ripgrep availability per resolved binary
}

// New creates an engine. cfg must already be validated.
func New(cfg *config.Config, runner Runner, logger zerolog.Logger) *Engine {
	return &Engine{
		runner:     runner,
		reconciler: offsets.New(logger),
		logger:     logger,
		lookPath:   safeexec.LookPath,
		stat:       os.Stat,
		newID:      uuid.NewString,
		cfg:        cfg,
		probes:     make(map[string]bool),
	}
}

// Config returns the configuration used for new invocations
func (e *Engine) Config() *config.Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// SetConfig swaps the configuration for subsequent invocations and forgets
// cached backend probes. In-flight invocations keep the config they started with.
func (e *Engine) SetConfig(cfg *config.Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
	e.probes = make(map[string]bool)
}

// invocation carries the per-call state shared by every step of one query
type invocation struct {
	id     string
	cfg    *config.Config
	start  time.Time
	log    zerolog.Logger
	result *searchtypes.SearchResult
}

func (e *Engine) begin(kind string) *invocation {
	id := e.newID()
	return &invocation{
		id:    id,
		cfg:   e.Config(),
		start: time.Now(),
		log:   e.logger.With().Str("invocation", id).Str("operation", kind).Logger(),
		result: &searchtypes.SearchResult{
			Files:        []searchtypes.FileMatches{},
			InvocationID: id,
		},
	}
}

func (inv *invocation) finish() *searchtypes.SearchResult {
	r := inv.result
	r.ElapsedMs = time.Since(inv.start).Milliseconds()
	if r.Error != nil {
		r.Status = searchtypes.StatusError
	} else if r.TotalFiles == 0 && len(r.Files) == 0 {
		// a page past the end of a non-empty result set still has results
		r.Status = searchtypes.StatusEmpty
	} else {
		r.Status = searchtypes.StatusHasResults
	}
	inv.log.Debug().
		Str("status", string(r.Status)).
		Int("files", r.TotalFiles).
		Int("matches", r.TotalMatches).
		Int64("elapsed_ms", r.ElapsedMs).
		Msg("invocation finished")
	return r
}

func (inv *invocation) fail(err error) *searchtypes.SearchResult {
	inv.log.Debug().Err(err).Msg("invocation failed")
	inv.result.Error = errorInfo(err, time.Since(inv.start))
	return inv.finish()
}

// Search runs a content search. It never returns nil and never returns a Go
// error: every failure is reported on the result with status "error".
func (e *Engine) Search(ctx context.Context, q searchtypes.SearchQuery) *searchtypes.SearchResult {
	inv := e.begin("search")
	q = applySearchDefaults(q, inv.cfg)

	// reject bad queries before any process exists, the availability probe included
	if _, err := command.BuildRipgrep(q); err != nil {
		return inv.fail(err)
	}

	backend, bin, err := e.selectBackend(ctx, inv)
	if err != nil {
		return inv.fail(err)
	}
	inv.result.SearchEngine = backend

	cmd, err := command.ForSearch(backend, q)
	if err != nil {
		return inv.fail(err)
	}
	if len(cmd.Unsupported) > 0 {
		inv.result.AddWarning("grep fallback ignores: " + strings.Join(cmd.Unsupported, ", "))
	}

	inv.log.Debug().Str("argv", cmd.String()).Msg("running search backend")
	res := e.runner.Run(ctx, bin, cmd.Args, processOptions(inv.cfg))

	raw, ok := e.interpret(inv, res, 1)
	if !ok {
		return inv.finish()
	}

	var out parser.Output
	if backend == command.Ripgrep {
		out = parser.ParseJSON(raw, q)
	} else {
		out = parser.ParseLegacy(raw, q)
	}
	inv.result.Stats = out.Stats

	files, excluded := e.exclude(inv.cfg, out.Files)
	opts := pagination.FromQuery(q, out.Stats)
	if excluded {
		opts.ReportedMatches = nil
	}
	if q.SortByModified {
		e.fillFileInfo(files)
	}

	page := pagination.Paginate(files, opts)
	if !q.SortByModified {
		e.fillFileInfo(page.Files)
	}
	if backend == command.Ripgrep && !q.FilesOnly {
		page.Files = e.reconciler.Reconcile(ctx, page.Files)
	}
	setPage(inv.result, page)
	return inv.finish()
}

// FindFiles enumerates paths with find
func (e *Engine) FindFiles(ctx context.Context, q searchtypes.FileQuery) *searchtypes.SearchResult {
	inv := e.begin("find_files")
	inv.result.SearchEngine = command.FindCmd
	q.Path = resolvePath(inv.cfg.Project.Root, q.Path)
	if q.FilesPerPage == 0 {
		q.FilesPerPage = inv.cfg.Search.FilesPerPage
	}
	if q.MaxFiles == 0 {
		q.MaxFiles = inv.cfg.Search.MaxFiles
	}

	cmd, err := command.BuildFind(q)
	if err != nil {
		return inv.fail(err)
	}
	bin, err := e.resolve(inv.cfg.Backends.Find)
	if err != nil {
		return inv.fail(err)
	}

	inv.log.Debug().Str("argv", cmd.String()).Msg("running find")
	res := e.runner.Run(ctx, bin, cmd.Args, processOptions(inv.cfg))
	raw, ok := e.interpretEnumeration(inv, res)
	if !ok {
		return inv.finish()
	}

	files, _ := e.exclude(inv.cfg, parser.ParsePaths(raw).Files)
	e.paginatePaths(inv, files, pagination.Options{
		FilesPerPage:   q.FilesPerPage,
		FilePageNumber: q.FilePageNumber,
		MaxFiles:       q.MaxFiles,
		SortByModified: q.SortByModified,
	})
	return inv.finish()
}

// ListDirectory lists one directory with ls
func (e *Engine) ListDirectory(ctx context.Context, q searchtypes.ListQuery) *searchtypes.SearchResult {
	inv := e.begin("list_directory")
	inv.result.SearchEngine = command.ListCmd
	q.Path = resolvePath(inv.cfg.Project.Root, q.Path)
	if q.FilesPerPage == 0 {
		q.FilesPerPage = inv.cfg.Search.FilesPerPage
	}

	cmd, err := command.BuildList(q)
	if err != nil {
		return inv.fail(err)
	}
	bin, err := e.resolve(inv.cfg.Backends.Ls)
	if err != nil {
		return inv.fail(err)
	}

	res := e.runner.Run(ctx, bin, cmd.Args, processOptions(inv.cfg))
	raw, ok := e.interpret(inv, res, 0)
	if !ok {
		return inv.finish()
	}

	files, _ := e.exclude(inv.cfg, parser.ParseListing(raw, q.Path).Files)
	e.paginatePaths(inv, files, pagination.Options{
		FilesPerPage:   q.FilesPerPage,
		FilePageNumber: q.FilePageNumber,
		SortByModified: q.SortByModified,
	})
	return inv.finish()
}

func (e *Engine) paginatePaths(inv *invocation, files []searchtypes.FileMatches, opts pagination.Options) {
	if opts.SortByModified {
		e.fillFileInfo(files)
	}
	page := pagination.Paginate(files, opts)
	if !opts.SortByModified {
		e.fillFileInfo(page.Files)
	}
	setPage(inv.result, page)
}

// interpret applies the exit-code convention and returns the stdout to parse.
// noMatchCode is the exit status meaning "nothing found" (1 for rg and grep);
// 0 disables it. ok is false when there is nothing to parse.
func (e *Engine) interpret(inv *invocation, res *process.Result, noMatchCode int) ([]byte, bool) {
	switch {
	case res.TimedOut || res.OutputLimitExceeded:
		inv.result.Error = errorInfo(res.Err, res.Duration)
		inv.result.AddWarning("results are partial: " + inv.result.Error.Limit + " reached")
		inv.log.Warn().Str("limit", inv.result.Error.Limit).Int("stdout_bytes", len(res.Stdout)).Msg("backend stopped early")
		return []byte(res.Stdout), true

	case res.Err != nil:
		inv.result.Error = errorInfo(res.Err, res.Duration)
		return nil, false

	case res.ExitCode == nil:
		inv.result.Error = errorInfo(xerrors.NewProcessError(xerrors.ErrorTypeBackend, res.Command,
			errors.New("terminated by signal")).WithOutput(nil, res.Stderr, res.Duration), res.Duration)
		return nil, false

	case *res.ExitCode == 0:
		return []byte(res.Stdout), true

	case noMatchCode != 0 && *res.ExitCode == noMatchCode:
		return nil, false

	default:
		err := xerrors.NewProcessError(xerrors.ErrorTypeBackend, res.Command, nil).
			WithOutput(res.ExitCode, res.Stderr, res.Duration)
		inv.result.Error = errorInfo(err, res.Duration)
		return nil, false
	}
}

// interpretEnumeration is interpret for find, which exits 1 when some
// directories could not be read but still prints everything it reached
func (e *Engine) interpretEnumeration(inv *invocation, res *process.Result) ([]byte, bool) {
	if res.Err == nil && res.ExitCode != nil && *res.ExitCode == 1 && strings.TrimSpace(res.Stdout) != "" {
		inv.result.AddWarning("some paths could not be read: " + firstLine(res.Stderr))
		return []byte(res.Stdout), true
	}
	return e.interpret(inv, res, 0)
}

// selectBackend prefers ripgrep and falls back to grep with a warning
func (e *Engine) selectBackend(ctx context.Context, inv *invocation) (string, string, error) {
	cfg := inv.cfg
	if cfg.Backends.PreferLegacy {
		inv.result.AddWarning(warnLegacy)
	} else if bin, ok := e.ripgrepAvailable(ctx, cfg); ok {
		return command.Ripgrep, bin, nil
	} else {
		inv.result.AddWarning(warnFallback)
	}

	bin, err := e.resolve(cfg.Backends.Grep)
	if err != nil {
		return command.GNUGrep, "", err
	}
	return command.GNUGrep, bin, nil
}

func (e *Engine) ripgrepAvailable(ctx context.Context, cfg *config.Config) (string, bool) {
	bin, err := e.lookPath(cfg.Backends.Ripgrep)
	if err != nil {
		return "", false
	}

	e.mu.RLock()
	ok, probed := e.probes[bin]
	e.mu.RUnlock()
	if probed {
		return bin, ok
	}

	ok = e.runner.Check(ctx, bin, []string{"--version"}, process.Options{
		Timeout:        cfg.Process.ProbeTimeout(),
		MaxOutputBytes: process.OutputMaxBytes,
	})
	// a canceled probe says nothing about the binary
	if ctx.Err() == nil {
		e.mu.Lock()
		e.probes[bin] = ok
		e.mu.Unlock()
	}
	e.logger.Debug().Str("binary", bin).Bool("available", ok).Msg("ripgrep probe")
	return bin, ok
}

func (e *Engine) resolve(name string) (string, error) {
	bin, err := e.lookPath(name)
	if err != nil {
		return "", xerrors.NewProcessError(xerrors.ErrorTypeSpawn, name, err)
	}
	return bin, nil
}

// exclude drops files matching the configured exclude globs. The globs are
// matched against the path relative to the project root.
func (e *Engine) exclude(cfg *config.Config, files []searchtypes.FileMatches) ([]searchtypes.FileMatches, bool) {
	if len(cfg.Exclude) == 0 {
		return files, false
	}
	kept := files[:0:0]
	for _, f := range files {
		if !excluded(cfg.Exclude, cfg.Project.Root, f.Path) {
			kept = append(kept, f)
		}
	}
	return kept, len(kept) != len(files)
}

func excluded(patterns []string, root, path string) bool {
	rel := path
	if filepath.IsAbs(path) {
		if r, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(r, "..") {
			rel = r
		}
	}
	rel = filepath.ToSlash(rel)
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(p, strings.TrimSuffix(rel, "/")+"/"); ok {
			return true
		}
	}
	return false
}

// fillFileInfo records modification time and kind; files that vanished keep nil
func (e *Engine) fillFileInfo(files []searchtypes.FileMatches) {
	for i := range files {
		info, err := e.stat(files[i].Path)
		if err != nil {
			continue
		}
		mod := info.ModTime()
		files[i].LastModified = &mod
		files[i].IsDir = files[i].IsDir || info.IsDir()
	}
}

func setPage(r *searchtypes.SearchResult, page pagination.Page) {
	r.Files = page.Files
	r.TotalFiles = page.TotalFiles
	r.TotalMatches = page.TotalMatches
	r.Pagination = page.Pagination
	r.Capped = page.Capped
	if page.Capped {
		r.AddWarning("result set capped at maxFiles; narrow the query to see the rest")
	}
}

func applySearchDefaults(q searchtypes.SearchQuery, cfg *config.Config) searchtypes.SearchQuery {
	q.Path = resolvePath(cfg.Project.Root, q.Path)
	s := cfg.Search
	if q.ContextLines == 0 && q.BeforeContext == nil && q.AfterContext == nil {
		q.ContextLines = s.ContextLines
	}
	if q.MaxMatchLength == 0 {
		q.MaxMatchLength = s.MaxMatchLength
	}
	if q.FilesPerPage == 0 {
		q.FilesPerPage = s.FilesPerPage
	}
	if q.MatchesPerPage == 0 {
		q.MatchesPerPage = s.MatchesPerPage
	}
	if q.MaxFiles == 0 {
		q.MaxFiles = s.MaxFiles
	}
	if q.MaxMatchesPerFile == 0 {
		q.MaxMatchesPerFile = s.MaxMatchesPerFile
	}
	if q.Threads == 0 {
		q.Threads = s.Threads
	}
	return q
}

// resolvePath anchors relative paths at the project root. The result is not
// cleaned: ".." segments must still reach the validator.
func resolvePath(root, p string) string {
	switch {
	case p == "" || p == ".":
		return root
	case filepath.IsAbs(p):
		return p
	default:
		return root + string(filepath.Separator) + p
	}
}

func processOptions(cfg *config.Config) process.Options {
	return process.Options{
		Timeout:        cfg.Process.Timeout(),
		KillGrace:      cfg.Process.KillGrace(),
		MaxOutputBytes: cfg.Process.MaxOutputBytes,
		AllowEnvVars:   cfg.Process.AllowEnv,
		Dir:            cfg.Project.Root,
	}
}

// errorInfo flattens a pipeline error into the wire shape
func errorInfo(err error, elapsed time.Duration) *searchtypes.ErrorInfo {
	info := &searchtypes.ErrorInfo{
		Type:      string(xerrors.TypeOf(err)),
		Message:   err.Error(),
		ElapsedMs: elapsed.Milliseconds(),
	}
	var pe *xerrors.ProcessError
	if errors.As(err, &pe) {
		info.Stderr = parser.TruncateRunes(pe.Stderr, MaxStderrRunes)
		info.ExitCode = pe.ExitCode
		info.Limit = pe.Limit
		info.Retryable = pe.IsRetryable()
		if pe.Elapsed > 0 {
			info.ElapsedMs = pe.Elapsed.Milliseconds()
		}
	}
	return info
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
