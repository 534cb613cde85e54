package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/xsearch/internal/config"
	"github.com/standardbeagle/xsearch/internal/debug"
	xerrors "github.com/standardbeagle/xsearch/internal/errors"
	"github.com/standardbeagle/xsearch/internal/mcp"
	"github.com/standardbeagle/xsearch/internal/process"
	"github.com/standardbeagle/xsearch/internal/search"
	"github.com/standardbeagle/xsearch/internal/security"
	"github.com/standardbeagle/xsearch/internal/version"
)

func mcpCommand(c *cli.Context) error {
	debug.SetMCPMode(true)
	diag := mcp.NewDiagnosticLogger(true, debug.Level(c.Bool("verbose")))
	logger := diag.Logger()

	cfg, err := loadConfig(c)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load config")
		_ = diag.Close()
		return cli.Exit(err.Error(), exitError)
	}

	sup := process.NewSupervisor(process.Options{}, debug.Component(logger, "process"))
	engine := search.New(cfg, sup, debug.Component(logger, "search"))

	var watcher *config.Watcher
	if !c.Bool("no-watch") {
		watcher, err = config.NewWatcher(cfg, c.String("config"), debug.Component(logger, "config"))
		if err != nil {
			logger.Warn().Err(err).Msg("config reload disabled")
		}
	}

	if c.Bool("verbose") {
		fmt.Fprintf(c.App.ErrWriter, "MCP diagnostics: %s\n", diag.GetLogPath())
	}

	server := mcp.NewServer(engine, watcher, diag)
	ctx, stop := signalContext(c)
	defer stop()

	err = xerrors.NewMultiError([]error{server.Start(ctx), server.Shutdown()}).ErrOrNil()
	if err != nil {
		return cli.Exit(fmt.Sprintf("MCP server error: %v", err), exitError)
	}
	return nil
}

// argReport is one classified argument as printed by validate
type argReport struct {
	Index  int    `json:"index"`
	Arg    string `json:"arg"`
	Role   string `json:"role"`
	Exempt bool   `json:"exempt,omitempty"`
}

type validateReport struct {
	Command string      `json:"command"`
	Valid   bool        `json:"valid"`
	Error   string      `json:"error,omitempty"`
	Args    []argReport `json:"args"`
}

func validateCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("validate: missing <command>", exitError)
	}
	argv := c.Args().Slice()
	cmd, args := argv[0], argv[1:]

	rep := validateReport{Command: cmd, Valid: true, Args: []argReport{}}
	if err := security.Validate(cmd, args); err != nil {
		rep.Valid = false
		rep.Error = err.Error()
	}
	if security.IsAllowed(cmd) {
		for _, ac := range security.Classify(cmd, args) {
			rep.Args = append(rep.Args, argReport{Index: ac.Index, Arg: ac.Arg, Role: ac.Role.String(), Exempt: ac.Exempt})
		}
	}

	if c.Bool("json") {
		if err := writeJSON(c.App.Writer, rep); err != nil {
			return cli.Exit(err.Error(), exitError)
		}
	} else {
		w := c.App.Writer
		for _, a := range rep.Args {
			exempt := ""
			if a.Exempt {
				exempt = " (exempt)"
			}
			fmt.Fprintf(w, "%3d  %-13s %s%s\n", a.Index, a.Role, security.ShellQuote(a.Arg), exempt)
		}
		if rep.Valid {
			fmt.Fprintf(w, "ok: %s\n", security.ShellQuote(cmd))
		}
	}

	if !rep.Valid {
		return cli.Exit(rep.Error, exitError)
	}
	return nil
}

func infoCommand(c *cli.Context) error {
	logger := newLogger(c)
	engine, err := newEngine(c, logger)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}

	ctx, stop := signalContext(c)
	defer stop()
	info := engine.Info(ctx)

	if c.Bool("json") {
		if err := writeJSON(c.App.Writer, info); err != nil {
			return cli.Exit(err.Error(), exitError)
		}
		return nil
	}

	w := c.App.Writer
	fmt.Fprintf(w, "version:  %s\n", version.FullInfo())
	fmt.Fprintf(w, "project:  %s\n", info.Project)
	fmt.Fprintf(w, "root:     %s\n", info.Root)
	fmt.Fprintf(w, "search:   %s\n", info.SearchBackend)
	fmt.Fprintf(w, "limits:   timeout %dms, kill grace %dms, output %d bytes\n",
		info.Limits.TimeoutMs, info.Limits.KillGraceMs, info.Limits.MaxOutputBytes)
	if len(info.ConfigSources) > 0 {
		fmt.Fprintf(w, "config:   %s\n", strings.Join(info.ConfigSources, ", "))
	}
	for _, b := range info.Backends {
		switch {
		case !b.Available:
			fmt.Fprintf(w, "  %-5s unavailable: %s\n", b.Name, b.Error)
		case b.Version != "":
			fmt.Fprintf(w, "  %-5s %s (%s)\n", b.Name, b.Binary, b.Version)
		default:
			fmt.Fprintf(w, "  %-5s %s\n", b.Name, b.Binary)
		}
	}
	return nil
}

func configShowCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}
	if c.Bool("json") {
		if err := writeJSON(c.App.Writer, cfg); err != nil {
			return cli.Exit(err.Error(), exitError)
		}
		return nil
	}

	data, err := config.EncodeTOML(cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}
	for _, src := range cfg.Sources {
		fmt.Fprintf(c.App.Writer, "# from %s\n", src)
	}
	_, err = c.App.Writer.Write(data)
	return err
}

func configValidateCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}
	if len(cfg.Sources) == 0 {
		fmt.Fprintln(c.App.Writer, "config ok (built-in defaults)")
		return nil
	}
	fmt.Fprintf(c.App.Writer, "config ok: %s\n", strings.Join(cfg.Sources, ", "))
	return nil
}
