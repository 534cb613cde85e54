package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/xsearch/internal/config"
	"github.com/standardbeagle/xsearch/internal/debug"
	"github.com/standardbeagle/xsearch/internal/process"
	"github.com/standardbeagle/xsearch/internal/search"
	"github.com/standardbeagle/xsearch/internal/version"
)

// Exit codes follow grep: 0 results, 1 nothing found, 2 error
const (
	exitNoResults = 1
	exitError     = 2
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			if msg := exitErr.Error(); msg != "" {
				fmt.Fprintln(os.Stderr, msg)
			}
			os.Exit(exitErr.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(exitError)
	}
}

func newApp() *cli.App {
	// -v belongs to --verbose
	cli.VersionFlag = &cli.BoolFlag{Name: "version", Usage: "print the version"}

	return &cli.App{
		Name:                   "xsearch",
		Usage:                  "Bounded, validated ripgrep/grep/find/ls searches with byte and character offsets",
		Version:                version.Info(),
		UseShortOptionHandling: true,
		ExitErrHandler:         func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path (default: " + config.KDLFileName + " or " + config.TOMLFileName + " in the root)",
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root directory (default: current directory)",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load XSEARCH_* overrides from this dotenv file if it exists",
				Value: ".env",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Show debug logging on stderr",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output as JSON",
			},
			&cli.BoolFlag{
				Name:  "absolute",
				Usage: "Print absolute paths instead of root-relative ones",
			},
		},
		Commands: []*cli.Command{
			searchCommandDef(),
			filesCommandDef(),
			lsCommandDef(),
			{
				Name:   "mcp",
				Usage:  "Serve the search tools over MCP on stdio",
				Action: mcpCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-watch",
						Usage: "Do not reload the config file when it changes",
					},
				},
			},
			{
				Name:            "validate",
				Usage:           "Check a command line against the backend allowlist and argument rules",
				ArgsUsage:       "<command> [args...]",
				SkipFlagParsing: true,
				Action:          validateCommand,
			},
			{
				Name:   "info",
				Usage:  "Show the effective config and available backends",
				Action: infoCommand,
			},
			{
				Name:  "config",
				Usage: "Configuration helpers",
				Subcommands: []*cli.Command{
					{
						Name:   "show",
						Usage:  "Print the effective configuration",
						Action: configShowCommand,
					},
					{
						Name:   "validate",
						Usage:  "Load and validate the configuration",
						Action: configValidateCommand,
					},
				},
			},
		},
		Before: func(c *cli.Context) error {
			return loadEnvFile(c.String("env-file"))
		},
		Action: func(c *cli.Context) error {
			if c.NArg() > 0 {
				return searchCommand(c)
			}
			if isMCPMode() {
				return mcpCommand(c)
			}
			return cli.ShowAppHelp(c)
		},
	}
}

// loadEnvFile applies a dotenv file; variables already set in the environment win
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// loadConfig loads configuration honoring the global --config and --root flags
func loadConfig(c *cli.Context) (*config.Config, error) {
	configPath := c.String("config")
	cfg, err := config.LoadWithRoot(configPath, c.String("root"))
	if err != nil {
		if configPath == "" {
			configPath = "project config"
		}
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}
	return cfg, nil
}

func newLogger(c *cli.Context) zerolog.Logger {
	return debug.NewConsoleLogger(c.App.ErrWriter, debug.Level(c.Bool("verbose")))
}

// newEngine builds the engine over a real process supervisor
func newEngine(c *cli.Context, logger zerolog.Logger) (*search.Engine, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	sup := process.NewSupervisor(process.Options{}, debug.Component(logger, "process"))
	return search.New(cfg, sup, debug.Component(logger, "search")), nil
}

// isMCPMode reports whether stdin looks like an MCP client rather than a terminal
func isMCPMode() bool {
	switch strings.ToLower(os.Getenv("XSEARCH_MCP_MODE")) {
	case "1", "true":
		return true
	}
	stat, err := os.Stdin.Stat()
	if err == nil && (stat.Mode()&os.ModeCharDevice) == 0 {
		return true
	}
	return strings.Contains(strings.ToLower(filepath.Base(os.Args[0])), "mcp")
}
