package security

import (
	"regexp"
	"slices"
	"strings"

	"github.com/hbollon/go-edlib"

	xerrors "github.com/standardbeagle/xsearch/internal/errors"
)

// allowedCommands is the complete set of binaries the pipeline may spawn.
// Anything else is rejected, never "unknown but permitted".
var allowedCommands = []string{"find", "grep", "ls", "rg"}

// suggestionThreshold is the Jaro-Winkler similarity above which a rejected
// command name gets a "did you mean" hint
const suggestionThreshold = 0.8

// dangerousRule is one class of argument content that could be interpreted by a
// shell or escape the search root. Rules are checked in order so the most
// specific reason is reported.
type dangerousRule struct {
	name string
	re   *regexp.Regexp
}

var dangerousRules = []dangerousRule{
	{name: "null byte", re: regexp.MustCompile("\x00")},
	{name: "line break", re: regexp.MustCompile(`[\r\n]`)},
	{name: "command substitution", re: regexp.MustCompile("\\$\\(|\\$\\{|`")},
	{name: "path traversal", re: regexp.MustCompile(`(^|[/\\])\.\.([/\\]|$)`)},
	{name: "shell metacharacter", re: regexp.MustCompile(`[;&|$<>(){}\[\]]`)},
}

// AllowedCommands returns a copy of the command allowlist
func AllowedCommands() []string {
	return slices.Clone(allowedCommands)
}

// IsAllowed reports whether command is in the allowlist
func IsAllowed(command string) bool {
	return slices.Contains(allowedCommands, command)
}

// Validate checks a command and its argument vector before any process is spawned.
// Arguments in pattern-bearing positions (see Classify) are exempt from the
// dangerous-content rules; every other argument must pass all of them.
func Validate(command string, args []string) error {
	if !IsAllowed(command) {
		err := xerrors.NewCommandNotAllowedError(command, allowedCommands)
		if s := suggestCommand(command); s != "" {
			err.WithSuggestion(s)
		}
		return err
	}

	for _, c := range Classify(command, args) {
		switch c.Role {
		case RoleDeniedFlag:
			return xerrors.NewDangerousArgError(command, c.Index, c.Arg, "forbidden flag")
		case RoleUnknownFlag:
			return xerrors.NewDangerousArgError(command, c.Index, c.Arg, "unknown flag")
		}
		if c.Exempt {
			continue
		}
		if rule := matchDangerous(c.Arg); rule != "" {
			return xerrors.NewDangerousArgError(command, c.Index, c.Arg, rule)
		}
	}
	return nil
}

// matchDangerous returns the name of the first rule arg violates, or ""
func matchDangerous(arg string) string {
	for _, rule := range dangerousRules {
		if rule.re.MatchString(arg) {
			return rule.name
		}
	}
	return ""
}

func suggestCommand(command string) string {
	if command == "" {
		return ""
	}
	best, bestScore := "", float32(0)
	for _, candidate := range allowedCommands {
		score, err := edlib.StringsSimilarity(command, candidate, edlib.JaroWinkler)
		if err != nil {
			continue
		}
		if score > bestScore {
			best, bestScore = candidate, score
		}
	}
	if bestScore >= suggestionThreshold {
		return best
	}
	return ""
}

// ShellQuote wraps s in single quotes for the rare case a value must be embedded
// in a shell string. The supervisor never uses it: processes are spawned from an
// argument vector.
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
