package security

import "strings"

// ArgRole is the position an argument occupies in a backend's argument grammar
type ArgRole int

const (
	RoleFlag         ArgRole = iota // a flag that takes no value
	RoleFlagValue                   // auxiliary value of a flag, e.g. the 3 in -C 3
	RolePatternValue                // value of a pattern-bearing flag, e.g. the glob in -g
	RolePattern                     // bare search pattern
	RoleOperand                     // path or other bare operand
	RoleStructural                  // find grouping and boolean operators
	RoleTerminator                  // the -- end-of-flags marker
	RoleUnknownFlag                 // a flag missing from the backend's table
	RoleDeniedFlag                  // a flag that executes commands or writes files
)

func (r ArgRole) String() string {
	switch r {
	case RoleFlag:
		return "flag"
	case RoleFlagValue:
		return "flag-value"
	case RolePatternValue:
		return "pattern-value"
	case RolePattern:
		return "pattern"
	case RoleOperand:
		return "operand"
	case RoleStructural:
		return "structural"
	case RoleTerminator:
		return "terminator"
	case RoleUnknownFlag:
		return "unknown-flag"
	case RoleDeniedFlag:
		return "denied-flag"
	default:
		return "unknown"
	}
}

// ArgClass is the classification of one argument
type ArgClass struct {
	Index  int
	Arg    string
	Role   ArgRole
	Exempt bool   // skips the dangerous-content rules
	Flag   string // for unknown and denied flags, the offending flag name
}

type flagSpec struct {
	consumesValue bool
	valueExempt   bool // the value is a regex or glob and may contain metacharacters
	setsPattern   bool // after this flag, bare tokens are paths
}

type commandTable struct {
	flags map[string]flagSpec
	// first bare token is the search pattern (rg, grep)
	bareIsPattern bool
	// single-dash tokens may bundle short flags, e.g. -rn or -C3
	bundles    bool
	structural map[string]bool
	// flags that execute commands or write files; rejected outright
	denied map[string]bool
}

var (
	switchFlag  = flagSpec{}
	valueFlag   = flagSpec{consumesValue: true}
	globFlag    = flagSpec{consumesValue: true, valueExempt: true}
	patternFlag = flagSpec{consumesValue: true, valueExempt: true, setsPattern: true}
)

// withSwitches adds no-value flags to a flag table
func withSwitches(flags map[string]flagSpec, switches ...string) map[string]flagSpec {
	for _, s := range switches {
		flags[s] = switchFlag
	}
	return flags
}

// Tables are closed: a flag not listed here is classified RoleUnknownFlag and
// rejected, since its arity and the meaning of its value are unknown.
var commandTables = map[string]commandTable{
	"rg": {
		bareIsPattern: true,
		bundles:       true,
		flags: withSwitches(map[string]flagSpec{
			"-e": patternFlag, "--regexp": patternFlag,
			"-g": globFlag, "--glob": globFlag, "--iglob": globFlag, "--type-add": globFlag,
			"-A": valueFlag, "--after-context": valueFlag,
			"-B": valueFlag, "--before-context": valueFlag,
			"-C": valueFlag, "--context": valueFlag,
			"-m": valueFlag, "--max-count": valueFlag,
			"-j": valueFlag, "--threads": valueFlag,
			"-E": valueFlag, "--encoding": valueFlag,
			"-t": valueFlag, "--type": valueFlag,
			"-T": valueFlag, "--type-not": valueFlag,
			"-d": valueFlag, "--max-depth": valueFlag,
			"-M": valueFlag, "--max-columns": valueFlag,
			"--max-filesize": valueFlag, "--sort": valueFlag, "--sortr": valueFlag,
			"--color": valueFlag, "--path-separator": valueFlag, "--context-separator": valueFlag,
		},
			"--json", "--no-config", "--version",
			"-i", "--ignore-case", "-S", "--smart-case", "-s", "--case-sensitive",
			"-F", "--fixed-strings", "-w", "--word-regexp", "-x", "--line-regexp",
			"-U", "--multiline", "--multiline-dotall", "-P", "--pcre2",
			"--hidden", "-.", "--no-ignore", "--no-ignore-vcs", "-u", "--unrestricted", "-L", "--follow",
			"-v", "--invert-match", "-n", "--line-number", "-N", "--no-line-number",
			"-H", "--with-filename", "-I", "--no-filename", "--no-heading", "--column", "-b", "--byte-offset",
			"-l", "--files-with-matches", "--files-without-match", "-c", "--count", "--count-matches",
			"-o", "--only-matching", "-a", "--text", "-0", "--null", "-q", "--quiet",
			"--no-messages", "--stats", "--trim", "--vimgrep", "--files",
		),
		denied: map[string]bool{"--pre": true, "--pre-glob": true, "--search-zip": true, "-z": true},
	},
	"grep": {
		bareIsPattern: true,
		bundles:       true,
		flags: withSwitches(map[string]flagSpec{
			"-e": patternFlag, "--regexp": patternFlag,
			"--include": globFlag, "--exclude": globFlag, "--exclude-dir": globFlag,
			"-A": valueFlag, "--after-context": valueFlag,
			"-B": valueFlag, "--before-context": valueFlag,
			"-C": valueFlag, "--context": valueFlag,
			"-m": valueFlag, "--max-count": valueFlag,
			"-d": valueFlag, "--directories": valueFlag,
			"-D": valueFlag, "--devices": valueFlag,
			"--binary-files": valueFlag, "--label": valueFlag, "--color": valueFlag,
		},
			"--version",
			"-r", "-R", "--recursive", "--dereference-recursive",
			"-n", "--line-number", "-H", "--with-filename", "-h", "--no-filename", "-I",
			"-i", "--ignore-case", "-y", "--no-ignore-case", "-w", "--word-regexp", "-x", "--line-regexp",
			"-F", "--fixed-strings", "-E", "--extended-regexp", "-G", "--basic-regexp", "-P", "--perl-regexp",
			"-v", "--invert-match", "-l", "--files-with-matches", "-L", "--files-without-match",
			"-c", "--count", "-o", "--only-matching", "-q", "--quiet", "--silent", "-s", "--no-messages",
			"-b", "--byte-offset", "-a", "--text", "-Z", "--null", "-z", "--null-data",
		),
		// -f reads patterns from an arbitrary file
		denied: map[string]bool{"-f": true, "--file": true},
	},
	"find": {
		structural: map[string]bool{"(": true, ")": true, "-o": true, "-or": true, "!": true, "-not": true, "-a": true, "-and": true},
		flags: withSwitches(map[string]flagSpec{
			"-name": globFlag, "-iname": globFlag,
			"-path": globFlag, "-ipath": globFlag,
			"-wholename": globFlag, "-iwholename": globFlag,
			"-regex": globFlag, "-iregex": globFlag,
			"-lname": globFlag, "-ilname": globFlag,
			"-size": globFlag, "-perm": globFlag,
			"-type": valueFlag, "-xtype": valueFlag,
			"-maxdepth": valueFlag, "-mindepth": valueFlag,
			"-mtime": valueFlag, "-mmin": valueFlag,
			"-atime": valueFlag, "-amin": valueFlag,
			"-ctime": valueFlag, "-cmin": valueFlag,
			"-newer": valueFlag, "-regextype": valueFlag,
			"-user": valueFlag, "-group": valueFlag, "-uid": valueFlag, "-gid": valueFlag,
			"-links": valueFlag, "-inum": valueFlag,
		},
			"--version", "-print", "-print0", "-empty", "-prune", "-quit", "-true", "-false",
			"-depth", "-follow", "-xdev", "-mount", "-noleaf", "-daystart",
			"-readable", "-writable", "-executable", "-nouser", "-nogroup",
			"-H", "-L", "-P",
		),
		denied: map[string]bool{
			"-exec": true, "-execdir": true, "-ok": true, "-okdir": true,
			"-delete": true, "-fprint": true, "-fprint0": true, "-fprintf": true, "-fls": true,
		},
	},
	"ls": {
		bundles: true,
		flags: withSwitches(map[string]flagSpec{
			"-I": globFlag, "--ignore": globFlag, "--hide": globFlag,
			"-w": valueFlag, "--width": valueFlag,
			"--sort": valueFlag, "--time-style": valueFlag, "--format": valueFlag, "--color": valueFlag,
		},
			"--version",
			"-1", "-p", "-a", "--all", "-A", "--almost-all", "-d", "--directory",
			"-F", "--classify", "-l", "-h", "--human-readable", "-R", "--recursive",
			"-t", "-r", "--reverse", "-S", "-i", "--inode", "-s", "--size", "-n", "--numeric-uid-gid",
		),
	},
}

func tableFor(command string) commandTable {
	return commandTables[command]
}

// flagName strips an inline =value from a long flag
func flagName(arg string) string {
	if strings.HasPrefix(arg, "--") {
		if i := strings.IndexByte(arg, '='); i > 0 {
			return arg[:i]
		}
	}
	return arg
}

func isFlag(arg string) bool {
	return len(arg) > 1 && arg[0] == '-'
}

// Classify assigns a role to every argument of command in a single left-to-right
// scan. It understands --flag=value, bundled short flags (-rn, -C3), the --
// marker and -e style pattern flags. Flags outside the command's table are
// RoleUnknownFlag.
func Classify(command string, args []string) []ArgClass {
	table := tableFor(command)
	classes := make([]ArgClass, 0, len(args))

	afterTerminator := false
	patternSeen := !table.bareIsPattern

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch {
		case afterTerminator || !isFlag(arg):
			if table.structural[arg] {
				classes = append(classes, ArgClass{Index: i, Arg: arg, Role: RoleStructural, Exempt: true})
				continue
			}
			if !patternSeen {
				patternSeen = true
				classes = append(classes, ArgClass{Index: i, Arg: arg, Role: RolePattern, Exempt: true})
				continue
			}
			classes = append(classes, ArgClass{Index: i, Arg: arg, Role: RoleOperand})

		case arg == "--":
			afterTerminator = true
			classes = append(classes, ArgClass{Index: i, Arg: arg, Role: RoleTerminator, Exempt: true})

		case table.structural[arg]:
			classes = append(classes, ArgClass{Index: i, Arg: arg, Role: RoleStructural, Exempt: true})

		default:
			name := flagName(arg)
			if table.denied[name] {
				classes = append(classes, ArgClass{Index: i, Arg: arg, Role: RoleDeniedFlag, Flag: name})
				continue
			}
			spec, known := table.flags[name]
			if !known && table.bundles && isShortBundle(arg) {
				class, takesNext, sets := classifyBundle(table, i, arg)
				patternSeen = patternSeen || sets
				classes = append(classes, class)
				if takesNext && i+1 < len(args) {
					i++
					classes = append(classes, valueClass(i, args[i], class.Flag, table))
				}
				continue
			}
			if !known {
				classes = append(classes, ArgClass{Index: i, Arg: arg, Role: RoleUnknownFlag, Flag: name})
				continue
			}
			if spec.setsPattern {
				patternSeen = true
			}
			if !spec.consumesValue {
				classes = append(classes, ArgClass{Index: i, Arg: arg, Role: RoleFlag})
				continue
			}

			role := valueRole(spec)
			if name != arg {
				// --flag=value carries its value inline
				classes = append(classes, ArgClass{Index: i, Arg: arg, Role: role, Exempt: spec.valueExempt})
				continue
			}
			classes = append(classes, ArgClass{Index: i, Arg: arg, Role: RoleFlag})
			if i+1 < len(args) {
				i++
				classes = append(classes, ArgClass{Index: i, Arg: args[i], Role: role, Exempt: spec.valueExempt})
			}
		}
	}
	return classes
}

func isShortBundle(arg string) bool {
	return len(arg) > 2 && arg[0] == '-' && arg[1] != '-'
}

func valueRole(spec flagSpec) ArgRole {
	if spec.valueExempt {
		return RolePatternValue
	}
	return RoleFlagValue
}

// classifyBundle walks the letters of a short-flag bundle. Every letter must be
// a known flag and none may be denied. A value-taking letter ends the bundle:
// the rest of the token is its value, or the next argument when nothing is
// left. takesNext reports the latter; class.Flag then names that letter.
func classifyBundle(table commandTable, index int, arg string) (class ArgClass, takesNext bool, setsPattern bool) {
	for j := 1; j < len(arg); j++ {
		letter := "-" + arg[j:j+1]
		if table.denied[letter] {
			return ArgClass{Index: index, Arg: arg, Role: RoleDeniedFlag, Flag: letter}, false, setsPattern
		}
		spec, ok := table.flags[letter]
		if !ok {
			return ArgClass{Index: index, Arg: arg, Role: RoleUnknownFlag, Flag: letter}, false, setsPattern
		}
		setsPattern = setsPattern || spec.setsPattern
		if !spec.consumesValue {
			continue
		}
		if j+1 < len(arg) {
			return ArgClass{Index: index, Arg: arg, Role: valueRole(spec), Exempt: spec.valueExempt}, false, setsPattern
		}
		return ArgClass{Index: index, Arg: arg, Role: RoleFlag, Flag: letter}, true, setsPattern
	}
	return ArgClass{Index: index, Arg: arg, Role: RoleFlag}, false, setsPattern
}

// valueClass classifies the argument consumed by the trailing letter of a bundle
func valueClass(index int, arg, letter string, table commandTable) ArgClass {
	spec := table.flags[letter]
	return ArgClass{Index: index, Arg: arg, Role: valueRole(spec), Exempt: spec.valueExempt}
}
