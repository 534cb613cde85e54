package process

import (
	"os"
	"runtime"
	"slices"
	"strings"
)

// DefaultEnvAllowlist names the variables a child process inherits.
// Everything else in the parent environment is dropped so secrets never leak.
var DefaultEnvAllowlist = []string{
	"PATH", "HOME", "USER", "LANG", "LC_ALL", "LC_CTYPE",
	"TMPDIR", "TEMP", "TMP", "SYSTEMROOT",
}

// BuildEnv filters base (KEY=VALUE pairs, usually os.Environ) to the allowlist and
// applies overrides. An override whose name is not allowed is silently dropped.
// extra extends DefaultEnvAllowlist for this call only.
func BuildEnv(base []string, overrides map[string]string, extra []string) []string {
	allowed := make(map[string]bool, len(DefaultEnvAllowlist)+len(extra))
	for _, name := range DefaultEnvAllowlist {
		allowed[envKey(name)] = true
	}
	for _, name := range extra {
		allowed[envKey(name)] = true
	}

	vars := make(map[string]string)
	for _, kv := range base {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" || !allowed[envKey(name)] {
			continue
		}
		vars[name] = value
	}
	for name, value := range overrides {
		if allowed[envKey(name)] {
			vars[name] = value
		}
	}

	env := make([]string, 0, len(vars))
	for name, value := range vars {
		env = append(env, name+"="+value)
	}
	slices.Sort(env)
	return env
}

func defaultEnv(overrides map[string]string, extra []string) []string {
	return BuildEnv(os.Environ(), overrides, extra)
}

// envKey folds case on Windows, where variable names are case-insensitive
func envKey(name string) string {
	if runtime.GOOS == "windows" {
		return strings.ToUpper(name)
	}
	return name
}
