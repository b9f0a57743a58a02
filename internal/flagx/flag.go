// Package flagx holds small helpers that let several components share
// os.Args without tripping over each other's flags.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// ConfigEnvVar names the environment variable consulted when no -c/-config
// flag is given.
const ConfigEnvVar = "ACCOUNTS_CONFIG"

// FilterArgs keeps only the allowed flags from args, together with their
// values. Both "-f value" and "-f=value" forms are recognized; a value that
// starts with "-" is never consumed as the value of the preceding flag.
// The result is never nil.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]bool, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = true
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		name, inline := splitFlag(args[i])
		if !allowed[name] {
			continue
		}
		out = append(out, args[i])
		if inline {
			continue
		}
		if next := i + 1; next < len(args) && !strings.HasPrefix(args[next], "-") {
			out = append(out, args[next])
			i = next
		}
	}
	return out
}

// splitFlag returns the flag name of arg and whether the value is inline.
func splitFlag(arg string) (string, bool) {
	if !strings.HasPrefix(arg, "-") {
		return "", false
	}
	if name, _, ok := strings.Cut(arg, "="); ok {
		return name, true
	}
	return arg, false
}

// JsonConfigFlags returns the JSON config path given via -c or -config.
// When neither flag is present, ConfigEnvVar is used; an empty string means
// no file should be loaded.
func JsonConfigFlags() string {
	var path string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "Path to config file")
	fs.StringVar(&path, "c", "", "Path to config file (short)")
	_ = fs.Parse(FilterArgs(os.Args[1:], []string{"-c", "-config"}))

	if path == "" {
		path = os.Getenv(ConfigEnvVar)
	}
	return path
}
