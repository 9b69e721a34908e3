// Package flagx lets several components parse their own flags out of one
// shared argument list.
package flagx

import (
	"flag"
	"io"
	"strconv"
	"strings"
	"time"
)

// FilterArgs keeps only the allowed flags and their values. Both
// "-f value" and "-f=value" forms are recognised, and a following
// negative number or duration ("-m -1", "-w -1h") counts as a value.
// Bool flags must use "-f=false" when followed by a negative positional.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && isValue(args[i+1]) {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}
	return filtered
}

func isValue(arg string) bool {
	if !strings.HasPrefix(arg, "-") {
		return true
	}
	if _, err := strconv.ParseFloat(arg, 64); err == nil {
		return true
	}
	_, err := time.ParseDuration(arg)
	return err == nil
}

// ConfigPath returns the value of -c / -config, or "" when absent.
func ConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "path to config file")
	fs.StringVar(&path, "c", "", "path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config", "--config"}))

	return path
}
