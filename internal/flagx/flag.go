// Package flagx lets a component parse its own flags out of a shared
// command line without failing on flags that belong to someone else.
package flagx

import (
	"strings"

	"github.com/spf13/pflag"
)

// FilterArgs returns the arguments of args that are allowed flags, with
// their values.
//
// Supported formats:
//  1. Flag and value as separate arguments:  -c conf.yaml
//  2. Flag and value combined with '=':      --config=conf.yaml
//
// Flags listed in noValue never consume the next argument.
func FilterArgs(args []string, allowedFlags []string, noValue ...string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}
	bare := make(map[string]struct{}, len(noValue))
	for _, f := range noValue {
		bare[f] = struct{}{}
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
			if _, ok := bare[arg]; ok {
				continue
			}
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}

	return filtered
}

// FlagNames lists the spellings of every flag in fs ("--name" and, when
// set, "-n"). The second result holds the flags that take no value, such as
// booleans.
func FlagNames(fs *pflag.FlagSet) (names, noValue []string) {
	fs.VisitAll(func(f *pflag.Flag) {
		spellings := []string{"--" + f.Name}
		if f.Shorthand != "" {
			spellings = append(spellings, "-"+f.Shorthand)
		}
		names = append(names, spellings...)
		if f.NoOptDefVal != "" {
			noValue = append(noValue, spellings...)
		}
	})
	return names, noValue
}

// ParseKnown parses the flags of args that fs defines and ignores the rest.
func ParseKnown(fs *pflag.FlagSet, args []string) error {
	names, noValue := FlagNames(fs)
	return fs.Parse(FilterArgs(args, names, noValue...))
}
