package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// loadYAML reads path and unmarshals it into out. A missing or unreadable
// file is an error; callers only call it once --config was given.
func loadYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// peekFlag does a lenient first pass over args looking for -name/--name
// VALUE or -name=VALUE, ignoring every other flag. It's used to find
// --config before the real flag.FlagSet (whose defaults may depend on the
// config file's contents) is parsed.
func peekFlag(args []string, name string) string {
	prefix1 := "-" + name
	prefix2 := "--" + name
	for i, a := range args {
		switch {
		case a == prefix1 || a == prefix2:
			if i+1 < len(args) {
				return args[i+1]
			}
		case len(a) > len(prefix1)+1 && a[:len(prefix1)+1] == prefix1+"=":
			return a[len(prefix1)+1:]
		case len(a) > len(prefix2)+1 && a[:len(prefix2)+1] == prefix2+"=":
			return a[len(prefix2)+1:]
		}
	}
	return ""
}
