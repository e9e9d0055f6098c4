package config

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envRef matches ${VAR} and ${VAR:-default}, and their $${...} escaped form.
// Inside a default, a backslash escapes the next character.
var envRef = regexp.MustCompile(`\$?\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// UnresolvedVar is an environment reference with no value and no default.
type UnresolvedVar struct {
	Name string
	Line int
}

// UnresolvedError lists every unresolved reference of a configuration
// file, in file order.
type UnresolvedError struct {
	Vars []UnresolvedVar
}

func (e *UnresolvedError) Error() string {
	parts := make([]string, len(e.Vars))
	for i, v := range e.Vars {
		parts[i] = v.Name + " (line " + strconv.Itoa(v.Line) + ")"
	}
	return "unresolved variables: " + strings.Join(parts, ", ")
}

// Load reads a YAML configuration file and returns it parsed with
// defaults applied.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	cfg, err := Parse(raw, os.LookupEnv)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse expands environment references in raw with lookup, decodes the
// result and applies defaults. Whole-line comments are not expanded, so a
// commented-out ${SECRET} never has to be set.
func Parse(raw []byte, lookup func(string) (string, bool)) (*Config, error) {
	expanded, err := expandEnv(raw, lookup)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

func expandEnv(raw []byte, lookup func(string) (string, bool)) ([]byte, error) {
	var missing []UnresolvedVar

	lines := bytes.SplitAfter(raw, []byte("\n"))
	for i, line := range lines {
		if bytes.HasPrefix(bytes.TrimSpace(line), []byte("#")) {
			continue
		}
		lines[i] = envRef.ReplaceAllFunc(line, func(match []byte) []byte {
			if bytes.HasPrefix(match, []byte("$$")) {
				return match[1:]
			}
			subs := envRef.FindSubmatch(match)
			name := string(subs[1])
			if value, ok := lookup(name); ok {
				return []byte(value)
			}
			if subs[2] != nil {
				return unescapeDefault(subs[2])
			}
			missing = append(missing, UnresolvedVar{Name: name, Line: i + 1})
			return match
		})
	}

	out := bytes.Join(lines, nil)
	if len(missing) > 0 {
		return out, &UnresolvedError{Vars: missing}
	}
	return out, nil
}

// unescapeDefault drops the backslash of every \x pair.
func unescapeDefault(def []byte) []byte {
	if !bytes.ContainsRune(def, '\\') {
		return def
	}
	out := make([]byte, 0, len(def))
	for i := 0; i < len(def); i++ {
		if def[i] == '\\' && i+1 < len(def) {
			i++
		}
		out = append(out, def[i])
	}
	return out
}
