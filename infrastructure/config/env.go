package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	domainconfig "github.com/legisflow/legisflow/domain/config"
)

var (
	// bracketPattern matches ${VAR}, ${VAR:-default} and ${VAR:?message}.
	bracketPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-[^}]*|:\?[^}]*)?\}`)

	// simplePattern matches $VAR and the $$ escape.
	simplePattern = regexp.MustCompile(`\$\$|\$([A-Za-z_][A-Za-z0-9_]*)`)
)

// envExpander expands environment variables in configuration text.
type envExpander struct {
	// strict fails if a referenced variable is not set.
	strict bool
	// missing tracks missing environment variables.
	missing []string
}

// Expand expands environment variables in the input string.
// Supported patterns:
//   - ${VAR} expands to the value of VAR
//   - ${VAR:-default} expands to VAR or "default" if unset or empty
//   - ${VAR:?message} fails if VAR is unset or empty
//   - $VAR simple expansion
//   - $$ a literal dollar sign
func (e *envExpander) Expand(input string) (string, error) {
	e.missing = nil

	result := bracketPattern.ReplaceAllStringFunc(input, func(match string) string {
		name, modifier, _ := strings.Cut(match[2:len(match)-1], ":")
		value, exists := os.LookupEnv(name)

		switch {
		case strings.HasPrefix(modifier, "-"):
			if !exists || value == "" {
				return modifier[1:]
			}
		case strings.HasPrefix(modifier, "?"):
			if !exists || value == "" {
				e.missing = append(e.missing, fmt.Sprintf("%s: %s", name, modifier[1:]))
				return match
			}
		case !exists:
			if e.strict {
				e.missing = append(e.missing, name)
			}
			return ""
		}
		return value
	})

	result = simplePattern.ReplaceAllStringFunc(result, func(match string) string {
		if match == "$$" {
			return "$"
		}
		name := match[1:]
		value, exists := os.LookupEnv(name)
		if !exists && e.strict {
			e.missing = append(e.missing, name)
		}
		return value
	})

	if len(e.missing) > 0 {
		return "", fmt.Errorf("%w: %s", domainconfig.ErrMissingEnvVar, strings.Join(e.missing, ", "))
	}
	return result, nil
}

// ExpandEnv expands environment variables, leaving missing ones empty.
func ExpandEnv(input string) string {
	result, _ := (&envExpander{}).Expand(input)
	return result
}

// ExpandEnvStrict expands environment variables and returns an error for missing vars.
func ExpandEnvStrict(input string) (string, error) {
	return (&envExpander{strict: true}).Expand(input)
}
