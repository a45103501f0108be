package config

import (
	"os"
	"regexp"
	"strings"
)

// Matches ${VAR} and ${VAR:-fallback}.
var envVarRegex = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func substituteEnvVars(content []byte) []byte {
	return envVarRegex.ReplaceAllFunc(content, func(match []byte) []byte {
		sub := envVarRegex.FindSubmatch(match)
		varName := strings.TrimSpace(string(sub[1]))
		if value, exists := os.LookupEnv(varName); exists {
			return []byte(value)
		}
		if strings.Contains(string(match), ":-") {
			return sub[2]
		}
		return match
	})
}
