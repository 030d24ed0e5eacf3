// Package secrets resolves API keys from files, inline configuration or the
// environment.
package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Source lists the places a secret may come from. File wins over Value, Value
// wins over Env.
type Source struct {
	// Name labels the secret in error messages.
	Name  string
	Value string
	File  string
	// Env names an environment variable holding the secret.
	Env string
}

// Load returns the trimmed secret or an error naming where it looked.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	if file := strings.TrimSpace(src.File); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		if secret := strings.TrimSpace(string(data)); secret != "" {
			return secret, nil
		}
		return "", fmt.Errorf("%s file %q is empty", name, file)
	}

	if secret := strings.TrimSpace(src.Value); secret != "" {
		return secret, nil
	}

	env := strings.TrimSpace(src.Env)
	if env == "" {
		return "", fmt.Errorf("%s is not configured", name)
	}
	if secret := strings.TrimSpace(os.Getenv(env)); secret != "" {
		return secret, nil
	}
	return "", fmt.Errorf("%s is not configured (checked %s)", name, env)
}
