package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// varPattern matches {{NAME}} and {{env:NAME}}.
var varPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// LoadEnvironment loads an environment from a YAML file. {{env:VAR}}
// references are resolved against the process environment, then {{VAR}}
// references against the environment's own variables.
func LoadEnvironment(filePath string) (*Environment, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read environment file: %w", err)
	}

	var env Environment
	if err := yaml.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse environment YAML: %w", err)
	}
	env.Name = strings.TrimSuffix(strings.TrimSuffix(filepath.Base(filePath), ".yaml"), ".yml")

	for key, value := range env.Variables {
		env.Variables[key] = resolveEnvRefs(value)
	}
	resolve := func(s string) string {
		return SubstituteVariables(resolveEnvRefs(s), env.Variables)
	}
	env.Backend = resolve(env.Backend)
	env.Target = resolve(env.Target)
	env.Auth.Token = resolve(env.Auth.Token)
	env.Auth.TokenURL = resolve(env.Auth.TokenURL)
	env.Auth.ClientID = resolve(env.Auth.ClientID)
	env.Auth.ClientSecret = resolve(env.Auth.ClientSecret)
	env.Auth.Username = resolve(env.Auth.Username)
	env.Auth.Password = resolve(env.Auth.Password)

	return &env, nil
}

// SaveEnvironment saves an environment to a YAML file
func SaveEnvironment(env *Environment, filePath string) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if !strings.HasSuffix(filePath, ".yaml") && !strings.HasSuffix(filePath, ".yml") {
		filePath = filePath + ".yaml"
	}

	data, err := yaml.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal environment: %w", err)
	}

	return os.WriteFile(filePath, data, 0644)
}

// ListEnvironments lists all environment files
func ListEnvironments(baseDir string) ([]string, error) {
	return listYAML(GetEnvironmentsDir(baseDir), "environments")
}

// GetEnvironmentsDir returns the environments directory path
func GetEnvironmentsDir(baseDir string) string {
	return filepath.Join(baseDir, "environments")
}

// EnvironmentPath returns the file of a named environment.
func EnvironmentPath(baseDir, name string) string {
	return filepath.Join(GetEnvironmentsDir(baseDir), name+".yaml")
}

// SubstituteVariables replaces {{VAR}} placeholders with values from vars and
// {{env:VAR}} placeholders with set process environment variables. Unknown
// placeholders are left as they are.
func SubstituteVariables(text string, vars map[string]string) string {
	return expand(text, func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	})
}

// Placeholders returns the variable names referenced in text, in order of
// first appearance. {{env:VAR}} references are not included.
func Placeholders(text string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range varPattern.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[1])
		if strings.HasPrefix(name, envPrefix) || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

func resolveEnvRefs(text string) string {
	return expand(text, func(string) (string, bool) { return "", false })
}

const envPrefix = "env:"

// expand rewrites every placeholder of text. env: references go to the process
// environment, everything else to lookup.
func expand(text string, lookup func(name string) (string, bool)) string {
	return varPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := strings.TrimSpace(varPattern.FindStringSubmatch(match)[1])
		if sys, ok := strings.CutPrefix(name, envPrefix); ok {
			if v := os.Getenv(sys); v != "" {
				return v
			}
			return match
		}
		if v, ok := lookup(name); ok {
			return v
		}
		return match
	})
}

// listYAML returns the base names of the .yaml and .yml files in dir. A
// missing dir holds nothing.
func listYAML(dir, what string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", what, err)
	}

	names := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch ext := filepath.Ext(e.Name()); ext {
		case ".yaml", ".yml":
			names = append(names, strings.TrimSuffix(e.Name(), ext))
		}
	}
	return names, nil
}
