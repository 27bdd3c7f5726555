package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

var envTemplateRe = regexp.MustCompile(`\$\{\{\s*\.Env\.(\w+)\s*\}\}`)
var envShellRe = regexp.MustCompile(`\$\{(\w+)\}|\$(\w+)`)

// configDoc mirrors Config but decodes Execution.MaxIterations into a
// pointer, so Load can tell "absent from the document" (apply the default)
// apart from "explicitly set to 0" (must survive as 0, per spec.md §8).
type configDoc struct {
	Provider    ProviderConfig    `json:"provider" yaml:"provider"`
	Execution   executionDoc      `json:"execution" yaml:"execution"`
	Permissions PermissionsConfig `json:"permissions" yaml:"permissions"`
	Validation  ValidationConfig  `json:"validation" yaml:"validation"`
	Security    SecurityConfig    `json:"security" yaml:"security"`
	Commands    CommandsConfig    `json:"commands" yaml:"commands"`
	Git         GitConfig         `json:"git" yaml:"git"`
	Skills      SkillsConfig      `json:"skills" yaml:"skills"`
}

type executionDoc struct {
	MaxIterations          *int                      `json:"max_iterations" yaml:"max_iterations"`
	MaxConsecutiveFailures int                       `json:"max_consecutive_failures" yaml:"max_consecutive_failures"`
	TimeoutPerIteration    int                       `json:"timeout_per_iteration" yaml:"timeout_per_iteration"`
	Conversation           ConversationHistoryConfig `json:"conversation" yaml:"conversation"`
}

// Load reads a JSONC, JSON, or YAML config file, expands environment variable
// references, unmarshals it into Config, and applies defaults.
//
// Format is selected by extension: .yml/.yaml uses YAML; anything else
// (.json, .jsonc, or no extension) is parsed as JSONC.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := expandEnv(string(data))

	var doc configDoc
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yml", ".yaml":
		if err := yaml.Unmarshal([]byte(expanded), &doc); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	default:
		stripped, err := hujson.Standardize([]byte(expanded))
		if err != nil {
			return nil, fmt.Errorf("parse jsonc config: %w", err)
		}
		if err := json.Unmarshal(stripped, &doc); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	cfg := Config{
		Provider:    doc.Provider,
		Permissions: doc.Permissions,
		Validation:  doc.Validation,
		Security:    doc.Security,
		Commands:    doc.Commands,
		Git:         doc.Git,
		Skills:      doc.Skills,
		Execution: ExecutionConfig{
			MaxConsecutiveFailures: doc.Execution.MaxConsecutiveFailures,
			TimeoutPerIteration:    doc.Execution.TimeoutPerIteration,
			Conversation:           doc.Execution.Conversation,
		},
	}
	if doc.Execution.MaxIterations != nil {
		cfg.Execution.MaxIterations = *doc.Execution.MaxIterations
	} else {
		cfg.Execution.MaxIterations = 50
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// expandEnv resolves both documented template syntaxes: "${{ .Env.VAR }}"
// and the plain shell forms "${VAR}" / "$VAR".
func expandEnv(s string) string {
	s = envTemplateRe.ReplaceAllStringFunc(s, func(match string) string {
		parts := envTemplateRe.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		return os.Getenv(parts[1])
	})
	return envShellRe.ReplaceAllStringFunc(s, func(match string) string {
		parts := envShellRe.FindStringSubmatch(match)
		name := parts[1]
		if name == "" {
			name = parts[2]
		}
		return os.Getenv(name)
	})
}
