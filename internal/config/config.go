// Package config loads and represents aidf's run configuration.
package config

import "time"

// Config is the root configuration for an aidf run.
type Config struct {
	Provider    ProviderConfig    `json:"provider" yaml:"provider"`
	Execution   ExecutionConfig   `json:"execution" yaml:"execution"`
	Permissions PermissionsConfig `json:"permissions" yaml:"permissions"`
	Validation  ValidationConfig  `json:"validation" yaml:"validation"`
	Security    SecurityConfig    `json:"security" yaml:"security"`
	Commands    CommandsConfig    `json:"commands" yaml:"commands"`
	Git         GitConfig         `json:"git" yaml:"git"`
	Skills      SkillsConfig      `json:"skills" yaml:"skills"`
}

// ProviderConfig selects and configures the Provider implementation.
type ProviderConfig struct {
	Type    string `json:"type" yaml:"type"` // claude-cli | cursor-cli | anthropic-api | openai-api
	Model   string `json:"model,omitempty" yaml:"model,omitempty"`
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

// ExecutionConfig controls the Executor's iteration loop.
type ExecutionConfig struct {
	MaxIterations          int                       `json:"max_iterations" yaml:"max_iterations"`
	MaxConsecutiveFailures int                       `json:"max_consecutive_failures" yaml:"max_consecutive_failures"`
	TimeoutPerIteration    int                       `json:"timeout_per_iteration" yaml:"timeout_per_iteration"` // seconds
	Conversation           ConversationHistoryConfig `json:"conversation" yaml:"conversation"`
}

// ConversationHistoryConfig bounds the ConversationWindow.
type ConversationHistoryConfig struct {
	MaxMessages         int  `json:"max_messages" yaml:"max_messages"`
	PreserveHead        int  `json:"preserve_head" yaml:"preserve_head"`
	PreserveTail        int  `json:"preserve_tail" yaml:"preserve_tail"`
	SummarizeOnTrim     bool `json:"summarize_on_trim" yaml:"summarize_on_trim"`
	SummarizerMaxTokens int  `json:"summarizer_max_tokens" yaml:"summarizer_max_tokens"`
	SummarizeEveryN     int  `json:"summarize_every_n" yaml:"summarize_every_n"`
}

// PermissionsConfig controls scope enforcement and git automation.
type PermissionsConfig struct {
	ScopeEnforcement string `json:"scope_enforcement" yaml:"scope_enforcement"` // strict | ask | permissive
	AutoCommit       bool   `json:"auto_commit" yaml:"auto_commit"`
	AutoPush         bool   `json:"auto_push" yaml:"auto_push"`
	AutoPR           bool   `json:"auto_pr" yaml:"auto_pr"`
}

// ValidationConfig lists the ordered validation command phases.
type ValidationConfig struct {
	PreCommit []string `json:"pre_commit" yaml:"pre_commit"`
	PrePush   []string `json:"pre_push" yaml:"pre_push"`
	PrePR     []string `json:"pre_pr" yaml:"pre_pr"`
}

// SecurityConfig controls permission-skipping warnings.
type SecurityConfig struct {
	SkipPermissions bool `json:"skip_permissions" yaml:"skip_permissions"`
	WarnOnSkip      bool `json:"warn_on_skip" yaml:"warn_on_skip"`
}

// CommandsConfig layers a user policy on top of the ToolHandler's default blocklist.
type CommandsConfig struct {
	Allowed []string `json:"allowed" yaml:"allowed"`
	Blocked []string `json:"blocked" yaml:"blocked"`
	Strict  bool     `json:"strict" yaml:"strict"`
}

// GitConfig configures commit message formatting.
type GitConfig struct {
	CommitPrefix string `json:"commit_prefix" yaml:"commit_prefix"`
	BranchPrefix string `json:"branch_prefix" yaml:"branch_prefix"`
}

// SkillsConfig configures skill discovery (non-core loader concern).
type SkillsConfig struct {
	Enabled     bool     `json:"enabled" yaml:"enabled"`
	Directories []string `json:"directories" yaml:"directories"`
}

// Duration wraps time.Duration for JSON/YAML unmarshaling from strings like "5m".
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// applyDefaults fills zero-value fields with the documented defaults.
//
// MaxIterations is deliberately not defaulted here: an explicit
// `max_iterations: 0` in a loaded config file must survive as 0 (spec.md §8's
// "PreFlight runs, no provider call, returns status=blocked" boundary case),
// so Load resolves its default before this function runs, using presence in
// the source document rather than a zero check.
func applyDefaults(cfg *Config) {
	if cfg.Execution.MaxConsecutiveFailures == 0 {
		cfg.Execution.MaxConsecutiveFailures = 3
	}
	conv := &cfg.Execution.Conversation
	if conv.MaxMessages == 0 {
		conv.MaxMessages = 100
	}
	if conv.PreserveHead == 0 {
		conv.PreserveHead = 5
	}
	if conv.PreserveTail == 0 {
		conv.PreserveTail = 20
	}
	if conv.SummarizerMaxTokens == 0 {
		conv.SummarizerMaxTokens = 1024
	}
	if conv.SummarizeEveryN == 0 {
		conv.SummarizeEveryN = 10
	}
	if cfg.Permissions.ScopeEnforcement == "" {
		cfg.Permissions.ScopeEnforcement = "strict"
	}
	if cfg.Security.SkipPermissions && !cfg.Security.WarnOnSkip {
		cfg.Security.WarnOnSkip = true
	}
	if cfg.Git.CommitPrefix == "" {
		cfg.Git.CommitPrefix = "aidf: "
	}
}
