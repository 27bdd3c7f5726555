package toolhandler

import (
	"regexp"
	"strings"
)

// policyRule is one denylist entry: a compiled pattern plus the human
// reason surfaced back to the model when it trips the rule.
type policyRule struct {
	pattern *regexp.Regexp
	reason  string
}

// defaultBlocklist is always active, regardless of user command policy.
var defaultBlocklist = compileRules([]struct{ pattern, reason string }{
	{`\brm\s+.*-[a-zA-Z]*[rR][a-zA-Z]*[fF]|\brm\s+.*-[a-zA-Z]*[fF][a-zA-Z]*[rR]`, "recursive force remove"},
	{`^\s*sudo\b`, "privilege escalation"},
	{`\bcurl\b[^|]*\|\s*(sudo\s+)?(sh|bash)\b`, "pipe-to-shell"},
	{`\bwget\b[^|]*\|\s*(sudo\s+)?(sh|bash)\b`, "pipe-to-shell"},
	{`\bchmod\s+(-R\s+)?777\b`, "chmod 777"},
	{`>\s*/dev/sd[a-z]`, "raw write to a block device"},
})

func compileRules(raw []struct{ pattern, reason string }) []policyRule {
	rules := make([]policyRule, len(raw))
	for i, r := range raw {
		rules[i] = policyRule{pattern: regexp.MustCompile(r.pattern), reason: r.reason}
	}
	return rules
}

// leadingToken returns the first whitespace-delimited token of a command,
// matched separately from the full string per spec.md's "full command
// string AND leading token" rule (catches `sudo` issued bare with no
// trailing arguments, which a full-string anchor might miss after
// shell-quoting).
func leadingToken(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// checkCommandPolicy applies the two-layer check of spec.md §4.2: the
// always-active default blocklist, then the user policy (commands.blocked
// adds patterns; commands.allowed is consulted only under strict mode).
// Returns the triggering reason, or "" if the command is allowed.
func checkCommandPolicy(command string, allowed, blocked []string, strict bool) string {
	for _, rule := range defaultBlocklist {
		if rule.pattern.MatchString(command) || rule.pattern.MatchString(leadingToken(command)) {
			return "default policy: " + rule.reason
		}
	}

	for _, pattern := range blocked {
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		if re.MatchString(command) || re.MatchString(leadingToken(command)) {
			return "user policy: command matches blocked pattern " + pattern
		}
	}

	if strict {
		token := leadingToken(command)
		for _, pattern := range allowed {
			re, err := regexp.Compile(pattern)
			if err != nil {
				continue
			}
			if re.MatchString(command) || re.MatchString(token) {
				return ""
			}
		}
		return "strict policy: command does not match any allowed pattern"
	}

	return ""
}
