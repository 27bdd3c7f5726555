package contextloader

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rubenmavarezb/aidf/internal/config"
)

// Load reads the project's .ai/ directory and the task file at taskPath into
// a LoadedContext. Missing optional pieces (AGENTS.md, role, skills) are
// silently skipped rather than treated as errors. No plan document is read;
// LoadedContext.Plan is left nil.
func Load(taskPath string, roleNames []string, skillsEnabled bool, skillDirs []string) (LoadedContext, error) {
	t, err := ParseTaskFile(taskPath)
	if err != nil {
		return LoadedContext{}, err
	}

	ctx := LoadedContext{Task: t}
	ctx.Agents = readOptional(config.AgentsPath())
	if ctx.Agents == "" {
		ctx.Agents = readOptional("AGENTS.md")
	}

	roles := roleNames
	if len(roles) == 0 {
		roles = t.SuggestedRoles
	}
	for _, r := range roles {
		if body := readOptional(filepath.Join(config.RolesDir(), r+".md")); body != "" {
			ctx.Role = body
			break
		}
	}

	if skillsEnabled {
		dirs := skillDirs
		if len(dirs) == 0 {
			dirs = []string{config.SkillsDir()}
		}
		for _, dir := range dirs {
			ctx.Skills = append(ctx.Skills, loadSkills(dir)...)
		}
	}

	return ctx, nil
}

func readOptional(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

type skillFrontmatter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// loadSkills reads <dir>/*/SKILL.md files, each with a "---"-delimited
// YAML frontmatter block followed by a Markdown body.
func loadSkills(dir string) []Skill {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []Skill
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name(), "SKILL.md")
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		fm, body := splitFrontmatter(string(data))
		var meta skillFrontmatter
		_ = yaml.Unmarshal([]byte(fm), &meta)
		if meta.Name == "" {
			meta.Name = e.Name()
		}
		out = append(out, Skill{Name: meta.Name, Description: meta.Description, Body: body})
	}
	return out
}

// splitFrontmatter separates a leading "---\n...\n---" YAML block from the
// remaining Markdown body. Returns ("", content) if no frontmatter is present.
func splitFrontmatter(content string) (frontmatter, body string) {
	const delim = "---"
	trimmed := strings.TrimLeft(content, "\n")
	if !strings.HasPrefix(trimmed, delim) {
		return "", content
	}
	rest := trimmed[len(delim):]
	idx := strings.Index(rest, "\n"+delim)
	if idx < 0 {
		return "", content
	}
	frontmatter = strings.TrimSpace(rest[:idx])
	body = strings.TrimLeft(rest[idx+len(delim)+1:], "\n")
	return frontmatter, body
}
