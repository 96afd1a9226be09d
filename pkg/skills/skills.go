// Package skills loads named skill documents used to augment agent prompts.
//
// A skill is a markdown file with optional YAML frontmatter. Skills are
// never executed; their text is embedded into prompts verbatim.
package skills

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Skill is one loaded skill document.
type Skill struct {
	Name         string
	Description  string
	Instructions string
	Frontmatter  map[string]any
	Location     string
}

// Loader resolves a skill by name. Load failures are reported to the
// caller, who is expected to omit the skill rather than abort.
type Loader interface {
	Load(name string) (*Skill, error)
}

// DirLoader resolves skills from a list of directories, trying
// <dir>/<name>/SKILL.md then <dir>/<name>.md in order.
type DirLoader struct {
	dirs []string
}

// NewDirLoader creates a loader over the given search directories.
func NewDirLoader(dirs ...string) *DirLoader {
	return &DirLoader{dirs: dirs}
}

// Load implements Loader.
func (l *DirLoader) Load(name string) (*Skill, error) {
	for _, dir := range l.dirs {
		candidates := []string{
			filepath.Join(dir, name, "SKILL.md"),
			filepath.Join(dir, name+".md"),
		}
		for _, path := range candidates {
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			return parseSkill(name, path, data)
		}
	}
	return nil, fmt.Errorf("skill %q not found in %v", name, l.dirs)
}

// parseSkill splits optional ----delimited YAML frontmatter from the body.
func parseSkill(name, location string, data []byte) (*Skill, error) {
	text := string(data)
	skill := &Skill{
		Name:         name,
		Instructions: strings.TrimSpace(text),
		Location:     location,
	}

	if !strings.HasPrefix(text, "---\n") && !strings.HasPrefix(text, "---\r\n") {
		return skill, nil
	}

	rest := text[strings.Index(text, "\n")+1:]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return skill, nil
	}

	front := rest[:end]
	body := rest[end+len("\n---"):]
	if idx := strings.Index(body, "\n"); idx >= 0 {
		body = body[idx+1:]
	} else {
		body = ""
	}

	var fm map[string]any
	if err := yaml.Unmarshal([]byte(front), &fm); err != nil {
		return nil, fmt.Errorf("skill %q: invalid frontmatter: %w", name, err)
	}

	skill.Frontmatter = fm
	skill.Instructions = strings.TrimSpace(body)
	if v, ok := fm["name"].(string); ok && v != "" {
		skill.Name = v
	}
	if v, ok := fm["description"].(string); ok {
		skill.Description = v
	}
	return skill, nil
}

// PromptBlock renders loaded skills as the XML-tagged block appended to a
// phase prompt. Empty when no skills resolved.
func PromptBlock(loaded []*Skill) string {
	if len(loaded) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("<available_skills>\n")
	for _, s := range loaded {
		fmt.Fprintf(&b, "<skill name=%q>\n", s.Name)
		if s.Description != "" {
			fmt.Fprintf(&b, "<description>%s</description>\n", s.Description)
		}
		fmt.Fprintf(&b, "<instructions>\n%s\n</instructions>\n", s.Instructions)
		b.WriteString("</skill>\n")
	}
	b.WriteString("</available_skills>\n")
	b.WriteString("Apply the instructions from these skills where relevant to your response.")
	return b.String()
}
