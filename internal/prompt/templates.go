// Package prompt renders per-role prompt templates for a discussion topic.
package prompt

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"github.com/xiaot623/roundtable/internal/domain"
	"gopkg.in/yaml.v3"
)

var defaultTemplates = map[domain.RoleTag]string{
	domain.RoleResearcher: "You are a research specialist focusing on {{.Topic}}. " +
		"Your role is to provide factual information, cite sources, and ensure discussions are grounded in evidence. " +
		"When contributing, focus on finding and sharing relevant information.",
	domain.RoleCritic: "You are a critical thinker examining {{.Topic}}. " +
		"Your role is to identify potential issues, challenge assumptions, and ensure logical consistency. " +
		"When contributing, focus on finding flaws or alternative perspectives.",
	domain.RoleCreative: "You are a creative thinker exploring {{.Topic}}. " +
		"Your role is to suggest novel approaches, make unexpected connections, and think outside conventional boundaries. " +
		"When contributing, focus on innovative ideas and possibilities.",
	domain.RoleSummarizer: "You are a synthesis specialist for discussions about {{.Topic}}. " +
		"Your role is to consolidate information, identify key points, and create coherent summaries. " +
		"When contributing, focus on bringing together different perspectives.",
	domain.RoleAnalyst: "You are an analytical expert examining {{.Topic}}. " +
		"Your role is to break down complex issues, identify patterns, and provide structured analysis. " +
		"When contributing, focus on systematic evaluation of information.",
	domain.RoleGeneralist: "You are a generalist with broad knowledge about {{.Topic}}. " +
		"Your role is to provide balanced perspectives, connect different domains, and ensure comprehensive coverage. " +
		"When contributing, focus on integrating diverse viewpoints.",
}

// Library renders role prompts for a topic.
type Library struct {
	templates map[domain.RoleTag]*template.Template
}

// file is the on-disk override format:
//
//	roles:
//	  critic: "You poke holes in {{.Topic}}."
type file struct {
	Roles map[string]string `yaml:"roles"`
}

// Default returns the built-in library.
func Default() *Library {
	l, err := build(defaultTemplates)
	if err != nil {
		panic(err)
	}
	return l
}

// Load reads a YAML override file on top of the built-in templates.
// An empty path returns the defaults.
func Load(path string) (*Library, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML overrides on top of the built-in templates.
func Parse(data []byte) (*Library, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file: %w", err)
	}
	merged := make(map[domain.RoleTag]string, len(defaultTemplates))
	for role, text := range defaultTemplates {
		merged[role] = text
	}
	for name, text := range f.Roles {
		role := domain.RoleTag(name)
		if !role.Valid() {
			return nil, fmt.Errorf("unknown role %q in prompt file", name)
		}
		merged[role] = text
	}
	return build(merged)
}

func build(raw map[domain.RoleTag]string) (*Library, error) {
	l := &Library{templates: make(map[domain.RoleTag]*template.Template, len(raw))}
	for role, text := range raw {
		t, err := template.New(string(role)).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template for %s: %w", role, err)
		}
		l.templates[role] = t
	}
	return l, nil
}

// Templates renders every role prompt for topic.
func (l *Library) Templates(topic string) (map[domain.RoleTag]string, error) {
	data := struct{ Topic string }{Topic: topic}
	out := make(map[domain.RoleTag]string, len(l.templates))
	for role, t := range l.templates {
		var buf bytes.Buffer
		if err := t.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("failed to render template for %s: %w", role, err)
		}
		out[role] = buf.String()
	}
	return out, nil
}
