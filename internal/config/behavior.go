package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Behavior carries the per-instance knobs that do not belong in env vars:
// Jira custom field IDs, epic defaults, meeting retrieval defaults.
// Values support ${VAR} or $VAR environment expansion.
type Behavior struct {
	Epic     EpicBehavior     `yaml:"epic"`
	Meetings MeetingsBehavior `yaml:"meetings"`
	Jira     JiraBehavior     `yaml:"jira"`
}

// EpicBehavior holds defaults applied to created epics.
type EpicBehavior struct {
	DefaultPriority string   `yaml:"default_priority"`
	Labels          []string `yaml:"labels"`
}

// MeetingsBehavior holds defaults for meeting retrieval.
type MeetingsBehavior struct {
	DaysBack int    `yaml:"days_back"`
	SpaceKey string `yaml:"space_key"`
}

// JiraBehavior overrides the instance-specific custom field IDs.
type JiraBehavior struct {
	EpicNameField    string `yaml:"epic_name_field"`
	StoryPointsField string `yaml:"story_points_field"`
}

// LoadBehavior reads and parses a YAML behavior file, expanding env vars.
func LoadBehavior(path string) (*Behavior, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("behavior: read %s: %w", path, err)
	}
	return ParseBehavior(raw)
}

// ParseBehavior parses a YAML behavior document from bytes.
func ParseBehavior(data []byte) (*Behavior, error) {
	expanded := expandEnvVars(string(data))

	var b Behavior
	if err := yaml.Unmarshal([]byte(expanded), &b); err != nil {
		return nil, fmt.Errorf("behavior: parse: %w", err)
	}

	applyBehaviorDefaults(&b)
	return &b, nil
}

// DefaultBehavior returns the behavior used when no file is configured.
func DefaultBehavior() *Behavior {
	b := &Behavior{}
	applyBehaviorDefaults(b)
	return b
}

func applyBehaviorDefaults(b *Behavior) {
	if b.Epic.DefaultPriority == "" {
		b.Epic.DefaultPriority = "Medium"
	}
	if b.Meetings.DaysBack <= 0 {
		b.Meetings.DaysBack = 30
	}
}

// envVarPattern matches ${VAR_NAME} and $VAR_NAME.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimPrefix(match, "${")
		name = strings.TrimSuffix(name, "}")
		name = strings.TrimPrefix(name, "$")
		return os.Getenv(name)
	})
}
