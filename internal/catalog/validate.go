package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed skill.schema.json
var skillSchemaJSON string

var skillSchema = gojsonschema.NewStringLoader(skillSchemaJSON)

// ErrInvalidSkill is returned when a skill document fails validation.
var ErrInvalidSkill = errors.New("invalid skill")

// Validate checks a YAML skill document against the skill schema and the
// rules the schema cannot express (unique stage IDs, answerable questions).
func Validate(data []byte) error {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: parse yaml: %v", ErrInvalidSkill, err)
	}

	result, err := gojsonschema.Validate(skillSchema, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidSkill, strings.Join(msgs, "; "))
	}

	var skill Skill
	if err := yaml.Unmarshal(data, &skill); err != nil {
		return fmt.Errorf("%w: decode skill: %v", ErrInvalidSkill, err)
	}
	return checkSkill(skill)
}

func checkSkill(skill Skill) error {
	if skill.ID == "" {
		return fmt.Errorf("%w: skill id is required", ErrInvalidSkill)
	}
	if len(skill.Stages) == 0 {
		return fmt.Errorf("%w: skill %q has no stages", ErrInvalidSkill, skill.ID)
	}
	seen := make(map[string]bool, len(skill.Stages))
	for _, st := range skill.Stages {
		if seen[st.ID] {
			return fmt.Errorf("%w: duplicate stage id %q in skill %q", ErrInvalidSkill, st.ID, skill.ID)
		}
		seen[st.ID] = true

		if st.ID == "" {
			return fmt.Errorf("%w: stage without id in skill %q", ErrInvalidSkill, skill.ID)
		}
		if !(st.DurationMinutes > 0) {
			return fmt.Errorf("%w: stage %q needs a positive duration", ErrInvalidSkill, st.ID)
		}
		if len(st.Quiz) == 0 {
			return fmt.Errorf("%w: stage %q has no quiz", ErrInvalidSkill, st.ID)
		}

		for _, q := range st.Quiz {
			if err := q.Validate(); err != nil {
				return fmt.Errorf("%w: stage %q: %v", ErrInvalidSkill, st.ID, err)
			}
		}
	}
	return nil
}
