// Package catalog loads skills and their ordered stages from YAML files.
package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/p-n-ai/pai-progress/internal/quiz"
)

var (
	ErrUnknownSkill = errors.New("unknown skill")
	ErrUnknownStage = errors.New("unknown stage")
)

// Loader loads and caches skill definitions from the filesystem.
type Loader struct {
	rootDir string
	skills  map[string]Skill
	mu      sync.RWMutex
}

// NewLoader creates a new catalog loader and loads all skills under rootDir.
func NewLoader(rootDir string) (*Loader, error) {
	l := &Loader{
		rootDir: rootDir,
		skills:  make(map[string]Skill),
	}

	if err := l.loadAll(); err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	slog.Info("catalog loaded", "skills", len(l.skills))
	return l, nil
}

// NewStatic builds a catalog from in-memory skills. Skills are validated the
// same way files are; the first invalid skill aborts.
func NewStatic(skills ...Skill) (*Loader, error) {
	l := &Loader{skills: make(map[string]Skill, len(skills))}
	for _, s := range skills {
		if err := checkSkill(s); err != nil {
			return nil, err
		}
		if _, dup := l.skills[s.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate skill id %q", ErrInvalidSkill, s.ID)
		}
		l.skills[s.ID] = prepare(s)
	}
	return l, nil
}

// GetSkill returns a skill by ID.
func (l *Loader) GetSkill(id string) (Skill, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.skills[id]
	return s, ok
}

// AllSkills returns all loaded skills ordered by ID.
func (l *Loader) AllSkills() []Skill {
	l.mu.RLock()
	defer l.mu.RUnlock()
	skills := make([]Skill, 0, len(l.skills))
	for _, s := range l.skills {
		skills = append(skills, s)
	}
	sort.Slice(skills, func(i, j int) bool { return skills[i].ID < skills[j].ID })
	return skills
}

// Stage resolves a stage definition by skill and stage ID.
func (l *Loader) Stage(skillID, stageID string) (Stage, error) {
	skill, ok := l.GetSkill(skillID)
	if !ok {
		return Stage{}, fmt.Errorf("%w: %s", ErrUnknownSkill, skillID)
	}
	i := skill.StageIndex(stageID)
	if i < 0 {
		return Stage{}, fmt.Errorf("%w: %s/%s", ErrUnknownStage, skillID, stageID)
	}
	return skill.Stages[i], nil
}

func (l *Loader) loadAll() error {
	return filepath.Walk(l.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
			return l.loadSkill(path)
		}
		return nil
	})
}

func (l *Loader) loadSkill(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var probe struct {
		Stages any `yaml:"stages"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil || probe.Stages == nil {
		return nil // Not a skill file
	}

	if err := Validate(data); err != nil {
		slog.Warn("skipping invalid skill YAML", "path", path, "error", err)
		return nil
	}

	var skill Skill
	if err := yaml.Unmarshal(data, &skill); err != nil {
		slog.Warn("skipping invalid skill YAML", "path", path, "error", err)
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, dup := l.skills[skill.ID]; dup {
		slog.Warn("skipping duplicate skill", "path", path, "skill_id", skill.ID)
		return nil
	}
	l.skills[skill.ID] = prepare(skill)
	return nil
}

// prepare assigns sequence indexes and NFC-normalizes display text so
// titles compare and render consistently regardless of the source editor.
func prepare(s Skill) Skill {
	s.Name = norm.NFC.String(s.Name)
	s.Description = norm.NFC.String(s.Description)

	stages := make([]Stage, len(s.Stages))
	for i, st := range s.Stages {
		st.SequenceIndex = i
		st.Title = norm.NFC.String(st.Title)
		questions := make([]quiz.Question, len(st.Quiz))
		for j, q := range st.Quiz {
			q.Prompt = norm.NFC.String(q.Prompt)
			q.Explanation = norm.NFC.String(q.Explanation)
			opts := make([]string, len(q.Options))
			for k, o := range q.Options {
				opts[k] = norm.NFC.String(o)
			}
			q.Options = opts
			questions[j] = q
		}
		st.Quiz = questions
		stages[i] = st
	}
	s.Stages = stages
	return s
}
