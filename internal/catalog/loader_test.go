package catalog_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/p-n-ai/pai-progress/internal/catalog"
)

const goBasicsYAML = `
id: go-basics
name: "Go Basics"
description: "From hello world to goroutines"
stages:
  - id: intro
    title: "Introduction"
    duration_minutes: 30
    quiz:
      - id: q1
        prompt: "Which command runs a Go program?"
        options: ["go run", "go exec", "go start"]
        correct_option: 0
        explanation: "go run compiles and runs the named files."
      - id: q2
        prompt: "What is the zero value of an int?"
        options: ["nil", "0", "undefined"]
        correct_option: 1
      - id: q3
        prompt: "Which keyword declares a constant?"
        options: ["let", "const", "final"]
        correct_option: 1
  - id: types
    title: "Types"
    duration_minutes: 20
    quiz:
      - id: q1
        prompt: "Is a string mutable?"
        options: ["yes", "no"]
        correct_option: 1
`

func TestLoader_LoadSkills(t *testing.T) {
	dir := setupTestCatalog(t)

	loader, err := catalog.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	skills := loader.AllSkills()
	if len(skills) != 1 {
		t.Fatalf("AllSkills() = %d skills, want 1", len(skills))
	}
}

func TestLoader_GetSkill(t *testing.T) {
	dir := setupTestCatalog(t)

	loader, err := catalog.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	skill, found := loader.GetSkill("go-basics")
	if !found {
		t.Fatal("GetSkill(go-basics) not found")
	}
	if skill.Name != "Go Basics" {
		t.Errorf("Name = %q, want Go Basics", skill.Name)
	}
	if len(skill.Stages) != 2 {
		t.Fatalf("len(Stages) = %d, want 2", len(skill.Stages))
	}
	for i, st := range skill.Stages {
		if st.SequenceIndex != i {
			t.Errorf("Stages[%d].SequenceIndex = %d, want %d", i, st.SequenceIndex, i)
		}
	}
	if skill.Stages[0].DurationMinutes != 30 {
		t.Errorf("DurationMinutes = %v, want 30", skill.Stages[0].DurationMinutes)
	}
	if len(skill.Stages[0].Quiz) != 3 {
		t.Errorf("len(Quiz) = %d, want 3", len(skill.Stages[0].Quiz))
	}
}

func TestLoader_Stage(t *testing.T) {
	loader, err := catalog.NewLoader(setupTestCatalog(t))
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}

	st, err := loader.Stage("go-basics", "types")
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	if st.SequenceIndex != 1 {
		t.Errorf("SequenceIndex = %d, want 1", st.SequenceIndex)
	}

	if _, err := loader.Stage("go-basics", "missing"); !errors.Is(err, catalog.ErrUnknownStage) {
		t.Errorf("Stage(missing) error = %v, want ErrUnknownStage", err)
	}
	if _, err := loader.Stage("rust", "intro"); !errors.Is(err, catalog.ErrUnknownSkill) {
		t.Errorf("Stage(rust) error = %v, want ErrUnknownSkill", err)
	}
}

func TestLoader_SkipsInvalidSkill(t *testing.T) {
	dir := setupTestCatalog(t)

	// Stage without a quiz is outside the gating contract.
	os.WriteFile(filepath.Join(dir, "skills", "broken.yaml"), []byte(`
id: broken
name: Broken
stages:
  - id: only
    title: "No quiz"
    duration_minutes: 10
`), 0o644)

	loader, err := catalog.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	if _, found := loader.GetSkill("broken"); found {
		t.Error("invalid skill should be skipped")
	}
	if len(loader.AllSkills()) != 1 {
		t.Errorf("AllSkills() = %d, want 1", len(loader.AllSkills()))
	}
}

func TestLoader_SkipsNonSkillYAML(t *testing.T) {
	dir := setupTestCatalog(t)
	os.WriteFile(filepath.Join(dir, "skills", "meta.yaml"), []byte("owner: content-team\n"), 0o644)

	loader, err := catalog.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	if len(loader.AllSkills()) != 1 {
		t.Errorf("AllSkills() = %d, want 1 (non-skill YAML should be skipped)", len(loader.AllSkills()))
	}
}

func TestLoader_EmptyDir(t *testing.T) {
	loader, err := catalog.NewLoader(t.TempDir())
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	if n := len(loader.AllSkills()); n != 0 {
		t.Errorf("AllSkills() = %d, want 0 for empty dir", n)
	}
}

func TestLoader_NormalizesTitles(t *testing.T) {
	dir := t.TempDir()
	// Title written with a combining acute accent (NFD).
	doc := "id: cafe\nname: Cafe\nstages:\n" +
		"  - id: s1\n    title: \"Cafe\u0301\"\n    duration_minutes: 5\n" +
		"    quiz:\n      - {id: q1, prompt: ok, options: [yes, no], correct_option: 0}\n"
	os.WriteFile(filepath.Join(dir, "cafe.yaml"), []byte(doc), 0o644)

	loader, err := catalog.NewLoader(dir)
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	skill, ok := loader.GetSkill("cafe")
	if !ok {
		t.Fatal("GetSkill(cafe) not found")
	}
	if skill.Stages[0].Title != "Caf\u00e9" {
		t.Errorf("Title = %q, want NFC-composed Café", skill.Stages[0].Title)
	}
}

func TestNewStatic(t *testing.T) {
	_, err := catalog.NewStatic(catalog.Skill{
		ID:     "empty",
		Name:   "Empty",
		Stages: []catalog.Stage{{ID: "s1", Title: "S1"}},
	})
	if !errors.Is(err, catalog.ErrInvalidSkill) {
		t.Errorf("NewStatic() error = %v, want ErrInvalidSkill", err)
	}
}

func setupTestCatalog(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	skillsDir := filepath.Join(dir, "skills")
	os.MkdirAll(skillsDir, 0o755)
	os.WriteFile(filepath.Join(skillsDir, "go-basics.yaml"), []byte(goBasicsYAML), 0o644)
	os.WriteFile(filepath.Join(skillsDir, "README.md"), []byte("# Skills"), 0o644)

	return dir
}
