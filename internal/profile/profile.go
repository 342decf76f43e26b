// Package profile loads the structured profile metadata that accompanies
// the résumé. Loaded once per process; read-only afterwards. Keeping it
// consistent with the source document is the author's job, not the
// system's.
package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Profile is the structured record rendered alongside retrieved passages.
type Profile struct {
	Name            string   `json:"name"`
	Title           string   `json:"title"`
	Email           string   `json:"email"`
	Location        string   `json:"location"`
	BirthDate       string   `json:"birth_date"` // YYYY-MM-DD, optional
	ExperienceYears int      `json:"experience_years"`
	Skills          []string `json:"skills"`
	Languages       []string `json:"languages"`
	Education       []string `json:"education"`

	age int // derived from BirthDate at load time, 0 if unknown
}

// Load reads and parses a profile JSON file. The age is computed once
// here; the language model is explicitly forbidden from computing it.
func Load(path string) (Profile, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Profile{}, fmt.Errorf("read profile %s: %w", path, err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parse profile %s: %w", path, err)
	}

	if p.Name == "" {
		return Profile{}, fmt.Errorf("profile %s: name is required", path)
	}

	if p.BirthDate != "" {
		age, err := ageAt(p.BirthDate, time.Now())
		if err != nil {
			return Profile{}, fmt.Errorf("profile %s: %w", path, err)
		}
		p.age = age
	}

	return p, nil
}

// Age returns the derived age, or 0 when no birth date is set.
func (p Profile) Age() int { return p.age }

// PromptLines renders the profile as plain fact lines for the grounding
// context. List values are comma-joined; empty fields are omitted.
func (p Profile) PromptLines() string {
	var b strings.Builder
	b.WriteString("FIXED PROFILE FACTS:\n")

	writeLine := func(key, val string) {
		if val == "" {
			return
		}
		b.WriteString("- ")
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(val)
		b.WriteString("\n")
	}

	writeLine("Name", p.Name)
	writeLine("Title", p.Title)
	writeLine("Email", p.Email)
	writeLine("Location", p.Location)
	if p.age > 0 {
		writeLine("Age", fmt.Sprintf("%d", p.age))
	}
	if p.ExperienceYears > 0 {
		writeLine("Experience years", fmt.Sprintf("%d", p.ExperienceYears))
	}
	writeLine("Skills", strings.Join(p.Skills, ", "))
	writeLine("Languages", strings.Join(p.Languages, ", "))
	writeLine("Education", strings.Join(p.Education, ", "))

	return strings.TrimRight(b.String(), "\n")
}

// ageAt computes full years elapsed between a YYYY-MM-DD birth date and now,
// subtracting one when the birthday has not been reached yet this year.
func ageAt(birthDate string, now time.Time) (int, error) {
	born, err := time.Parse("2006-01-02", birthDate)
	if err != nil {
		return 0, fmt.Errorf("invalid birth_date %q: %w", birthDate, err)
	}

	age := now.Year() - born.Year()
	if now.Month() < born.Month() || (now.Month() == born.Month() && now.Day() < born.Day()) {
		age--
	}
	if age < 0 {
		return 0, fmt.Errorf("birth_date %q is in the future", birthDate)
	}
	return age, nil
}
