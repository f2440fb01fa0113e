package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"coach-planner/internal/gate"
	"coach-planner/internal/nutrition"
)

// Policy holds the coaching thresholds the planning core consumes.
type Policy struct {
	MinLikedIngredients      int                 `yaml:"min_liked_ingredients"`
	MinDailyLikedIngredients int                 `yaml:"min_daily_liked_ingredients"`
	LockDurationDays         int                 `yaml:"lock_duration_days"`
	Tolerance                nutrition.Tolerance `yaml:"tolerance"`
	PreserveMacros           bool                `yaml:"preserve_macros"`
}

// DefaultPolicy returns the built-in thresholds.
func DefaultPolicy() Policy {
	return Policy{
		MinLikedIngredients:      gate.DefaultWeeklyMinimum,
		MinDailyLikedIngredients: gate.DefaultDailyMinimum,
		LockDurationDays:         7,
		Tolerance:                nutrition.DefaultTolerance,
		PreserveMacros:           true,
	}
}

// LoadPolicy reads YAML over the defaults. Keys absent from the document
// keep their default value; an empty document yields the defaults.
func LoadPolicy(r io.Reader) (Policy, error) {
	p := DefaultPolicy()
	data, err := io.ReadAll(r)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to read policy: %w", err)
	}
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil {
			return Policy{}, fmt.Errorf("failed to parse policy: %w", err)
		}
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// LoadPolicyFile is LoadPolicy over a file. An empty path returns the defaults.
func LoadPolicyFile(path string) (Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to open policy file: %w", err)
	}
	defer f.Close()
	return LoadPolicy(f)
}

// Validate rejects thresholds that cannot be enforced.
func (p Policy) Validate() error {
	if p.MinLikedIngredients < 0 || p.MinDailyLikedIngredients < 0 {
		return fmt.Errorf("liked ingredient minimums must not be negative")
	}
	if p.LockDurationDays <= 0 {
		return fmt.Errorf("lock_duration_days must be positive, got %d", p.LockDurationDays)
	}
	t := p.Tolerance
	if t.Calories < 0 || t.Protein < 0 || t.Carbs < 0 || t.Fat < 0 {
		return fmt.Errorf("tolerance percentages must not be negative")
	}
	return nil
}

// Gate builds the validation gate for these thresholds.
func (p Policy) Gate() gate.Gate {
	return gate.Gate{DailyMinimum: p.MinDailyLikedIngredients, WeeklyMinimum: p.MinLikedIngredients}
}

// LockDuration is the plan lock window.
func (p Policy) LockDuration() time.Duration {
	return time.Duration(p.LockDurationDays) * 24 * time.Hour
}
