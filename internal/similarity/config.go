// Package similarity implements Vector Space Model relevance scoring:
// tf and idf weighting, query and document length normalization, and the
// final combination of per-term contributions under cosine or overlap
// semantics.
//
// The package holds no mutable state. A Config is an immutable value, a
// PreparedQuery is read-only once built, and term statistics come from a
// caller-supplied StatsProvider, so any number of documents may be scored
// concurrently under the same Config.
package similarity

import (
	"fmt"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/vsm-search-platform/pkg/errors"
)

// WeightingMode selects the tf and idf formulas. The zero value is unset
// and rejected by Validate.
type WeightingMode int

const (
	WeightingUnset WeightingMode = iota
	WeightingBasic
	WeightingSublinear
	WeightingBoolean
)

func (m WeightingMode) String() string {
	switch m {
	case WeightingBasic:
		return "basic"
	case WeightingSublinear:
		return "sublinear"
	case WeightingBoolean:
		return "boolean"
	default:
		return "unset"
	}
}

// ParseWeightingMode maps "basic", "sublinear" or "boolean" (any case) to
// a WeightingMode.
func ParseWeightingMode(s string) (WeightingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "basic":
		return WeightingBasic, nil
	case "sublinear":
		return WeightingSublinear, nil
	case "boolean":
		return WeightingBoolean, nil
	default:
		return WeightingUnset, fmt.Errorf("%w: unknown weighting mode %q", apperrors.ErrInvalidConfiguration, s)
	}
}

// CombinationMode selects how per-term contributions are normalized and
// aggregated. The zero value is unset and rejected by Validate.
type CombinationMode int

const (
	CombinationUnset CombinationMode = iota
	CombinationCosine
	CombinationOverlap
)

func (m CombinationMode) String() string {
	switch m {
	case CombinationCosine:
		return "cosine"
	case CombinationOverlap:
		return "overlap"
	default:
		return "unset"
	}
}

// ParseCombinationMode maps "cosine" or "overlap" (any case) to a
// CombinationMode.
func ParseCombinationMode(s string) (CombinationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cosine":
		return CombinationCosine, nil
	case "overlap":
		return CombinationOverlap, nil
	default:
		return CombinationUnset, fmt.Errorf("%w: unknown combination mode %q", apperrors.ErrInvalidConfiguration, s)
	}
}

// Config is the scoring configuration for one scoring session. All six
// weighting/combination pairs are legal.
type Config struct {
	Weighting   WeightingMode
	Combination CombinationMode
}

// DefaultConfig is basic tf-idf with cosine combination.
var DefaultConfig = Config{Weighting: WeightingBasic, Combination: CombinationCosine}

// NewConfig returns a validated Config.
func NewConfig(weighting WeightingMode, combination CombinationMode) (Config, error) {
	cfg := Config{Weighting: weighting, Combination: combination}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseConfig builds a Config from the textual mode names used in YAML
// configuration and HTTP query parameters.
func ParseConfig(weighting, combination string) (Config, error) {
	w, err := ParseWeightingMode(weighting)
	if err != nil {
		return Config{}, err
	}
	c, err := ParseCombinationMode(combination)
	if err != nil {
		return Config{}, err
	}
	return Config{Weighting: w, Combination: c}, nil
}

// Validate reports ErrInvalidConfiguration when either mode is unset or
// out of range.
func (c Config) Validate() error {
	switch c.Weighting {
	case WeightingBasic, WeightingSublinear, WeightingBoolean:
	default:
		return fmt.Errorf("%w: weighting mode not selected (%d)", apperrors.ErrInvalidConfiguration, int(c.Weighting))
	}
	switch c.Combination {
	case CombinationCosine, CombinationOverlap:
	default:
		return fmt.Errorf("%w: combination mode not selected (%d)", apperrors.ErrInvalidConfiguration, int(c.Combination))
	}
	return nil
}

func (c Config) String() string {
	return c.Weighting.String() + "+" + c.Combination.String()
}
