// Package catalog holds the bundled nutrient presets, preparation stages, chatbot hints and tips.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"babyprep/backend/internal/chatbot"
)

//go:embed presets.yaml
var presetsYAML []byte

type Stage struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
	Range string `yaml:"range" json:"range"`
	Color string `yaml:"color" json:"color"`
}

type SupplementOption struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	Schedule string `yaml:"schedule" json:"schedule"`
	Caution  string `yaml:"caution" json:"caution"`
}

type Nutrient struct {
	ID          string             `yaml:"id" json:"id"`
	Stage       string             `yaml:"stage" json:"stage"`
	Nutrient    string             `yaml:"nutrient" json:"nutrient"`
	Description string             `yaml:"description" json:"description"`
	Benefits    []string           `yaml:"benefits" json:"benefits"`
	Supplements []SupplementOption `yaml:"supplements" json:"supplements"`
}

type ChatHint struct {
	Keyword string `yaml:"keyword" json:"keyword"`
	Reply   string `yaml:"reply" json:"reply"`
}

type Catalog struct {
	Stages    []Stage    `yaml:"stages" json:"stages"`
	Nutrients []Nutrient `yaml:"nutrients" json:"nutrients"`
	ChatHints []ChatHint `yaml:"chatHints" json:"chatHints"`
	Tips      []string   `yaml:"tips" json:"tips"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the embedded catalog. The YAML is parsed once per process.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Parse(presetsYAML)
	})
	return defaultCatalog, defaultErr
}

// MustDefault panics if the embedded presets are malformed.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// Load reads a catalog YAML file with the same layout as the embedded presets.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	seen := map[string]bool{}
	for _, n := range c.Nutrients {
		if strings.TrimSpace(n.ID) == "" {
			return fmt.Errorf("catalog nutrient %q has no id", n.Nutrient)
		}
		if seen[n.ID] {
			return fmt.Errorf("duplicate catalog nutrient id %q", n.ID)
		}
		seen[n.ID] = true
	}
	for i, hint := range c.ChatHints {
		if hint.Keyword == "" {
			return fmt.Errorf("chat hint %d has an empty keyword", i)
		}
	}
	return nil
}

func (c *Catalog) FindNutrient(nutrientID string) (Nutrient, bool) {
	for _, n := range c.Nutrients {
		if n.ID == nutrientID {
			return n, true
		}
	}
	return Nutrient{}, false
}

// FindSupplement resolves a supplement option under the given nutrient.
func (c *Catalog) FindSupplement(nutrientID, supplementID string) (Nutrient, SupplementOption, bool) {
	n, ok := c.FindNutrient(nutrientID)
	if !ok {
		return Nutrient{}, SupplementOption{}, false
	}
	for _, s := range n.Supplements {
		if s.ID == supplementID {
			return n, s, true
		}
	}
	return Nutrient{}, SupplementOption{}, false
}

// FindOption looks a supplement option up by its id across all nutrients.
func (c *Catalog) FindOption(supplementID string) (Nutrient, SupplementOption, bool) {
	for _, n := range c.Nutrients {
		for _, s := range n.Supplements {
			if s.ID == supplementID {
				return n, s, true
			}
		}
	}
	return Nutrient{}, SupplementOption{}, false
}

// ChatRules converts the hints into selector rules, keeping file order.
func (c *Catalog) ChatRules() []chatbot.KeywordRule {
	rules := make([]chatbot.KeywordRule, 0, len(c.ChatHints))
	for _, hint := range c.ChatHints {
		rules = append(rules, chatbot.KeywordRule{Keyword: hint.Keyword, Reply: hint.Reply})
	}
	return rules
}

var clockPattern = regexp.MustCompile(`\b([01]\d|2[0-3]):([0-5]\d)\b`)

// DefaultIntakeTime is used when a schedule names no clock time.
const DefaultIntakeTime = "09:00"

// IntakeTime extracts the HH:MM clock time from a schedule such as "매일 아침 08:00".
func (s SupplementOption) IntakeTime() string {
	if match := clockPattern.FindString(s.Schedule); match != "" {
		return match
	}
	return DefaultIntakeTime
}

// IntakeCycle maps a schedule description onto a calendar repeat cycle.
func (s SupplementOption) IntakeCycle() string {
	switch {
	case strings.Contains(s.Schedule, "매일"):
		return "daily"
	case strings.Contains(s.Schedule, "매주"), strings.HasPrefix(s.Schedule, "주 "):
		return "weekly"
	case strings.Contains(s.Schedule, "매월"), strings.Contains(s.Schedule, "매달"):
		return "monthly"
	default:
		return "daily"
	}
}
