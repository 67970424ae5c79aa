package classify

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/melodiabl/OguriCap-Bot-sub001/internal/textnorm"
)

// Content type buckets emitted by the classifier. Everything that is not
// main-story content requires explicit confirmation before delivery.
const (
	TypeMain         = "main"
	TypeIllustration = "illustration"
	TypeSpinOff      = "spin_off"
	TypeAU           = "au"
	TypeSide         = "side"
	TypeBonus        = "bonus"
	TypeEpilogue     = "epilogue"
	TypePrologue     = "prologue"
	TypeExtra        = "extra"
)

// Content source labels.
const (
	SourceFan      = "fan"
	SourceOfficial = "official"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// TypeRule binds a content type to the markers that select it.
type TypeRule struct {
	Type    string   `yaml:"type"`
	Markers []string `yaml:"markers"`
}

// Rules is the full rule table. The type rules are ordered; the first rule
// with a matching marker decides the content type.
type Rules struct {
	Types            []TypeRule `yaml:"types"`
	FanMarkers       []string   `yaml:"fan_markers"`
	OfficialMarkers  []string   `yaml:"official_markers"`
	SensitiveMarkers []string   `yaml:"sensitive_markers"`
}

// Subject is the candidate text surface handed to the classifier.
type Subject struct {
	Title    string
	Filename string
	Body     string
	Category string
	Tags     []string
}

// Result labels a candidate item.
type Result struct {
	ContentType   string
	ContentSource string
	Sensitive     bool
}

// IsMain reports whether the candidate is main-story content.
func (r Result) IsMain() bool {
	return r.ContentType == TypeMain
}

// AutoDeliverable reports whether the candidate may be delivered without an
// explicit confirmation. Sensitive items always require one, even when they
// classify as main-story content.
func (r Result) AutoDeliverable() bool {
	return r.IsMain() && !r.Sensitive
}

// Classifier evaluates the rule table against candidate items.
type Classifier struct {
	rules Rules
}

// DefaultRules returns the embedded rule table.
func DefaultRules() Rules {
	rules, err := parseRules(defaultRulesYAML)
	if err != nil {
		// The embedded table is validated by tests; a parse failure here is
		// a build defect.
		panic(fmt.Sprintf("classify: embedded rules: %v", err))
	}
	return rules
}

// LoadRules parses a YAML rule table from r.
func LoadRules(r io.Reader) (Rules, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules: %w", err)
	}
	return parseRules(raw)
}

// LoadRulesFile parses a YAML rule table from disk.
func LoadRulesFile(path string) (Rules, error) {
	file, err := os.Open(path)
	if err != nil {
		return Rules{}, fmt.Errorf("open rules: %w", err)
	}
	defer file.Close()
	return LoadRules(file)
}

func parseRules(raw []byte) (Rules, error) {
	var rules Rules
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return Rules{}, fmt.Errorf("parse rules: %w", err)
	}
	if len(rules.Types) == 0 {
		return Rules{}, fmt.Errorf("parse rules: no type rules defined")
	}
	for i, rule := range rules.Types {
		if strings.TrimSpace(rule.Type) == "" {
			return Rules{}, fmt.Errorf("parse rules: type rule %d has no type", i)
		}
		if len(rule.Markers) == 0 {
			return Rules{}, fmt.Errorf("parse rules: type rule %q has no markers", rule.Type)
		}
	}
	return rules, nil
}

// New builds a classifier from the provided rule table.
func New(rules Rules) *Classifier {
	return &Classifier{rules: rules}
}

// NewDefault builds a classifier from the embedded rule table.
func NewDefault() *Classifier {
	return New(DefaultRules())
}

// Classify concatenates the subject's text surfaces and evaluates the
// ordered rule table against it.
func (c *Classifier) Classify(subject Subject) Result {
	parts := make([]string, 0, 4+len(subject.Tags))
	parts = append(parts, subject.Title, subject.Filename, subject.Body, subject.Category)
	parts = append(parts, subject.Tags...)
	blob := " " + textnorm.Normalize(strings.Join(parts, " ")) + " "

	result := Result{ContentType: TypeMain}
	for _, rule := range c.rules.Types {
		if matchAny(blob, rule.Markers) {
			result.ContentType = rule.Type
			break
		}
	}

	switch {
	case matchAny(blob, c.rules.FanMarkers):
		result.ContentSource = SourceFan
	case matchAny(blob, c.rules.OfficialMarkers):
		result.ContentSource = SourceOfficial
	}

	result.Sensitive = matchAny(blob, c.rules.SensitiveMarkers)
	return result
}

// matchAny reports whether any marker occurs in the normalized blob on token
// boundaries, so short markers like "au" never match inside other words.
func matchAny(blob string, markers []string) bool {
	for _, marker := range markers {
		normalized := textnorm.Normalize(marker)
		if normalized == "" {
			continue
		}
		if strings.Contains(blob, " "+normalized+" ") {
			return true
		}
	}
	return false
}
