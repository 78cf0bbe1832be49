package csat

import (
	"fmt"
	"strings"

	"github.com/godilite/helpdesk-kpi/internal/ingest"
)

// Strategy selects how a digit is located in a rating text.
type Strategy string

const (
	// StrategyFirstDigit uses the first digit anywhere in the text.
	StrategyFirstDigit Strategy = "first_digit"
	// StrategyLeadingDigit only accepts a digit in the first position.
	StrategyLeadingDigit Strategy = "leading_digit"
)

// ParseStrategy validates a configured strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.TrimSpace(strings.ToLower(s))) {
	case "", StrategyFirstDigit:
		return StrategyFirstDigit, nil
	case StrategyLeadingDigit:
		return StrategyLeadingDigit, nil
	default:
		return "", fmt.Errorf("unknown score strategy %q", s)
	}
}

type labelScore struct {
	label string
	score int
}

// defaultLabels are used when the text carries no digit.
var defaultLabels = []labelScore{
	{"otimo", 5},
	{"excelente", 5},
	{"bom", 4},
	{"regular", 3},
	{"ruim", 2},
	{"pessimo", 1},
}

// ScoreParser derives the 1-5 satisfaction score from a free-text rating.
type ScoreParser struct {
	strategy Strategy
	labels   []labelScore
}

func NewScoreParser(strategy Strategy) ScoreParser {
	if strategy == "" {
		strategy = StrategyFirstDigit
	}
	return ScoreParser{strategy: strategy, labels: defaultLabels}
}

// Strategy returns the configured digit strategy.
func (p ScoreParser) Strategy() Strategy { return p.strategy }

// Score returns nil when no score between 1 and 5 can be read.
func (p ScoreParser) Score(rating string) *int {
	v := ingest.Fold(rating)
	if v == "" {
		return nil
	}

	if d, ok := p.digit(v); ok {
		if d < 1 || d > 5 {
			return nil
		}
		return &d
	}

	for _, l := range p.labels {
		if strings.HasPrefix(v, l.label) {
			s := l.score
			return &s
		}
	}
	return nil
}

func (p ScoreParser) digit(v string) (int, bool) {
	if p.strategy == StrategyLeadingDigit {
		if c := v[0]; c >= '0' && c <= '9' {
			return int(c - '0'), true
		}
		return 0, false
	}
	for _, c := range v {
		if c >= '0' && c <= '9' {
			return int(c - '0'), true
		}
	}
	return 0, false
}
