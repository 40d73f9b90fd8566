package lifecycle

import (
	"errors"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/rs/zerolog"

	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/ticket"
)

var errPriorityRuleNotBoolean = errors.New("priority rule did not evaluate to boolean")

// PriorityRule maps a boolean expression over triage answers to a priority.
// Rules are evaluated in order; the first match wins.
type PriorityRule struct {
	Expression string
	Priority   ticket.Priority
}

// DefaultPriorityRules is the built-in triage rule set.
var DefaultPriorityRules = []PriorityRule{
	{Expression: "symptom == 'no_internet'", Priority: ticket.PriorityHigh},
	{Expression: "symptom == 'intermittent'", Priority: ticket.PriorityNormal},
	{Expression: "symptom == 'slow'", Priority: ticket.PriorityNormal},
}

// DerivePriority evaluates the rules against triage answers. Any
// device-unreachable signal forces high priority regardless of the rules.
func DerivePriority(rules []PriorityRule, answers map[string]any, logger zerolog.Logger) ticket.Priority {
	if unreachable, ok := answers["deviceUnreachable"].(bool); ok && unreachable {
		return ticket.PriorityHigh
	}
	for _, rule := range rules {
		matched, err := evaluateRule(rule.Expression, answers)
		if err != nil {
			logger.Warn().Err(err).Str("expression", rule.Expression).Msg("priority rule failed to evaluate")
			continue
		}
		if matched {
			return rule.Priority
		}
	}
	return ticket.PriorityLow
}

func evaluateRule(expression string, answers map[string]any) (bool, error) {
	expr := strings.TrimSpace(expression)
	if expr == "" {
		return false, nil
	}
	parsed, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return false, err
	}
	result, err := parsed.Evaluate(answers)
	if err != nil {
		return false, err
	}
	matched, ok := result.(bool)
	if !ok {
		return false, errPriorityRuleNotBoolean
	}
	return matched, nil
}
