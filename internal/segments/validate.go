package segments

import (
	"fmt"

	"github.com/minicrm/backend/internal/models"
)

// Validate checks the shape of a rule set before it is stored and returns
// one message per problem found.
func Validate(rules []models.SegmentRule, op models.GroupOperator) []string {
	var problems []string
	if op != "" && op != models.GroupAnd && op != models.GroupOr {
		problems = append(problems, fmt.Sprintf("ruleOperator must be AND or OR, got %q", op))
	}
	for i, rule := range rules {
		switch {
		case rule.Field == "":
			problems = append(problems, fmt.Sprintf("rules[%d].field is required", i))
		case !models.IsCustomerField(rule.Field):
			problems = append(problems, fmt.Sprintf("rules[%d].field %q is not a customer attribute", i, rule.Field))
		}
		if !rule.Operator.IsValid() {
			problems = append(problems, fmt.Sprintf("rules[%d].operator %q is not supported", i, rule.Operator))
			continue
		}
		switch rule.Value.(type) {
		case string, float64, float32, int, int32, int64:
		default:
			problems = append(problems, fmt.Sprintf("rules[%d].value must be a string or a number", i))
			continue
		}
		if rule.Operator == models.OperatorGreaterThan || rule.Operator == models.OperatorLessThan {
			if _, ok := coerceNumber(rule.Value); !ok {
				problems = append(problems, fmt.Sprintf("rules[%d].value %v is not numeric", i, rule.Value))
			}
		}
	}
	return problems
}
