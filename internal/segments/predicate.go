// Package segments compiles segment rules into predicates that can be
// evaluated in memory against a customer record or rendered as a MongoDB
// filter.
package segments

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/minicrm/backend/internal/models"
	"github.com/spf13/cast"
	"go.mongodb.org/mongo-driver/bson"
)

// Record is a flat field/value view of a stored entity. Nested fields use
// dotted keys such as "address.city".
type Record map[string]interface{}

// Kind identifies the variant held by a Predicate
type Kind int

const (
	KindNever Kind = iota
	KindAll
	KindEquals
	KindNotEquals
	KindGreaterThan
	KindLessThan
	KindAnd
	KindOr
)

func (k Kind) String() string {
	switch k {
	case KindNever:
		return "never"
	case KindAll:
		return "all"
	case KindEquals:
		return "equals"
	case KindNotEquals:
		return "notEquals"
	case KindGreaterThan:
		return "greaterThan"
	case KindLessThan:
		return "lessThan"
	case KindAnd:
		return "and"
	case KindOr:
		return "or"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Predicate is a tagged variant. Which fields are meaningful depends on Kind:
// comparisons use Field and Value (Number and Numeric when the value has a
// numeric form), groups use Children.
type Predicate struct {
	Kind     Kind
	Field    string
	Value    interface{}
	Number   float64
	Numeric  bool
	Children []Predicate
}

// Never matches nothing
func Never() Predicate { return Predicate{Kind: KindNever} }

// All matches every record
func All() Predicate { return Predicate{Kind: KindAll} }

// Translate turns a single rule into a predicate. Operators that are not
// recognised and numeric comparisons whose value cannot be coerced to a
// number translate to Never.
func Translate(rule models.SegmentRule) Predicate {
	switch rule.Operator {
	case models.OperatorEquals, models.OperatorNotEquals:
		p := Predicate{Kind: KindEquals, Field: rule.Field, Value: rule.Value}
		if rule.Operator == models.OperatorNotEquals {
			p.Kind = KindNotEquals
		}
		p.Number, p.Numeric = numericForm(rule.Value)
		return p
	case models.OperatorGreaterThan, models.OperatorLessThan:
		n, ok := coerceNumber(rule.Value)
		if !ok {
			return Never()
		}
		p := Predicate{Kind: KindGreaterThan, Field: rule.Field, Value: rule.Value, Number: n, Numeric: true}
		if rule.Operator == models.OperatorLessThan {
			p.Kind = KindLessThan
		}
		return p
	}
	return Never()
}

// Compile joins the translated rules under op. An empty rule list matches
// every record regardless of op. Anything other than OR is treated as AND.
func Compile(rules []models.SegmentRule, op models.GroupOperator) Predicate {
	if len(rules) == 0 {
		return All()
	}
	children := make([]Predicate, 0, len(rules))
	for _, rule := range rules {
		children = append(children, Translate(rule))
	}
	if op == models.GroupOr {
		return Predicate{Kind: KindOr, Children: children}
	}
	return Predicate{Kind: KindAnd, Children: children}
}

// UnknownOperators returns the operators in rules that Translate does not
// recognise, in order of first appearance.
func UnknownOperators(rules []models.SegmentRule) []string {
	var unknown []string
	seen := make(map[models.RuleOperator]bool)
	for _, rule := range rules {
		if rule.Operator.IsValid() || seen[rule.Operator] {
			continue
		}
		seen[rule.Operator] = true
		unknown = append(unknown, string(rule.Operator))
	}
	return unknown
}

// Match evaluates the predicate against rec
func (p Predicate) Match(rec Record) bool {
	switch p.Kind {
	case KindAll:
		return true
	case KindEquals:
		return p.equals(rec)
	case KindNotEquals:
		return !p.equals(rec)
	case KindGreaterThan, KindLessThan:
		v, ok := rec[p.Field]
		if !ok {
			return false
		}
		n, ok := toNumber(v)
		if !ok {
			return false
		}
		if p.Kind == KindGreaterThan {
			return n > p.Number
		}
		return n < p.Number
	case KindAnd:
		for _, child := range p.Children {
			if !child.Match(rec) {
				return false
			}
		}
		return true
	case KindOr:
		for _, child := range p.Children {
			if child.Match(rec) {
				return true
			}
		}
		return false
	}
	return false
}

func (p Predicate) equals(rec Record) bool {
	v, ok := rec[p.Field]
	if !ok {
		return false
	}
	if p.Numeric {
		if n, isNum := toNumber(v); isNum {
			return n == p.Number
		}
	}
	if s, isStr := p.Value.(string); isStr {
		fs, fieldIsStr := v.(string)
		return fieldIsStr && fs == s
	}
	if _, ruleIsNum := toNumber(p.Value); ruleIsNum {
		return false
	}
	return reflect.DeepEqual(v, p.Value)
}

// Filter renders the predicate as a MongoDB query document with the same
// semantics as Match.
func (p Predicate) Filter() bson.M {
	switch p.Kind {
	case KindAll:
		return bson.M{}
	case KindEquals:
		if s, ok := p.Value.(string); ok && p.Numeric {
			return bson.M{p.Field: bson.M{"$in": bson.A{s, p.Number}}}
		}
		return bson.M{p.Field: p.Value}
	case KindNotEquals:
		if s, ok := p.Value.(string); ok && p.Numeric {
			return bson.M{p.Field: bson.M{"$nin": bson.A{s, p.Number}}}
		}
		return bson.M{p.Field: bson.M{"$ne": p.Value}}
	case KindGreaterThan:
		return bson.M{p.Field: bson.M{"$gt": p.Number}}
	case KindLessThan:
		return bson.M{p.Field: bson.M{"$lt": p.Number}}
	case KindAnd, KindOr:
		parts := make(bson.A, 0, len(p.Children))
		for _, child := range p.Children {
			parts = append(parts, child.Filter())
		}
		if p.Kind == KindAnd {
			return bson.M{"$and": parts}
		}
		return bson.M{"$or": parts}
	}
	// every document carries an _id
	return bson.M{"_id": bson.M{"$exists": false}}
}

// numericForm reports the number a rule value stands for, if any. Strings
// count when they parse as a number.
func numericForm(v interface{}) (float64, bool) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(s, 64)
		return n, err == nil
	}
	return toNumber(v)
}

func coerceNumber(v interface{}) (float64, bool) {
	switch v.(type) {
	case nil, bool:
		return 0, false
	case string:
		return numericForm(v)
	}
	n, err := cast.ToFloat64E(v)
	return n, err == nil
}

// toNumber converts stored numeric types to float64. Strings are not numbers.
func toNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return cast.ToFloat64(n), true
	}
	return 0, false
}
