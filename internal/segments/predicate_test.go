package segments

import (
	"testing"

	"github.com/minicrm/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func rule(field string, op models.RuleOperator, value interface{}) models.SegmentRule {
	return models.SegmentRule{Field: field, Operator: op, Value: value}
}

func TestTranslate_EqualsNumericString(t *testing.T) {
	p := Translate(rule("visits", models.OperatorEquals, "30"))

	assert.True(t, p.Match(Record{"visits": 30}))
	assert.True(t, p.Match(Record{"visits": int32(30)}))
	assert.True(t, p.Match(Record{"visits": 30.0}))
	assert.True(t, p.Match(Record{"visits": "30"}))
	assert.False(t, p.Match(Record{"visits": 31}))
	assert.False(t, p.Match(Record{}))
}

func TestTranslate_EqualsNumberDoesNotMatchString(t *testing.T) {
	p := Translate(rule("visits", models.OperatorEquals, float64(30)))

	assert.True(t, p.Match(Record{"visits": 30}))
	assert.False(t, p.Match(Record{"visits": "30"}))
}

func TestTranslate_EqualsPlainString(t *testing.T) {
	p := Translate(rule("address.city", models.OperatorEquals, "Lagos"))

	assert.True(t, p.Match(Record{"address.city": "Lagos"}))
	assert.False(t, p.Match(Record{"address.city": "lagos"}))
	assert.False(t, p.Match(Record{"name": "Lagos"}))
}

func TestTranslate_NotEquals(t *testing.T) {
	p := Translate(rule("visits", models.OperatorNotEquals, "30"))

	assert.False(t, p.Match(Record{"visits": 30}))
	assert.False(t, p.Match(Record{"visits": "30"}))
	assert.True(t, p.Match(Record{"visits": 29}))
	assert.True(t, p.Match(Record{}), "missing field is not equal")
}

func TestTranslate_NumericComparisons(t *testing.T) {
	gt := Translate(rule("totalSpent", models.OperatorGreaterThan, "100"))
	lt := Translate(rule("totalSpent", models.OperatorLessThan, 100))

	assert.True(t, gt.Match(Record{"totalSpent": 150.5}))
	assert.False(t, gt.Match(Record{"totalSpent": 100.0}))
	assert.False(t, gt.Match(Record{"totalSpent": "150"}), "string fields never compare numerically")
	assert.False(t, gt.Match(Record{}))

	assert.True(t, lt.Match(Record{"totalSpent": 99}))
	assert.False(t, lt.Match(Record{"totalSpent": 100}))
}

func TestTranslate_UncoercibleValueMatchesNothing(t *testing.T) {
	for _, v := range []interface{}{"abc", "", nil, true} {
		p := Translate(rule("visits", models.OperatorGreaterThan, v))
		assert.Equal(t, KindNever, p.Kind, "value %v", v)
		assert.False(t, p.Match(Record{"visits": 1000}))
	}
}

func TestTranslate_UnknownOperatorMatchesNothing(t *testing.T) {
	p := Translate(rule("visits", "between", 10))

	assert.Equal(t, KindNever, p.Kind)
	assert.False(t, p.Match(Record{"visits": 10}))
}

func TestCompile_AndOr(t *testing.T) {
	rules := []models.SegmentRule{
		rule("visits", models.OperatorGreaterThan, 10),
		rule("totalSpent", models.OperatorLessThan, 500),
	}
	records := []Record{
		{"visits": 15, "totalSpent": 100.0},
		{"visits": 15, "totalSpent": 900.0},
		{"visits": 5, "totalSpent": 100.0},
		{"visits": 5, "totalSpent": 900.0},
	}

	and := Compile(rules, models.GroupAnd)
	or := Compile(rules, models.GroupOr)

	for _, rec := range records {
		first := Translate(rules[0]).Match(rec)
		second := Translate(rules[1]).Match(rec)
		assert.Equal(t, first && second, and.Match(rec), "AND %v", rec)
		assert.Equal(t, first || second, or.Match(rec), "OR %v", rec)
	}
}

func TestCompile_EmptyRulesMatchEverything(t *testing.T) {
	for _, op := range []models.GroupOperator{models.GroupAnd, models.GroupOr, ""} {
		p := Compile(nil, op)
		assert.Equal(t, KindAll, p.Kind)
		assert.True(t, p.Match(Record{}))
		assert.Equal(t, bson.M{}, p.Filter())
	}
}

func TestCompile_VisitsScenario(t *testing.T) {
	p := Compile([]models.SegmentRule{rule("visits", models.OperatorGreaterThan, "10")}, models.GroupAnd)

	var matched []int
	for _, visits := range []int{5, 15, 20} {
		if p.Match(Record{"visits": visits}) {
			matched = append(matched, visits)
		}
	}
	assert.Equal(t, []int{15, 20}, matched)
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name string
		pred Predicate
		want bson.M
	}{
		{
			name: "numeric string equals matches both forms",
			pred: Translate(rule("visits", models.OperatorEquals, "30")),
			want: bson.M{"visits": bson.M{"$in": bson.A{"30", float64(30)}}},
		},
		{
			name: "numeric string not equals excludes both forms",
			pred: Translate(rule("visits", models.OperatorNotEquals, "30")),
			want: bson.M{"visits": bson.M{"$nin": bson.A{"30", float64(30)}}},
		},
		{
			name: "plain equals",
			pred: Translate(rule("name", models.OperatorEquals, "Ada")),
			want: bson.M{"name": "Ada"},
		},
		{
			name: "plain not equals",
			pred: Translate(rule("name", models.OperatorNotEquals, "Ada")),
			want: bson.M{"name": bson.M{"$ne": "Ada"}},
		},
		{
			name: "greater than coerces",
			pred: Translate(rule("visits", models.OperatorGreaterThan, "10")),
			want: bson.M{"visits": bson.M{"$gt": float64(10)}},
		},
		{
			name: "less than",
			pred: Translate(rule("totalSpent", models.OperatorLessThan, 20.5)),
			want: bson.M{"totalSpent": bson.M{"$lt": 20.5}},
		},
		{
			name: "never",
			pred: Never(),
			want: bson.M{"_id": bson.M{"$exists": false}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pred.Filter())
		})
	}
}

func TestFilter_Groups(t *testing.T) {
	rules := []models.SegmentRule{
		rule("visits", models.OperatorGreaterThan, 10),
		rule("name", models.OperatorEquals, "Ada"),
	}

	and := Compile(rules, models.GroupAnd).Filter()
	require.Contains(t, and, "$and")
	assert.Len(t, and["$and"], 2)

	or := Compile(rules, models.GroupOr).Filter()
	require.Contains(t, or, "$or")
	assert.Equal(t, bson.M{"name": "Ada"}, or["$or"].(bson.A)[1])
}

func TestUnknownOperators(t *testing.T) {
	rules := []models.SegmentRule{
		rule("visits", "between", 1),
		rule("visits", models.OperatorEquals, 1),
		rule("name", "contains", "a"),
		rule("name", "between", "a"),
	}

	assert.Equal(t, []string{"between", "contains"}, UnknownOperators(rules))
	assert.Empty(t, UnknownOperators(rules[1:2]))
}

func TestValidate(t *testing.T) {
	assert.Empty(t, Validate([]models.SegmentRule{
		rule("visits", models.OperatorGreaterThan, "10"),
		rule("name", models.OperatorEquals, "Ada"),
	}, models.GroupAnd))

	problems := Validate([]models.SegmentRule{
		rule("", models.OperatorEquals, "x"),
		rule("visits", "between", 1),
		rule("visits", models.OperatorLessThan, "lots"),
		rule("visits", models.OperatorEquals, nil),
	}, "XOR")

	assert.Len(t, problems, 5)
	assert.Contains(t, problems[0], "ruleOperator")
}

func TestValidate_UnknownField(t *testing.T) {
	assert.Empty(t, Validate([]models.SegmentRule{
		rule("totalSpent", models.OperatorGreaterThan, 100),
		rule("address.city", models.OperatorEquals, "Lagos"),
	}, models.GroupOr))

	problems := Validate([]models.SegmentRule{rule("vists", models.OperatorNotEquals, "3")}, models.GroupAnd)
	assert.Equal(t, []string{`rules[0].field "vists" is not a customer attribute`}, problems)
}

func TestCustomerFieldsMatchRecord(t *testing.T) {
	c := &models.Customer{Phone: "08012345678", Address: &models.Address{City: "Lagos"}}
	rec := c.Record()
	assert.Len(t, rec, len(models.CustomerFields))
	for _, f := range models.CustomerFields {
		assert.Contains(t, rec, f)
	}
}
