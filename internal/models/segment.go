package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RuleOperator compares a customer field against a rule value
type RuleOperator string

const (
	OperatorEquals      RuleOperator = "equals"
	OperatorNotEquals   RuleOperator = "notEquals"
	OperatorGreaterThan RuleOperator = "greaterThan"
	OperatorLessThan    RuleOperator = "lessThan"
)

// IsValid reports whether op is one of the supported rule operators
func (op RuleOperator) IsValid() bool {
	switch op {
	case OperatorEquals, OperatorNotEquals, OperatorGreaterThan, OperatorLessThan:
		return true
	}
	return false
}

// GroupOperator joins the rules of a segment
type GroupOperator string

const (
	GroupAnd GroupOperator = "AND"
	GroupOr  GroupOperator = "OR"
)

// SegmentRule is one field/operator/value condition over customer attributes.
// Value is a string or a number as received from JSON.
type SegmentRule struct {
	Field    string       `bson:"field" json:"field"`
	Operator RuleOperator `bson:"operator" json:"operator"`
	Value    interface{}  `bson:"value" json:"value"`
}

// Segment is a named, reusable audience definition
type Segment struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	Name          string             `bson:"name" json:"name"`
	Description   string             `bson:"description,omitempty" json:"description,omitempty"`
	Rules         []SegmentRule      `bson:"rules" json:"rules"`
	RuleOperator  GroupOperator      `bson:"ruleOperator" json:"ruleOperator"`
	CustomerCount int64              `bson:"customerCount" json:"customerCount"`
	CreatedBy     primitive.ObjectID `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}
