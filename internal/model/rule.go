package model

import "time"

// Operator is a comparison applied by a rule condition.
type Operator string

const (
	OpContains   Operator = "contains"
	OpEquals     Operator = "equals"
	OpStartsWith Operator = "startsWith"
	OpEndsWith   Operator = "endsWith"
	OpRegex      Operator = "regex"
	OpIn         Operator = "in"
	OpNotIn      Operator = "notIn"
	OpExists     Operator = "exists"
)

// RuleCondition is a single predicate over a named field of the item or
// its derived context. Conditions on a rule are AND-ed; a condition with
// a non-empty Or group is instead the disjunction of its members.
type RuleCondition struct {
	Field         string          `json:"field,omitempty" yaml:"field,omitempty"`
	Operator      Operator        `json:"operator,omitempty" yaml:"operator,omitempty"`
	Value         string          `json:"value,omitempty" yaml:"value,omitempty"`
	Values        []string        `json:"values,omitempty" yaml:"values,omitempty"`
	CaseSensitive bool            `json:"caseSensitive,omitempty" yaml:"caseSensitive,omitempty"`
	Or            []RuleCondition `json:"or,omitempty" yaml:"or,omitempty"`
}

// Targets returns the comparison values: Values when present, otherwise
// the single Value.
func (c RuleCondition) Targets() []string {
	if len(c.Values) > 0 {
		return c.Values
	}
	if c.Value != "" {
		return []string{c.Value}
	}
	return nil
}

// ActionType identifies what a matched rule does.
type ActionType string

const (
	ActionTypeReject      ActionType = "REJECT"
	ActionTypeArchive     ActionType = "ARCHIVE"
	ActionTypeSkipAI      ActionType = "SKIP_AI"
	ActionTypeSetCategory ActionType = "SET_CATEGORY"
	ActionTypeSetPriority ActionType = "SET_PRIORITY"
	ActionTypeAddTag      ActionType = "ADD_TAG"
	ActionTypeCreateTask  ActionType = "CREATE_TASK"
	ActionTypeNotify      ActionType = "NOTIFY"
)

// RuleAction is one effect of a matched rule. Value carries the scalar
// argument for SET_CATEGORY / SET_PRIORITY / ADD_TAG; Payload carries
// structured arguments for deferred actions such as CREATE_TASK.
type RuleAction struct {
	Type    ActionType     `json:"type" yaml:"type"`
	Value   string         `json:"value,omitempty" yaml:"value,omitempty"`
	Payload map[string]any `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// PipelineRule is a named, prioritized (conditions -> actions) unit
// evaluated within exactly one pipeline stage. Builtin rules are compiled
// from tenant configuration defaults and never persisted per tenant.
type PipelineRule struct {
	ID             string          `json:"id" yaml:"id,omitempty"`
	TenantID       string          `json:"tenant_id,omitempty" yaml:"-"`
	Name           string          `json:"name" yaml:"name"`
	Stage          Stage           `json:"stage" yaml:"stage"`
	Priority       int             `json:"priority" yaml:"priority"`
	Conditions     []RuleCondition `json:"conditions" yaml:"conditions"`
	Actions        []RuleAction    `json:"actions" yaml:"actions"`
	StopProcessing bool            `json:"stop_processing,omitempty" yaml:"stopProcessing,omitempty"`
	Builtin        bool            `json:"builtin,omitempty" yaml:"-"`
	Enabled        bool            `json:"enabled" yaml:"enabled"`
	MatchCount     int64           `json:"match_count,omitempty" yaml:"-"`
	LastMatchedAt  *time.Time      `json:"last_matched_at,omitempty" yaml:"-"`
	CreatedAt      time.Time       `json:"created_at,omitempty" yaml:"-"`
	UpdatedAt      time.Time       `json:"updated_at,omitempty" yaml:"-"`
}
