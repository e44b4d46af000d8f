// Package plan describes the abstract operation chosen for a turn.
package plan

import (
	"strings"

	"ai-budtender-be/pkg/recommend/criteria"
)

type Action string

const (
	ActionSort    Action = "sort"
	ActionFilter  Action = "filter"
	ActionSelect  Action = "select"
	ActionExplain Action = "explain"
	ActionSearch  Action = "search"
	ActionExpand  Action = "expand"
)

type ScoringMethod string

const (
	ScoringSimpleSort       ScoringMethod = "simple_sort"
	ScoringWeightedPriority ScoringMethod = "weighted_priority"
)

type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// ParseAction accepts the analyzer's spelling of an action. Unknown names are returned as-is
// so the executor can log them.
func ParseAction(s string) Action {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case "refine":
		return ActionFilter
	case "compare", "details", "describe":
		return ActionExplain
	case "more", "alternatives":
		return ActionExpand
	case "":
		return ActionSearch
	default:
		return a
	}
}

func ParseOrder(s string) Order {
	if strings.EqualFold(strings.TrimSpace(s), string(OrderDesc)) {
		return OrderDesc
	}
	return OrderAsc
}

type SortSpec struct {
	Field string `json:"field"`
	Order Order  `json:"order"`
}

func (s SortSpec) IsZero() bool {
	return s.Field == ""
}

// Selection identifies one item of the in-context list. Index is 1-based.
type Selection struct {
	Index int    `json:"index,omitempty"`
	Name  string `json:"name,omitempty"`
	ID    int64  `json:"id,omitempty"`
}

func (s Selection) IsZero() bool {
	return s.Index == 0 && s.Name == "" && s.ID == 0
}

type Parameters struct {
	Filters       criteria.Criteria
	ScoringMethod ScoringMethod
	Sort          SortSpec
	Selection     Selection
	Limit         int
}

type ActionPlan struct {
	PrimaryAction Action
	Parameters    Parameters
	Reasoning     string
}

// NeedsContext reports whether the action operates on the previously shown list.
func (a Action) NeedsContext() bool {
	switch a {
	case ActionSort, ActionFilter, ActionSelect, ActionExplain:
		return true
	}
	return false
}
