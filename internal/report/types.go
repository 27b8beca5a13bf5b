package report

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Domain identifies one of the report domains.
type Domain string

const (
	DomainEmployees Domain = "employees"
	DomainReviews   Domain = "reviews"
	DomainGoals     Domain = "goals"
)

// ValidDomains lists the domains the compiler knows about.
var ValidDomains = []Domain{DomainEmployees, DomainReviews, DomainGoals}

// Category groups fields by where their values are stored.
type Category string

const (
	CategoryStandard Category = "standard"
	CategoryCustom   Category = "custom"
	CategoryQuestion Category = "question"
)

// FieldType is the declared type of a report field.
type FieldType string

const (
	TypeText           FieldType = "text"
	TypeNumber         FieldType = "number"
	TypeDate           FieldType = "date"
	TypeBoolean        FieldType = "boolean"
	TypeEmail          FieldType = "email"
	TypeSingleSelect   FieldType = "single_select"
	TypeMultiSelect    FieldType = "multi_select"
	TypePerson         FieldType = "person"
	TypePeople         FieldType = "people"
	TypeCycle          FieldType = "cycle"
	TypeTemplate       FieldType = "template"
	TypeSubject        FieldType = "subject"
	TypeDepartment     FieldType = "department"
	TypeGoalOutlook    FieldType = "goal_outlook"
	TypeGoalAlignment  FieldType = "goal_alignment"
	TypeGoalCategories FieldType = "goal_categories"
	TypeCount          FieldType = "count"
)

// IsReference reports whether values of this type are entity references.
func (t FieldType) IsReference() bool {
	switch t {
	case TypePerson, TypePeople, TypeCycle, TypeTemplate, TypeSubject,
		TypeDepartment, TypeGoalOutlook, TypeGoalAlignment, TypeGoalCategories:
		return true
	}
	return false
}

// IsMultiValued reports whether the field is stored as an array.
func (t FieldType) IsMultiValued() bool {
	switch t {
	case TypePeople, TypeMultiSelect, TypeDepartment, TypeSubject, TypeGoalCategories:
		return true
	}
	return false
}

// IsSingleReference reports whether the field holds exactly one reference.
func (t FieldType) IsSingleReference() bool {
	switch t {
	case TypePerson, TypeCycle, TypeTemplate, TypeGoalOutlook, TypeGoalAlignment:
		return true
	}
	return false
}

// Comparator is a filter operator.
type Comparator string

const (
	CmpEq                Comparator = "eq"
	CmpNe                Comparator = "ne"
	CmpGt                Comparator = "gt"
	CmpGte               Comparator = "gte"
	CmpLt                Comparator = "lt"
	CmpLte               Comparator = "lte"
	CmpContains          Comparator = "contains"
	CmpNotContains       Comparator = "not_contains"
	CmpStartsWith        Comparator = "starts_with"
	CmpNotStartsWith     Comparator = "not_starts_with"
	CmpEndsWith          Comparator = "ends_with"
	CmpNotEndsWith       Comparator = "not_ends_with"
	CmpBetween           Comparator = "between"
	CmpBefore            Comparator = "before"
	CmpAfter             Comparator = "after"
	CmpEqAnniversary     Comparator = "eq_anniversary"
	CmpBeforeAnniversary Comparator = "before_anniversary"
	CmpAfterAnniversary  Comparator = "after_anniversary"
	CmpGteAnniversary    Comparator = "gte_anniversary"
	CmpLteAnniversary    Comparator = "lte_anniversary"
)

// IsScalar reports whether c is one of eq/ne/gt/gte/lt/lte.
func (c Comparator) IsScalar() bool {
	switch c {
	case CmpEq, CmpNe, CmpGt, CmpGte, CmpLt, CmpLte:
		return true
	}
	return false
}

// IsAnniversary reports whether c compares month and day only.
func (c Comparator) IsAnniversary() bool {
	switch c {
	case CmpEqAnniversary, CmpBeforeAnniversary, CmpAfterAnniversary,
		CmpGteAnniversary, CmpLteAnniversary:
		return true
	}
	return false
}

// FieldFilter is one filter clause.
type FieldFilter struct {
	Field      string     `json:"field" yaml:"field"`
	Category   Category   `json:"category" yaml:"category"`
	Type       FieldType  `json:"type" yaml:"type"`
	Comparator Comparator `json:"comparator" yaml:"comparator"`
	Value      FieldValue `json:"value" yaml:"value"`
}

// Key returns the normalized lookup key of the filter's field.
func (f FieldFilter) Key() string {
	return FieldKey(f.Field)
}

// SameShape reports whether two clauses target the same field.
// Clauses in one OR-group must share (type, field, category).
func (f FieldFilter) SameShape(other FieldFilter) bool {
	return f.Type == other.Type && f.Field == other.Field && f.Category == other.Category
}

// FilterGroup is a set of clauses OR'd together.
type FilterGroup []FieldFilter

// Selection values for summarize-by dimensions.
const (
	SelectionYear      = "year"
	SelectionQuarter   = "quarter"
	SelectionMonth     = "month"
	SelectionAutomatic = "automatic"
)

// SummarizeSpec is one group-by dimension of a summary view.
type SummarizeSpec struct {
	Type     FieldType `json:"type" yaml:"type"`
	Name     string    `json:"name" yaml:"name"`
	Category Category  `json:"category,omitempty" yaml:"category,omitempty"`
	// Selection is a date unit, a positive bin count, or "automatic".
	Selection string `json:"selection,omitempty" yaml:"selection,omitempty"`
}

// Operation is an aggregation applied per summary group.
type Operation string

const (
	OpSum         Operation = "sum"
	OpAverage     Operation = "average"
	OpMinimum     Operation = "minimum"
	OpMaximum     Operation = "maximum"
	OpCount       Operation = "count"
	OpConcatenate Operation = "concatenate"
)

// AggregationOperationSpec is one aggregated column of a summary view.
type AggregationOperationSpec struct {
	Type      FieldType `json:"type" yaml:"type"`
	Name      string    `json:"name" yaml:"name"`
	Category  Category  `json:"category,omitempty" yaml:"category,omitempty"`
	Operation Operation `json:"operation" yaml:"operation"`
}

// SortDirection is asc or desc.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortSpec is one sort key. Order within a request is significant.
type SortSpec struct {
	Name      string        `json:"name" yaml:"name"`
	Direction SortDirection `json:"direction" yaml:"direction"`
	FieldPath []string      `json:"fieldPath,omitempty" yaml:"fieldPath,omitempty"`
	Type      FieldType     `json:"type" yaml:"type"`
	Category  Category      `json:"category,omitempty" yaml:"category,omitempty"`
}

// ReportQueryRequest carries everything needed to compile one report.
type ReportQueryRequest struct {
	RequestID    string                     `json:"requestId,omitempty" yaml:"requestId,omitempty"`
	Domain       Domain                     `json:"domain" yaml:"domain"`
	CompanyID    primitive.ObjectID         `json:"companyId" yaml:"companyId"`
	Filters      []FilterGroup              `json:"filters,omitempty" yaml:"filters,omitempty"`
	Sorts        []SortSpec                 `json:"sorts,omitempty" yaml:"sorts,omitempty"`
	SummarizeBy  []SummarizeSpec            `json:"summarizeBy,omitempty" yaml:"summarizeBy,omitempty"`
	Aggregations []AggregationOperationSpec `json:"aggregationOperations,omitempty" yaml:"aggregationOperations,omitempty"`
	Page         int                        `json:"page,omitempty" yaml:"page,omitempty"`
	PageSize     int                        `json:"pageSize,omitempty" yaml:"pageSize,omitempty"`
	Permissions  Permissions                `json:"permissions,omitempty" yaml:"permissions,omitempty"`
	// AsOf is only honored by the employee domain. Zero means "now".
	AsOf time.Time `json:"asOf,omitempty" yaml:"asOf,omitempty"`
}

// IsSummary reports whether the request asks for a summary view.
func (r *ReportQueryRequest) IsSummary() bool {
	return len(r.SummarizeBy) > 0
}

// View distinguishes row-per-record output from grouped output.
type View string

const (
	ViewDetail  View = "detail"
	ViewSummary View = "summary"
)

// View returns the view this request compiles to.
func (r *ReportQueryRequest) View() View {
	if r.IsSummary() {
		return ViewSummary
	}
	return ViewDetail
}

// FieldKey normalizes a display name ("Activation Status") into a table
// key ("activation_status").
func FieldKey(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.Join(strings.FieldsFunc(key, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), "_")
	return key
}
