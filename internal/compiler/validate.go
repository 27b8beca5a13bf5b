package compiler

import (
	"fmt"
	"strconv"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/report"
)

// Request validation error codes (E100-E199)
const (
	ErrUnknownDomain       = "E100" // domain is not one of employees/reviews/goals
	ErrMissingCompany      = "E101" // companyId is required
	ErrInvalidComparator   = "E102" // comparator is not recognized
	ErrInvalidFieldType    = "E103" // field type is not recognized
	ErrInvalidCategory     = "E104" // category is not recognized
	ErrInvalidDirection    = "E105" // sort direction must be asc or desc
	ErrInvalidOperation    = "E106" // aggregation operation is not recognized
	ErrInvalidSelection    = "E107" // summarize selection is not a unit, count or automatic
	ErrInvalidPagination   = "E108" // page or pageSize is negative
	ErrEmptyFilterGroup    = "E109" // filter group has no clauses
	ErrAggregationNoFields = "E110" // aggregations without summarize-by
)

// ValidationError is one structural problem with a request.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

var (
	validTypes = map[report.FieldType]bool{
		report.TypeText: true, report.TypeNumber: true, report.TypeDate: true,
		report.TypeBoolean: true, report.TypeEmail: true, report.TypeSingleSelect: true,
		report.TypeMultiSelect: true, report.TypePerson: true, report.TypePeople: true,
		report.TypeCycle: true, report.TypeTemplate: true, report.TypeSubject: true,
		report.TypeDepartment: true, report.TypeGoalOutlook: true, report.TypeGoalAlignment: true,
		report.TypeGoalCategories: true, report.TypeCount: true,
	}
	validComparators = map[report.Comparator]bool{
		report.CmpEq: true, report.CmpNe: true, report.CmpGt: true, report.CmpGte: true,
		report.CmpLt: true, report.CmpLte: true, report.CmpContains: true, report.CmpNotContains: true,
		report.CmpStartsWith: true, report.CmpNotStartsWith: true, report.CmpEndsWith: true,
		report.CmpNotEndsWith: true, report.CmpBetween: true, report.CmpBefore: true, report.CmpAfter: true,
		report.CmpEqAnniversary: true, report.CmpBeforeAnniversary: true, report.CmpAfterAnniversary: true,
		report.CmpGteAnniversary: true, report.CmpLteAnniversary: true,
	}
	validCategories = map[report.Category]bool{
		"": true, report.CategoryStandard: true, report.CategoryCustom: true, report.CategoryQuestion: true,
	}
	validOperations = map[report.Operation]bool{
		report.OpSum: true, report.OpAverage: true, report.OpMinimum: true,
		report.OpMaximum: true, report.OpCount: true, report.OpConcatenate: true,
	}
)

// ValidateRequest checks the request's structure.
// Returns all errors found (does not fail-fast).
func ValidateRequest(req *report.ReportQueryRequest) []ValidationError {
	var errs []ValidationError
	add := func(code, field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Code: code})
	}

	if !knownDomain(req.Domain) {
		add(ErrUnknownDomain, "domain", "unknown domain %q", req.Domain)
	}
	if req.CompanyID.IsZero() {
		add(ErrMissingCompany, "companyId", "companyId is required")
	}
	if req.Page < 0 {
		add(ErrInvalidPagination, "page", "page must not be negative")
	}
	if req.PageSize < 0 {
		add(ErrInvalidPagination, "pageSize", "pageSize must not be negative")
	}

	for i, group := range req.Filters {
		if len(group) == 0 {
			add(ErrEmptyFilterGroup, fmt.Sprintf("filters[%d]", i), "filter group has no clauses")
		}
		for j, f := range group {
			path := fmt.Sprintf("filters[%d][%d]", i, j)
			if !validComparators[f.Comparator] {
				add(ErrInvalidComparator, path+".comparator", "invalid comparator %q", f.Comparator)
			}
			if !validTypes[f.Type] {
				add(ErrInvalidFieldType, path+".type", "invalid type %q for field %q", f.Type, f.Field)
			}
			if !validCategories[f.Category] {
				add(ErrInvalidCategory, path+".category", "invalid category %q", f.Category)
			}
		}
	}

	for i, s := range req.Sorts {
		if s.Direction != report.SortAsc && s.Direction != report.SortDesc {
			add(ErrInvalidDirection, fmt.Sprintf("sorts[%d].direction", i),
				"invalid direction %q, must be \"asc\" or \"desc\"", s.Direction)
		}
	}

	for i, s := range req.SummarizeBy {
		path := fmt.Sprintf("summarizeBy[%d]", i)
		if !validTypes[s.Type] {
			add(ErrInvalidFieldType, path+".type", "invalid type %q for field %q", s.Type, s.Name)
		}
		if !validSelection(s) {
			add(ErrInvalidSelection, path+".selection", "invalid selection %q for %s field", s.Selection, s.Type)
		}
	}

	for i, a := range req.Aggregations {
		if !validOperations[a.Operation] {
			add(ErrInvalidOperation, fmt.Sprintf("aggregationOperations[%d].operation", i),
				"invalid operation %q", a.Operation)
		}
	}
	if len(req.Aggregations) > 0 && len(req.SummarizeBy) == 0 {
		add(ErrAggregationNoFields, "aggregationOperations", "aggregations require at least one summarizeBy field")
	}

	return errs
}

func knownDomain(d report.Domain) bool {
	for _, v := range report.ValidDomains {
		if v == d {
			return true
		}
	}
	return false
}

func validSelection(s report.SummarizeSpec) bool {
	switch s.Selection {
	case "":
		return true
	case report.SelectionYear, report.SelectionQuarter, report.SelectionMonth:
		return s.Type == report.TypeDate
	case report.SelectionAutomatic:
		return s.Type == report.TypeNumber
	}
	n, err := strconv.Atoi(s.Selection)
	return err == nil && n > 0 && s.Type == report.TypeNumber
}
