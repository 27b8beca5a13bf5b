// Package goals compiles goal reports. Progress is derived per document
// before filters on it apply.
package goals

import (
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/compiler"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/report"
)

const (
	Collection = "goals"

	// MaxPageSize bounds pageSize unless configuration overrides it.
	MaxPageSize = 200

	ProgressField = "currentProgress"
	privateFlag   = "isPrivate"
)

// Fields maps goal field keys to document paths.
var Fields = compiler.Table{
	"name":              {Path: "name", Type: report.TypeText},
	"description":       {Path: "description", Type: report.TypeText},
	"owner":             {Path: "ownerIds", Type: report.TypePeople, Array: true, SortPath: "owners.name"},
	"department":        {Path: "departmentIds", Type: report.TypeDepartment, Array: true, SortPath: "departments.name"},
	"outlook":           {Path: "outlookId", Type: report.TypeGoalOutlook, SortPath: "outlook.name"},
	"alignment":         {Path: "alignmentId", Type: report.TypeGoalAlignment, SortPath: "alignment.name"},
	"category":          {Path: "categoryIds", Type: report.TypeGoalCategories, Array: true, SortPath: "categories.name"},
	"status":            {Path: "status", Type: report.TypeSingleSelect},
	"value":             {Path: "value", Type: report.TypeNumber},
	"target":            {Path: "target", Type: report.TypeNumber},
	"current_progress":  {Path: ProgressField, Type: report.TypeNumber, Calculated: true},
	"start_date":        {Path: "startDate", Type: report.TypeDate},
	"due_date":          {Path: "dueDate", Type: report.TypeDate},
	"created_at":        {Path: "createdAt", Type: report.TypeDate},
	"is_private":        {Path: privateFlag, Type: report.TypeBoolean},
	"pending_approvals": {Path: "pendingApprovals", Type: report.TypeCount, Array: true, Size: true},
}

// Resolve resolves standard and custom goal fields.
var Resolve = compiler.TableResolver(Fields)

// redacted lists fields removed from private goals.
var redacted = []string{"description", "notes"}
