// Package employees compiles employee reports. Rows are as-of snapshots of
// the employee history collection.
package employees

import (
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/compiler"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/report"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/snapshot"
)

// MaxPageSize bounds pageSize unless configuration overrides it.
const MaxPageSize = 500

// Key of the field whose groups restrict the snapshot population.
const statusKey = "activation_status"

// Fields maps employee field keys to snapshot document paths.
var Fields = compiler.Table{
	"first_name":         {Path: "firstName", Type: report.TypeText},
	"last_name":          {Path: "lastName", Type: report.TypeText},
	"name":               {Path: "fullName", Type: report.TypeText},
	"preferred_name":     {Path: "preferredName", Type: report.TypeText},
	"email":              {Path: "normalizedEmail", Type: report.TypeEmail},
	"personal_email":     {Path: "personalEmail", Type: report.TypeEmail, Permission: report.PermViewPersonal},
	"title":              {Path: "title", Type: report.TypeText},
	"employee_number":    {Path: "employeeNumber", Type: report.TypeText},
	"activation_status":  {Path: snapshot.FieldStatus, Type: report.TypeSingleSelect},
	"employment_type":    {Path: "employmentType", Type: report.TypeSingleSelect},
	"location":           {Path: "location", Type: report.TypeSingleSelect},
	"manager":            {Path: snapshot.FieldManager, Type: report.TypePerson, SortPath: "manager.name"},
	"group":              {Path: "groupIds", Type: report.TypeDepartment, Array: true, SortPath: "groups.name"},
	"department":         {Path: "groupIds", Type: report.TypeDepartment, Array: true, SortPath: "groups.name"},
	"start_date":         {Path: "startDate", Type: report.TypeDate},
	"end_date":           {Path: "endDate", Type: report.TypeDate},
	"birth_date":         {Path: "birthDate", Type: report.TypeDate, Permission: report.PermViewPersonal},
	"salary":             {Path: "salary", Type: report.TypeNumber, Permission: report.PermViewCompensation},
	"has_direct_reports": {Path: snapshot.FieldDirectReports, Type: report.TypeBoolean},
	"pending_approvals":  {Path: "pendingApprovals", Type: report.TypeCount, Array: true, Size: true},
	"effective_date":     {Path: snapshot.FieldEffectiveDate, Type: report.TypeDate},
}

// Resolve resolves employee fields; custom fields live on the snapshot.
var Resolve = compiler.TableResolver(Fields)
