// Package reviews compiles review reports over the reviews collection.
// Question answers are keyed by question id and gated by permission.
package reviews

import (
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/compiler"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/report"
)

const (
	Collection = "reviews"

	// MaxPageSize bounds pageSize unless configuration overrides it.
	MaxPageSize = 200

	answersPath  = "answers"
	redactedFlag = "isRedacted"
)

// Fields maps review field keys to document paths.
var Fields = compiler.Table{
	"cycle":              {Path: "cycleId", Type: report.TypeCycle, SortPath: "cycle.name"},
	"template":           {Path: "templateId", Type: report.TypeTemplate, SortPath: "template.name"},
	"subject":            {Path: "subjectIds", Type: report.TypeSubject, Array: true, SortPath: "subjects.name"},
	"reviewer":           {Path: "reviewerId", Type: report.TypePerson, SortPath: "reviewer.name"},
	"status":             {Path: "status", Type: report.TypeSingleSelect},
	"submitted_at":       {Path: "submittedAt", Type: report.TypeDate},
	"due_date":           {Path: "dueDate", Type: report.TypeDate},
	"created_at":         {Path: "createdAt", Type: report.TypeDate},
	"rating":             {Path: "rating", Type: report.TypeNumber},
	"subject_department": {Path: "subject.departmentIds", Type: report.TypeDepartment, Array: true},
	"pending_approvals":  {Path: "pendingApprovals", Type: report.TypeCount, Array: true, Size: true},
	"is_redacted":        {Path: redactedFlag, Type: report.TypeBoolean},
}

// AnswerPath is where the answer to a question is stored.
func AnswerPath(questionID string) string {
	return answersPath + "." + questionID
}

// Resolve resolves standard, custom and question fields.
func Resolve(name string, category report.Category, typ report.FieldType) (compiler.Field, bool) {
	if category == report.CategoryQuestion {
		return compiler.Field{
			Path:       AnswerPath(name),
			Type:       typ,
			Array:      typ.IsMultiValued(),
			Permission: report.PermViewReviewAnswers,
		}, true
	}
	return compiler.TableResolver(Fields)(name, category, typ)
}
