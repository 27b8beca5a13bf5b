package store

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/report"
)

// CustomField is one declared custom field.
type CustomField struct {
	CompanyID  primitive.ObjectID `json:"companyId" yaml:"companyId"`
	Name       string             `json:"name" yaml:"name"`
	Type       report.FieldType   `json:"type" yaml:"type"`
	Visibility report.Visibility  `json:"visibility" yaml:"visibility"`
}

// UpsertCustomField inserts f or replaces its type and visibility.
func (s *Store) UpsertCustomField(ctx context.Context, f CustomField) error {
	if f.Name == "" {
		return fmt.Errorf("upsert custom field: name is required")
	}
	if f.Visibility == "" {
		f.Visibility = report.VisibilityPublic
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO custom_fields (company_id, name, type, visibility)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(company_id, name) DO UPDATE SET
			type = excluded.type,
			visibility = excluded.visibility
	`, f.CompanyID.Hex(), f.Name, string(f.Type), string(f.Visibility))
	if err != nil {
		return fmt.Errorf("upsert custom field %q: %w", f.Name, err)
	}
	return nil
}

// DeleteCustomField removes a field. Deleting a missing field is a no-op.
func (s *Store) DeleteCustomField(ctx context.Context, company primitive.ObjectID, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM custom_fields WHERE company_id = ? AND name = ?`, company.Hex(), name)
	if err != nil {
		return fmt.Errorf("delete custom field %q: %w", name, err)
	}
	return nil
}

// ListCustomFields returns every field of company ordered by name.
func (s *Store) ListCustomFields(ctx context.Context, company primitive.ObjectID) ([]CustomField, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, type, visibility FROM custom_fields
		WHERE company_id = ?
		ORDER BY name ASC COLLATE BINARY
	`, company.Hex())
	if err != nil {
		return nil, fmt.Errorf("list custom fields: %w", err)
	}
	defer rows.Close()

	var out []CustomField
	for rows.Next() {
		f := CustomField{CompanyID: company}
		var typ, vis string
		if err := rows.Scan(&f.Name, &typ, &vis); err != nil {
			return nil, fmt.Errorf("scan custom field: %w", err)
		}
		f.Type, f.Visibility = report.FieldType(typ), report.Visibility(vis)
		out = append(out, f)
	}
	return out, rows.Err()
}

// VisibleCustomFields lists the fields a caller at visibility may query:
// every field whose level ranks at or below it.
func (s *Store) VisibleCustomFields(ctx context.Context, company primitive.ObjectID, visibility report.Visibility) ([]string, error) {
	var levels []any
	for _, v := range []report.Visibility{report.VisibilityPublic, report.VisibilityRestricted, report.VisibilityPrivate} {
		if v.Rank() <= visibility.Rank() {
			levels = append(levels, string(v))
		}
	}
	query := `SELECT name FROM custom_fields WHERE company_id = ? AND visibility IN (` +
		placeholders(len(levels)) + `) ORDER BY name ASC COLLATE BINARY`
	return s.names(ctx, query, append([]any{company.Hex()}, levels...)...)
}

// CustomFieldsByKind keeps the names whose declared type is in kinds.
func (s *Store) CustomFieldsByKind(ctx context.Context, company primitive.ObjectID, kinds []report.FieldType, names []string) ([]string, error) {
	if len(kinds) == 0 || len(names) == 0 {
		return nil, nil
	}
	args := []any{company.Hex()}
	for _, k := range kinds {
		args = append(args, string(k))
	}
	for _, n := range names {
		args = append(args, n)
	}
	query := `SELECT name FROM custom_fields WHERE company_id = ? AND type IN (` +
		placeholders(len(kinds)) + `) AND name IN (` + placeholders(len(names)) +
		`) ORDER BY name ASC COLLATE BINARY`
	return s.names(ctx, query, args...)
}

func (s *Store) names(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query custom fields: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan custom field: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
