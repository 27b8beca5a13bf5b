package report

import (
	"encoding/json"
	"sort"

	"gopkg.in/yaml.v3"
)

// Permission strings consulted by the compiler.
const (
	PermViewPrivateCustomFields    = "custom_fields:view_private"
	PermViewRestrictedCustomFields = "custom_fields:view_restricted"
	PermViewCompensation           = "employees:view_compensation"
	PermViewPersonal               = "employees:view_personal"
	PermViewReviewAnswers          = "reviews:view_answers"
	PermViewRedacted               = "reviews:view_redacted"
	PermViewPrivateGoals           = "goals:view_private"
)

// Permissions is the caller's permission set.
type Permissions map[string]struct{}

// NewPermissions builds a set from permission strings.
func NewPermissions(perms ...string) Permissions {
	p := make(Permissions, len(perms))
	for _, perm := range perms {
		p[perm] = struct{}{}
	}
	return p
}

// Has reports whether the caller holds perm.
func (p Permissions) Has(perm string) bool {
	_, ok := p[perm]
	return ok
}

// List returns the permissions in sorted order.
func (p Permissions) List() []string {
	out := make([]string, 0, len(p))
	for perm := range p {
		out = append(out, perm)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the set as a sorted list.
func (p Permissions) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.List())
}

// UnmarshalJSON decodes a list of permission strings.
func (p *Permissions) UnmarshalJSON(data []byte) error {
	var perms []string
	if err := json.Unmarshal(data, &perms); err != nil {
		return err
	}
	*p = NewPermissions(perms...)
	return nil
}

// UnmarshalYAML decodes a list of permission strings.
func (p *Permissions) UnmarshalYAML(node *yaml.Node) error {
	var perms []string
	if err := node.Decode(&perms); err != nil {
		return err
	}
	*p = NewPermissions(perms...)
	return nil
}

// Visibility is the custom-field visibility level a caller may query.
type Visibility string

const (
	VisibilityPublic     Visibility = "public"
	VisibilityRestricted Visibility = "restricted"
	VisibilityPrivate    Visibility = "private"
)

// Rank orders visibility levels; higher sees more.
func (v Visibility) Rank() int {
	switch v {
	case VisibilityPrivate:
		return 2
	case VisibilityRestricted:
		return 1
	default:
		return 0
	}
}

// CustomFieldVisibility maps permissions to the widest visibility level.
func (p Permissions) CustomFieldVisibility() Visibility {
	switch {
	case p.Has(PermViewPrivateCustomFields):
		return VisibilityPrivate
	case p.Has(PermViewRestrictedCustomFields):
		return VisibilityRestricted
	default:
		return VisibilityPublic
	}
}
