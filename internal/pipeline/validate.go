package pipeline

import "fmt"

// ValidationResult lists structural problems found in a pipeline.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Validate checks structural rules every compiled pipeline must satisfy:
//  1. $count, when present, is the last stage
//  2. no $match stage has an empty filter
//  3. a $skip is directly followed by a $limit
//  4. $group has an _id expression slot (nil is allowed, meaning one group)
//  5. sub-pipelines of $lookup follow the same rules
//
// Validate is a pure function with no side effects.
func Validate(p Pipeline) ValidationResult {
	v := &validator{}
	v.validate(p, "")
	return ValidationResult{Valid: len(v.errors) == 0, Errors: v.errors}
}

type validator struct {
	errors []string
}

func (v *validator) addError(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *validator) validate(p Pipeline, prefix string) {
	for i, s := range p {
		switch stage := s.(type) {
		case nil:
			v.addError("%sstage %d: nil stage", prefix, i)
		case Count:
			if i != len(p)-1 {
				v.addError("%sstage %d: $count must be the last stage", prefix, i)
			}
			if stage.Field == "" {
				v.addError("%sstage %d: $count needs a field name", prefix, i)
			}
		case Match:
			if len(stage.Filter) == 0 {
				v.addError("%sstage %d: empty $match", prefix, i)
			}
		case Skip:
			if stage.N < 0 {
				v.addError("%sstage %d: negative $skip", prefix, i)
			}
			if i+1 >= len(p) || p[i+1].Op() != "$limit" {
				v.addError("%sstage %d: $skip must be followed by $limit", prefix, i)
			}
		case Limit:
			if stage.N <= 0 {
				v.addError("%sstage %d: $limit must be positive", prefix, i)
			}
		case Sort:
			if len(stage.Keys) == 0 {
				v.addError("%sstage %d: empty $sort", prefix, i)
			}
		case Lookup:
			if stage.From == "" || stage.As == "" {
				v.addError("%sstage %d: $lookup needs from and as", prefix, i)
			}
			v.validate(stage.Pipeline, fmt.Sprintf("%s$lookup[%d] ", prefix, i))
		case BucketAuto:
			if stage.Buckets <= 0 {
				v.addError("%sstage %d: $bucketAuto needs a positive bucket count", prefix, i)
			}
		case Unwind:
			if stage.Path == "" {
				v.addError("%sstage %d: $unwind needs a path", prefix, i)
			}
		case AddFields, Project, Group, ReplaceRoot:
			// No structural constraints beyond a well-formed body.
		default:
			v.addError("%sstage %d: unknown stage type %T", prefix, i, s)
		}
	}
}
