package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/compiler"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/domains"
)

// ValidationResult is the outcome of validating one request file.
type ValidationResult struct {
	File   string                     `json:"file"`
	Valid  bool                       `json:"valid"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <request-file>...",
		Short: "Check report requests without printing pipelines",
		Long: `Check one or more report requests. Structural problems (unknown
domain, missing companyId, bad comparators or selections) are all reported
at once; a structurally valid request is then compiled to surface unknown
fields, malformed filter values and unsatisfiable sorts.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	now := time.Now().UTC()

	results := make([]ValidationResult, 0, len(paths))
	loadFailed, invalid := 0, 0
	for _, path := range paths {
		result := validateFile(opts, path, now)
		if !result.Valid {
			invalid++
			if len(result.Errors) == 1 && result.Errors[0].Field == "file" {
				loadFailed++
			}
		}
		formatter.VerboseLog("Validated %s: valid=%t", path, result.Valid)
		results = append(results, result)
	}

	if formatter.Format == "json" {
		if err := formatter.Success(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.Valid {
				fmt.Fprintf(formatter.Writer, "✓ %s\n", r.File)
				continue
			}
			fmt.Fprintf(formatter.Writer, "✗ %s\n", r.File)
			for _, e := range r.Errors {
				fmt.Fprintf(formatter.Writer, "  %s\n", e.Error())
			}
		}
	}

	switch {
	case loadFailed > 0:
		return NewExitError(ExitCommandError, fmt.Sprintf("%d request file(s) could not be read", loadFailed))
	case invalid > 0:
		return NewExitError(ExitFailure, fmt.Sprintf("%d invalid request(s)", invalid))
	}
	return nil
}

func validateFile(opts *RootOptions, path string, now time.Time) ValidationResult {
	result := ValidationResult{File: path}

	req, err := LoadRequest(path)
	if err != nil {
		result.Errors = []compiler.ValidationError{{Field: "file", Message: errorMessage(err), Code: errorCode(err)}}
		return result
	}

	if errs := compiler.ValidateRequest(req); len(errs) > 0 {
		result.Errors = errs
		return result
	}

	if _, err := domains.Compile(req, offlineEnv(opts, req.Domain, now)); err != nil {
		result.Errors = []compiler.ValidationError{{Field: fieldOf(err), Message: err.Error(), Code: errorCode(err)}}
		return result
	}

	result.Valid = true
	return result
}
