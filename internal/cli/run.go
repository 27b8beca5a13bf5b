package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/report"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Page     int
	PageSize int
}

// RunOutput is the JSON shape of an executed report.
type RunOutput struct {
	RequestID string            `json:"request_id"`
	Domain    report.Domain     `json:"domain"`
	View      report.View       `json:"view"`
	Skip      int64             `json:"skip"`
	Limit     int64             `json:"limit"`
	Rows      []json.RawMessage `json:"rows"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <request-file>",
		Short: "Compile a report request and execute it",
		Long: `Compile a report request and execute it against MongoDB.

Custom-field visibility comes from the metadata store (metadata.path).
Bucketed summaries run their probes before the report itself.

Exit codes:
  0 - Report executed
  1 - Request rejected (invalid request, unknown field, bad sort)
  2 - Command error (missing file, unreachable database, failed query)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Page, "page", 0, "override the request's page (1-based)")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "override the request's page size")

	return cmd
}

func runReport(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()

	req, err := LoadRequest(path)
	if err != nil {
		return outputCommandError(formatter, errorCode(err), err)
	}
	if opts.Page > 0 {
		req.Page = opts.Page
	}
	if opts.PageSize > 0 {
		req.PageSize = opts.PageSize
	}

	b, err := openBackend(ctx, opts.RootOptions)
	if err != nil {
		return outputCommandError(formatter, ErrCodeConnect, err)
	}
	defer b.Close(ctx)

	result, err := b.engine.Run(ctx, req)
	if err != nil {
		return outputExecutionError(formatter, err)
	}
	formatter.VerboseLog("Request %s returned %d row(s)", result.Plan.RequestID, len(result.Rows))

	rows, err := marshalRows(result.Rows)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(RunOutput{
			RequestID: result.Plan.RequestID,
			Domain:    result.Plan.Domain,
			View:      result.Plan.View,
			Skip:      result.Plan.Skip,
			Limit:     result.Plan.Limit,
			Rows:      rows,
		})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ %s report (%s view), %d row(s), skip %d, limit %d\n",
		result.Plan.Domain, result.Plan.View, len(rows), result.Plan.Skip, result.Plan.Limit)
	for _, row := range rows {
		fmt.Fprintf(w, "%s\n", row)
	}
	return nil
}

// marshalRows renders rows as relaxed extended JSON so ObjectIDs and dates
// stay readable.
func marshalRows(rows []bson.M) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(rows))
	for i, row := range rows {
		data, err := bson.MarshalExtJSON(row, false, false)
		if err != nil {
			return nil, fmt.Errorf("render row %d: %w", i, err)
		}
		out = append(out, data)
	}
	return out, nil
}
