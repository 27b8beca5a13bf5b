package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/engine"
)

// CountOutput is the JSON shape of the count command.
type CountOutput struct {
	Count int64 `json:"count"`
	// Available is false when the count query timed out.
	Available bool `json:"available"`
}

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "count <request-file>",
		Short: "Count the rows a report request produces across all pages",
		Long: `Count the rows a report request produces across all pages.

The count runs the report's pipeline without sort, pagination or
projection. A count that times out is reported as unavailable rather than
as an error.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runCount(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()

	req, err := LoadRequest(path)
	if err != nil {
		return outputCommandError(formatter, errorCode(err), err)
	}

	b, err := openBackend(ctx, opts)
	if err != nil {
		return outputCommandError(formatter, ErrCodeConnect, err)
	}
	defer b.Close(ctx)

	n, err := b.engine.Count(ctx, req)
	if err != nil {
		return outputExecutionError(formatter, err)
	}

	out := CountOutput{Count: n, Available: n != engine.CountUnavailable}
	if formatter.Format == "json" {
		return formatter.Success(out)
	}
	if !out.Available {
		fmt.Fprintln(formatter.Writer, "count unavailable (timed out)")
		return nil
	}
	fmt.Fprintf(formatter.Writer, "%d\n", n)
	return nil
}
