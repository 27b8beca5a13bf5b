package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/compiler"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/domains"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/harness"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/querymongo"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/report"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // pipeline output file
	Now    string // frozen "now", ISO-8601
}

// CompiledPlan is the JSON shape of a compiled request.
type CompiledPlan struct {
	RequestID  string          `json:"request_id,omitempty"`
	Domain     report.Domain   `json:"domain"`
	Collection string          `json:"collection"`
	View       report.View     `json:"view"`
	Stages     []string        `json:"stages"`
	Sort       []string        `json:"sort"`
	Skip       int64           `json:"skip"`
	Limit      int64           `json:"limit"`
	Pending    []string        `json:"pending,omitempty"`
	Pipeline   json.RawMessage `json:"pipeline"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <request-file>",
		Short: "Compile a report request to an aggregation pipeline",
		Long: `Compile a report request (.json, .yaml or .cue) into the MongoDB
aggregation pipeline that answers it, without touching any database.

Custom fields are treated as visible and single-valued. Bucketed summaries
need probe results from the database, so for those the population filter is
printed and the pending probes are listed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the pipeline (extended JSON) to this file")
	cmd.Flags().StringVar(&opts.Now, "now", "", "evaluate relative dates against this instant instead of the clock")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	now, err := parseNow(opts.Now)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err)
	}

	req, err := LoadRequest(path)
	if err != nil {
		return outputCommandError(formatter, errorCode(err), err)
	}
	formatter.VerboseLog("Loaded %s request from %s", req.Domain, path)

	plan, err := domains.Compile(req, offlineEnv(opts.RootOptions, req.Domain, now))
	if err != nil {
		return outputRequestError(formatter, err)
	}

	out, err := describePlan(plan)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, out.Pipeline, 0o644); err != nil {
			return outputCommandError(formatter, ErrCodeWriteFailed, fmt.Errorf("writing output file: %w", err))
		}
		formatter.VerboseLog("Wrote pipeline to %s", opts.Output)
	}

	if formatter.Format == "json" {
		return formatter.Success(out)
	}
	writePlanText(formatter.Writer, out)
	return nil
}

// offlineEnv is the compile environment of commands that never reach the
// datastore or the metadata store.
func offlineEnv(opts *RootOptions, domain report.Domain, now time.Time) compiler.Env {
	return compiler.Env{
		Now:             func() time.Time { return now },
		Timezone:        opts.Config.Timezone,
		MaxPageSize:     opts.Config.Limits.PageLimits()[domain],
		DefaultPageSize: opts.Config.Limits.DefaultPageSize,
	}
}

func parseNow(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	t, err := report.ParseInstant(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--now: %w", err)
	}
	return t, nil
}

// describePlan renders plan for output. A plan still waiting on bucket
// probes is described by its population filter.
func describePlan(plan *compiler.Plan) (CompiledPlan, error) {
	p := plan.Pipeline
	if !plan.Ready() {
		p = plan.Filter
	}
	data, err := querymongo.MarshalExtJSON(p, true)
	if err != nil {
		return CompiledPlan{}, fmt.Errorf("rendering pipeline: %w", err)
	}
	return CompiledPlan{
		RequestID:  plan.RequestID,
		Domain:     plan.Domain,
		Collection: plan.Collection,
		View:       plan.View,
		Stages:     harness.Stages(plan),
		Sort:       harness.SortKeys(plan.Sort),
		Skip:       plan.Skip,
		Limit:      plan.Limit,
		Pending:    harness.PendingSlots(plan),
		Pipeline:   json.RawMessage(data),
	}, nil
}

func writePlanText(w io.Writer, out CompiledPlan) {
	fmt.Fprintf(w, "✓ Compiled %s report (%s view)\n\n", out.Domain, out.View)
	fmt.Fprintf(w, "  collection: %s\n", out.Collection)
	fmt.Fprintf(w, "  stages:     %s\n", strings.Join(out.Stages, " "))
	fmt.Fprintf(w, "  sort:       %s\n", strings.Join(out.Sort, " "))
	fmt.Fprintf(w, "  page:       skip %d, limit %d\n", out.Skip, out.Limit)
	if len(out.Pending) > 0 {
		fmt.Fprintf(w, "  pending:    %s (bucket probes run against the database)\n", strings.Join(out.Pending, " "))
	}
	fmt.Fprintf(w, "\n%s\n", out.Pipeline)
}

// outputCommandError reports an error that kept the command from running.
func outputCommandError(formatter *OutputFormatter, code string, err error) error {
	_ = formatter.Error(code, errorMessage(err), nil)
	return WrapExitError(ExitCommandError, code, err)
}

// outputRequestError reports a request the compiler rejected.
func outputRequestError(formatter *OutputFormatter, err error) error {
	code := errorCode(err)
	_ = formatter.Error(code, err.Error(), nil)
	return WrapExitError(ExitFailure, code, err)
}
