package engine

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/calendar"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/compiler"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/datastore"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/domains"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/pipeline"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/querymongo"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/report"
)

// Executor runs an aggregation and returns every row.
type Executor interface {
	Aggregate(ctx context.Context, collection string, p mongo.Pipeline) ([]bson.M, error)
}

// MetadataSource answers custom-field questions for a company.
type MetadataSource interface {
	// VisibleCustomFields lists the custom fields a caller at visibility
	// may query.
	VisibleCustomFields(ctx context.Context, company primitive.ObjectID, visibility report.Visibility) ([]string, error)
	// CustomFieldsByKind keeps the names whose declared type is in kinds.
	CustomFieldsByKind(ctx context.Context, company primitive.ObjectID, kinds []report.FieldType, names []string) ([]string, error)
}

// CountUnavailable is returned by Count when the count query timed out.
const CountUnavailable int64 = -1

var multiValuedKinds = []report.FieldType{
	report.TypePeople, report.TypeMultiSelect, report.TypeDepartment,
	report.TypeSubject, report.TypeGoalCategories,
}

// Engine compiles and executes report requests.
//
// Thread-safety: an Engine holds no per-request state and is safe for
// concurrent use as long as its Executor and MetadataSource are.
type Engine struct {
	exec     Executor
	meta     MetadataSource
	now      func() time.Time
	calendar calendar.Shifter
	timezone string
	ids      IDGenerator

	pageLimits      map[report.Domain]int
	defaultPageSize int
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the wall clock used for "now".
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithCalendar sets the date-arithmetic seam.
func WithCalendar(c calendar.Shifter) Option {
	return func(e *Engine) { e.calendar = c }
}

// WithTimezone sets the zone of relative dates that name none.
func WithTimezone(tz string) Option {
	return func(e *Engine) { e.timezone = tz }
}

// WithIDGenerator sets the request id source.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithPageLimits overrides the per-domain maximum page size. Domains
// absent from limits keep their built-in bound.
func WithPageLimits(limits map[report.Domain]int) Option {
	return func(e *Engine) {
		for d, n := range limits {
			e.pageLimits[d] = n
		}
	}
}

// WithDefaultPageSize sets the page size used when a request has none.
func WithDefaultPageSize(n int) Option {
	return func(e *Engine) { e.defaultPageSize = n }
}

// New creates an Engine. meta may be nil, in which case every custom field
// is visible and none is treated as multi-valued.
func New(exec Executor, meta MetadataSource, opts ...Option) *Engine {
	e := &Engine{
		exec:            exec,
		meta:            meta,
		now:             time.Now,
		calendar:        calendar.Default,
		ids:             UUIDv7Generator{},
		pageLimits:      make(map[report.Domain]int),
		defaultPageSize: compiler.DefaultPageSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is an executed report.
type Result struct {
	Plan *compiler.Plan
	Rows []bson.M
}

// Plan compiles req into a ready plan, resolving metadata and bucket
// probes first. req is not modified.
func (e *Engine) Plan(ctx context.Context, req *report.ReportQueryRequest) (*compiler.Plan, error) {
	start := time.Now()
	r := *req
	if r.RequestID == "" {
		r.RequestID = e.ids.Generate()
	}
	logger := zerolog.Ctx(ctx).With().
		Str("request_id", r.RequestID).
		Str("domain", string(r.Domain)).
		Str("company", r.CompanyID.Hex()).
		Logger()

	env, err := e.resolveEnv(ctx, &r)
	if err != nil {
		return nil, err
	}

	plan, err := domains.Compile(&r, env)
	if err != nil {
		logger.Debug().Err(err).Msg("compile rejected request")
		return nil, err
	}

	if len(plan.Pending) > 0 {
		logger.Debug().Int("probes", len(plan.Pending)).Msg("resolving bucket probes")
		env.Bins, err = e.probe(ctx, plan)
		if err != nil {
			return nil, err
		}
		if plan, err = domains.Compile(&r, env); err != nil {
			return nil, err
		}
		if !plan.Ready() {
			return nil, &ExecutionError{Code: ErrCodeProbe, Message: "bucket probes left unresolved", RequestID: r.RequestID}
		}
	}

	if res := pipeline.Validate(plan.Pipeline); !res.Valid {
		return nil, &ExecutionError{
			Code:       ErrCodeInvalidPipeline,
			Message:    strings.Join(res.Errors, "; "),
			RequestID:  r.RequestID,
			Collection: plan.Collection,
		}
	}

	logger.Debug().
		Str("view", string(plan.View)).
		Int("stages", len(plan.Pipeline)).
		Dur("duration", time.Since(start)).
		Msg("compiled report")
	return plan, nil
}

// Run compiles and executes req. Execution errors, timeouts included, are
// returned wrapped; datastore.IsTimeout still recognizes them.
func (e *Engine) Run(ctx context.Context, req *report.ReportQueryRequest) (*Result, error) {
	plan, err := e.Plan(ctx, req)
	if err != nil {
		return nil, err
	}
	rows, err := e.aggregate(ctx, plan, plan.Pipeline)
	if err != nil {
		return nil, err
	}
	return &Result{Plan: plan, Rows: rows}, nil
}

// Count returns the number of rows req would produce across all pages.
// It returns CountUnavailable when the count query times out and 0 when
// the population is empty.
func (e *Engine) Count(ctx context.Context, req *report.ReportQueryRequest) (int64, error) {
	plan, err := e.Plan(ctx, req)
	if err != nil {
		return 0, err
	}
	rows, err := e.aggregate(ctx, plan, plan.CountPipeline())
	if err != nil {
		if datastore.IsTimeout(err) {
			zerolog.Ctx(ctx).Warn().
				Str("request_id", plan.RequestID).
				Str("collection", plan.Collection).
				Msg("count timed out")
			return CountUnavailable, nil
		}
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	n, ok := asInt64(rows[0][pipeline.CountField])
	if !ok {
		return 0, &ExecutionError{
			Code:       ErrCodeExecution,
			Message:    fmt.Sprintf("count row has no numeric %q", pipeline.CountField),
			RequestID:  plan.RequestID,
			Collection: plan.Collection,
		}
	}
	return n, nil
}

func (e *Engine) aggregate(ctx context.Context, plan *compiler.Plan, p pipeline.Pipeline) ([]bson.M, error) {
	stages, err := querymongo.Compile(p)
	if err != nil {
		return nil, &ExecutionError{Code: ErrCodeInvalidPipeline, Message: "render pipeline", RequestID: plan.RequestID, Err: err}
	}

	start := time.Now()
	rows, err := e.exec.Aggregate(ctx, plan.Collection, stages)
	if err != nil {
		return nil, &ExecutionError{
			Code:       ErrCodeExecution,
			Message:    "aggregate " + plan.Collection,
			RequestID:  plan.RequestID,
			Collection: plan.Collection,
			Err:        err,
		}
	}
	zerolog.Ctx(ctx).Info().
		Str("request_id", plan.RequestID).
		Str("collection", plan.Collection).
		Int("stages", len(stages)).
		Int("rows", len(rows)).
		Dur("duration", time.Since(start)).
		Msg("executed report")
	return rows, nil
}

// resolveEnv builds the compile environment, fetching the custom-field
// allow-list and array-typed sort fields concurrently.
func (e *Engine) resolveEnv(ctx context.Context, req *report.ReportQueryRequest) (compiler.Env, error) {
	env := compiler.Env{
		Now:             e.now,
		Calendar:        e.calendar,
		Timezone:        e.timezone,
		MaxPageSize:     e.pageLimits[req.Domain],
		DefaultPageSize: e.defaultPageSize,
	}
	if e.meta == nil {
		return env, nil
	}

	var visible, arrays []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		visible, err = e.meta.VisibleCustomFields(gctx, req.CompanyID, req.Permissions.CustomFieldVisibility())
		return err
	})
	if names := customSortNames(req); len(names) > 0 {
		g.Go(func() error {
			var err error
			arrays, err = e.meta.CustomFieldsByKind(gctx, req.CompanyID, multiValuedKinds, names)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return env, &ExecutionError{Code: ErrCodeMetadata, Message: "resolve custom fields", RequestID: req.RequestID, Err: err}
	}

	env.VisibleCustomFields = visible
	if len(arrays) > 0 {
		env.ArrayCustomFields = make(map[string]bool, len(arrays))
		for _, name := range arrays {
			env.ArrayCustomFields[name] = true
		}
	}
	return env, nil
}

// probe runs every pending bucket probe concurrently and returns bins
// keyed by summary slot.
func (e *Engine) probe(ctx context.Context, plan *compiler.Plan) (map[string]compiler.Bins, error) {
	results := make([]compiler.Bins, len(plan.Pending))
	g, gctx := errgroup.WithContext(ctx)
	for i, probe := range plan.Pending {
		g.Go(func() error {
			stages, err := querymongo.Compile(plan.ProbePipeline(probe))
			if err != nil {
				return err
			}
			rows, err := e.exec.Aggregate(gctx, plan.Collection, stages)
			if err != nil {
				return fmt.Errorf("probe %s: %w", probe.Slot, err)
			}
			results[i], err = probe.BinsFromProbe(rows)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, &ExecutionError{
			Code:       ErrCodeProbe,
			Message:    "resolve bucket boundaries",
			RequestID:  plan.RequestID,
			Collection: plan.Collection,
			Err:        err,
		}
	}

	bins := make(map[string]compiler.Bins, len(results))
	for i, probe := range plan.Pending {
		bins[probe.Slot] = results[i]
	}
	return bins, nil
}

// customSortNames lists the custom fields a sort may land on: custom sort
// specs, plus custom summary slots whenever the request sorts at all.
func customSortNames(req *report.ReportQueryRequest) []string {
	var names []string
	for _, s := range req.Sorts {
		if s.Category == report.CategoryCustom {
			names = append(names, s.Name)
		}
	}
	if len(req.Sorts) == 0 {
		return names
	}
	for _, s := range req.SummarizeBy {
		if s.Category == report.CategoryCustom && !slices.Contains(names, s.Name) {
			names = append(names, s.Name)
		}
	}
	return names
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}
