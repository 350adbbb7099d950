package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jjenkins/althingi/internal/model"
	"github.com/sirupsen/logrus"
)

// Stage is one unit of the ingestion pipeline
type Stage interface {
	Kind() model.StageKind
	Run(ctx context.Context, session *model.Session, opts ImportOptions, stats *model.RunStats) error
}

type stageFunc struct {
	kind model.StageKind
	fn   func(ctx context.Context, session *model.Session, opts ImportOptions, stats *model.RunStats) error
}

func (s stageFunc) Kind() model.StageKind { return s.kind }

func (s stageFunc) Run(ctx context.Context, session *model.Session, opts ImportOptions, stats *model.RunStats) error {
	return s.fn(ctx, session, opts, stats)
}

// Registry maps stage kinds to their implementations
type Registry struct {
	stages          map[model.StageKind]Stage
	classifiers     map[string]Classifier
	defaultStrategy string
}

// NewRegistry registers every stage of the importer. defaultStrategy names
// the classifier used when a run does not pick one.
func NewRegistry(imp *Importer, defaultStrategy string) *Registry {
	r := &Registry{
		stages:          make(map[model.StageKind]Stage),
		classifiers:     Classifiers(imp),
		defaultStrategy: defaultStrategy,
	}

	r.register(model.StageSessions, func(ctx context.Context, _ *model.Session, _ ImportOptions, stats *model.RunStats) error {
		return imp.ImportSessions(ctx, stats)
	})
	r.register(model.StageParties, func(ctx context.Context, s *model.Session, _ ImportOptions, stats *model.RunStats) error {
		return imp.ImportParties(ctx, s, stats)
	})
	r.register(model.StageLegislators, imp.ImportLegislators)
	r.register(model.StageBills, imp.ImportBills)
	r.register(model.StageVotes, imp.ImportVotes)
	r.register(model.StageSpeeches, imp.ImportSpeeches)
	r.register(model.StageInterests, imp.ImportInterests)
	r.register(model.StageTopics, r.classify)

	return r
}

func (r *Registry) register(kind model.StageKind, fn func(ctx context.Context, session *model.Session, opts ImportOptions, stats *model.RunStats) error) {
	r.stages[kind] = stageFunc{kind: kind, fn: fn}
}

func (r *Registry) classify(ctx context.Context, session *model.Session, opts ImportOptions, stats *model.RunStats) error {
	c, err := r.Classifier(opts.Strategy)
	if err != nil {
		return err
	}
	stats.Note("strategy %s", c.Name())
	return c.Classify(ctx, ClassifyOptions{Session: session, ClearFirst: opts.ClearTopics}, stats)
}

// Classifier returns the named strategy, or the default when name is empty
func (r *Registry) Classifier(name string) (Classifier, error) {
	if name == "" {
		name = r.defaultStrategy
	}
	c, ok := r.classifiers[name]
	if !ok {
		return nil, &ConfigurationError{Msg: fmt.Sprintf("unknown topic strategy %q (available: %s)", name, strings.Join(ClassifierNames(r.classifiers), ", "))}
	}
	return c, nil
}

// Get returns the stage registered for kind
func (r *Registry) Get(kind model.StageKind) (Stage, bool) {
	s, ok := r.stages[kind]
	return s, ok
}

// ParseStages turns stage names into kinds in dependency order. "all"
// selects every stage except interests, which runs only when named.
func ParseStages(names []string) ([]model.StageKind, error) {
	rank := make(map[model.StageKind]int, len(model.StageOrder))
	for i, k := range model.StageOrder {
		rank[k] = i
	}

	selected := make(map[model.StageKind]bool)
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "all" {
			for _, k := range model.StageOrder {
				if k != model.StageInterests {
					selected[k] = true
				}
			}
			continue
		}
		k := model.StageKind(name)
		if _, ok := rank[k]; !ok {
			return nil, &ConfigurationError{Msg: fmt.Sprintf("unknown stage %q", name)}
		}
		selected[k] = true
	}
	if len(selected) == 0 {
		return nil, &ConfigurationError{Msg: "no stages selected"}
	}

	kinds := make([]model.StageKind, 0, len(selected))
	for k := range selected {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return rank[kinds[i]] < rank[kinds[j]] })
	return kinds, nil
}

// Pipeline runs stages in sequence for one session
type Pipeline struct {
	importer *Importer
	registry *Registry
	runs     RunRecorder
	logger   logrus.FieldLogger
}

// NewPipeline creates a new Pipeline
func NewPipeline(imp *Importer, registry *Registry, runs RunRecorder, logger logrus.FieldLogger) *Pipeline {
	return &Pipeline{importer: imp, registry: registry, runs: runs, logger: logger}
}

// Run resolves the session and runs the stages in dependency order. A
// stage failure is logged, recorded and returned after the remaining
// stages ran; a ConfigurationError aborts the run at once.
func (p *Pipeline) Run(ctx context.Context, sessionNumber int, kinds []model.StageKind, opts ImportOptions) ([]*model.RunStats, error) {
	for _, k := range kinds {
		if _, ok := p.registry.Get(k); !ok {
			return nil, &ConfigurationError{Msg: fmt.Sprintf("stage %q is not registered", k)}
		}
	}
	if containsStage(kinds, model.StageTopics) {
		if _, err := p.registry.Classifier(opts.Strategy); err != nil {
			return nil, err
		}
	}

	session, err := p.importer.ResolveSession(ctx, sessionNumber)
	if err != nil {
		return nil, err
	}

	var results []*model.RunStats
	var errs []error
	for _, k := range kinds {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		stage, _ := p.registry.Get(k)
		stats := model.NewRunStats(k, session.Number)
		stats.RunID = uuid.NewString()
		log := p.logger.WithFields(logrus.Fields{"stage": k, "session": session.Number, "run_id": stats.RunID})

		log.Info("Stage started")
		err := stage.Run(ctx, session, opts, stats)
		stats.Finish()
		results = append(results, stats)

		if err != nil {
			stats.Failed++
			stats.Note("stage failed: %v", err)
			log.WithError(err).Error("Stage failed")
			errs = append(errs, fmt.Errorf("stage %s: %w", k, err))
		} else {
			log.WithFields(logrus.Fields{
				"created":   stats.Created,
				"updated":   stats.Updated,
				"unchanged": stats.Unchanged,
				"skipped":   stats.Skipped,
				"failed":    stats.Failed,
				"missing":   stats.Missing,
				"not_found": stats.NotFound,
				"duration":  stats.Duration().Round(1e6).String(),
			}).Info("Stage finished")
		}

		if p.runs != nil {
			if rerr := p.runs.RecordRun(context.WithoutCancel(ctx), stats); rerr != nil {
				log.WithError(rerr).Warn("Failed to record run")
			}
		}

		var cfgErr *ConfigurationError
		if errors.As(err, &cfgErr) {
			break
		}
	}

	return results, errors.Join(errs...)
}

func containsStage(kinds []model.StageKind, k model.StageKind) bool {
	for _, kind := range kinds {
		if kind == k {
			return true
		}
	}
	return false
}
