package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jjenkins/althingi/internal/model"
	"github.com/sirupsen/logrus"
)

// ImportOptions narrows or alters a stage run
type ImportOptions struct {
	// Force re-processes votes even when the latest voting event is stored
	Force bool
	// LegislatorID limits legislator scoped stages to one source id
	LegislatorID int
	// BillNumber limits bill scoped stages to one bill number
	BillNumber int
	// ClearTopics removes existing topic assignments before classifying
	ClearTopics bool
	// Strategy selects the topic classifier
	Strategy string
}

// Importer orchestrates fetching, extracting and reconciling Althingi data
type Importer struct {
	client     *AlthingiClient
	parser     *Parser
	store      Store
	reconciler *Reconciler
	logger     logrus.FieldLogger
}

// NewImporter creates a new Importer
func NewImporter(client *AlthingiClient, parser *Parser, store Store, logger logrus.FieldLogger) *Importer {
	return &Importer{
		client:     client,
		parser:     parser,
		store:      store,
		reconciler: NewReconciler(store),
		logger:     logger,
	}
}

// Reconciler returns the reconciler the importer writes through
func (i *Importer) Reconciler() *Reconciler {
	return i.reconciler
}

func (i *Importer) stageLogger(stats *model.RunStats) *logrus.Entry {
	return i.logger.WithFields(logrus.Fields{
		"stage":   stats.Stage,
		"session": stats.Session,
		"run_id":  stats.RunID,
	})
}

// pause waits for the configured request delay unless ctx is done
func (i *Importer) pause(ctx context.Context) error {
	d := i.client.Delay()
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// skipped records parse-level skips in the stats and log
func skipped(log logrus.FieldLogger, stats *model.RunStats, skips []*ParseError) {
	for _, s := range skips {
		stats.Skipped++
		stats.Note("%v", s)
		log.WithField("record", s.Record).Warnf("Skipping record: %v", s.Err)
	}
}

// ResolveSession determines the session a run targets. A number of 0 means
// the currently active session reported by the remote source, or the stored
// active session when the source cannot be reached. Whenever the source
// reports an active session the stored flags are refreshed, whichever
// session the run targets. The target session is created locally when
// missing.
func (i *Importer) ResolveSession(ctx context.Context, number int) (*model.Session, error) {
	active := 0
	body, err := i.client.FetchCurrentSession(ctx)
	if err == nil {
		var meta *model.SessionMeta
		meta, err = i.parser.ParseCurrentSession(body)
		if err == nil {
			active = meta.Number
		}
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		i.logger.WithError(err).Warn("Could not determine the active session")
	}

	if active != 0 {
		session, aerr := i.reconciler.ActivateSession(ctx, active)
		if aerr != nil {
			return nil, fmt.Errorf("failed to activate session %d: %w", active, aerr)
		}
		if number == 0 || number == active {
			return session, nil
		}
	}

	if number == 0 {
		stored, serr := i.reconciler.ActiveSession(ctx)
		if serr != nil {
			return nil, fmt.Errorf("failed to load the stored active session: %w", serr)
		}
		if stored == nil {
			return nil, &ConfigurationError{Msg: "no session given and no active session could be discovered", Err: err}
		}
		i.logger.WithField("session", stored.Number).Warn("Using the stored active session")
		return stored, nil
	}

	session, _, err := i.reconciler.EnsureSession(ctx, model.SessionMeta{Number: number})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure session %d: %w", number, err)
	}
	return session, nil
}

// ImportSessions reconciles every session of the sessions feed and the
// active session flag
func (i *Importer) ImportSessions(ctx context.Context, stats *model.RunStats) error {
	log := i.stageLogger(stats)

	log.Info("Fetching sessions list...")
	body, err := i.client.FetchSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch sessions: %w", err)
	}
	batch, err := i.parser.ParseSessions(body)
	if err != nil {
		return fmt.Errorf("failed to parse sessions: %w", err)
	}
	skipped(log, stats, batch.Skipped)

	stats.Total = len(batch.Records)
	for _, meta := range batch.Records {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, outcome, err := i.reconciler.EnsureSession(ctx, meta)
		if err != nil {
			log.WithField("session_number", meta.Number).WithError(err).Error("Failed to reconcile session")
			stats.Failed++
			continue
		}
		stats.Record(outcome)
	}

	body, err = i.client.FetchCurrentSession(ctx)
	if err == nil {
		var meta *model.SessionMeta
		if meta, err = i.parser.ParseCurrentSession(body); err == nil {
			if _, err = i.reconciler.ActivateSession(ctx, meta.Number); err == nil {
				log.Infof("Session %d is active", meta.Number)
			}
		}
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		log.WithError(err).Warn("Could not refresh the active session")
		stats.Note("active session not refreshed: %v", err)
	}

	return nil
}

// ImportParties reconciles the parties of a session
func (i *Importer) ImportParties(ctx context.Context, session *model.Session, stats *model.RunStats) error {
	log := i.stageLogger(stats)

	log.Info("Fetching parties...")
	body, err := i.client.FetchParties(ctx, session.Number)
	if err != nil {
		return fmt.Errorf("failed to fetch parties: %w", err)
	}
	batch, err := i.parser.ParseParties(body)
	if err != nil {
		return fmt.Errorf("failed to parse parties: %w", err)
	}
	skipped(log, stats, batch.Skipped)

	stats.Total = len(batch.Records)
	log.Infof("Found %d parties", stats.Total)

	for _, meta := range batch.Records {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, res, err := i.reconciler.UpsertParty(ctx, session.Number, meta)
		if err != nil {
			log.WithField("party_id", meta.SourceID).WithError(err).Error("Failed to reconcile party")
			stats.Failed++
			continue
		}
		res.Apply(stats)
		log.WithField("party_id", meta.SourceID).Debugf("%s %s", res.Outcome, meta.Name)
	}

	return nil
}
