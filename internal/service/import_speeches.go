package service

import (
	"context"
	"fmt"

	"github.com/jjenkins/althingi/internal/model"
	"github.com/sirupsen/logrus"
)

// sessionLegislators returns the members of a session, or the single
// legislator selected by opts. An unknown selected legislator is a
// configuration error.
func (i *Importer) sessionLegislators(ctx context.Context, session *model.Session, opts ImportOptions) ([]model.Legislator, error) {
	var legislators []model.Legislator
	err := i.store.InTx(ctx, func(tx Tx) error {
		if opts.LegislatorID > 0 {
			l, err := tx.FindLegislatorBySourceID(ctx, opts.LegislatorID)
			if err != nil {
				return err
			}
			if l == nil {
				return &ConfigurationError{Msg: fmt.Sprintf("legislator %d is not stored", opts.LegislatorID)}
			}
			legislators = []model.Legislator{*l}
			return nil
		}
		var err error
		legislators, err = tx.ListLegislators(ctx, session.ID)
		return err
	})
	return legislators, err
}

// ImportSpeeches reconciles the speeches of every member of a session and
// recomputes their speech statistics
func (i *Importer) ImportSpeeches(ctx context.Context, session *model.Session, opts ImportOptions, stats *model.RunStats) error {
	log := i.stageLogger(stats)

	legislators, err := i.sessionLegislators(ctx, session, opts)
	if err != nil {
		return fmt.Errorf("failed to list legislators: %w", err)
	}
	log.Infof("Fetching speeches of %d legislators", len(legislators))

	for idx := range legislators {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if idx > 0 {
			if err := i.pause(ctx); err != nil {
				return err
			}
		}
		l := &legislators[idx]
		llog := log.WithField("legislator_id", l.SourceID)

		if err := i.importLegislatorSpeeches(ctx, llog, session, l, stats); err != nil {
			llog.WithError(err).Error("Failed to import speeches")
			stats.Failed++
		}
	}

	return nil
}

func (i *Importer) importLegislatorSpeeches(ctx context.Context, log logrus.FieldLogger, session *model.Session, l *model.Legislator, stats *model.RunStats) error {
	body, err := i.client.FetchSpeeches(ctx, l.SourceID, session.Number)
	if err != nil {
		return fmt.Errorf("failed to fetch speeches: %w", err)
	}
	batch, err := i.parser.ParseSpeeches(body)
	if err != nil {
		return fmt.Errorf("failed to parse speeches: %w", err)
	}
	skipped(log, stats, batch.Skipped)

	count := 0
	for idx := range batch.Records {
		meta := &batch.Records[idx]
		if meta.Session != 0 && meta.Session != session.Number {
			continue
		}
		stats.Total++
		res, err := i.reconciler.UpsertSpeech(ctx, session, l, meta)
		if err != nil {
			log.WithError(err).Error("Failed to reconcile speech")
			stats.Failed++
			continue
		}
		res.Apply(stats)
		count++
	}

	if err := i.reconciler.RefreshSpeechStats(ctx, l.ID); err != nil {
		return fmt.Errorf("failed to refresh speech stats: %w", err)
	}
	log.Debugf("Reconciled %d speeches", count)
	return nil
}
