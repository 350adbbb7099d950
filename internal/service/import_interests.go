package service

import (
	"context"
	"fmt"

	"github.com/jjenkins/althingi/internal/model"
)

// ImportInterests reconciles the financial interest registrations of the
// members of a session
func (i *Importer) ImportInterests(ctx context.Context, session *model.Session, opts ImportOptions, stats *model.RunStats) error {
	log := i.stageLogger(stats)

	legislators, err := i.sessionLegislators(ctx, session, opts)
	if err != nil {
		return fmt.Errorf("failed to list legislators: %w", err)
	}
	stats.Total = len(legislators)
	log.Infof("Fetching interests of %d legislators", stats.Total)

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

		body, err := i.client.FetchInterests(ctx, l.SourceID)
		if err != nil {
			if IsNotFound(err) {
				stats.NotFound++
				llog.Debug("No interest registration")
			} else {
				llog.WithError(err).Error("Failed to fetch interests")
				stats.Failed++
			}
			continue
		}

		meta, err := i.parser.ParseInterests(body, l.SourceID)
		if err != nil {
			llog.WithError(err).Error("Failed to parse interests")
			stats.Failed++
			continue
		}
		if meta.Filled() == 0 {
			stats.Skipped++
			continue
		}

		res, err := i.reconciler.UpsertInterest(ctx, l, meta, i.client.InterestsURL(l.SourceID))
		if err != nil {
			llog.WithError(err).Error("Failed to reconcile interests")
			stats.Failed++
			continue
		}
		res.Apply(stats)
	}

	return nil
}

