package service

import (
	"context"
	"fmt"

	"github.com/jjenkins/althingi/internal/model"
	"github.com/sirupsen/logrus"
)

// ImportLegislators reconciles the members of a session with their detail,
// biography and seat documents, then syncs the session membership. With
// opts.LegislatorID set only that member is processed and membership is
// left as is.
func (i *Importer) ImportLegislators(ctx context.Context, session *model.Session, opts ImportOptions, stats *model.RunStats) error {
	log := i.stageLogger(stats)

	log.Info("Fetching legislators...")
	body, err := i.client.FetchLegislators(ctx, session.Number)
	if err != nil {
		return fmt.Errorf("failed to fetch legislators: %w", err)
	}
	batch, err := i.parser.ParseLegislators(body)
	if err != nil {
		return fmt.Errorf("failed to parse legislators: %w", err)
	}
	skipped(log, stats, batch.Skipped)

	metas := batch.Records
	if opts.LegislatorID > 0 {
		metas = nil
		for _, m := range batch.Records {
			if m.SourceID == opts.LegislatorID {
				metas = append(metas, m)
			}
		}
		if len(metas) == 0 {
			stats.NotFound++
			stats.Note("legislator %d not listed in session %d", opts.LegislatorID, session.Number)
			return nil
		}
	}

	stats.Total = len(metas)
	log.Infof("Found %d legislators", stats.Total)

	memberIDs := make([]int64, 0, len(metas))
	for idx, meta := range metas {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if idx > 0 {
			if err := i.pause(ctx); err != nil {
				return err
			}
		}
		mlog := log.WithField("legislator_id", meta.SourceID)
		mlog.Infof("[%d/%d] %s", idx+1, stats.Total, meta.Name)

		i.enrichLegislator(ctx, mlog, &meta)

		l, res, err := i.reconciler.UpsertLegislator(ctx, meta)
		if err != nil {
			mlog.WithError(err).Error("Failed to reconcile legislator")
			stats.Failed++
			continue
		}
		res.Apply(stats)
		memberIDs = append(memberIDs, l.ID)
	}

	if opts.LegislatorID > 0 {
		return nil
	}

	added, removed, err := i.reconciler.SyncSessionMembers(ctx, session.ID, memberIDs)
	if err != nil {
		return fmt.Errorf("failed to sync members of session %d: %w", session.Number, err)
	}
	log.Infof("Session membership synced: %d added, %d removed", added, removed)
	return nil
}

// enrichLegislator merges the detail, biography and seat documents into
// meta. Each document is optional; failures are logged and the list data
// is used as is.
func (i *Importer) enrichLegislator(ctx context.Context, log logrus.FieldLogger, meta *model.LegislatorMeta) {
	if body, err := i.client.FetchLegislator(ctx, meta.SourceID); err != nil {
		log.WithError(err).Warn("Failed to fetch legislator detail")
	} else if err := i.parser.ParseLegislatorDetail(body, meta); err != nil {
		log.WithError(err).Warn("Failed to parse legislator detail")
	}

	if body, err := i.client.FetchBiography(ctx, meta.SourceID); err != nil {
		log.WithError(err).Warn("Failed to fetch biography")
	} else if bio, err := i.parser.ParseBiography(body); err != nil {
		log.WithError(err).Warn("Failed to parse biography")
	} else {
		meta.Bio = bio
	}

	if body, err := i.client.FetchSeats(ctx, meta.SourceID); err != nil {
		log.WithError(err).Warn("Failed to fetch seats")
	} else if seats, err := i.parser.ParseSeats(body); err != nil {
		log.WithError(err).Warn("Failed to parse seats")
	} else {
		meta.Seats = seats
	}
}
