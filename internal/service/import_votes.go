package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jjenkins/althingi/internal/model"
	"github.com/sirupsen/logrus"
)

// ImportVotes stores the ballots of the latest voting event of every bill
// of a session. Without opts.Force a bill whose stored votes already
// belong to its latest voting event is left alone.
func (i *Importer) ImportVotes(ctx context.Context, session *model.Session, opts ImportOptions, stats *model.RunStats) error {
	log := i.stageLogger(stats)

	var bills []model.Bill
	err := i.store.InTx(ctx, func(tx Tx) error {
		if opts.BillNumber > 0 {
			b, err := tx.FindBill(ctx, session.ID, opts.BillNumber)
			if err != nil || b == nil {
				return err
			}
			bills = []model.Bill{*b}
			return nil
		}
		var err error
		bills, err = tx.ListBills(ctx, session.ID)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to list bills: %w", err)
	}
	if opts.BillNumber > 0 && len(bills) == 0 {
		stats.Missing++
		stats.Note("bill %d of session %d is not stored", opts.BillNumber, session.Number)
		return nil
	}

	stats.Total = len(bills)
	log.Infof("Processing votes of %d bills", stats.Total)

	for idx := range bills {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if idx > 0 {
			if err := i.pause(ctx); err != nil {
				return err
			}
		}
		bill := &bills[idx]
		blog := log.WithField("bill", bill.SourceID)

		if err := i.importBillVotes(ctx, blog, session, bill, opts, stats); err != nil {
			var re *ReconciliationError
			if errors.As(err, &re) && re.Missing {
				stats.Missing++
				stats.Note("%v", err)
				blog.WithError(err).Warn("Skipping votes")
				continue
			}
			blog.WithError(err).Error("Failed to import votes")
			stats.Failed++
		}
	}

	return nil
}

func (i *Importer) importBillVotes(ctx context.Context, log logrus.FieldLogger, session *model.Session, bill *model.Bill, opts ImportOptions, stats *model.RunStats) error {
	body, err := i.client.FetchBill(ctx, session.Number, bill.SourceID)
	if err != nil {
		return fmt.Errorf("failed to fetch bill detail: %w", err)
	}
	meta, err := i.parser.ParseBill(body, session.Number, bill.SourceID)
	if err != nil {
		return fmt.Errorf("failed to parse bill detail: %w", err)
	}

	votingID := meta.LatestVotingID()
	if votingID == 0 {
		stats.Unchanged++
		log.Debug("No voting events")
		return nil
	}

	if !opts.Force && bill.VotingID.Valid && bill.VotingID.Int64 == int64(votingID) {
		stats.Unchanged++
		log.Debugf("Voting %d already stored", votingID)
		return nil
	}

	body, err = i.client.FetchVoting(ctx, votingID)
	if err != nil {
		return fmt.Errorf("failed to fetch voting %d: %w", votingID, err)
	}
	voting, err := i.parser.ParseVoting(body, votingID)
	if err != nil {
		return fmt.Errorf("failed to parse voting %d: %w", votingID, err)
	}
	if voting.Time == nil {
		stats.Skipped++
		stats.Note("voting %d of bill %d has no time", votingID, bill.SourceID)
		return nil
	}

	for _, b := range voting.Ballots {
		if !b.Recognized() {
			stats.Note("voting %d: ballot %q of legislator %d counted as %s", votingID, b.Raw, b.LegislatorSourceID, b.Choice)
		}
	}

	res, err := i.reconciler.ReplaceVotes(ctx, session, bill, voting)
	if err != nil {
		return err
	}
	res.Apply(stats)
	log.Infof("Stored %d votes of voting %d", res.Rows, votingID)
	return nil
}
