package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jjenkins/althingi/internal/model"
	"github.com/sirupsen/logrus"
)

// ImportBills reconciles the bills of a session with their detail document
// and the sponsors of their first parliamentary document
func (i *Importer) ImportBills(ctx context.Context, session *model.Session, opts ImportOptions, stats *model.RunStats) error {
	log := i.stageLogger(stats)

	log.Info("Fetching bill list...")
	body, err := i.client.FetchBills(ctx, session.Number)
	if err != nil {
		return fmt.Errorf("failed to fetch bills: %w", err)
	}
	batch, err := i.parser.ParseBillList(body)
	if err != nil {
		return fmt.Errorf("failed to parse bills: %w", err)
	}
	skipped(log, stats, batch.Skipped)

	refs := batch.Records
	if opts.BillNumber > 0 {
		refs = nil
		for _, r := range batch.Records {
			if r.SourceID == opts.BillNumber {
				refs = append(refs, r)
			}
		}
		if len(refs) == 0 {
			stats.NotFound++
			stats.Note("bill %d not listed in session %d", opts.BillNumber, session.Number)
			return nil
		}
	}

	stats.Total = len(refs)
	log.Infof("Found %d bills", stats.Total)

	for idx, ref := range refs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if idx > 0 {
			if err := i.pause(ctx); err != nil {
				return err
			}
		}
		blog := log.WithField("bill", ref.SourceID)
		blog.Debugf("[%d/%d] %s", idx+1, stats.Total, ref.Title)

		if err := i.importBill(ctx, blog, session, ref, stats); err != nil {
			blog.WithError(err).Error("Failed to import bill")
			stats.Failed++
		}
	}

	return nil
}

func (i *Importer) importBill(ctx context.Context, log logrus.FieldLogger, session *model.Session, ref model.BillRef, stats *model.RunStats) error {
	body, err := i.client.FetchBill(ctx, session.Number, ref.SourceID)
	if err != nil {
		return fmt.Errorf("failed to fetch bill detail: %w", err)
	}
	meta, err := i.parser.ParseBill(body, session.Number, ref.SourceID)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) && errors.Is(pe, ErrSkipRecord) {
			skipped(log, stats, []*ParseError{pe})
			return nil
		}
		return fmt.Errorf("failed to parse bill detail: %w", err)
	}
	if meta.Title == "" {
		meta.Title = ref.Title
	}
	if meta.Title == "" {
		skipped(log, stats, []*ParseError{skipRecord("bill", strconv.Itoa(ref.SourceID), "missing title")})
		return nil
	}

	var sponsors []model.SponsorMeta
	sponsorsKnown := false
	if len(meta.DocumentNumbers) > 0 {
		doc := meta.DocumentNumbers[0]
		if body, err := i.client.FetchDocument(ctx, session.Number, doc); err != nil {
			log.WithError(err).Warnf("Failed to fetch document %d, sponsors unchanged", doc)
		} else if sponsors, err = i.parser.ParseSponsors(body); err != nil {
			log.WithError(err).Warnf("Failed to parse document %d, sponsors unchanged", doc)
		} else {
			sponsorsKnown = true
		}
	}

	_, res, err := i.reconciler.UpsertBill(ctx, session, meta, sponsors, sponsorsKnown)
	if err != nil {
		return err
	}
	res.Apply(stats)
	return nil
}
