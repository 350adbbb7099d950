package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jjenkins/althingi/internal/model"
	"github.com/sirupsen/logrus"
)

// ClassifyOptions scopes a classification run
type ClassifyOptions struct {
	// Session limits the run to one session; nil means every session
	Session *model.Session
	// ClearFirst removes existing assignments in scope before classifying
	ClearFirst bool
}

// Classifier assigns topics to bills
type Classifier interface {
	Name() string
	Classify(ctx context.Context, opts ClassifyOptions, stats *model.RunStats) error
}

// Classifiers builds the set of available classification strategies
func Classifiers(imp *Importer) map[string]Classifier {
	return map[string]Classifier{
		"keyword":  NewKeywordClassifier(imp.store, imp.reconciler, model.DefaultTopics, imp.logger),
		"official": NewOfficialCategoryClassifier(imp, imp.logger),
	}
}

// ClassifierNames lists strategy names in stable order
func ClassifierNames(classifiers map[string]Classifier) []string {
	names := make([]string, 0, len(classifiers))
	for name := range classifiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func scopeID(s *model.Session) int64 {
	if s == nil {
		return 0
	}
	return s.ID
}

// KeywordClassifier matches topic keywords against bill titles and
// descriptions
type KeywordClassifier struct {
	store      Store
	reconciler *Reconciler
	seeds      []model.TopicSeed
	logger     logrus.FieldLogger
}

// NewKeywordClassifier creates a classifier that seeds the given topics
func NewKeywordClassifier(store Store, reconciler *Reconciler, seeds []model.TopicSeed, logger logrus.FieldLogger) *KeywordClassifier {
	return &KeywordClassifier{store: store, reconciler: reconciler, seeds: seeds, logger: logger}
}

func (k *KeywordClassifier) Name() string { return "keyword" }

// MatchTopics returns the ids of topics with a keyword contained in text,
// compared case-insensitively
func MatchTopics(text string, topics []model.Topic) []int64 {
	lower := strings.ToLower(text)
	var ids []int64
	for _, t := range topics {
		for _, kw := range t.Keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				ids = append(ids, t.ID)
				break
			}
		}
	}
	return ids
}

// Classify seeds the default topics and adds every matching topic to each
// bill in scope. Existing assignments are kept unless ClearFirst is set.
func (k *KeywordClassifier) Classify(ctx context.Context, opts ClassifyOptions, stats *model.RunStats) error {
	log := k.logger.WithFields(logrus.Fields{"stage": stats.Stage, "strategy": k.Name(), "run_id": stats.RunID})

	for _, seed := range k.seeds {
		if _, _, err := k.reconciler.EnsureTopic(ctx, seed); err != nil {
			return fmt.Errorf("failed to seed topic %s: %w", seed.Name, err)
		}
	}

	sessionID := scopeID(opts.Session)
	if opts.ClearFirst {
		if err := k.reconciler.ClearTopics(ctx, sessionID); err != nil {
			return fmt.Errorf("failed to clear topics: %w", err)
		}
		log.Info("Cleared existing topic assignments")
	}

	var topics []model.Topic
	var bills []model.Bill
	err := k.store.InTx(ctx, func(tx Tx) error {
		var err error
		if topics, err = tx.ListTopics(ctx); err != nil {
			return err
		}
		bills, err = tx.ListBills(ctx, sessionID)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to load topics and bills: %w", err)
	}

	stats.Total = len(bills)
	log.Infof("Classifying %d bills against %d topics", len(bills), len(topics))

	for _, b := range bills {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		ids := MatchTopics(b.Title+" "+b.Description, topics)
		if len(ids) == 0 {
			stats.Unchanged++
			continue
		}
		added, err := k.reconciler.AssignTopics(ctx, b.ID, ids)
		if err != nil {
			log.WithField("bill", b.SourceID).WithError(err).Error("Failed to assign topics")
			stats.Failed++
			continue
		}
		if added == 0 {
			stats.Unchanged++
			continue
		}
		stats.Updated++
		stats.Created += added
	}

	return nil
}

// OfficialCategoryClassifier assigns topics from the official subject
// categories of the Althingi service
type OfficialCategoryClassifier struct {
	importer *Importer
	logger   logrus.FieldLogger
}

// NewOfficialCategoryClassifier creates a classifier backed by the category feeds
func NewOfficialCategoryClassifier(imp *Importer, logger logrus.FieldLogger) *OfficialCategoryClassifier {
	return &OfficialCategoryClassifier{importer: imp, logger: logger}
}

func (o *OfficialCategoryClassifier) Name() string { return "official" }

// Classify ensures a topic per category and links it to the local bills
// the category lists. Bills not stored locally are counted as not found.
func (o *OfficialCategoryClassifier) Classify(ctx context.Context, opts ClassifyOptions, stats *model.RunStats) error {
	imp := o.importer
	log := o.logger.WithFields(logrus.Fields{"stage": stats.Stage, "strategy": o.Name(), "run_id": stats.RunID})

	body, err := imp.client.FetchCategories(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch categories: %w", err)
	}
	batch, err := imp.parser.ParseCategories(body)
	if err != nil {
		return fmt.Errorf("failed to parse categories: %w", err)
	}
	skipped(log, stats, batch.Skipped)

	if opts.ClearFirst {
		if err := imp.reconciler.ClearTopics(ctx, scopeID(opts.Session)); err != nil {
			return fmt.Errorf("failed to clear topics: %w", err)
		}
	}

	sessionNumber := 0
	if opts.Session != nil {
		sessionNumber = opts.Session.Number
	}
	sessions := make(map[int]*model.Session)
	if opts.Session != nil {
		sessions[opts.Session.Number] = opts.Session
	}

	log.Infof("Found %d categories", len(batch.Records))
	for idx, cat := range batch.Records {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if idx > 0 {
			if err := imp.pause(ctx); err != nil {
				return err
			}
		}
		clog := log.WithField("category", cat.SourceID)

		description := cat.Description
		if description == "" && cat.Group != "" {
			description = cat.Group
		}
		topic, _, err := imp.reconciler.EnsureTopic(ctx, model.TopicSeed{Name: cat.Name, Description: description})
		if err != nil {
			clog.WithError(err).Error("Failed to ensure topic")
			stats.Failed++
			continue
		}

		if err := o.classifyCategory(ctx, cat, topic, sessionNumber, sessions, stats); err != nil {
			clog.WithError(err).Error("Failed to classify category")
			stats.Failed++
		}
	}

	return nil
}

func (o *OfficialCategoryClassifier) classifyCategory(ctx context.Context, cat model.CategoryMeta, topic *model.Topic, sessionNumber int, sessions map[int]*model.Session, stats *model.RunStats) error {
	imp := o.importer
	body, err := imp.client.FetchCategoryBills(ctx, cat.SourceID, sessionNumber)
	if err != nil {
		return fmt.Errorf("failed to fetch bills: %w", err)
	}
	refs, err := imp.parser.ParseBillList(body)
	if err != nil {
		return fmt.Errorf("failed to parse bills: %w", err)
	}

	for _, ref := range refs.Records {
		if ref.Session == 0 {
			ref.Session = sessionNumber
		}
		if sessionNumber != 0 && ref.Session != sessionNumber {
			continue
		}
		stats.Total++

		var bill *model.Bill
		err := imp.store.InTx(ctx, func(tx Tx) error {
			s, ok := sessions[ref.Session]
			if !ok {
				var err error
				if s, err = tx.FindSessionByNumber(ctx, ref.Session); err != nil {
					return err
				}
				sessions[ref.Session] = s
			}
			if s == nil {
				return nil
			}
			var err error
			bill, err = tx.FindBill(ctx, s.ID, ref.SourceID)
			return err
		})
		if err != nil {
			return err
		}
		if bill == nil {
			stats.NotFound++
			continue
		}

		added, err := imp.reconciler.AssignTopics(ctx, bill.ID, []int64{topic.ID})
		if err != nil {
			return err
		}
		if added > 0 {
			stats.Created++
		} else {
			stats.Unchanged++
		}
	}
	return nil
}
