package store

import (
	"context"
	"fmt"

	"github.com/cvstudio/cvstudio-backend/internal/cv/domain"
	"github.com/cvstudio/cvstudio-backend/pkg/errors"
	"github.com/cvstudio/cvstudio-backend/pkg/logger"
)

// RetrievalStrategy is one named way of fetching a single document by id.
// Strategies are tried in declared order; a strategy only hands over to the
// next one when it fails with a genuine fault (including ErrUnsupported).
// A clean "no such record" answer ends the chain with ErrNotFound.
type RetrievalStrategy struct {
	Name  string
	Fetch func(ctx context.Context, b Backend, id string) (*domain.CVDocument, error)
}

func directGet() RetrievalStrategy {
	return RetrievalStrategy{
		Name: "direct_get",
		Fetch: func(ctx context.Context, b Backend, id string) (*domain.CVDocument, error) {
			return b.Get(ctx, id)
		},
	}
}

func filteredFind() RetrievalStrategy {
	return RetrievalStrategy{
		Name: "filtered_find",
		Fetch: func(ctx context.Context, b Backend, id string) (*domain.CVDocument, error) {
			docs, err := b.Find(ctx, Filter{ID: id})
			if err != nil {
				return nil, err
			}
			if len(docs) == 0 {
				return nil, errors.NotFound("CV document")
			}
			return docs[0], nil
		},
	}
}

func listScan() RetrievalStrategy {
	return RetrievalStrategy{
		Name: "list_scan",
		Fetch: func(ctx context.Context, b Backend, id string) (*domain.CVDocument, error) {
			docs, err := b.List(ctx)
			if err != nil {
				return nil, err
			}
			for _, doc := range docs {
				if doc != nil && doc.ID == id {
					return doc, nil
				}
			}
			return nil, errors.NotFound("CV document")
		},
	}
}

// defaultStrategies is the declared retrieval policy: direct single-record
// fetch, then filtered find, then full list plus linear scan.
func defaultStrategies() []RetrievalStrategy {
	return []RetrievalStrategy{directGet(), filteredFind(), listScan()}
}

// fetchWithFallback runs the strategy chain. Success or a clean not-found
// short-circuits. When every strategy faults the caller gets one aggregated
// StoreUnavailable error instead of three raw ones.
func fetchWithFallback(ctx context.Context, b Backend, id string, strategies []RetrievalStrategy, log *logger.Logger) (*domain.CVDocument, error) {
	var faults []error

	for _, strat := range strategies {
		doc, err := strat.Fetch(ctx, b, id)
		if err == nil {
			return doc, nil
		}
		if errors.Is(err, errors.ErrNotFound) {
			// The store answered; the record is genuinely absent.
			return nil, err
		}

		log.Warn().
			Str("strategy", strat.Name).
			Str("document_id", id).
			Err(err).
			Msg("retrieval strategy failed, trying next")
		faults = append(faults, fmt.Errorf("%s: %w", strat.Name, err))
	}

	return nil, errors.StoreUnavailable(joinErrors(faults))
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	err := errs[0]
	for _, e := range errs[1:] {
		err = fmt.Errorf("%w; %w", err, e)
	}
	return err
}
