package search

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Service tries Meilisearch first and falls back to the Postgres title scan.
type Service struct {
	meili   *Meili
	pgtitle *PgTitle
}

// NewService creates a search service. meili may be nil when Meilisearch is
// not configured.
func NewService(meili *Meili, pgtitle *PgTitle) *Service {
	return &Service{meili: meili, pgtitle: pgtitle}
}

func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Warn().Err(err).Msg("search: meilisearch error, falling back to title scan")
	}

	results, total, err := s.pgtitle.Search(q)
	if err != nil {
		log.Error().Err(err).Msg("search: title scan error")
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexGuideline indexes a guideline, fire-and-forget.
func (s *Service) IndexGuideline(rec GuidelineRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexGuideline(rec); err != nil {
			log.Warn().Err(err).Str("id", rec.ID).Msg("search: index guideline")
		}
	}()
}

// DeleteGuideline removes a guideline from the index, fire-and-forget.
func (s *Service) DeleteGuideline(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteGuideline(id); err != nil {
			log.Warn().Err(err).Str("id", id).Msg("search: delete guideline")
		}
	}()
}

// ReindexAll pushes every stored guideline into Meilisearch. Called during
// bootstrap so the index catches up with whatever is already in Postgres.
func (s *Service) ReindexAll(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() || s.pgtitle == nil {
		return
	}
	records, err := s.pgtitle.LoadAllRecords(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("search: reindex load failed")
		return
	}
	if err := s.meili.IndexGuidelines(records); err != nil {
		log.Warn().Err(err).Msg("search: reindex failed")
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
