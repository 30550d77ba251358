package app

import (
	"context"
	"database/sql"
	"errors"

	"guidance/api/internal/config"
	"guidance/api/internal/search"
	"guidance/api/internal/store"
	"guidance/api/internal/util"

	"github.com/rs/zerolog/log"
)

// dataStore is the persistence surface the service needs. *store.PostgresStore
// satisfies it; tests swap in fakes.
type dataStore interface {
	Ping(ctx context.Context) error

	ListGuidelines(ctx context.Context) ([]store.Guideline, error)
	SearchGuidelines(ctx context.Context, term string) ([]store.Guideline, error)
	GetGuidelineByNumber(ctx context.Context, number string) (store.Guideline, error)
	InsertGuideline(ctx context.Context, g store.Guideline) error
	ReplaceGuideline(ctx context.Context, g store.Guideline) error
	DeleteGuidelineByNumber(ctx context.Context, number string) error
	CountGuidelines(ctx context.Context) (int, error)

	ListBranches(ctx context.Context) ([]store.Branch, error)
	GetBranchByName(ctx context.Context, name string) (store.Branch, error)
	InsertBranch(ctx context.Context, b store.Branch) error
	ReplaceBranch(ctx context.Context, b store.Branch) error
	DeleteBranchByName(ctx context.Context, name string) error

	ListApprovals(ctx context.Context) ([]store.Approval, error)
	GetApprovalByName(ctx context.Context, name string) (store.Approval, error)
	InsertApproval(ctx context.Context, a store.Approval) error
	DeleteApprovalByName(ctx context.Context, name string) error

	ListUsers(ctx context.Context) ([]store.User, error)
	GetUserByUserName(ctx context.Context, userName string) (store.User, error)
	InsertUser(ctx context.Context, u store.User) error
}

// auditService records canonical guideline states in per-guideline git repos.
type auditService interface {
	EnsureGuidelineRepo(guidanceNumber string, g store.Guideline, author string) error
	CommitMerge(guidanceNumber string, g store.Guideline, author, message string) (store.CommitInfo, error)
	History(guidanceNumber string, limit int) ([]store.CommitInfo, error)
	RemoveGuidelineRepo(guidanceNumber string) error
}

// guidelineSearch is the optional title-search facade.
type guidelineSearch interface {
	Search(q search.Query) search.Response
	IndexGuideline(rec search.GuidelineRecord)
	DeleteGuideline(id string)
	ReindexAll(ctx context.Context)
}

// guidelineCache is the optional Redis read-through cache.
type guidelineCache interface {
	GetGuideline(ctx context.Context, guidanceNumber string) (store.Guideline, error)
	SetGuideline(ctx context.Context, g store.Guideline) error
	InvalidateGuideline(ctx context.Context, guidanceNumber string) error
}

// snapshotArchive is the optional object store for acted-upon approvals.
type snapshotArchive interface {
	ArchiveApproval(ctx context.Context, a store.Approval) error
}

type Service struct {
	cfg     config.Config
	store   dataStore
	audit   auditService
	search  guidelineSearch
	cache   guidelineCache
	archive snapshotArchive
}

func New(cfg config.Config, st dataStore, audit auditService, searchSvc guidelineSearch) *Service {
	return &Service{
		cfg:    cfg,
		store:  st,
		audit:  audit,
		search: searchSvc,
	}
}

// UseCache attaches the optional guideline cache.
func (s *Service) UseCache(c guidelineCache) {
	s.cache = c
}

// UseArchive attaches the optional approval snapshot archive.
func (s *Service) UseArchive(a snapshotArchive) {
	s.archive = a
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Bootstrap seeds the store with the embedded fixtures when it is empty and
// makes sure every guideline has an audit repo and a search index entry.
func (s *Service) Bootstrap(ctx context.Context, guidelines []store.Guideline, users []store.User) error {
	count, err := s.store.CountGuidelines(ctx)
	if err != nil {
		return err
	}
	if count == 0 {
		for _, g := range guidelines {
			if g.ID == "" {
				g.ID = util.NewID("guideline")
			}
			if g.GuidelineCurrentVersion == 0 {
				g.GuidelineCurrentVersion = 1.0
			}
			if g.GuidelineChangeHistoryDescriptions == nil {
				g.GuidelineChangeHistoryDescriptions = []store.ChangeRecord{}
			}
			if err := s.store.InsertGuideline(ctx, g); err != nil {
				return err
			}
		}
		for _, u := range users {
			if u.ID == "" {
				u.ID = util.NewID("user")
			}
			if err := s.store.InsertUser(ctx, u); err != nil {
				return err
			}
		}
		log.Info().Int("guidelines", len(guidelines)).Int("users", len(users)).Msg("bootstrap: seeded empty store")
	}

	stored, err := s.store.ListGuidelines(ctx)
	if err != nil {
		return err
	}
	for _, g := range stored {
		if err := s.audit.EnsureGuidelineRepo(g.GuidanceNumber, g, "system"); err != nil {
			log.Warn().Err(err).Str("guideline", g.GuidanceNumber).Msg("bootstrap: audit repo")
		}
	}
	if s.search != nil {
		s.search.ReindexAll(ctx)
	}
	return nil
}

// ListGuidelines returns all guidelines, or the subset whose LongTitle
// contains searchTerm (case-insensitive) when it is non-empty.
func (s *Service) ListGuidelines(ctx context.Context, searchTerm string) ([]store.Guideline, error) {
	if searchTerm != "" {
		return s.store.SearchGuidelines(ctx, searchTerm)
	}
	return s.store.ListGuidelines(ctx)
}

func (s *Service) GetGuideline(ctx context.Context, number string) (store.Guideline, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetGuideline(ctx, number); err == nil {
			return cached, nil
		}
	}

	g, err := s.store.GetGuidelineByNumber(ctx, number)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Guideline{}, domainError(404, "Guideline not found")
	}
	if err != nil {
		return store.Guideline{}, err
	}

	if s.cache != nil {
		if err := s.cache.SetGuideline(ctx, g); err != nil {
			log.Warn().Err(err).Str("guideline", number).Msg("cache guideline")
		}
	}
	return g, nil
}

func (s *Service) CreateGuideline(ctx context.Context, g store.Guideline) (store.Guideline, error) {
	if g.IsZero() {
		return store.Guideline{}, domainError(400, "Bad Request")
	}

	g = g.Clone()
	if g.ID == "" {
		g.ID = util.NewID("guideline")
	}
	if g.GuidelineCurrentVersion == 0 {
		g.GuidelineCurrentVersion = 1.0
	}
	if g.GuidelineChangeHistoryDescriptions == nil {
		g.GuidelineChangeHistoryDescriptions = []store.ChangeRecord{}
	}

	if err := s.store.InsertGuideline(ctx, g); err != nil {
		return store.Guideline{}, err
	}

	if err := s.audit.EnsureGuidelineRepo(g.GuidanceNumber, g, "system"); err != nil {
		log.Warn().Err(err).Str("guideline", g.GuidanceNumber).Msg("init audit repo")
	}
	s.indexGuideline(g)
	return g, nil
}

func (s *Service) DeleteGuideline(ctx context.Context, number string) error {
	err := s.store.DeleteGuidelineByNumber(ctx, number)
	if errors.Is(err, sql.ErrNoRows) {
		return domainError(404, "Guideline not found")
	}
	if err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateGuideline(ctx, number); err != nil {
			log.Warn().Err(err).Str("guideline", number).Msg("invalidate cache")
		}
	}
	if s.search != nil {
		s.search.DeleteGuideline(number)
	}
	if err := s.audit.RemoveGuidelineRepo(number); err != nil {
		log.Warn().Err(err).Str("guideline", number).Msg("remove audit repo")
	}
	return nil
}

// MergeGuideline replaces the canonical guideline with the patched snapshot,
// bumping the snapshot's version by one and appending the submission record.
// The stored guideline is replaced wholesale: callers round-trip the full
// document, so anything they dropped is dropped here too.
func (s *Service) MergeGuideline(ctx context.Context, number string, patched store.Guideline, submission store.ChangeRecord) (store.Guideline, error) {
	if patched.IsZero() {
		return store.Guideline{}, domainError(400, "Bad Request")
	}

	stored, err := s.store.GetGuidelineByNumber(ctx, number)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Guideline{}, domainError(404, "Guideline not found")
	}
	if err != nil {
		return store.Guideline{}, err
	}

	merged := patched.Clone()
	merged.ID = stored.ID
	merged.GuidanceNumber = stored.GuidanceNumber
	merged.GuidelineCurrentVersion++
	if merged.GuidelineChangeHistoryDescriptions == nil {
		merged.GuidelineChangeHistoryDescriptions = []store.ChangeRecord{}
	}
	submission.ChangeNumber = len(merged.GuidelineChangeHistoryDescriptions)
	merged.GuidelineChangeHistoryDescriptions = append(merged.GuidelineChangeHistoryDescriptions, submission)

	if err := s.store.ReplaceGuideline(ctx, merged); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Guideline{}, domainError(404, "Guideline not found")
		}
		return store.Guideline{}, err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateGuideline(ctx, number); err != nil {
			log.Warn().Err(err).Str("guideline", number).Msg("invalidate cache")
		}
	}
	s.indexGuideline(merged)

	author := submission.ChangeOwner
	if author == "" {
		author = "system"
	}
	message := "Merged change " + submission.ChangeDescription
	if submission.ChangeDescription == "" {
		message = "Merged change into " + number
	}
	if _, err := s.audit.CommitMerge(number, merged, author, message); err != nil {
		log.Warn().Err(err).Str("guideline", number).Msg("audit merge commit")
	}

	return merged, nil
}

// GuidelineHistory lists merge commits for a guideline, newest first.
func (s *Service) GuidelineHistory(ctx context.Context, number string, limit int) ([]store.CommitInfo, error) {
	if _, err := s.store.GetGuidelineByNumber(ctx, number); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainError(404, "Guideline not found")
		}
		return nil, err
	}
	return s.audit.History(number, limit)
}

// SearchGuidelines serves the dedicated search endpoint.
func (s *Service) SearchGuidelines(q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(q)
}

func (s *Service) ListUsers(ctx context.Context) ([]store.User, error) {
	return s.store.ListUsers(ctx)
}

func (s *Service) GetUser(ctx context.Context, userName string) (store.User, error) {
	u, err := s.store.GetUserByUserName(ctx, userName)
	if errors.Is(err, sql.ErrNoRows) {
		return store.User{}, domainError(404, "Username not found")
	}
	if err != nil {
		return store.User{}, err
	}
	return u, nil
}

func (s *Service) indexGuideline(g store.Guideline) {
	if s.search == nil {
		return
	}
	s.search.IndexGuideline(search.GuidelineRecord{
		ID:        g.GuidanceNumber,
		Title:     g.Title,
		LongTitle: g.LongTitle,
		Slug:      g.GuidanceSlug,
		Type:      g.GuidanceType,
	})
}
