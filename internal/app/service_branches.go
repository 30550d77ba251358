package app

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"guidance/api/internal/slug"
	"guidance/api/internal/store"
	"guidance/api/internal/util"

	"github.com/rs/zerolog/log"
)

// CreateBranchInput is the POST /api/branches body. The create flavour
// carries a proposed title and number instead of an embedded guideline.
type CreateBranchInput struct {
	store.Branch
	GuidelineTitle          string `json:"guidelineTitle,omitempty"`
	GuidelineNumberProposed string `json:"guidelineNumberProposed,omitempty"`
}

// PatchSectionInput targets one section (or, with sectionNum 999, a whole
// chapter) of the branch's guideline copy.
type PatchSectionInput struct {
	ChapterNum *int   `json:"chapterNum"`
	SectionNum *int   `json:"sectionNum"`
	PatchBody  string `json:"patchBody"`
	NewTitle   string `json:"newTitle,omitempty"`
}

// chapterPatchSentinel means "patch the chapter itself, not a section".
const chapterPatchSentinel = 999

func (s *Service) ListBranches(ctx context.Context) ([]store.Branch, error) {
	return s.store.ListBranches(ctx)
}

func (s *Service) GetBranch(ctx context.Context, name string) (store.Branch, error) {
	b, err := s.store.GetBranchByName(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Branch{}, domainError(404, "Branch not found")
	}
	if err != nil {
		return store.Branch{}, err
	}
	return b, nil
}

// CreateEditBranch opens a draft over an existing guideline. The caller
// supplies the full branch document including the guideline copy.
func (s *Service) CreateEditBranch(ctx context.Context, input CreateBranchInput) (store.Branch, error) {
	b := input.Branch
	if b.IsZero() {
		return store.Branch{}, domainError(400, "Bad Request")
	}
	return s.insertBranch(ctx, b)
}

// CreateTemplateBranch opens a draft proposing a brand-new guideline built
// from the placeholder template.
func (s *Service) CreateTemplateBranch(ctx context.Context, input CreateBranchInput) (store.Branch, error) {
	b := input.Branch
	if b.IsZero() && input.GuidelineTitle == "" {
		return store.Branch{}, domainError(400, "Bad Request")
	}
	b.Guideline = templateGuideline(input.GuidelineTitle, input.GuidelineNumberProposed)
	return s.insertBranch(ctx, b)
}

func (s *Service) insertBranch(ctx context.Context, b store.Branch) (store.Branch, error) {
	if b.ID == "" {
		b.ID = util.NewID("branch")
	}
	if b.BranchAllowedUsers == nil {
		b.BranchAllowedUsers = []string{}
	}
	if b.Comments == nil {
		b.Comments = []store.Comment{}
	}
	b.Guideline = b.Guideline.Clone()
	if err := s.store.InsertBranch(ctx, b); err != nil {
		return store.Branch{}, err
	}
	return b, nil
}

// PatchBranchSection applies a content edit to the branch's guideline copy.
// sectionNum 999 retitles and rewrites the chapter instead of a section; a
// supplied newTitle also re-derives the chapter or section id.
func (s *Service) PatchBranchSection(ctx context.Context, name string, input PatchSectionInput) (store.Branch, error) {
	if input.PatchBody == "" {
		return store.Branch{}, domainError(400, "Bad Request")
	}
	if input.ChapterNum == nil || input.SectionNum == nil {
		return store.Branch{}, domainError(400, "Bad Request")
	}

	b, err := s.GetBranch(ctx, name)
	if err != nil {
		return store.Branch{}, err
	}

	ci, si := *input.ChapterNum, *input.SectionNum
	if ci < 0 || ci >= len(b.Guideline.Chapters) {
		return store.Branch{}, domainError(400, "Bad Request")
	}
	chapter := &b.Guideline.Chapters[ci]

	b.BranchLastModified = millisStamp()

	if si == chapterPatchSentinel {
		title := input.NewTitle
		if title == "" {
			title = chapter.Title
		}
		chapter.Content = input.PatchBody
		chapter.Title = title
		chapter.ChapterID = slug.Make(title)
	} else {
		if si < 0 || si >= len(chapter.Sections) {
			return store.Branch{}, domainError(400, "Bad Request")
		}
		section := &chapter.Sections[si]
		title := input.NewTitle
		if title == "" {
			title = section.Title
		}
		section.Content = input.PatchBody
		section.Title = title
		section.SectionID = slug.Make(title)
	}

	if err := s.replaceBranch(ctx, b); err != nil {
		return store.Branch{}, err
	}
	return b, nil
}

// AddAllowedUser appends a username to the branch's edit allowlist.
func (s *Service) AddAllowedUser(ctx context.Context, name, userToAdd string) (store.Branch, error) {
	if userToAdd == "" {
		return store.Branch{}, domainError(400, "Bad Request: No user provided")
	}

	b, err := s.GetBranch(ctx, name)
	if err != nil {
		return store.Branch{}, err
	}

	b.BranchLastModified = millisStamp()
	b.BranchAllowedUsers = append(b.BranchAllowedUsers, userToAdd)

	if err := s.replaceBranch(ctx, b); err != nil {
		return store.Branch{}, err
	}
	return b, nil
}

// SetBranchLock flips the advisory lock flag. Nothing consults the flag when
// writing; reviewers use it as a signal, so the transition is unconditional.
func (s *Service) SetBranchLock(ctx context.Context, name string, locked bool) (store.Branch, error) {
	b, err := s.GetBranch(ctx, name)
	if err != nil {
		return store.Branch{}, err
	}

	b.BranchLockedForApproval = locked

	if err := s.replaceBranch(ctx, b); err != nil {
		return store.Branch{}, err
	}
	return b, nil
}

func (s *Service) DeleteBranch(ctx context.Context, name string) error {
	err := s.store.DeleteBranchByName(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		return domainError(404, "Branch not found")
	}
	return err
}

func (s *Service) ListComments(ctx context.Context, name string) ([]store.Comment, error) {
	b, err := s.GetBranch(ctx, name)
	if err != nil {
		return nil, err
	}
	if b.Comments == nil {
		return []store.Comment{}, nil
	}
	return b.Comments, nil
}

// AddComment appends a comment to the branch thread and returns it with its
// store-assigned id.
func (s *Service) AddComment(ctx context.Context, name string, comment store.Comment) (store.Comment, error) {
	if comment.Author == "" || comment.Body == "" {
		return store.Comment{}, domainError(400, "Bad Request")
	}

	b, err := s.GetBranch(ctx, name)
	if err != nil {
		return store.Comment{}, err
	}

	comment.ID = util.NewID("comment")
	b.Comments = append(b.Comments, comment)

	if err := s.replaceBranch(ctx, b); err != nil {
		return store.Comment{}, err
	}
	return comment, nil
}

func (s *Service) replaceBranch(ctx context.Context, b store.Branch) error {
	err := s.store.ReplaceBranch(ctx, b)
	if errors.Is(err, sql.ErrNoRows) {
		return domainError(404, "Branch not found")
	}
	return err
}

func (s *Service) ListApprovals(ctx context.Context) ([]store.Approval, error) {
	return s.store.ListApprovals(ctx)
}

func (s *Service) GetApproval(ctx context.Context, name string) (store.Approval, error) {
	a, err := s.store.GetApprovalByName(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Approval{}, domainError(404, "Approval Name not found")
	}
	if err != nil {
		return store.Approval{}, err
	}
	return a, nil
}

// CreateApproval freezes a branch's current guideline state into a review
// request. The snapshot is a value copy: later branch edits do not leak in.
func (s *Service) CreateApproval(ctx context.Context, a store.Approval) (store.Approval, error) {
	if a.IsZero() {
		return store.Approval{}, domainError(400, "Bad Request")
	}
	if a.ID == "" {
		a.ID = util.NewID("approval")
	}
	a.Guideline = a.Guideline.Clone()
	if err := s.store.InsertApproval(ctx, a); err != nil {
		return store.Approval{}, err
	}
	return a, nil
}

// DeleteApproval removes an acted-upon approval, archiving its snapshot
// first when an archive backend is configured.
func (s *Service) DeleteApproval(ctx context.Context, name string) error {
	a, err := s.store.GetApprovalByName(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		return domainError(404, "Approval Name not found")
	}
	if err != nil {
		return err
	}

	if s.archive != nil {
		if err := s.archive.ArchiveApproval(ctx, a); err != nil {
			log.Warn().Err(err).Str("approval", name).Msg("archive approval")
		}
	}

	err = s.store.DeleteApprovalByName(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		return domainError(404, "Approval Name not found")
	}
	return err
}

func millisStamp() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}
