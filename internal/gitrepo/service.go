// Package gitrepo keeps one git repository per guideline as a tamper-evident
// audit trail. Every canonical state is a commit on main; merges append.
package gitrepo

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"guidance/api/internal/store"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const contentFile = "guideline.json"

type Service struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(baseDir string) *Service {
	return &Service{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
	}
}

// EnsureGuidelineRepo initialises the audit repository for a guideline with
// its first canonical state. Idempotent: an existing repo is left untouched.
func (s *Service) EnsureGuidelineRepo(guidanceNumber string, g store.Guideline, author string) error {
	lock := s.guidelineLock(guidanceNumber)
	lock.Lock()
	defer lock.Unlock()

	path := s.repoPath(guidanceNumber)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat repo path: %w", err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create repo dir: %w", err)
	}

	repo, err := git.PlainInit(path, false)
	if err != nil {
		return fmt.Errorf("init repo: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}
	if err := writeGuidelineFile(path, g); err != nil {
		return err
	}
	if _, err := worktree.Add(contentFile); err != nil {
		return fmt.Errorf("git add initial content: %w", err)
	}
	hash, err := worktree.Commit("Import guideline baseline", &git.CommitOptions{
		Author: signature(author),
	})
	if err != nil {
		return fmt.Errorf("commit initial content: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewHashReference(plumbing.NewBranchReferenceName("main"), hash)); err != nil {
		return fmt.Errorf("set main branch ref: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main"))); err != nil {
		return fmt.Errorf("set HEAD to main: %w", err)
	}
	return nil
}

// CommitMerge records a merged canonical state on main. Empty commits are
// allowed so a no-op merge still leaves its mark in the trail.
func (s *Service) CommitMerge(guidanceNumber string, g store.Guideline, author, message string) (store.CommitInfo, error) {
	lock := s.guidelineLock(guidanceNumber)
	lock.Lock()
	defer lock.Unlock()

	path := s.repoPath(guidanceNumber)
	repo, err := git.PlainOpen(path)
	if err != nil {
		return store.CommitInfo{}, fmt.Errorf("open repo: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return store.CommitInfo{}, fmt.Errorf("open worktree: %w", err)
	}
	if err := writeGuidelineFile(path, g); err != nil {
		return store.CommitInfo{}, err
	}
	if _, err := worktree.Add(contentFile); err != nil {
		return store.CommitInfo{}, fmt.Errorf("git add content: %w", err)
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		AllowEmptyCommits: true,
		Author:            signature(author),
	})
	if err != nil {
		return store.CommitInfo{}, fmt.Errorf("commit content: %w", err)
	}

	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return store.CommitInfo{}, fmt.Errorf("read commit object: %w", err)
	}
	return toCommitInfo(commitObj), nil
}

// History lists the newest commits on main, most recent first. A limit of
// zero or less means unlimited.
func (s *Service) History(guidanceNumber string, limit int) ([]store.CommitInfo, error) {
	lock := s.guidelineLock(guidanceNumber)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(guidanceNumber))
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	ref, err := repo.Reference(plumbing.NewBranchReferenceName("main"), true)
	if err != nil {
		return nil, fmt.Errorf("resolve main: %w", err)
	}

	iter, err := repo.Log(&git.LogOptions{From: ref.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := []store.CommitInfo{}
	count := 0
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toCommitInfo(commitObj))
		count++
		if limit > 0 && count >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

// RemoveGuidelineRepo deletes a guideline's audit repository. Missing repos
// are not an error so deletion stays idempotent with the store.
func (s *Service) RemoveGuidelineRepo(guidanceNumber string) error {
	lock := s.guidelineLock(guidanceNumber)
	lock.Lock()
	defer lock.Unlock()

	if err := os.RemoveAll(s.repoPath(guidanceNumber)); err != nil {
		return fmt.Errorf("remove repo: %w", err)
	}
	return nil
}

func (s *Service) repoPath(guidanceNumber string) string {
	return filepath.Join(s.baseDir, guidanceNumber)
}

func (s *Service) guidelineLock(guidanceNumber string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[guidanceNumber]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	s.locks[guidanceNumber] = lock
	return lock
}

func writeGuidelineFile(repoPath string, g store.Guideline) error {
	payload, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal guideline: %w", err)
	}
	if err := os.WriteFile(filepath.Join(repoPath, contentFile), append(payload, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", contentFile, err)
	}
	return nil
}

func signature(author string) *object.Signature {
	return &object.Signature{
		Name:  author,
		Email: fmt.Sprintf("%s@local.guidance.dev", sanitizeEmail(author)),
		When:  time.Now(),
	}
}

func toCommitInfo(commitObj *object.Commit) store.CommitInfo {
	return store.CommitInfo{
		Hash:      commitObj.Hash.String()[:7],
		Message:   commitObj.Message,
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
}

func sanitizeEmail(input string) string {
	runes := make([]rune, 0, len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			runes = append(runes, r)
			continue
		}
		if r == ' ' || r == '-' || r == '_' {
			runes = append(runes, '.')
		}
	}
	if len(runes) == 0 {
		return "user"
	}
	return string(runes)
}
