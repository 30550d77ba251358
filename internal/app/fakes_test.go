package app

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"

	"guidance/api/internal/config"
	"guidance/api/internal/store"
)

// fakeStore is an in-memory dataStore keyed the same way the Postgres store
// is: guidelines by GuidanceNumber, branches by branchName, approvals by
// approvalRequestName, users by userName.
type fakeStore struct {
	mu         sync.Mutex
	guidelines map[string]store.Guideline
	branches   map[string]store.Branch
	approvals  map[string]store.Approval
	users      map[string]store.User
	pingErr    error
	listErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		guidelines: map[string]store.Guideline{},
		branches:   map[string]store.Branch{},
		approvals:  map[string]store.Approval{},
		users:      map[string]store.User{},
	}
}

func (f *fakeStore) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeStore) ListGuidelines(ctx context.Context) ([]store.Guideline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	keys := make([]string, 0, len(f.guidelines))
	for k := range f.guidelines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]store.Guideline, 0, len(keys))
	for _, k := range keys {
		out = append(out, f.guidelines[k])
	}
	return out, nil
}

func (f *fakeStore) SearchGuidelines(ctx context.Context, term string) ([]store.Guideline, error) {
	all, _ := f.ListGuidelines(ctx)
	out := []store.Guideline{}
	for _, g := range all {
		if strings.Contains(strings.ToLower(g.LongTitle), strings.ToLower(term)) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeStore) GetGuidelineByNumber(ctx context.Context, number string) (store.Guideline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.guidelines[number]
	if !ok {
		return store.Guideline{}, sql.ErrNoRows
	}
	return g, nil
}

func (f *fakeStore) InsertGuideline(ctx context.Context, g store.Guideline) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.guidelines[g.GuidanceNumber] = g
	return nil
}

func (f *fakeStore) ReplaceGuideline(ctx context.Context, g store.Guideline) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.guidelines[g.GuidanceNumber]; !ok {
		return sql.ErrNoRows
	}
	f.guidelines[g.GuidanceNumber] = g
	return nil
}

func (f *fakeStore) DeleteGuidelineByNumber(ctx context.Context, number string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.guidelines[number]; !ok {
		return sql.ErrNoRows
	}
	delete(f.guidelines, number)
	return nil
}

func (f *fakeStore) CountGuidelines(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.guidelines), nil
}

func (f *fakeStore) ListBranches(ctx context.Context) ([]store.Branch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.branches))
	for k := range f.branches {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]store.Branch, 0, len(keys))
	for _, k := range keys {
		out = append(out, f.branches[k])
	}
	return out, nil
}

func (f *fakeStore) GetBranchByName(ctx context.Context, name string) (store.Branch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.branches[name]
	if !ok {
		return store.Branch{}, sql.ErrNoRows
	}
	return b, nil
}

func (f *fakeStore) InsertBranch(ctx context.Context, b store.Branch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.branches[b.BranchName] = b
	return nil
}

func (f *fakeStore) ReplaceBranch(ctx context.Context, b store.Branch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.branches[b.BranchName]; !ok {
		return sql.ErrNoRows
	}
	f.branches[b.BranchName] = b
	return nil
}

func (f *fakeStore) DeleteBranchByName(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.branches[name]; !ok {
		return sql.ErrNoRows
	}
	delete(f.branches, name)
	return nil
}

func (f *fakeStore) ListApprovals(ctx context.Context) ([]store.Approval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.approvals))
	for k := range f.approvals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]store.Approval, 0, len(keys))
	for _, k := range keys {
		out = append(out, f.approvals[k])
	}
	return out, nil
}

func (f *fakeStore) GetApprovalByName(ctx context.Context, name string) (store.Approval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.approvals[name]
	if !ok {
		return store.Approval{}, sql.ErrNoRows
	}
	return a, nil
}

func (f *fakeStore) InsertApproval(ctx context.Context, a store.Approval) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.approvals[a.ApprovalRequestName] = a
	return nil
}

func (f *fakeStore) DeleteApprovalByName(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.approvals[name]; !ok {
		return sql.ErrNoRows
	}
	delete(f.approvals, name)
	return nil
}

func (f *fakeStore) ListUsers(ctx context.Context) ([]store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.users))
	for k := range f.users {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]store.User, 0, len(keys))
	for _, k := range keys {
		out = append(out, f.users[k])
	}
	return out, nil
}

func (f *fakeStore) GetUserByUserName(ctx context.Context, userName string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userName]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (f *fakeStore) InsertUser(ctx context.Context, u store.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.UserName] = u
	return nil
}

// fakeAudit records commits instead of touching disk.
type fakeAudit struct {
	mu      sync.Mutex
	commits map[string][]store.CommitInfo
	removed []string
}

func newFakeAudit() *fakeAudit {
	return &fakeAudit{commits: map[string][]store.CommitInfo{}}
}

func (f *fakeAudit) EnsureGuidelineRepo(guidanceNumber string, g store.Guideline, author string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.commits[guidanceNumber]; !ok {
		f.commits[guidanceNumber] = []store.CommitInfo{{Hash: "0000000", Message: "Import guideline baseline", Author: author}}
	}
	return nil
}

func (f *fakeAudit) CommitMerge(guidanceNumber string, g store.Guideline, author, message string) (store.CommitInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info := store.CommitInfo{Hash: "1111111", Message: message, Author: author}
	f.commits[guidanceNumber] = append(f.commits[guidanceNumber], info)
	return info, nil
}

func (f *fakeAudit) History(guidanceNumber string, limit int) ([]store.CommitInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	commits := f.commits[guidanceNumber]
	out := make([]store.CommitInfo, len(commits))
	// Newest first, like the real log.
	for i, c := range commits {
		out[len(commits)-1-i] = c
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeAudit) RemoveGuidelineRepo(guidanceNumber string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.commits, guidanceNumber)
	f.removed = append(f.removed, guidanceNumber)
	return nil
}

func newTestService(fs *fakeStore, fa *fakeAudit) *Service {
	return &Service{
		cfg:   config.Config{},
		store: fs,
		audit: fa,
	}
}

func cg104Fixture() store.Guideline {
	return store.Guideline{
		ID:             "guideline_cg104",
		GuidanceNumber: "CG104",
		GuidanceSlug:   "metastatic-malignant-disease-of-unknown-primary-origin-in-adults-diagn-cg104",
		GuidanceType:   "Clinical guideline",
		LongTitle:      "Metastatic malignant disease of unknown primary origin in adults: diagnosis and management (CG104)",
		Chapters: []store.Chapter{
			{
				ChapterID: "overview",
				Title:     "Overview",
				Content:   "<h2>Overview</h2>",
				Sections: []store.Section{
					{SectionID: "who-is-it-for", Title: "Who is it for", Content: "<p>Everyone.</p>"},
				},
			},
			{
				ChapterID: "recommendations",
				Title:     "Recommendations",
				Content:   "<h2>Recommendations</h2>",
				Sections: []store.Section{
					{SectionID: "diagnosis", Title: "Diagnosis", Content: "<p>Diagnose.</p>"},
					{SectionID: "management", Title: "Management", Content: "<p>Manage.</p>"},
				},
			},
		},
		URI:                                "https://api.nice.org.uk/services/guidance/structured-documents/CG104",
		Title:                              "Metastatic malignant disease of unknown primary origin in adults: diagnosis and management",
		GuidelineCurrentVersion:            1.0,
		GuidelineChangeHistoryDescriptions: []store.ChangeRecord{},
	}
}

func branchFixture(name string) store.Branch {
	return store.Branch{
		ID:                  "branch_" + name,
		Type:                "edit",
		BranchName:          name,
		BranchSetupDateTime: "1666192190849",
		BranchOwner:         "joebloggs",
		BranchAllowedUsers:  []string{},
		Guideline:           cg104Fixture(),
		Comments:            []store.Comment{},
	}
}
