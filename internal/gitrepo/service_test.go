package gitrepo

import (
	"strings"
	"testing"

	"guidance/api/internal/store"
)

func testGuideline(title string) store.Guideline {
	return store.Guideline{
		ID:             "guideline_test",
		GuidanceNumber: "CG104",
		LongTitle:      title + " (CG104)",
		Title:          title,
		Chapters: []store.Chapter{
			{ChapterID: "overview", Title: "Overview", Sections: []store.Section{
				{SectionID: "section-1", Title: "Section 1", Content: "<p>hello</p>"},
			}},
		},
		GuidelineCurrentVersion: 1,
	}
}

func TestEnsureGuidelineRepoIsIdempotent(t *testing.T) {
	svc := New(t.TempDir())
	g := testGuideline("Test guideline")

	if err := svc.EnsureGuidelineRepo("CG104", g, "Joe Bloggs"); err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	if err := svc.EnsureGuidelineRepo("CG104", g, "Joe Bloggs"); err != nil {
		t.Fatalf("second ensure: %v", err)
	}

	history, err := svc.History("CG104", 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 baseline commit, got %d", len(history))
	}
	if !strings.Contains(history[0].Message, "baseline") {
		t.Errorf("unexpected baseline message %q", history[0].Message)
	}
}

func TestCommitMergeAppendsHistory(t *testing.T) {
	svc := New(t.TempDir())
	g := testGuideline("Test guideline")

	if err := svc.EnsureGuidelineRepo("CG104", g, "Joe Bloggs"); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	merged := g.Clone()
	merged.GuidelineCurrentVersion = 2
	merged.Chapters[0].Sections[0].Content = "<p>edited</p>"

	info, err := svc.CommitMerge("CG104", merged, "Jane Doe", "Merged edit branch test-branch")
	if err != nil {
		t.Fatalf("commit merge: %v", err)
	}
	if info.Author != "Jane Doe" {
		t.Errorf("author = %q, want Jane Doe", info.Author)
	}
	if len(info.Hash) != 7 {
		t.Errorf("hash = %q, want 7-char short hash", info.Hash)
	}

	history, err := svc.History("CG104", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 commits, got %d", len(history))
	}
	if !strings.Contains(history[0].Message, "test-branch") {
		t.Errorf("newest commit message %q does not mention the merged branch", history[0].Message)
	}
}

func TestCommitMergeAllowsIdenticalContent(t *testing.T) {
	svc := New(t.TempDir())
	g := testGuideline("Test guideline")

	if err := svc.EnsureGuidelineRepo("CG104", g, "Joe Bloggs"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	// Same content twice still produces a commit for the trail.
	if _, err := svc.CommitMerge("CG104", g, "Joe Bloggs", "Merged no-op"); err != nil {
		t.Fatalf("no-op merge: %v", err)
	}
	history, err := svc.History("CG104", 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 commits, got %d", len(history))
	}
}

func TestHistoryLimit(t *testing.T) {
	svc := New(t.TempDir())
	g := testGuideline("Test guideline")

	if err := svc.EnsureGuidelineRepo("CG104", g, "Joe Bloggs"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.CommitMerge("CG104", g, "Joe Bloggs", "Merged again"); err != nil {
			t.Fatalf("merge %d: %v", i, err)
		}
	}

	history, err := svc.History("CG104", 2)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("limit not applied, got %d commits", len(history))
	}
}

func TestRemoveGuidelineRepo(t *testing.T) {
	svc := New(t.TempDir())
	g := testGuideline("Test guideline")

	if err := svc.EnsureGuidelineRepo("CG104", g, "Joe Bloggs"); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := svc.RemoveGuidelineRepo("CG104"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := svc.History("CG104", 0); err == nil {
		t.Fatal("expected history to fail after removal")
	}
	// Removing again is fine.
	if err := svc.RemoveGuidelineRepo("CG104"); err != nil {
		t.Fatalf("second remove: %v", err)
	}
}
