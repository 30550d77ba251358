package app

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"guidance/api/internal/slug"
	"guidance/api/internal/store"
)

const (
	templateChapterFormat  = "<div class=\"chapter\" title=\"%s\" xmlns=\"http://www.w3.org/1999/xhtml\">\r\n  <h2 class=\"title\">\r\n    %s</h2>\r\n  <p>Content to edit.</p>\r\n</div>"
	templateSectionContent = "<div class=\"section\" title=\"Section 1 Title\" xmlns=\"http://www.w3.org/1999/xhtml\">\r\n  <h3 class=\"title\">\r\n    Title to edit</h3>\r\n <p>Content to edit.</p>\r\n</div>"
)

// templateGuideline is the scaffold a brand-new guideline proposal starts
// from: three placeholder chapters with a single section each. Authors
// replace the placeholder content section by section on the branch.
func templateGuideline(title, guidanceNumber string) store.Guideline {
	return store.Guideline{
		GuidanceNumber:                guidanceNumber,
		GuidanceSlug:                  slug.Make(title),
		GuidanceType:                  "Clinical guideline",
		LongTitle:                     title + " (" + guidanceNumber + ")",
		MetadataApplicationProfile:    templateMetadataProfile(title),
		NHSEvidenceAccredited:         false,
		InformationStandardAccredited: false,
		Chapters: []store.Chapter{
			templateChapter("overview", "Overview"),
			templateChapter("chapter-2-title", "Chapter 2 Title"),
			templateChapter("chapter-3-title", "Chapter 3 Title"),
		},
		LastModified:                       "",
		URI:                                "URL To Edit",
		Title:                              title,
		TitleContent:                       nil,
		GuidelineCurrentVersion:            1.0,
		GuidelineChangeHistoryDescriptions: []store.ChangeRecord{},
	}
}

func templateChapter(chapterID, title string) store.Chapter {
	// The overview chapter repeats its title in the heading; the placeholder
	// chapters carry an edit prompt instead.
	heading := "Title to edit"
	if chapterID == "overview" {
		heading = title
	}
	content := fmt.Sprintf(templateChapterFormat, title, heading)
	return store.Chapter{
		ChapterID: chapterID,
		Title:     title,
		Content:   content,
		Sections: []store.Section{
			{
				SectionID: "section-1-title",
				Title:     "Section 1 Title",
				Content:   templateSectionContent,
			},
		},
	}
}

func templateMetadataProfile(title string) json.RawMessage {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	profile := map[string]any{
		"AlternativeTitle": nil,
		"Audiences":        []string{},
		"Creator":          "NICE",
		"Description":      nil,
		"Identifier":       "",
		"Language":         nil,
		"Modified":         now,
		"Issued":           now,
		"Publisher":        "NICE",
		"Title":            title,
		"Types":            []string{},
		"Subjects":         []string{},
		"Contributors":     []string{},
		"Source":           "NICE",
		"ParentSection":    nil,
		"Breadcrumb":       nil,
	}
	raw, _ := json.Marshal(profile)
	return raw
}
