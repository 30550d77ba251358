package store

import (
	"encoding/json"
	"time"
)

// Field names mirror the external wire contract: guidelines carry the
// upstream publisher's PascalCase keys, branches/approvals/users the
// camelCase keys the authoring frontend already speaks.

type Section struct {
	SectionID string `json:"SectionId"`
	Title     string `json:"Title"`
	Content   string `json:"Content"`
}

type Chapter struct {
	ChapterID string    `json:"ChapterId"`
	Title     string    `json:"Title"`
	Content   string    `json:"Content"`
	Sections  []Section `json:"Sections"`
}

// ChangeRecord is one entry in a guideline's merge history. ChangeNumber is
// assigned server-side at merge time.
type ChangeRecord struct {
	ChangeNumber        int    `json:"ChangeNumber"`
	ChangeDescription   string `json:"ChangeDescription"`
	ChangeOwner         string `json:"ChangeOwner"`
	ChangeDatePublished string `json:"ChangeDatePublished"`
}

type Guideline struct {
	ID                                 string          `json:"_id,omitempty"`
	GuidanceNumber                     string          `json:"GuidanceNumber"`
	GuidanceSlug                       string          `json:"GuidanceSlug"`
	GuidanceType                       string          `json:"GuidanceType"`
	LongTitle                          string          `json:"LongTitle"`
	MetadataApplicationProfile         json.RawMessage `json:"MetadataApplicationProfile,omitempty"`
	NHSEvidenceAccredited              bool            `json:"NHSEvidenceAccredited"`
	InformationStandardAccredited      bool            `json:"InformationStandardAccredited"`
	Chapters                           []Chapter       `json:"Chapters"`
	LastModified                       string          `json:"LastModified"`
	URI                                string          `json:"Uri"`
	Title                              string          `json:"Title"`
	TitleContent                       *string         `json:"TitleContent"`
	GuidelineCurrentVersion            float64         `json:"GuidelineCurrentVersion"`
	GuidelineChangeHistoryDescriptions []ChangeRecord  `json:"GuidelineChangeHistoryDescriptions"`
}

// IsZero reports whether the guideline carries no identifying content,
// which is how an empty request body surfaces after decoding.
func (g Guideline) IsZero() bool {
	return g.GuidanceNumber == "" && g.LongTitle == "" && g.Title == "" && len(g.Chapters) == 0
}

// Clone returns a deep copy. Branches, approvals, and merges each own a
// private copy of guideline content; nothing may share backing arrays with
// a caller that can still mutate them.
func (g Guideline) Clone() Guideline {
	out := g
	if g.MetadataApplicationProfile != nil {
		out.MetadataApplicationProfile = append(json.RawMessage(nil), g.MetadataApplicationProfile...)
	}
	if g.Chapters != nil {
		out.Chapters = make([]Chapter, len(g.Chapters))
		for i, chapter := range g.Chapters {
			copied := chapter
			if chapter.Sections != nil {
				copied.Sections = append([]Section(nil), chapter.Sections...)
			}
			out.Chapters[i] = copied
		}
	}
	if g.GuidelineChangeHistoryDescriptions != nil {
		out.GuidelineChangeHistoryDescriptions = append([]ChangeRecord(nil), g.GuidelineChangeHistoryDescriptions...)
	}
	if g.TitleContent != nil {
		titleContent := *g.TitleContent
		out.TitleContent = &titleContent
	}
	return out
}

type Comment struct {
	ID          string `json:"_id,omitempty"`
	Author      string `json:"author"`
	Body        string `json:"body"`
	CommentDate string `json:"commentDate"`
}

type Branch struct {
	ID                      string    `json:"_id,omitempty"`
	Type                    string    `json:"type"`
	BranchName              string    `json:"branchName"`
	BranchSetupDateTime     string    `json:"branchSetupDateTime"`
	BranchOwner             string    `json:"branchOwner"`
	BranchAllowedUsers      []string  `json:"branchAllowedUsers"`
	BranchLastModified      string    `json:"branchLastModified,omitempty"`
	BranchLockedForApproval bool      `json:"branchLockedForApproval"`
	Guideline               Guideline `json:"guideline"`
	Comments                []Comment `json:"comments"`
}

func (b Branch) IsZero() bool {
	return b.BranchName == "" && b.Type == "" && b.BranchOwner == ""
}

type Approval struct {
	ID                         string    `json:"_id,omitempty"`
	Type                       string    `json:"type"`
	ApprovalRequestName        string    `json:"approvalRequestName"`
	ApprovalSetupDateTime      string    `json:"approvalSetupDateTime"`
	ApprovalPurposeDescription string    `json:"approvalPurposeDescription,omitempty"`
	BranchName                 string    `json:"branchName,omitempty"`
	BranchOwner                string    `json:"branchOwner"`
	Guideline                  Guideline `json:"guideline"`
}

func (a Approval) IsZero() bool {
	return a.ApprovalRequestName == "" && a.Type == "" && a.BranchOwner == ""
}

type User struct {
	ID                   string   `json:"_id,omitempty"`
	FirstName            string   `json:"firstName"`
	LastName             string   `json:"lastName"`
	PreferredName        string   `json:"preferredName,omitempty"`
	JobTitle             string   `json:"jobTitle,omitempty"`
	UserName             string   `json:"userName"`
	EmailAddress         string   `json:"emailAddress"`
	PrimaryAccessLevel   []string `json:"primaryAccessLevel"`
	SecondaryAccessLevel []string `json:"secondaryAccessLevel,omitempty"`
	DateAccountCreated   string   `json:"dateAccountCreated"`
}

// CommitInfo describes one entry in a guideline's merge audit trail.
type CommitInfo struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}
