package app

import (
	"context"
	"net/http"
	"testing"

	"guidance/api/internal/store"
)

func approvalFixture(name string) store.Approval {
	return store.Approval{
		ID:                    "approval_" + name,
		Type:                  "edit",
		ApprovalRequestName:   name,
		ApprovalSetupDateTime: "1666192190849",
		BranchName:            "test-branch",
		BranchOwner:           "joebloggs",
		Guideline:             cg104Fixture(),
	}
}

func TestCreateApprovalRequiresTypeParam(t *testing.T) {
	h := newTestHandler(newFakeStore(), newFakeAudit())

	rec := doJSON(t, h, http.MethodPost, "/api/approvals", approvalFixture("x"))
	assertErrorResponse(t, rec, http.StatusBadRequest, "Bad Request: Specify type parameter")

	// Approvals only come from edit branches; the create flavour never
	// reaches review.
	rec = doJSON(t, h, http.MethodPost, "/api/approvals?type=create", approvalFixture("x"))
	assertErrorResponse(t, rec, http.StatusBadRequest, "Invalid type parameter")
}

func TestCreateApprovalRoute(t *testing.T) {
	fs := newFakeStore()
	h := newTestHandler(fs, newFakeAudit())

	rec := doJSON(t, h, http.MethodPost, "/api/approvals?type=edit", approvalFixture("review-cg104"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %q)", rec.Code, rec.Body.String())
	}
	var body struct {
		Approval store.Approval `json:"approval"`
	}
	decodeInto(t, rec, &body)
	if body.Approval.ApprovalRequestName != "review-cg104" {
		t.Errorf("approvalRequestName = %q", body.Approval.ApprovalRequestName)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/approvals?type=edit", store.Approval{})
	assertErrorResponse(t, rec, http.StatusBadRequest, "Bad Request")
}

func TestGetApprovalRoute(t *testing.T) {
	fs := newFakeStore()
	_ = fs.InsertApproval(context.Background(), approvalFixture("review-cg104"))
	h := newTestHandler(fs, newFakeAudit())

	rec := doJSON(t, h, http.MethodGet, "/api/approvals/review-cg104", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Approval store.Approval `json:"approval"`
	}
	decodeInto(t, rec, &body)
	if body.Approval.BranchName != "test-branch" {
		t.Errorf("branchName = %q", body.Approval.BranchName)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/approvals/no-such-approval", nil)
	assertErrorResponse(t, rec, http.StatusNotFound, "Approval Name not found")
}

func TestListApprovalsEnvelope(t *testing.T) {
	fs := newFakeStore()
	_ = fs.InsertApproval(context.Background(), approvalFixture("review-a"))
	_ = fs.InsertApproval(context.Background(), approvalFixture("review-b"))
	h := newTestHandler(fs, newFakeAudit())

	rec := doJSON(t, h, http.MethodGet, "/api/approvals", nil)
	var body struct {
		Approvals []store.Approval `json:"approvals"`
	}
	decodeInto(t, rec, &body)
	if len(body.Approvals) != 2 {
		t.Errorf("approvals = %d, want 2", len(body.Approvals))
	}
}

func TestDeleteApprovalRoute(t *testing.T) {
	fs := newFakeStore()
	_ = fs.InsertApproval(context.Background(), approvalFixture("review-cg104"))
	h := newTestHandler(fs, newFakeAudit())

	rec := doJSON(t, h, http.MethodDelete, "/api/approvals/review-cg104", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	rec = doJSON(t, h, http.MethodDelete, "/api/approvals/review-cg104", nil)
	assertErrorResponse(t, rec, http.StatusNotFound, "Approval Name not found")
}
