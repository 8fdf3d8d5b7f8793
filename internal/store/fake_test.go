package store

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"tracker/web/internal/apiclient"
	"tracker/web/internal/model"
	"tracker/web/internal/rbac"
)

// fakeAPI implements every store API. Unset funcs answer with zero values.
type fakeAPI struct {
	listIssues    func(context.Context, uuid.UUID) ([]model.IssueResponse, error)
	createIssue   func(context.Context, uuid.UUID, model.IssueRequest) (model.IssueResponse, error)
	updateIssue   func(context.Context, uuid.UUID, uuid.UUID, model.IssueUpdate) (model.IssueResponse, error)
	deleteIssue   func(context.Context, uuid.UUID, uuid.UUID) error
	createComment func(context.Context, uuid.UUID, model.CommentRequest) (model.CommentResponse, error)

	listMembers      func(context.Context, uuid.UUID) ([]model.OrgMemberWithUser, error)
	listOrgInvites   func(context.Context, uuid.UUID) ([]model.OrgMemberInvite, error)
	inviteMember     func(context.Context, uuid.UUID, string) (model.OrgMemberInvite, error)
	removeMember     func(context.Context, uuid.UUID, uuid.UUID) error
	updateMemberRole func(context.Context, uuid.UUID, uuid.UUID, rbac.Role) error

	listInvites  func(context.Context) ([]model.OrgMemberInviteResponse, error)
	acceptInvite func(context.Context, string, uuid.UUID) error
	cancelInvite func(context.Context, string) error

	createOrg func(context.Context, model.CreateOrgRequest) (model.Org, error)
	updateOrg func(context.Context, uuid.UUID, model.UpdateOrgRequest) (model.Org, error)
	deleteOrg func(context.Context, uuid.UUID) error
}

func (f *fakeAPI) ListIssues(ctx context.Context, orgID uuid.UUID) ([]model.IssueResponse, error) {
	if f.listIssues == nil {
		return nil, nil
	}
	return f.listIssues(ctx, orgID)
}

func (f *fakeAPI) CreateIssue(ctx context.Context, orgID uuid.UUID, req model.IssueRequest) (model.IssueResponse, error) {
	if f.createIssue == nil {
		return model.IssueResponse{}, nil
	}
	return f.createIssue(ctx, orgID, req)
}

func (f *fakeAPI) UpdateIssue(ctx context.Context, orgID, issueID uuid.UUID, update model.IssueUpdate) (model.IssueResponse, error) {
	if f.updateIssue == nil {
		return model.IssueResponse{}, nil
	}
	return f.updateIssue(ctx, orgID, issueID, update)
}

func (f *fakeAPI) DeleteIssue(ctx context.Context, orgID, issueID uuid.UUID) error {
	if f.deleteIssue == nil {
		return nil
	}
	return f.deleteIssue(ctx, orgID, issueID)
}

func (f *fakeAPI) CreateComment(ctx context.Context, orgID uuid.UUID, req model.CommentRequest) (model.CommentResponse, error) {
	if f.createComment == nil {
		return model.CommentResponse{}, nil
	}
	return f.createComment(ctx, orgID, req)
}

func (f *fakeAPI) ListMembers(ctx context.Context, orgID uuid.UUID) ([]model.OrgMemberWithUser, error) {
	if f.listMembers == nil {
		return nil, nil
	}
	return f.listMembers(ctx, orgID)
}

func (f *fakeAPI) ListOrgInvites(ctx context.Context, orgID uuid.UUID) ([]model.OrgMemberInvite, error) {
	if f.listOrgInvites == nil {
		return nil, nil
	}
	return f.listOrgInvites(ctx, orgID)
}

func (f *fakeAPI) InviteMember(ctx context.Context, orgID uuid.UUID, email string) (model.OrgMemberInvite, error) {
	if f.inviteMember == nil {
		return model.OrgMemberInvite{}, nil
	}
	return f.inviteMember(ctx, orgID, email)
}

func (f *fakeAPI) RemoveMember(ctx context.Context, orgID, userID uuid.UUID) error {
	if f.removeMember == nil {
		return nil
	}
	return f.removeMember(ctx, orgID, userID)
}

func (f *fakeAPI) UpdateMemberRole(ctx context.Context, orgID, userID uuid.UUID, role rbac.Role) error {
	if f.updateMemberRole == nil {
		return nil
	}
	return f.updateMemberRole(ctx, orgID, userID, role)
}

func (f *fakeAPI) ListInvites(ctx context.Context) ([]model.OrgMemberInviteResponse, error) {
	if f.listInvites == nil {
		return nil, nil
	}
	return f.listInvites(ctx)
}

func (f *fakeAPI) AcceptInvite(ctx context.Context, token string, orgID uuid.UUID) error {
	if f.acceptInvite == nil {
		return nil
	}
	return f.acceptInvite(ctx, token, orgID)
}

func (f *fakeAPI) CancelInvite(ctx context.Context, token string) error {
	if f.cancelInvite == nil {
		return nil
	}
	return f.cancelInvite(ctx, token)
}

func (f *fakeAPI) CreateOrg(ctx context.Context, req model.CreateOrgRequest) (model.Org, error) {
	if f.createOrg == nil {
		return model.Org{}, nil
	}
	return f.createOrg(ctx, req)
}

func (f *fakeAPI) UpdateOrg(ctx context.Context, orgID uuid.UUID, req model.UpdateOrgRequest) (model.Org, error) {
	if f.updateOrg == nil {
		return model.Org{}, nil
	}
	return f.updateOrg(ctx, orgID, req)
}

func (f *fakeAPI) DeleteOrg(ctx context.Context, orgID uuid.UUID) error {
	if f.deleteOrg == nil {
		return nil
	}
	return f.deleteOrg(ctx, orgID)
}

// serverError is what apiclient returns for a 500 with a JSON body.
func serverError() error {
	return &apiclient.Error{
		Kind:   apiclient.KindHTTP,
		Method: http.MethodPost,
		Path:   "issues",
		Status: http.StatusInternalServerError,
		Body:   &model.ErrorResponse{Error: "internal", Code: "INTERNAL", Message: "boom"},
		Err:    errors.New("500 Internal Server Error"),
	}
}

func waitLoaded(t *testing.T, loaded <-chan struct{}) {
	t.Helper()
	select {
	case <-loaded:
	case <-time.After(2 * time.Second):
		t.Fatal("initial load did not finish")
	}
}

func issueWith(status model.Status) model.IssueResponse {
	id := uuid.New()
	return model.IssueResponse{
		Issue:   model.Issue{ID: id, Title: string(status) + " issue", Status: status},
		IssueID: id,
	}
}
