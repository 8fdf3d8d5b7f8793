package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"tracker/web/internal/model"
	"tracker/web/internal/rbac"
)

// RefreshHeader carries the refresh token on auth/refresh; the body stays empty.
const RefreshHeader = "RefreshTokenX"

// Auth

func (c *Client) Login(ctx context.Context, req model.LoginRequest) (model.TokenPair, error) {
	var pair model.TokenPair
	err := c.Post(ctx, "auth/login", req, &pair)
	return pair, err
}

func (c *Client) Register(ctx context.Context, req model.RegisterRequest) (model.RegisterResponse, error) {
	var resp model.RegisterResponse
	err := c.Post(ctx, "auth/register", req, &resp)
	return resp, err
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	var pair model.TokenPair
	header := http.Header{}
	header.Set(RefreshHeader, refreshToken)
	err := c.Do(ctx, http.MethodPost, "auth/refresh", nil, header, &pair)
	return pair, err
}

func (c *Client) GitHubLogin(ctx context.Context, code string) (model.TokenPair, error) {
	var pair model.TokenPair
	err := c.Get(ctx, "auth/oauth/github/login?code="+url.QueryEscape(code), &pair)
	return pair, err
}

func (c *Client) CurrentUser(ctx context.Context) (model.User, error) {
	var user model.User
	err := c.Get(ctx, "auth", &user)
	return user, err
}

// User preferences

func (c *Client) GetUserPreferences(ctx context.Context) (model.UserPreference, error) {
	var pref model.UserPreference
	err := c.Get(ctx, "user-preferences", &pref)
	return pref, err
}

func (c *Client) UpdateUserPreferences(ctx context.Context, update model.UserPreferenceUpdate) (model.UserPreference, error) {
	var pref model.UserPreference
	err := c.Patch(ctx, "user-preferences", update, &pref)
	return pref, err
}

// Organizations

func (c *Client) ListOrgs(ctx context.Context) ([]model.Org, error) {
	var orgs []model.Org
	err := c.Get(ctx, "org", &orgs)
	return orgs, err
}

func (c *Client) GetOrg(ctx context.Context, orgID uuid.UUID) (model.Org, error) {
	var org model.Org
	err := c.Get(ctx, "org/"+orgID.String(), &org)
	return org, err
}

func (c *Client) SessionRole(ctx context.Context, orgID uuid.UUID) (rbac.Role, error) {
	var role rbac.Role
	err := c.Get(ctx, "org/"+orgID.String()+"/session-role", &role)
	return role, err
}

func (c *Client) CreateOrg(ctx context.Context, req model.CreateOrgRequest) (model.Org, error) {
	var org model.Org
	err := c.Post(ctx, "org", req, &org)
	return org, err
}

func (c *Client) UpdateOrg(ctx context.Context, orgID uuid.UUID, req model.UpdateOrgRequest) (model.Org, error) {
	var org model.Org
	err := c.Patch(ctx, "org/"+orgID.String(), req, &org)
	return org, err
}

func (c *Client) DeleteOrg(ctx context.Context, orgID uuid.UUID) error {
	return c.Delete(ctx, "org/"+orgID.String(), nil)
}

// Members and invites

func (c *Client) ListMembers(ctx context.Context, orgID uuid.UUID) ([]model.OrgMemberWithUser, error) {
	var members []model.OrgMemberWithUser
	err := c.Get(ctx, "org/"+orgID.String()+"/members", &members)
	return members, err
}

func (c *Client) UpdateMemberRole(ctx context.Context, orgID, userID uuid.UUID, role rbac.Role) error {
	return c.Patch(ctx, "org/"+orgID.String()+"/member/"+userID.String(), model.UpdateMemberRequest{Role: &role}, nil)
}

func (c *Client) RemoveMember(ctx context.Context, orgID, userID uuid.UUID) error {
	return c.Delete(ctx, "org/"+orgID.String()+"/member/"+userID.String(), nil)
}

func (c *Client) ListOrgInvites(ctx context.Context, orgID uuid.UUID) ([]model.OrgMemberInvite, error) {
	var invites []model.OrgMemberInvite
	err := c.Get(ctx, "org/"+orgID.String()+"/invites", &invites)
	return invites, err
}

// InviteMember returns the created invite. The zero invite means the API
// answered without a body.
func (c *Client) InviteMember(ctx context.Context, orgID uuid.UUID, email string) (model.OrgMemberInvite, error) {
	var invite model.OrgMemberInvite
	err := c.Post(ctx, "org/"+orgID.String()+"/invites", model.InviteRequest{Email: email}, &invite)
	return invite, err
}

func (c *Client) ListInvites(ctx context.Context) ([]model.OrgMemberInviteResponse, error) {
	var invites []model.OrgMemberInviteResponse
	err := c.Get(ctx, "invites", &invites)
	return invites, err
}

func (c *Client) AcceptInvite(ctx context.Context, token string, orgID uuid.UUID) error {
	return c.Post(ctx, "invites/"+url.PathEscape(token)+"/"+orgID.String()+"/accept", nil, nil)
}

func (c *Client) CancelInvite(ctx context.Context, token string) error {
	return c.Delete(ctx, "invites/"+url.PathEscape(token), nil)
}

// Issues

func (c *Client) ListIssues(ctx context.Context, orgID uuid.UUID) ([]model.IssueResponse, error) {
	var issues []model.IssueResponse
	err := c.Get(ctx, "issues/"+orgID.String(), &issues)
	return issues, err
}

func (c *Client) GetIssue(ctx context.Context, orgID, issueID uuid.UUID) (model.IssueResponse, error) {
	var issue model.IssueResponse
	err := c.Get(ctx, "issues/"+orgID.String()+"/"+issueID.String(), &issue)
	return issue, err
}

func (c *Client) CreateIssue(ctx context.Context, orgID uuid.UUID, req model.IssueRequest) (model.IssueResponse, error) {
	var issue model.IssueResponse
	err := c.Post(ctx, "issues/"+orgID.String(), req, &issue)
	return issue, err
}

func (c *Client) UpdateIssue(ctx context.Context, orgID, issueID uuid.UUID, update model.IssueUpdate) (model.IssueResponse, error) {
	var issue model.IssueResponse
	err := c.Patch(ctx, "issues/"+orgID.String()+"/"+issueID.String(), update, &issue)
	return issue, err
}

func (c *Client) DeleteIssue(ctx context.Context, orgID, issueID uuid.UUID) error {
	return c.Delete(ctx, "issues/"+orgID.String()+"/"+issueID.String(), nil)
}

// Comments

func (c *Client) CreateComment(ctx context.Context, orgID uuid.UUID, req model.CommentRequest) (model.CommentResponse, error) {
	var comment model.CommentResponse
	err := c.Post(ctx, "comments/"+orgID.String(), req, &comment)
	return comment, err
}

func (c *Client) ListComments(ctx context.Context, orgID, ownerID uuid.UUID) ([]model.CommentResponse, error) {
	var comments []model.CommentResponse
	err := c.Get(ctx, "comments/"+orgID.String()+"/all/"+ownerID.String(), &comments)
	return comments, err
}

func (c *Client) UpdateComment(ctx context.Context, orgID, commentID uuid.UUID, req model.UpdateCommentRequest) (model.CommentResponse, error) {
	var comment model.CommentResponse
	err := c.Patch(ctx, "comments/"+orgID.String()+"/"+commentID.String(), req, &comment)
	return comment, err
}

func (c *Client) DeleteComment(ctx context.Context, orgID, commentID uuid.UUID) error {
	return c.Delete(ctx, "comments/"+orgID.String()+"/"+commentID.String(), nil)
}
