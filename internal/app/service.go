package app

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"tracker/web/internal/apiclient"
	"tracker/web/internal/authpw"
	"tracker/web/internal/config"
	"tracker/web/internal/model"
	"tracker/web/internal/rbac"
	"tracker/web/internal/store"
)

// pinger is a backing service the readiness probe checks.
type pinger interface {
	Ping(ctx context.Context) error
}

type Service struct {
	cfg   config.Config
	api   *apiclient.Client
	cache pinger
}

func New(cfg config.Config, api *apiclient.Client) *Service {
	return &Service{cfg: cfg, api: api}
}

// NewWithCache is New plus a shared refresh cache that /api/ready checks.
func NewWithCache(cfg config.Config, api *apiclient.Client, cache pinger) *Service {
	return &Service{cfg: cfg, api: api, cache: cache}
}

func (s *Service) Ping(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Ping(ctx)
}

func (s *Service) CacheConfigured() bool {
	return s.cache != nil
}

func (s *Service) Production() bool {
	return s.cfg.Production
}

// API is the unauthenticated client; the refresh gate uses it.
func (s *Service) API() *apiclient.Client {
	return s.api
}

func (s *Service) client(token string) *apiclient.Client {
	return s.api.WithToken(token)
}

// GitHubLoginURL is where the browser starts the GitHub OAuth flow. The API
// owns the OAuth client and redirects back to /auth/callback/github.
func (s *Service) GitHubLoginURL() string {
	return strings.TrimRight(s.cfg.PublicAPIBaseURL, "/") + "/auth/oauth/github"
}

// Auth actions

const msgInvalidCredentials = "Invalid email or password"

func (s *Service) SignIn(ctx context.Context, form authpw.LoginForm) (model.TokenPair, error) {
	if errs := authpw.ValidateLogin(&form); !errs.Valid() {
		return model.TokenPair{}, formError(http.StatusBadRequest, errs)
	}
	pair, err := s.api.Login(ctx, model.LoginRequest{Email: form.Email, Password: form.Password})
	if err != nil {
		if apiclient.IsUnauthorized(err) {
			return model.TokenPair{}, formError(http.StatusBadRequest, authpw.Errors{"email": {msgInvalidCredentials}})
		}
		log.Printf("app: sign-in failed: %v", err)
		return model.TokenPair{}, domainError(http.StatusInternalServerError, "LOGIN_FAILED", "Login failed", nil)
	}
	return pair, nil
}

func (s *Service) SignUp(ctx context.Context, form authpw.RegisterForm) (model.RegisterResponse, error) {
	if errs := authpw.ValidateRegister(&form); !errs.Valid() {
		return model.RegisterResponse{}, formError(http.StatusBadRequest, errs)
	}
	resp, err := s.api.Register(ctx, model.RegisterRequest{
		Email:    form.Email,
		Password: form.Password,
		Username: form.Username,
	})
	if err != nil {
		log.Printf("app: sign-up failed status=%d: %v", apiclient.StatusOf(err), err)
		return model.RegisterResponse{}, err
	}
	return resp, nil
}

func (s *Service) GitHubCallback(ctx context.Context, code string) (model.TokenPair, error) {
	return s.api.GitHubLogin(ctx, code)
}

// Page loaders

type LayoutData struct {
	User            model.User           `json:"user"`
	UserPreferences model.UserPreference `json:"user_preferences"`
	Orgs            []model.Org          `json:"orgs"`
	OrgExists       bool                 `json:"org_exists"`
	Path            string               `json:"path"`
	APIBaseURL      string               `json:"api_base_url"`
}

// LoadSession fetches the user, their organizations and their preferences
// side by side into a fresh per-request session.
func (s *Service) LoadSession(ctx context.Context, token string) (*store.Session, error) {
	api := s.client(token)
	session := store.NewSession()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		user, err := api.CurrentUser(gctx)
		if err != nil {
			return err
		}
		session.User.Set(user)
		return nil
	})
	g.Go(func() error {
		orgs, err := api.ListOrgs(gctx)
		if err != nil {
			return err
		}
		session.Orgs.SetOrgs(orgs)
		return nil
	})
	g.Go(func() error {
		pref, err := api.GetUserPreferences(gctx)
		if err != nil {
			return err
		}
		session.Preference.Set(pref)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *Service) Layout(ctx context.Context, token, path string) (LayoutData, error) {
	session, err := s.LoadSession(ctx, token)
	if err != nil {
		return LayoutData{}, err
	}
	user, _ := session.User.Get()
	pref, _ := session.Preference.Get()
	orgs := session.Orgs.Orgs()
	if orgs == nil {
		orgs = []model.Org{}
	}
	return LayoutData{
		User:            user,
		UserPreferences: pref,
		Orgs:            orgs,
		OrgExists:       len(orgs) > 0,
		Path:            path,
		APIBaseURL:      s.cfg.PublicAPIBaseURL,
	}, nil
}

type OrgSettingsData struct {
	OrgID       uuid.UUID            `json:"org_id"`
	Org         model.Org            `json:"org"`
	OrgsCount   int                  `json:"orgs_count"`
	SessionRole rbac.Role            `json:"session_role"`
	Permissions map[rbac.Action]bool `json:"permissions"`
}

func (s *Service) OrgSettings(ctx context.Context, token string, orgID uuid.UUID) (OrgSettingsData, error) {
	api := s.client(token)
	orgs, err := api.ListOrgs(ctx)
	if err != nil {
		return OrgSettingsData{}, err
	}
	org, ok := findOrg(orgs, orgID)
	if !ok {
		return OrgSettingsData{}, errNotFound
	}
	role, err := api.SessionRole(ctx, orgID)
	if err != nil {
		return OrgSettingsData{}, err
	}
	role = rbac.Normalize(string(role))
	return OrgSettingsData{
		OrgID:       orgID,
		Org:         org,
		OrgsCount:   len(orgs),
		SessionRole: role,
		Permissions: rbac.Permissions(role),
	}, nil
}

type BoardData struct {
	OrgID       uuid.UUID                              `json:"org_id"`
	Org         model.Org                              `json:"org"`
	StatusOrder []model.Status                         `json:"status_order"`
	Groups      map[model.Status][]model.IssueResponse `json:"groups"`
	Counts      map[model.Status]int                   `json:"counts"`
	Total       int                                    `json:"total"`
}

func boardData(org model.Org, issues *store.IssueStore) BoardData {
	all := issues.Issues()
	board := store.GroupByStatus(all)
	return BoardData{
		OrgID:       org.ID,
		Org:         org,
		StatusOrder: board.Order,
		Groups:      board.Groups,
		Counts:      board.Counts,
		Total:       len(all),
	}
}

// Board loads an organization's issues grouped into status columns.
func (s *Service) Board(ctx context.Context, token string, orgID uuid.UUID) (BoardData, error) {
	api := s.client(token)
	orgs, err := api.ListOrgs(ctx)
	if err != nil {
		return BoardData{}, err
	}
	if len(orgs) == 0 {
		return BoardData{}, errNoOrgs
	}
	org, ok := findOrg(orgs, orgID)
	if !ok {
		return BoardData{}, errNotFound
	}
	issues, err := s.issueStore(ctx, api, orgID)
	if err != nil {
		return BoardData{}, err
	}
	return boardData(org, issues), nil
}

// Issue actions. Each answers with the affected issue and the board as the
// store sees it afterwards.

type IssueResult struct {
	Issue *model.IssueResponse `json:"issue,omitempty"`
	Board BoardData            `json:"board"`
}

func (s *Service) issueStore(ctx context.Context, api store.IssueAPI, orgID uuid.UUID) (*store.IssueStore, error) {
	issues := store.NewIssueStore(ctx, api, orgID)
	select {
	case <-issues.Loaded():
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if err := issues.LoadErr(); err != nil {
		return nil, err
	}
	return issues, nil
}

func (s *Service) CreateIssue(ctx context.Context, token string, orgID uuid.UUID, req model.IssueRequest) (IssueResult, error) {
	if strings.TrimSpace(req.Title) == "" {
		return IssueResult{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}
	if req.Priority == "" {
		req.Priority = model.PriorityMedium
	}
	if req.Status == "" {
		req.Status = model.StatusBacklog
	}
	issues, err := s.issueStore(ctx, s.client(token), orgID)
	if err != nil {
		return IssueResult{}, err
	}
	var created model.IssueResponse
	if req.ParentID != nil {
		created, err = issues.CreateSubIssue(ctx, req)
	} else {
		created, err = issues.CreateIssue(ctx, req)
	}
	if err != nil {
		return IssueResult{}, err
	}
	return IssueResult{Issue: &created, Board: boardData(model.Org{ID: orgID}, issues)}, nil
}

func (s *Service) UpdateIssue(ctx context.Context, token string, orgID, issueID uuid.UUID, update model.IssueUpdate) (IssueResult, error) {
	issues, err := s.issueStore(ctx, s.client(token), orgID)
	if err != nil {
		return IssueResult{}, err
	}
	updated, err := issues.UpdateIssue(ctx, issueID, update)
	if err != nil {
		return IssueResult{}, err
	}
	return IssueResult{Issue: &updated, Board: boardData(model.Org{ID: orgID}, issues)}, nil
}

func (s *Service) DeleteIssue(ctx context.Context, token string, orgID, issueID uuid.UUID) (IssueResult, error) {
	issues, err := s.issueStore(ctx, s.client(token), orgID)
	if err != nil {
		return IssueResult{}, err
	}
	if err := issues.DeleteIssue(ctx, issueID); err != nil {
		return IssueResult{}, err
	}
	return IssueResult{Board: boardData(model.Org{ID: orgID}, issues)}, nil
}

func (s *Service) CreateComment(ctx context.Context, token string, orgID, issueID uuid.UUID, req model.CommentRequest) (model.CommentResponse, error) {
	if len(req.Content) == 0 {
		return model.CommentResponse{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "content is required", nil)
	}
	req.CommentOwnerID = issueID
	if req.CommentType == "" {
		req.CommentType = model.CommentTypeIssue
	}
	issues, err := s.issueStore(ctx, s.client(token), orgID)
	if err != nil {
		return model.CommentResponse{}, err
	}
	return issues.CreateComment(ctx, req)
}

// Members

type MembersData struct {
	OrgID   uuid.UUID                 `json:"org_id"`
	Members []model.OrgMemberWithUser `json:"members"`
	Invites []model.OrgMemberInvite   `json:"invites"`
}

func membersData(orgID uuid.UUID, members *store.MemberStore) MembersData {
	data := MembersData{OrgID: orgID, Members: members.Members(), Invites: members.MemberInvites()}
	if data.Members == nil {
		data.Members = []model.OrgMemberWithUser{}
	}
	if data.Invites == nil {
		data.Invites = []model.OrgMemberInvite{}
	}
	return data
}

func (s *Service) memberStore(ctx context.Context, token string, orgID uuid.UUID) (*store.MemberStore, error) {
	members := store.NewMemberStore(ctx, s.client(token), orgID)
	select {
	case <-members.Loaded():
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if err := members.LoadErr(); err != nil {
		return nil, err
	}
	return members, nil
}

func (s *Service) Members(ctx context.Context, token string, orgID uuid.UUID) (MembersData, error) {
	members, err := s.memberStore(ctx, token, orgID)
	if err != nil {
		return MembersData{}, err
	}
	return membersData(orgID, members), nil
}

func (s *Service) InviteMember(ctx context.Context, token string, orgID uuid.UUID, form authpw.InviteForm) (MembersData, error) {
	if errs := authpw.ValidateInvite(&form); !errs.Valid() {
		return MembersData{}, formError(http.StatusBadRequest, errs)
	}
	members, err := s.memberStore(ctx, token, orgID)
	if err != nil {
		return MembersData{}, err
	}
	if _, err := members.AddMember(ctx, form.Email); err != nil {
		return MembersData{}, err
	}
	return membersData(orgID, members), nil
}

func (s *Service) UpdateMemberRole(ctx context.Context, token string, orgID, userID uuid.UUID, role rbac.Role) (MembersData, error) {
	members, err := s.memberStore(ctx, token, orgID)
	if err != nil {
		return MembersData{}, err
	}
	if err := members.UpdateRole(ctx, userID, rbac.Role(strings.ToUpper(string(role)))); err != nil {
		return MembersData{}, err
	}
	return membersData(orgID, members), nil
}

func (s *Service) RemoveMember(ctx context.Context, token string, orgID, userID uuid.UUID) (MembersData, error) {
	members, err := s.memberStore(ctx, token, orgID)
	if err != nil {
		return MembersData{}, err
	}
	if err := members.RemoveMember(ctx, userID); err != nil {
		return MembersData{}, err
	}
	return membersData(orgID, members), nil
}

func (s *Service) CancelMemberInvite(ctx context.Context, token string, orgID uuid.UUID, inviteToken string) (MembersData, error) {
	members, err := s.memberStore(ctx, token, orgID)
	if err != nil {
		return MembersData{}, err
	}
	if err := members.CancelMemberInvite(ctx, inviteToken); err != nil {
		return MembersData{}, err
	}
	return membersData(orgID, members), nil
}

// Invites addressed to the signed-in user

type InvitesData struct {
	Invites []model.OrgMemberInviteResponse `json:"invites"`
}

func invitesData(invites *store.InviteStore) InvitesData {
	data := InvitesData{Invites: invites.Invites()}
	if data.Invites == nil {
		data.Invites = []model.OrgMemberInviteResponse{}
	}
	return data
}

func (s *Service) inviteStore(ctx context.Context, token string) (*store.InviteStore, error) {
	invites := store.NewInviteStore(ctx, s.client(token))
	select {
	case <-invites.Loaded():
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if err := invites.LoadErr(); err != nil {
		return nil, err
	}
	return invites, nil
}

func (s *Service) Invites(ctx context.Context, token string) (InvitesData, error) {
	invites, err := s.inviteStore(ctx, token)
	if err != nil {
		return InvitesData{}, err
	}
	return invitesData(invites), nil
}

func (s *Service) AcceptInvite(ctx context.Context, token, inviteToken string, orgID uuid.UUID) (InvitesData, error) {
	invites, err := s.inviteStore(ctx, token)
	if err != nil {
		return InvitesData{}, err
	}
	if err := invites.AcceptInvite(ctx, inviteToken, orgID); err != nil {
		return InvitesData{}, err
	}
	return invitesData(invites), nil
}

func (s *Service) DeclineInvite(ctx context.Context, token, inviteToken string) (InvitesData, error) {
	invites, err := s.inviteStore(ctx, token)
	if err != nil {
		return InvitesData{}, err
	}
	if err := invites.CancelInvite(ctx, inviteToken); err != nil {
		return InvitesData{}, err
	}
	return invitesData(invites), nil
}

// Organizations

type OrgsData struct {
	Org  *model.Org  `json:"org,omitempty"`
	Orgs []model.Org `json:"orgs"`
}

// orgStore returns an org store reflecting into a session that already holds
// the user's organizations.
func (s *Service) orgStore(ctx context.Context, token string) (*store.OrgStore, *store.Session, error) {
	api := s.client(token)
	orgs, err := api.ListOrgs(ctx)
	if err != nil {
		return nil, nil, err
	}
	session := store.NewSession()
	session.Orgs.SetOrgs(orgs)
	return store.NewOrgStore(api, store.WithSession(session)), session, nil
}

func orgsData(org *model.Org, session *store.Session) OrgsData {
	data := OrgsData{Org: org, Orgs: session.Orgs.Orgs()}
	if data.Orgs == nil {
		data.Orgs = []model.Org{}
	}
	return data
}

func (s *Service) CreateOrg(ctx context.Context, token, name string) (OrgsData, error) {
	orgs, session, err := s.orgStore(ctx, token)
	if err != nil {
		return OrgsData{}, err
	}
	org, err := orgs.CreateOrg(ctx, name)
	if err != nil {
		return OrgsData{}, err
	}
	return orgsData(&org, session), nil
}

func (s *Service) UpdateOrg(ctx context.Context, token string, orgID uuid.UUID, name string, logoURL *string) (OrgsData, error) {
	if strings.TrimSpace(name) == "" {
		return OrgsData{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	orgs, session, err := s.orgStore(ctx, token)
	if err != nil {
		return OrgsData{}, err
	}
	if _, ok := session.Orgs.Find(orgID); !ok {
		return OrgsData{}, errNotFound
	}
	org, err := orgs.UpdateOrg(ctx, orgID, strings.TrimSpace(name), logoURL)
	if err != nil {
		return OrgsData{}, err
	}
	return orgsData(&org, session), nil
}

func (s *Service) DeleteOrg(ctx context.Context, token string, orgID uuid.UUID) (OrgsData, error) {
	orgs, session, err := s.orgStore(ctx, token)
	if err != nil {
		return OrgsData{}, err
	}
	if _, ok := session.Orgs.Find(orgID); !ok {
		return OrgsData{}, errNotFound
	}
	if err := orgs.DeleteOrg(ctx, orgID); err != nil {
		return OrgsData{}, err
	}
	return orgsData(nil, session), nil
}

// Preferences

func (s *Service) UpdatePreferences(ctx context.Context, token string, update model.UserPreferenceUpdate) (model.UserPreference, error) {
	return s.client(token).UpdateUserPreferences(ctx, update)
}

func findOrg(orgs []model.Org, id uuid.UUID) (model.Org, bool) {
	for _, org := range orgs {
		if org.ID == id {
			return org, true
		}
	}
	return model.Org{}, false
}
