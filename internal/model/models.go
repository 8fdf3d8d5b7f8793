package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"tracker/web/internal/rbac"
)

type User struct {
	ID              uuid.UUID  `json:"id"`
	Email           string     `json:"email"`
	Username        string     `json:"username"`
	IsEmailVerified bool       `json:"is_email_verified"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	LastLoginAt     *time.Time `json:"last_login_at"`
	AvatarURL       *string    `json:"avatar_url"`
	GitHubID        *string    `json:"github_id"`
	GitHubURL       *string    `json:"github_url"`
}

type UserPreference struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	Theme        string     `json:"theme"`
	Language     string     `json:"language"`
	DefaultOrgID *uuid.UUID `json:"default_org_id"`
	CTAColor     string     `json:"cta_color"`
	CTATextColor string     `json:"cta_text_color"`
	FontSize     string     `json:"font_size"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type UserPreferenceUpdate struct {
	DefaultOrgID *uuid.UUID `json:"default_org_id"`
	Theme        string     `json:"theme"`
	Language     string     `json:"language"`
	CTAColor     string     `json:"cta_color"`
	CTATextColor string     `json:"cta_text_color"`
	FontSize     string     `json:"font_size"`
}

type Org struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CustomID  string    `json:"custom_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	LogoURL   *string   `json:"logo_url"`
}

type CreateOrgRequest struct {
	Name    string  `json:"name"`
	LogoURL *string `json:"logo_url,omitempty"`
}

type UpdateOrgRequest struct {
	Name    string  `json:"name"`
	LogoURL *string `json:"logo_url"`
}

type OrgMember struct {
	ID        uuid.UUID         `json:"id"`
	OrgID     uuid.UUID         `json:"org_id"`
	UserID    uuid.UUID         `json:"user_id"`
	Role      rbac.Role         `json:"role"`
	Status    rbac.MemberStatus `json:"status"`
	JoinedAt  time.Time         `json:"joined_at"`
	InvitedBy uuid.UUID         `json:"invited_by"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type OrgMemberWithUser struct {
	User      User      `json:"user"`
	OrgMember OrgMember `json:"org_member"`
}

type OrgMemberInvite struct {
	ID        uuid.UUID `json:"id"`
	OrgID     uuid.UUID `json:"org_id"`
	Email     string    `json:"email"`
	Role      rbac.Role `json:"role"`
	InvitedBy uuid.UUID `json:"invited_by"`
	InvitedAt time.Time `json:"invited_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Token     string    `json:"token"`
}

// OrgMemberInviteResponse is an invite addressed to the signed-in user.
type OrgMemberInviteResponse struct {
	OrgMemberInvite OrgMemberInvite `json:"org_member_invite"`
	OrgName         string          `json:"org_name"`
	OrgLogo         *string         `json:"org_logo"`
	InvitedBy       User            `json:"invited_by"`
}

type InviteRequest struct {
	Email string `json:"email"`
}

type UpdateMemberRequest struct {
	Role   *rbac.Role         `json:"role,omitempty"`
	Status *rbac.MemberStatus `json:"status,omitempty"`
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
	PriorityUrgent Priority = "Urgent"
)

var PriorityOrder = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

type Status string

const (
	StatusBacklog    Status = "Backlog"
	StatusTodo       Status = "Todo"
	StatusInProgress Status = "InProgress"
	StatusInReview   Status = "InReview"
	StatusDone       Status = "Done"
	StatusCanceled   Status = "Canceled"
	StatusBlocked    Status = "Blocked"
)

// StatusOrder is the column order of the board.
var StatusOrder = []Status{
	StatusBacklog,
	StatusTodo,
	StatusInProgress,
	StatusInReview,
	StatusDone,
	StatusCanceled,
	StatusBlocked,
}

type Issue struct {
	ID          uuid.UUID       `json:"id"`
	OrgID       uuid.UUID       `json:"org_id"`
	CreatorID   uuid.UUID       `json:"creator_id"`
	Number      int             `json:"number"`
	Title       string          `json:"title"`
	Description json.RawMessage `json:"description"`
	Priority    Priority        `json:"priority"`
	Status      Status          `json:"status"`
	ParentID    *uuid.UUID      `json:"parent_id"`
	DueDate     *time.Time      `json:"due_date"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type IssueRequest struct {
	Title       string          `json:"title"`
	Description json.RawMessage `json:"description,omitempty"`
	Priority    Priority        `json:"priority"`
	Status      Status          `json:"status"`
	ParentID    *uuid.UUID      `json:"parent_id,omitempty"`
	DueDate     *time.Time      `json:"due_date"`
}

// IssueUpdate is a partial update; nil fields are left alone by the API.
type IssueUpdate struct {
	Title         *string         `json:"title,omitempty"`
	Description   json.RawMessage `json:"description,omitempty"`
	Priority      *Priority       `json:"priority,omitempty"`
	Status        *Status         `json:"status,omitempty"`
	ParentID      *uuid.UUID      `json:"parent_id,omitempty"`
	DueDate       *time.Time      `json:"due_date,omitempty"`
	RemoveDueDate *bool           `json:"remove_due_date,omitempty"`
}

type IssueResponse struct {
	Issue     Issue             `json:"issue"`
	IssueID   uuid.UUID         `json:"issue_id"`
	SubIssues []Issue           `json:"sub_issues"`
	Comments  []CommentResponse `json:"comments"`
}

type CommentType string

const (
	CommentTypeIssue      CommentType = "Issue"
	CommentTypeDocument   CommentType = "Document"
	CommentTypeAttachment CommentType = "Attachment"
)

type Comment struct {
	ID             uuid.UUID       `json:"id"`
	OrgID          uuid.UUID       `json:"org_id"`
	CreatorID      uuid.UUID       `json:"creator_id"`
	CommentType    CommentType     `json:"comment_type"`
	CommentOwnerID uuid.UUID       `json:"comment_owner_id"`
	Content        json.RawMessage `json:"content"`
	ParentID       *uuid.UUID      `json:"parent_id"`
	EditedAt       *time.Time      `json:"edited_at"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type CommentRequest struct {
	CommentType    CommentType     `json:"comment_type"`
	Content        json.RawMessage `json:"content"`
	ParentID       *uuid.UUID      `json:"parent_id,omitempty"`
	CommentOwnerID uuid.UUID       `json:"comment_owner_id"`
}

type UpdateCommentRequest struct {
	Content json.RawMessage `json:"content"`
}

type CommentResponse struct {
	Comment Comment `json:"comment"`
	Creator User    `json:"creator"`
}

// TokenPair is what login, GitHub login and refresh all return. Lifetimes are seconds.
type TokenPair struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresInAccess  int    `json:"expires_in_access"`
	ExpiresInRefresh int    `json:"expires_in_refresh"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

type RegisterResponse struct {
	Message string `json:"message"`
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
}

// ErrorResponse is the body the API sends with every non-2xx status.
type ErrorResponse struct {
	Error            string          `json:"error"`
	Code             string          `json:"code"`
	Message          string          `json:"message"`
	ValidationErrors json.RawMessage `json:"validation_errors,omitempty"`
}
