package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"tracker/web/internal/model"
)

type IssueAPI interface {
	ListIssues(ctx context.Context, orgID uuid.UUID) ([]model.IssueResponse, error)
	CreateIssue(ctx context.Context, orgID uuid.UUID, req model.IssueRequest) (model.IssueResponse, error)
	UpdateIssue(ctx context.Context, orgID, issueID uuid.UUID, update model.IssueUpdate) (model.IssueResponse, error)
	DeleteIssue(ctx context.Context, orgID, issueID uuid.UUID) error
	CreateComment(ctx context.Context, orgID uuid.UUID, req model.CommentRequest) (model.CommentResponse, error)
}

const (
	flagLoading         = "loading"
	flagCreatingIssue   = "creating_issue"
	flagUpdatingIssue   = "updating_issue"
	flagDeletingIssue   = "deleting_issue"
	flagCreatingComment = "creating_comment"
)

// IssueStore is the issue board of one organization.
type IssueStore struct {
	base
	api    IssueAPI
	orgID  uuid.UUID
	issues []model.IssueResponse
}

// NewIssueStore starts loading the organization's issues in the background;
// wait on Loaded or watch IsLoading.
func NewIssueStore(ctx context.Context, api IssueAPI, orgID uuid.UUID) *IssueStore {
	s := &IssueStore{api: api, orgID: orgID}
	s.init()
	s.start("load issues", func() error { return s.load(ctx) })
	return s
}

func (s *IssueStore) OrgID() uuid.UUID { return s.orgID }

func (s *IssueStore) IsLoading() bool         { return s.isBusy(flagLoading) }
func (s *IssueStore) IsCreatingIssue() bool   { return s.isBusy(flagCreatingIssue) }
func (s *IssueStore) IsUpdatingIssue() bool   { return s.isBusy(flagUpdatingIssue) }
func (s *IssueStore) IsDeletingIssue() bool   { return s.isBusy(flagDeletingIssue) }
func (s *IssueStore) IsCreatingComment() bool { return s.isBusy(flagCreatingComment) }

// Issues returns a snapshot of the board's issues.
func (s *IssueStore) Issues() []model.IssueResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.issues)
}

// GetIssue looks an issue up in the local collection.
func (s *IssueStore) GetIssue(issueID uuid.UUID) (model.IssueResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOfIssue(s.issues, issueID)
	if i < 0 {
		return model.IssueResponse{}, false
	}
	return s.issues[i], true
}

// Load replaces the collection with the API's list.
func (s *IssueStore) Load(ctx context.Context) error {
	return s.run(flagLoading, "load issues", func() error {
		return s.load(ctx)
	})
}

func (s *IssueStore) load(ctx context.Context) error {
	issues, err := s.api.ListIssues(ctx, s.orgID)
	if err != nil {
		return err
	}
	s.mutate(func() { s.issues = slices.Clone(issues) })
	return nil
}

func (s *IssueStore) CreateIssue(ctx context.Context, req model.IssueRequest) (model.IssueResponse, error) {
	var created model.IssueResponse
	err := s.run(flagCreatingIssue, "create issue", func() error {
		issue, err := s.api.CreateIssue(ctx, s.orgID, req)
		if err != nil {
			return err
		}
		created = issue
		s.mutate(func() {
			next := slices.DeleteFunc(slices.Clone(s.issues), func(i model.IssueResponse) bool {
				return i.Issue.ID == issue.Issue.ID
			})
			s.issues = append(next, issue)
		})
		return nil
	})
	return created, err
}

// CreateSubIssue creates req under req.ParentID and appends it to the parent's
// sub-issues. A parent missing from the local collection is left alone.
func (s *IssueStore) CreateSubIssue(ctx context.Context, req model.IssueRequest) (model.IssueResponse, error) {
	if req.ParentID == nil {
		err := fmt.Errorf("%w: sub-issue without parent_id", ErrInvalidInput)
		logFailure("create sub-issue", err)
		return model.IssueResponse{}, err
	}
	parentID := *req.ParentID

	var created model.IssueResponse
	err := s.run(flagCreatingIssue, "create sub-issue", func() error {
		issue, err := s.api.CreateIssue(ctx, s.orgID, req)
		if err != nil {
			return err
		}
		created = issue
		s.mutate(func() {
			s.issues = replaceIssue(s.issues, parentID, func(parent model.IssueResponse) model.IssueResponse {
				subs := slices.DeleteFunc(slices.Clone(parent.SubIssues), func(i model.Issue) bool {
					return i.ID == issue.Issue.ID
				})
				parent.SubIssues = append(subs, issue.Issue)
				return parent
			})
		})
		return nil
	})
	return created, err
}

// UpdateIssue replaces the local issue with the API's copy rather than
// applying update locally.
func (s *IssueStore) UpdateIssue(ctx context.Context, issueID uuid.UUID, update model.IssueUpdate) (model.IssueResponse, error) {
	var updated model.IssueResponse
	err := s.run(flagUpdatingIssue, "update issue", func() error {
		issue, err := s.api.UpdateIssue(ctx, s.orgID, issueID, update)
		if err != nil {
			return err
		}
		updated = issue
		s.mutate(func() {
			s.issues = replaceIssue(s.issues, issueID, func(model.IssueResponse) model.IssueResponse {
				return issue
			})
		})
		return nil
	})
	return updated, err
}

// DeleteIssue removes the issue once the API has confirmed the delete.
func (s *IssueStore) DeleteIssue(ctx context.Context, issueID uuid.UUID) error {
	return s.run(flagDeletingIssue, "delete issue", func() error {
		if err := s.api.DeleteIssue(ctx, s.orgID, issueID); err != nil {
			return err
		}
		s.mutate(func() {
			s.issues = slices.DeleteFunc(slices.Clone(s.issues), func(i model.IssueResponse) bool {
				return i.Issue.ID == issueID
			})
		})
		return nil
	})
}

// CreateComment posts a comment and appends it to its owner issue.
func (s *IssueStore) CreateComment(ctx context.Context, req model.CommentRequest) (model.CommentResponse, error) {
	var created model.CommentResponse
	err := s.run(flagCreatingComment, "create comment", func() error {
		comment, err := s.api.CreateComment(ctx, s.orgID, req)
		if err != nil {
			return err
		}
		created = comment
		s.mutate(func() {
			s.issues = replaceIssue(s.issues, req.CommentOwnerID, func(owner model.IssueResponse) model.IssueResponse {
				owner.Comments = append(slices.Clone(owner.Comments), comment)
				return owner
			})
		})
		return nil
	})
	return created, err
}

// Board is the status-grouped view of one snapshot of the collection.
type Board struct {
	// Order lists the statuses that have issues, in StatusOrder.
	Order  []model.Status
	Groups map[model.Status][]model.IssueResponse
	Counts map[model.Status]int
}

func (s *IssueStore) Board() Board {
	return GroupByStatus(s.Issues())
}

func (s *IssueStore) GroupedIssues() map[model.Status][]model.IssueResponse {
	return s.Board().Groups
}

func (s *IssueStore) SortedStatusKeys() []model.Status {
	return s.Board().Order
}

func (s *IssueStore) StatusCount() map[model.Status]int {
	return s.Board().Counts
}

// GroupByStatus buckets issues by status. Order and Counts are both derived
// from the buckets.
func GroupByStatus(issues []model.IssueResponse) Board {
	groups := make(map[model.Status][]model.IssueResponse)
	for _, issue := range issues {
		groups[issue.Issue.Status] = append(groups[issue.Issue.Status], issue)
	}

	order := make([]model.Status, 0, len(model.StatusOrder))
	for _, status := range model.StatusOrder {
		if len(groups[status]) > 0 {
			order = append(order, status)
		}
	}

	counts := make(map[model.Status]int, len(groups))
	for status, bucket := range groups {
		counts[status] = len(bucket)
	}
	return Board{Order: order, Groups: groups, Counts: counts}
}

func indexOfIssue(issues []model.IssueResponse, id uuid.UUID) int {
	return slices.IndexFunc(issues, func(i model.IssueResponse) bool {
		return i.Issue.ID == id
	})
}

// replaceIssue returns a new slice with the issue id swapped for fn's result.
func replaceIssue(issues []model.IssueResponse, id uuid.UUID, fn func(model.IssueResponse) model.IssueResponse) []model.IssueResponse {
	i := indexOfIssue(issues, id)
	if i < 0 {
		return issues
	}
	out := slices.Clone(issues)
	out[i] = fn(out[i])
	return out
}
