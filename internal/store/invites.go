package store

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"tracker/web/internal/model"
)

type InviteAPI interface {
	ListInvites(ctx context.Context) ([]model.OrgMemberInviteResponse, error)
	AcceptInvite(ctx context.Context, token string, orgID uuid.UUID) error
	CancelInvite(ctx context.Context, token string) error
}

const flagAnswering = "answering"

// InviteStore holds the invites addressed to the signed-in user.
type InviteStore struct {
	base
	api     InviteAPI
	invites []model.OrgMemberInviteResponse
}

func NewInviteStore(ctx context.Context, api InviteAPI) *InviteStore {
	s := &InviteStore{api: api}
	s.init()
	s.start("load invites", func() error { return s.load(ctx) })
	return s
}

func (s *InviteStore) IsLoading() bool   { return s.isBusy(flagLoading) }
func (s *InviteStore) IsAnswering() bool { return s.isBusy(flagAnswering) }

func (s *InviteStore) Invites() []model.OrgMemberInviteResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.invites)
}

func (s *InviteStore) Load(ctx context.Context) error {
	return s.run(flagLoading, "load invites", func() error {
		return s.load(ctx)
	})
}

func (s *InviteStore) load(ctx context.Context) error {
	invites, err := s.api.ListInvites(ctx)
	if err != nil {
		return err
	}
	s.mutate(func() { s.invites = slices.Clone(invites) })
	return nil
}

func (s *InviteStore) AcceptInvite(ctx context.Context, token string, orgID uuid.UUID) error {
	return s.run(flagAnswering, "accept invite", func() error {
		if err := s.api.AcceptInvite(ctx, token, orgID); err != nil {
			return err
		}
		s.drop(token)
		return nil
	})
}

func (s *InviteStore) CancelInvite(ctx context.Context, token string) error {
	return s.run(flagAnswering, "cancel invite", func() error {
		if err := s.api.CancelInvite(ctx, token); err != nil {
			return err
		}
		s.drop(token)
		return nil
	})
}

func (s *InviteStore) drop(token string) {
	s.mutate(func() {
		s.invites = slices.DeleteFunc(slices.Clone(s.invites), func(i model.OrgMemberInviteResponse) bool {
			return i.OrgMemberInvite.Token == token
		})
	})
}
