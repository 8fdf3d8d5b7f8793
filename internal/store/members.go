package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"tracker/web/internal/model"
	"tracker/web/internal/rbac"
)

type MemberAPI interface {
	ListMembers(ctx context.Context, orgID uuid.UUID) ([]model.OrgMemberWithUser, error)
	ListOrgInvites(ctx context.Context, orgID uuid.UUID) ([]model.OrgMemberInvite, error)
	InviteMember(ctx context.Context, orgID uuid.UUID, email string) (model.OrgMemberInvite, error)
	RemoveMember(ctx context.Context, orgID, userID uuid.UUID) error
	UpdateMemberRole(ctx context.Context, orgID, userID uuid.UUID, role rbac.Role) error
	CancelInvite(ctx context.Context, token string) error
}

const (
	flagInviting         = "inviting"
	flagRemoving         = "removing"
	flagUpdatingRole     = "updating_role"
	flagCancellingInvite = "cancelling_invite"
)

// MemberStore holds an organization's members and its pending invites.
type MemberStore struct {
	base
	api     MemberAPI
	orgID   uuid.UUID
	members []model.OrgMemberWithUser
	invites []model.OrgMemberInvite
}

func NewMemberStore(ctx context.Context, api MemberAPI, orgID uuid.UUID) *MemberStore {
	s := &MemberStore{api: api, orgID: orgID}
	s.init()
	s.start("load members", func() error { return s.load(ctx) })
	return s
}

func (s *MemberStore) IsLoading() bool          { return s.isBusy(flagLoading) }
func (s *MemberStore) IsInviting() bool         { return s.isBusy(flagInviting) }
func (s *MemberStore) IsRemoving() bool         { return s.isBusy(flagRemoving) }
func (s *MemberStore) IsUpdatingRole() bool     { return s.isBusy(flagUpdatingRole) }
func (s *MemberStore) IsCancellingInvite() bool { return s.isBusy(flagCancellingInvite) }

func (s *MemberStore) Members() []model.OrgMemberWithUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.members)
}

func (s *MemberStore) MemberInvites() []model.OrgMemberInvite {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.invites)
}

func (s *MemberStore) Load(ctx context.Context) error {
	return s.run(flagLoading, "load members", func() error {
		return s.load(ctx)
	})
}

// load fetches members and invites side by side. Either failing leaves both
// collections as they were.
func (s *MemberStore) load(ctx context.Context) error {
	var (
		g       errgroup.Group
		members []model.OrgMemberWithUser
		invites []model.OrgMemberInvite
	)
	g.Go(func() error {
		var err error
		members, err = s.api.ListMembers(ctx, s.orgID)
		return err
	})
	g.Go(func() error {
		var err error
		invites, err = s.api.ListOrgInvites(ctx, s.orgID)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	s.mutate(func() {
		s.members = slices.Clone(members)
		s.invites = slices.Clone(invites)
	})
	return nil
}

// AddMember invites email into the organization. The API may answer without
// an invite body, in which case nothing is added locally.
func (s *MemberStore) AddMember(ctx context.Context, email string) (model.OrgMemberInvite, error) {
	var created model.OrgMemberInvite
	err := s.run(flagInviting, "invite member", func() error {
		invite, err := s.api.InviteMember(ctx, s.orgID, email)
		if err != nil {
			return err
		}
		created = invite
		if invite.ID == uuid.Nil {
			return nil
		}
		s.mutate(func() {
			next := slices.DeleteFunc(slices.Clone(s.invites), func(i model.OrgMemberInvite) bool {
				return i.ID == invite.ID
			})
			s.invites = append(next, invite)
		})
		return nil
	})
	return created, err
}

func (s *MemberStore) RemoveMember(ctx context.Context, userID uuid.UUID) error {
	return s.run(flagRemoving, "remove member", func() error {
		if err := s.api.RemoveMember(ctx, s.orgID, userID); err != nil {
			return err
		}
		s.mutate(func() {
			s.members = slices.DeleteFunc(slices.Clone(s.members), func(m model.OrgMemberWithUser) bool {
				return m.OrgMember.UserID == userID
			})
		})
		return nil
	})
}

// UpdateRole changes a member's role and replaces the local entry once.
func (s *MemberStore) UpdateRole(ctx context.Context, userID uuid.UUID, role rbac.Role) error {
	if !role.Valid() {
		err := fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
		logFailure("update member role", err)
		return err
	}
	return s.run(flagUpdatingRole, "update member role", func() error {
		if err := s.api.UpdateMemberRole(ctx, s.orgID, userID, role); err != nil {
			return err
		}
		s.mutate(func() {
			i := slices.IndexFunc(s.members, func(m model.OrgMemberWithUser) bool {
				return m.OrgMember.UserID == userID
			})
			if i < 0 {
				return
			}
			next := slices.Clone(s.members)
			next[i].OrgMember.Role = role
			s.members = next
		})
		return nil
	})
}

// CancelMemberInvite withdraws a pending invite.
func (s *MemberStore) CancelMemberInvite(ctx context.Context, token string) error {
	return s.run(flagCancellingInvite, "cancel member invite", func() error {
		if err := s.api.CancelInvite(ctx, token); err != nil {
			return err
		}
		s.mutate(func() {
			s.invites = slices.DeleteFunc(slices.Clone(s.invites), func(i model.OrgMemberInvite) bool {
				return i.Token == token
			})
		})
		return nil
	})
}
