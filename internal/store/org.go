package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"tracker/web/internal/model"
)

type OrgAPI interface {
	CreateOrg(ctx context.Context, req model.CreateOrgRequest) (model.Org, error)
	UpdateOrg(ctx context.Context, orgID uuid.UUID, req model.UpdateOrgRequest) (model.Org, error)
	DeleteOrg(ctx context.Context, orgID uuid.UUID) error
}

const (
	flagCreatingOrg = "creating_org"
	flagUpdatingOrg = "updating_org"
	flagDeletingOrg = "deleting_org"
)

// OrgStore runs organization mutations. It keeps no collection of its own;
// with a session attached, results land in the session's org holders.
type OrgStore struct {
	base
	api     OrgAPI
	session *Session
}

type OrgOption func(*OrgStore)

func WithSession(session *Session) OrgOption {
	return func(s *OrgStore) {
		s.session = session
	}
}

func NewOrgStore(api OrgAPI, opts ...OrgOption) *OrgStore {
	s := &OrgStore{api: api}
	s.init()
	close(s.loaded)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *OrgStore) IsCreatingOrg() bool { return s.isBusy(flagCreatingOrg) }
func (s *OrgStore) IsUpdatingOrg() bool { return s.isBusy(flagUpdatingOrg) }
func (s *OrgStore) IsDeletingOrg() bool { return s.isBusy(flagDeletingOrg) }

func (s *OrgStore) CreateOrg(ctx context.Context, name string) (model.Org, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		err := fmt.Errorf("%w: organization name is required", ErrInvalidInput)
		logFailure("create org", err)
		return model.Org{}, err
	}

	var created model.Org
	err := s.run(flagCreatingOrg, "create org", func() error {
		org, err := s.api.CreateOrg(ctx, model.CreateOrgRequest{Name: name})
		if err != nil {
			return err
		}
		created = org
		if s.session != nil {
			s.session.Orgs.AddOrg(org)
		}
		return nil
	})
	return created, err
}

// UpdateOrg renames an organization and sets or clears its logo. A nil
// logoURL clears it.
func (s *OrgStore) UpdateOrg(ctx context.Context, orgID uuid.UUID, name string, logoURL *string) (model.Org, error) {
	var updated model.Org
	err := s.run(flagUpdatingOrg, "update org", func() error {
		org, err := s.api.UpdateOrg(ctx, orgID, model.UpdateOrgRequest{Name: name, LogoURL: logoURL})
		if err != nil {
			return err
		}
		updated = org
		if s.session != nil {
			s.session.Orgs.ReplaceOrg(org)
			if current, ok := s.session.Org.Get(); ok && current.ID == org.ID {
				s.session.Org.Set(org)
			}
		}
		return nil
	})
	return updated, err
}

func (s *OrgStore) DeleteOrg(ctx context.Context, orgID uuid.UUID) error {
	return s.run(flagDeletingOrg, "delete org", func() error {
		if err := s.api.DeleteOrg(ctx, orgID); err != nil {
			return err
		}
		if s.session != nil {
			s.session.Orgs.DeleteOrg(orgID)
		}
		return nil
	})
}
