package store

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"tracker/web/internal/model"
)

func pendingInvite(token string) model.OrgMemberInviteResponse {
	return model.OrgMemberInviteResponse{
		OrgMemberInvite: model.OrgMemberInvite{ID: uuid.New(), OrgID: uuid.New(), Token: token},
		OrgName:         "Acme",
	}
}

func TestInviteStoreAnswers(t *testing.T) {
	tests := []struct {
		name   string
		answer func(*InviteStore, model.OrgMemberInviteResponse) error
	}{
		{name: "accept", answer: func(s *InviteStore, inv model.OrgMemberInviteResponse) error {
			return s.AcceptInvite(context.Background(), inv.OrgMemberInvite.Token, inv.OrgMemberInvite.OrgID)
		}},
		{name: "cancel", answer: func(s *InviteStore, inv model.OrgMemberInviteResponse) error {
			return s.CancelInvite(context.Background(), inv.OrgMemberInvite.Token)
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			answered := pendingInvite("answered")
			other := pendingInvite("other")
			var acceptedOrg uuid.UUID
			api := &fakeAPI{
				listInvites: func(context.Context) ([]model.OrgMemberInviteResponse, error) {
					return []model.OrgMemberInviteResponse{answered, other}, nil
				},
				acceptInvite: func(_ context.Context, _ string, orgID uuid.UUID) error {
					acceptedOrg = orgID
					return nil
				},
			}
			s := NewInviteStore(context.Background(), api)
			waitLoaded(t, s.Loaded())

			if err := tc.answer(s, answered); err != nil {
				t.Fatalf("%s: %v", tc.name, err)
			}
			got := s.Invites()
			if len(got) != 1 || got[0].OrgMemberInvite.Token != "other" {
				t.Fatalf("expected answered invite removed, got %+v", got)
			}
			if tc.name == "accept" && acceptedOrg != answered.OrgMemberInvite.OrgID {
				t.Fatalf("expected org %s accepted, got %s", answered.OrgMemberInvite.OrgID, acceptedOrg)
			}
			if s.IsAnswering() {
				t.Fatal("expected answering flag cleared")
			}
		})
	}
}

func TestInviteStoreFailedAnswerKeepsInvite(t *testing.T) {
	invite := pendingInvite("tok")
	api := &fakeAPI{
		listInvites: func(context.Context) ([]model.OrgMemberInviteResponse, error) {
			return []model.OrgMemberInviteResponse{invite}, nil
		},
		acceptInvite: func(context.Context, string, uuid.UUID) error {
			return serverError()
		},
	}
	s := NewInviteStore(context.Background(), api)
	waitLoaded(t, s.Loaded())

	if err := s.AcceptInvite(context.Background(), "tok", invite.OrgMemberInvite.OrgID); err == nil {
		t.Fatal("expected accept failure")
	}
	if len(s.Invites()) != 1 {
		t.Fatal("expected invite kept after failure")
	}
	if s.IsAnswering() {
		t.Fatal("expected answering flag cleared")
	}
}
