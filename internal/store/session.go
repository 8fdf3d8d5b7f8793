package store

import (
	"slices"

	"github.com/google/uuid"

	"tracker/web/internal/model"
)

// Session is the state one signed-in browser session sees: who the user is,
// their preferences, the organization they are working in and the ones they
// belong to. Build one per session; nothing here is process-global.
type Session struct {
	User       *Value[model.User]
	Preference *Value[model.UserPreference]
	Org        *Value[model.Org]
	Orgs       *OrgList
}

func NewSession() *Session {
	return &Session{
		User:       NewValue[model.User](),
		Preference: NewValue[model.UserPreference](),
		Org:        NewValue[model.Org](),
		Orgs:       NewOrgList(),
	}
}

type UserPatch struct {
	Email     *string
	Username  *string
	AvatarURL *string
	GitHubURL *string
}

type PreferencePatch struct {
	Theme        *string
	Language     *string
	DefaultOrgID *uuid.UUID
	CTAColor     *string
	CTATextColor *string
	FontSize     *string
}

type OrgPatch struct {
	Name     *string
	Slug     *string
	CustomID *string
	LogoURL  *string
}

func (s *Session) MergeUser(patch UserPatch) {
	s.User.Update(func(user model.User) model.User {
		assign(&user.Email, patch.Email)
		assign(&user.Username, patch.Username)
		assignPtr(&user.AvatarURL, patch.AvatarURL)
		assignPtr(&user.GitHubURL, patch.GitHubURL)
		return user
	})
}

func (s *Session) MergePreference(patch PreferencePatch) {
	s.Preference.Update(func(pref model.UserPreference) model.UserPreference {
		assign(&pref.Theme, patch.Theme)
		assign(&pref.Language, patch.Language)
		assignPtr(&pref.DefaultOrgID, patch.DefaultOrgID)
		assign(&pref.CTAColor, patch.CTAColor)
		assign(&pref.CTATextColor, patch.CTATextColor)
		assign(&pref.FontSize, patch.FontSize)
		return pref
	})
}

func (s *Session) MergeOrg(patch OrgPatch) {
	s.Org.Update(func(org model.Org) model.Org {
		return patch.apply(org)
	})
}

func (p OrgPatch) apply(org model.Org) model.Org {
	assign(&org.Name, p.Name)
	assign(&org.Slug, p.Slug)
	assign(&org.CustomID, p.CustomID)
	assignPtr(&org.LogoURL, p.LogoURL)
	return org
}

func assign[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func assignPtr[T any](dst **T, src *T) {
	if src != nil {
		value := *src
		*dst = &value
	}
}

// OrgList is the observable list of organizations the user belongs to.
type OrgList struct {
	value *Value[[]model.Org]
}

func NewOrgList() *OrgList {
	list := &OrgList{value: NewValue[[]model.Org]()}
	list.value.Set(nil)
	return list
}

func (l *OrgList) Orgs() []model.Org {
	orgs, _ := l.value.Get()
	return slices.Clone(orgs)
}

func (l *OrgList) Find(id uuid.UUID) (model.Org, bool) {
	orgs, _ := l.value.Get()
	for _, org := range orgs {
		if org.ID == id {
			return org, true
		}
	}
	return model.Org{}, false
}

func (l *OrgList) SetOrgs(orgs []model.Org) {
	l.value.Set(slices.Clone(orgs))
}

func (l *OrgList) AddOrg(org model.Org) {
	l.value.Update(func(orgs []model.Org) []model.Org {
		return append(slices.Clone(orgs), org)
	})
}

func (l *OrgList) UpdateOrg(id uuid.UUID, patch OrgPatch) {
	l.value.Update(func(orgs []model.Org) []model.Org {
		out := slices.Clone(orgs)
		for i := range out {
			if out[i].ID == id {
				out[i] = patch.apply(out[i])
			}
		}
		return out
	})
}

// ReplaceOrg swaps in the API's copy of an organization.
func (l *OrgList) ReplaceOrg(org model.Org) {
	l.value.Update(func(orgs []model.Org) []model.Org {
		out := slices.Clone(orgs)
		for i := range out {
			if out[i].ID == org.ID {
				out[i] = org
			}
		}
		return out
	})
}

func (l *OrgList) DeleteOrg(id uuid.UUID) {
	l.value.Update(func(orgs []model.Org) []model.Org {
		return slices.DeleteFunc(slices.Clone(orgs), func(org model.Org) bool {
			return org.ID == id
		})
	})
}

func (l *OrgList) Subscribe(fn func([]model.Org)) func() {
	return l.value.Subscribe(fn)
}
