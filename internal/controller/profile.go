package controller

import (
	"context"
	"strings"

	"taskboard/internal/api"
)

// ProfileSession is a Session that can also change the profile.
type ProfileSession interface {
	Session
	UpdateProfile(ctx context.Context, req api.UpdateProfileRequest) (*api.Identity, error)
}

// Profile shows and edits the signed-in user's profile.
type Profile struct {
	*Cycle[api.Identity]
	svc  Service
	sess ProfileSession
}

func NewProfile(svc Service, sess ProfileSession) *Profile {
	p := &Profile{svc: svc, sess: sess}
	p.Cycle = NewCycle("profile", Session(sess), p.fetch)
	return p
}

func (p *Profile) fetch(ctx context.Context) (api.Identity, error) {
	if _, err := current(p.sess); err != nil {
		return api.Identity{}, err
	}
	id, err := p.svc.GetProfile(ctx)
	if err != nil {
		return api.Identity{}, err
	}
	return *id, nil
}

// Update changes name and email, and the password when one is given. The
// session adopts the returned identity before the view reloads.
func (p *Profile) Update(ctx context.Context, req api.UpdateProfileRequest) error {
	return p.Mutate(ctx, "update profile", func(ctx context.Context) error {
		req.Name = strings.TrimSpace(req.Name)
		req.Email = strings.TrimSpace(req.Email)
		if req.Name == "" {
			return ErrNameRequired
		}
		if req.Email == "" {
			return ErrEmailRequired
		}
		_, err := p.sess.UpdateProfile(ctx, req)
		return err
	})
}
