// Package directorysvc exposes user accounts to the other domains as
// lightweight owner/person lookups.
package directorysvc

import (
	"context"

	"github.com/pkg/errors"

	"github.com/scanlab/scanlab/core/notification"
	"github.com/scanlab/scanlab/core/simulation"
	"github.com/scanlab/scanlab/core/user"
)

var (
	_ simulation.OwnerResolver    = (*UserDirectory)(nil)
	_ notification.PersonResolver = (*UserDirectory)(nil)
)

type UserDirectory struct {
	svc *user.Service
}

func NewUserDirectory(svc *user.Service) *UserDirectory {
	return &UserDirectory{svc: svc}
}

func (d *UserDirectory) ResolveOwner(ctx context.Context, id string) (simulation.Owner, error) {
	usr, err := d.svc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return simulation.Owner{}, simulation.ErrOwnerNotFound
		}
		return simulation.Owner{}, errors.Wrap(err, "finding user by ID")
	}
	return simulation.Owner{ID: usr.ID, Name: usr.Name, Email: usr.Email}, nil
}

func (d *UserDirectory) ResolvePerson(ctx context.Context, id string) (notification.Person, error) {
	usr, err := d.svc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return notification.Person{}, notification.ErrPersonNotFound
		}
		return notification.Person{}, errors.Wrap(err, "finding user by ID")
	}
	return notification.Person{ID: usr.ID, Name: usr.Name, Email: usr.Email}, nil
}
