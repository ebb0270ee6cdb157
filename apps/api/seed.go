package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/volunhub/volunhub/core/user"
)

// seedUsers populates the local directory with the well-known dev accounts.
// Dev convenience only; keycloak mode never calls this.
func seedUsers(svc *user.Service) error {
	seed := []user.NewUser{
		{Name: "Администратор", Email: "admin@example.com", Role: user.RoleAdmin, Password: "admin123", PasswordConfirm: "admin123"},
		{Name: "Организатор", Email: "organizer@example.com", Role: user.RoleOrganizer, Password: "organizer123", PasswordConfirm: "organizer123"},
		{Name: "Волонтер", Email: "volunteer@example.com", Role: user.RoleVolunteer, Password: "volunteer123", PasswordConfirm: "volunteer123"},
	}

	ctx := context.Background()
	for _, nu := range seed {
		if _, err := svc.GetByUsernameOrEmail(ctx, nu.Email); err == nil {
			continue
		} else if err != user.ErrNotFound {
			return errors.Wrap(err, "checking seed user")
		}
		if _, err := svc.Create(ctx, nu); err != nil {
			return errors.Wrap(err, "creating seed user")
		}
	}
	return nil
}
