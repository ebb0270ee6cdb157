package main

import (
	"context"

	"github.com/volunhub/volunhub/core"
	"github.com/volunhub/volunhub/core/user"
)

// addUser updates or creates a directory user.User
func (cli *commandLine) addUser(name, email, role, pwd string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, email)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		nu := user.NewUser{
			Name:            name,
			Email:           email,
			Role:            role,
			Password:        pwd,
			PasswordConfirm: pwd,
		}
		if err := nu.Validate(cli.usrSvc); err != nil {
			return err
		}
		_, err = cli.usrSvc.Create(ctx, nu)
		return err
	}

	if _, err := cli.usrSvc.Update(ctx, usr.ID, user.UpdateUser{Name: name, Role: role}); err != nil {
		return err
	}
	_, err = cli.usrSvc.SetPassword(ctx, usr.ID, pwd)
	return err
}
