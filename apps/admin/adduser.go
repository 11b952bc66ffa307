package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

var (
	errUnknownRole = errors.New("role must be one of owner, admin, faculty or student")
	errOtherCenter = errors.New("the user belongs to another center")

	cliRoles = map[string]string{
		"owner":   user.RoleAdminOwner,
		"admin":   user.RoleAdmin,
		"faculty": user.RoleFaculty,
		"student": user.RoleStudent,
	}
)

func (cli *commandLine) addUserCommand() *cobra.Command {
	var centerCode, name, uname, email, role string
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create or update a user of a center. The password is prompted next.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pwd, err := cli.readPassword()
			if err != nil {
				return err
			}
			usr, err := cli.addUser(cmd.Context(), centerCode, name, uname, email, role, pwd)
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "user %q saved: %s\n", usr.Username, usr.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&centerCode, "center", "", "The center's code")
	cmd.Flags().StringVar(&uname, "username", "", "The user's username")
	cmd.Flags().StringVar(&email, "email", "", "The user's email")
	cmd.Flags().StringVar(&name, "name", "", "The user's full name (defaults to the username)")
	cmd.Flags().StringVar(&role, "role", "admin", "owner, admin, faculty or student")
	_ = cmd.MarkFlagRequired("center")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

// addUser updates or creates a user.User of the center
func (cli *commandLine) addUser(ctx context.Context, centerCode, name, uname, email, role, pwd string) (user.User, error) {
	roleValue, ok := cliRoles[core.CleanString(role, true /* lower */)]
	if !ok {
		return user.User{}, errUnknownRole
	}
	c, err := cli.centers.GetByCode(ctx, centerCode)
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting center")
	}

	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(ctx, uname)
	if errors.Cause(err) == user.ErrNotFound && email != "" {
		usr, err = cli.usrRepo.GetUserByUsernameOrEmail(ctx, email)
	}

	now := time.Now().UTC()
	create := false
	switch {
	case errors.Cause(err) == user.ErrNotFound:
		create = true
		usr = user.User{
			ID:        uuid.NewString(),
			CenterID:  c.ID,
			Username:  uname,
			Email:     email,
			CreatedAt: now,
		}
	case err != nil:
		return user.User{}, errors.Wrap(err, "getting user")
	case usr.CenterID != c.ID:
		return user.User{}, errOtherCenter
	}

	if name = core.CleanString(name); name != "" {
		usr.Name = name
	} else if usr.Name == "" {
		usr.Name = uname
	}
	if email != "" {
		usr.Email = email
	}
	usr.Roles = []string{roleValue}
	usr.IsActive = true
	usr.UpdatedAt = now
	if err = usr.SetPassword(pwd); err != nil {
		return user.User{}, err
	}

	if create {
		return cli.usrRepo.CreateUser(ctx, usr)
	}
	return cli.usrRepo.UpdateUser(ctx, usr)
}
