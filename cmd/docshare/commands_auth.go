package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jrsteele09/go-docshare-client/auth"
	"github.com/jrsteele09/go-docshare-client/internal/utils"
	"github.com/jrsteele09/go-docshare-client/users"
)

func loginCmd(ctx context.Context, a *app, args []string) error {
	fs := a.flags("login", "[--username name] [--password pw]")
	username := fs.String("username", "", "account name")
	password := fs.String("password", "", "password, read from stdin when omitted")
	positional, err := parse(fs, args)
	if err != nil {
		return err
	}
	if *username == "" && len(positional) > 0 {
		*username = positional[0]
	}
	if *username == "" {
		if *username, err = a.readLine("Username: "); err != nil {
			return err
		}
	}
	if *password == "" {
		if *password, err = a.readLine("Password: "); err != nil {
			return err
		}
	}
	if errs := auth.NewValidator().ValidateLogin(*username, *password); errs != nil {
		return invalidInput(errs)
	}

	res := a.client.Auth.Login(ctx, *username, *password)
	if err := resultError(res); err != nil {
		return err
	}
	return a.print(res.User, func(w io.Writer) {
		fmt.Fprintf(w, "logged in as %s\n", res.User.User.Username)
	})
}

func logoutCmd(ctx context.Context, a *app, args []string) error {
	if _, err := parse(a.flags("logout", ""), args); err != nil {
		return err
	}
	a.client.Auth.Logout(ctx)
	return a.print(map[string]bool{"authenticated": false}, func(w io.Writer) {
		fmt.Fprintln(w, "logged out")
	})
}

func registerCmd(ctx context.Context, a *app, args []string) error {
	fs := a.flags("register", "--username name --email addr --password pw [--confirm pw]")
	var reg users.Registration
	fs.StringVar(&reg.Username, "username", "", "account name")
	fs.StringVar(&reg.Email, "email", "", "email address")
	fs.StringVar(&reg.Password, "password", "", "password, at least 8 characters")
	fs.StringVar(&reg.PasswordConfirm, "confirm", "", "password confirmation, defaults to --password")
	fs.StringVar(&reg.FirstName, "first", "", "first name")
	fs.StringVar(&reg.LastName, "last", "", "last name")
	if _, err := parse(fs, args); err != nil {
		return err
	}
	if reg.PasswordConfirm == "" {
		reg.PasswordConfirm = reg.Password
	}
	if errs := auth.NewValidator().ValidateRegistration(reg); errs != nil {
		return invalidInput(errs)
	}

	res := a.client.Auth.Register(ctx, reg)
	if err := resultError(res); err != nil {
		return err
	}
	return a.print(map[string]string{"username": reg.Username}, func(w io.Writer) {
		fmt.Fprintf(w, "account %s created, you can now log in\n", reg.Username)
	})
}

func whoamiCmd(_ context.Context, a *app, args []string) error {
	if _, err := parse(a.flags("whoami", ""), args); err != nil {
		return err
	}
	if err := a.requireLogin(); err != nil {
		return err
	}
	if err := a.printProfile(a.client.Auth.CurrentUser()); err != nil || a.json {
		return err
	}
	if exp := a.client.Session.Tokens().OAuth2().Expiry; !exp.IsZero() {
		fmt.Fprintf(a.stdout, "access token expires %s\n", exp.Local().Format(time.RFC3339))
	}
	return nil
}

func profileCmd(ctx context.Context, a *app, args []string) error {
	fs := a.flags("profile", "[--bio text] [--institution name] [--first name] [--last name] [--email addr]")
	bio := fs.String("bio", "", "short biography")
	institution := fs.String("institution", "", "school or university")
	first := fs.String("first", "", "first name")
	last := fs.String("last", "", "last name")
	email := fs.String("email", "", "email address")
	if _, err := parse(fs, args); err != nil {
		return err
	}
	if err := a.requireLogin(); err != nil {
		return err
	}

	set := setFlags(fs)
	var update users.ProfileUpdate
	if set["bio"] {
		update.Bio = utils.Ptr(*bio)
	}
	if set["institution"] {
		update.Institution = utils.Ptr(*institution)
	}
	if set["first"] {
		update.FirstName = utils.Ptr(*first)
	}
	if set["last"] {
		update.LastName = utils.Ptr(*last)
	}
	if set["email"] {
		update.Email = utils.Ptr(*email)
	}
	if update.IsEmpty() {
		return a.printProfile(a.client.Auth.CurrentUser())
	}

	res := a.client.Auth.UpdateProfile(ctx, update)
	if err := resultError(res); err != nil {
		return err
	}
	return a.printProfile(res.User)
}

func (a *app) printProfile(p *users.Profile) error {
	if p == nil {
		return errNotLoggedIn
	}
	return a.print(p, func(w io.Writer) {
		fmt.Fprintf(w, "username:\t%s\n", p.User.Username)
		fmt.Fprintf(w, "name:\t%s\n", p.User.DisplayName())
		fmt.Fprintf(w, "email:\t%s\n", p.User.Email)
		fmt.Fprintf(w, "institution:\t%s\n", p.Institution)
		fmt.Fprintf(w, "bio:\t%s\n", p.Bio)
		if !p.User.DateJoined.IsZero() {
			fmt.Fprintf(w, "joined:\t%s\n", p.User.DateJoined.Format("2006-01-02"))
		}
	})
}
