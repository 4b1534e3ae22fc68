package cli

import (
	"context"
	"fmt"
	"os"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts the user for a login and password and attempts to create
// a new account. On success it prints "Success!" and returns nil.
func (a *App) Register(ctx context.Context) error {
	login, err := getSimpleText(a.reader, "Enter login", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	if err := a.authService.Register(ctx, login, password); err != nil {
		printlnFn("Registration failed:", err.Error())
		return err
	}

	printlnFn("Success!")
	return nil
}

// Login prompts the user for credentials and tries to authenticate. On
// success the session is cached locally, so subsequent saves sync and
// pending data can be pushed.
func (a *App) Login(ctx context.Context) error {
	login, err := getSimpleText(a.reader, "Enter login", os.Stdout)
	if err != nil {
		return err
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	if err := a.authService.Login(ctx, login, password); err != nil {
		printlnFn("Login failed:", err.Error())
		return err
	}

	a.userName = login
	a.setMode(ModeOnline)
	printlnFn(fmt.Sprintf("Logged in as %s", login))
	return nil
}

// Logout wipes the locally cached session.
func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		printlnFn("Logout failed:", err.Error())
		return err
	}
	a.userName = ""
	printlnFn("Logged out")
	return nil
}
