package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/eringen/blogapi"
	"github.com/eringen/blogapi/internal/auth"
	"github.com/eringen/blogapi/internal/store"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// adminPassword takes ADMIN_PASSWORD when set and otherwise prompts twice on
// the terminal without echo.
func adminPassword(w io.Writer) (string, error) {
	if pw := os.Getenv("ADMIN_PASSWORD"); pw != "" {
		return pw, nil
	}
	fmt.Fprint(w, "Password: ")
	first, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	fmt.Fprint(w, "Repeat password: ")
	second, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	if len(first) == 0 {
		return "", errors.New("password must not be empty")
	}
	return string(first), nil
}

func runCreateAdmin(ctx context.Context, cfg blogapi.Config, username string, w io.Writer) error {
	password, err := adminPassword(w)
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	s, err := openStore(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.Migrate(ctx); err != nil {
		return err
	}

	var acct store.Account
	err = s.WithTx(ctx, func(ctx context.Context, tx *store.Tx) (err error) {
		acct, err = tx.Users().Create(ctx, store.NewAccount{
			Username:     username,
			PasswordHash: hash,
			Role:         auth.RoleAdmin,
		})
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Created admin %s (id %d)\n", acct.Username, acct.ID)
	return nil
}
