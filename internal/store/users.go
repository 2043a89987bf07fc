package store

import (
	"context"
	"fmt"
	"time"

	"github.com/eringen/blogapi/internal/apperr"
)

const accountColumns = `id, username, email, password_hash, role, first_name, last_name, bio, avatar_key, created_at`

// Users is the account repository.
type Users struct {
	c conn
}

func scanAccount(s scanner) (Account, error) {
	var a Account
	err := s.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.Role,
		&a.FirstName, &a.LastName, &a.Bio, &a.AvatarKey, scanTime(&a.CreatedAt))
	return a, err
}

func (r *Users) List(ctx context.Context) ([]Account, error) {
	return queryAll(ctx, r.c, scanAccount,
		`SELECT `+accountColumns+` FROM users ORDER BY id`)
}

// GetByName resolves an account by username. It is the lookup the gate uses,
// so it reports duplicates as Conflict instead of picking one.
func (r *Users) GetByName(ctx context.Context, username string) (Account, error) {
	return queryOne(ctx, r.c, fmt.Sprintf("User %s not found", username), scanAccount,
		`SELECT `+accountColumns+` FROM users WHERE username = ?`, username)
}

func (r *Users) GetByID(ctx context.Context, id int64) (Account, error) {
	return queryOne(ctx, r.c, fmt.Sprintf("User ID:%d not found", id), scanAccount,
		`SELECT `+accountColumns+` FROM users WHERE id = ?`, id)
}

func (r *Users) Create(ctx context.Context, in NewAccount) (Account, error) {
	id, err := r.c.insert(ctx,
		`INSERT INTO users (username, email, password_hash, role, first_name, last_name, bio, avatar_key, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, '', ?) RETURNING id`,
		in.Username, in.Email, in.PasswordHash, in.Role, in.FirstName, in.LastName, in.Bio, time.Now().UTC())
	if err != nil {
		return Account{}, relabel(err, apperr.Conflict, "Username or email already registered")
	}
	return r.GetByID(ctx, id)
}

// Update applies the non-nil fields of p to the account named username and
// returns the stored result. An empty patch changes nothing.
func (r *Users) Update(ctx context.Context, username string, p AccountPatch) (Account, error) {
	var a assignments
	setIf(&a, "username", p.Username)
	setIf(&a, "email", p.Email)
	setIf(&a, "password_hash", p.PasswordHash)
	setIf(&a, "role", p.Role)
	setIf(&a, "first_name", p.FirstName)
	setIf(&a, "last_name", p.LastName)
	setIf(&a, "bio", p.Bio)
	setIf(&a, "avatar_key", p.AvatarKey)

	if a.empty() {
		return r.GetByName(ctx, username)
	}
	err := r.c.execAffected(ctx, fmt.Sprintf("User %s not found", username),
		`UPDATE users SET `+a.clause()+` WHERE username = ?`, append(a.args, username)...)
	if err != nil {
		return Account{}, relabel(err, apperr.Conflict, "Username or email already registered")
	}
	if p.Username != nil {
		username = *p.Username
	}
	return r.GetByName(ctx, username)
}

func (r *Users) Delete(ctx context.Context, username string) error {
	return r.c.execAffected(ctx, fmt.Sprintf("User %s not found", username),
		`DELETE FROM users WHERE username = ?`, username)
}
