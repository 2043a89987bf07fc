package store

import (
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/blogapi/internal/apperr"
)

func TestClassifyPostgres(t *testing.T) {
	err := classify(fmt.Errorf("insert user: %w", &pgconn.PgError{Code: "23505"}))
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))
	assert.Equal(t, "Record already exists", apperr.Message(err))

	err = classify(&pgconn.PgError{Code: "23503"})
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	assert.ErrorIs(t, err, errForeignKey)

	var pgErr *pgconn.PgError
	assert.True(t, errors.As(err, &pgErr), "cause should stay reachable")

	other := &pgconn.PgError{Code: "42P01"}
	assert.Same(t, other, classify(other))
	assert.Nil(t, classify(nil))
}

func TestRelabelKeepsOtherKinds(t *testing.T) {
	conflict := classify(&pgconn.PgError{Code: "23505"})
	assert.Equal(t, "Slug already in use", apperr.Message(relabel(conflict, apperr.Conflict, "Slug already in use")))

	missing := classify(&pgconn.PgError{Code: "23503"})
	assert.Same(t, missing, relabel(missing, apperr.Conflict, "unused"))
}

var reCreateTable = regexp.MustCompile(`(?m)^CREATE TABLE (\w+)`)

func createdTables(t *testing.T, dir string) []string {
	t.Helper()
	var tables []string
	err := fs.WalkDir(migrations, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(migrations, path)
		if err != nil {
			return err
		}
		for _, m := range reCreateTable.FindAllStringSubmatch(string(data), -1) {
			tables = append(tables, m[1])
		}
		return nil
	})
	require.NoError(t, err)
	sort.Strings(tables)
	return tables
}

func TestMigrationsMatchAcrossDialects(t *testing.T) {
	lite := createdTables(t, "migrations/sqlite")
	require.NotEmpty(t, lite)
	assert.Equal(t, lite, createdTables(t, "migrations/postgres"))
}
