package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorlane/scheduling-api/internal/models"
)

func newTutorRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestTutorRepositoryList(t *testing.T) {
	db, mock, cleanup := newTutorRepoMock(t)
	defer cleanup()
	repo := NewTutorRepository(db)

	rows := sqlmock.NewRows([]string{"id", "email", "full_name", "headline", "active", "created_at", "updated_at"}).
		AddRow("t1", "a@example.com", "Tutor A", nil, true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, full_name, headline, active, created_at, updated_at FROM tutors WHERE 1=1 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM tutors WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.TutorFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTutorRepositoryListActiveBySubject(t *testing.T) {
	db, mock, cleanup := newTutorRepoMock(t)
	defer cleanup()
	repo := NewTutorRepository(db)

	rows := sqlmock.NewRows([]string{"id", "email", "full_name", "headline", "active", "created_at", "updated_at"}).
		AddRow("t1", "a@example.com", "Tutor A", nil, true, time.Now(), time.Now()).
		AddRow("t2", "b@example.com", "Tutor B", nil, true, time.Now(), time.Now())
	mock.ExpectQuery("SELECT (.+) FROM tutors t").
		WithArgs("subject-1").
		WillReturnRows(rows)

	tutors, err := repo.ListActiveBySubject(context.Background(), "subject-1")
	require.NoError(t, err)
	assert.Len(t, tutors, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}
