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

func newRecurringRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRecurringGroupRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRecurringRepoMock(t)
	defer cleanup()
	repo := NewRecurringGroupRepository(db)

	mock.ExpectExec("INSERT INTO recurring_groups").
		WillReturnResult(sqlmock.NewResult(1, 1))

	group := &models.RecurringGroup{
		OriginLessonID:    "lesson-1",
		Interval:          models.RecurWeekly,
		NextExtensionDate: time.Now().Add(90 * 24 * time.Hour),
	}
	err := repo.Create(context.Background(), group)
	require.NoError(t, err)
	assert.NotEmpty(t, group.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecurringGroupRepositoryListDueForExtension(t *testing.T) {
	db, mock, cleanup := newRecurringRepoMock(t)
	defer cleanup()
	repo := NewRecurringGroupRepository(db)

	now := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "origin_lesson_id", "interval", "next_extension_date", "created_at", "updated_at"}).
		AddRow("g1", "lesson-1", "weekly", now.Add(-time.Hour), time.Now(), time.Now())
	mock.ExpectQuery("SELECT (.+) FROM recurring_groups WHERE next_extension_date").
		WithArgs(now).
		WillReturnRows(rows)

	groups, err := repo.ListDueForExtension(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, models.RecurWeekly, groups[0].Interval)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecurringGroupRepositoryUpdateNextExtension(t *testing.T) {
	db, mock, cleanup := newRecurringRepoMock(t)
	defer cleanup()
	repo := NewRecurringGroupRepository(db)

	next := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE recurring_groups SET next_extension_date = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("g1", next, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateNextExtension(context.Background(), "g1", next)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
