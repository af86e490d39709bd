package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorlane/scheduling-api/internal/models"
)

func newRuleRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAvailabilityRuleRepositoryListByTutorAndDay(t *testing.T) {
	db, mock, cleanup := newRuleRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRuleRepository(db)

	rows := sqlmock.NewRows([]string{"id", "tutor_id", "day_of_week", "start_time", "end_time", "created_at", "updated_at"}).
		AddRow("r1", "tutor-1", "monday", "09:00", "12:00", time.Now(), time.Now())
	mock.ExpectQuery("SELECT (.+) FROM availability_rules WHERE tutor_id").
		WithArgs("tutor-1", string(models.Monday)).
		WillReturnRows(rows)

	rules, err := repo.ListByTutorAndDay(context.Background(), "tutor-1", models.Monday)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, models.Monday, rules[0].DayOfWeek)
	assert.Equal(t, "09:00", rules[0].StartTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRuleRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRuleRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRuleRepository(db)

	mock.ExpectExec("INSERT INTO availability_rules").
		WillReturnResult(sqlmock.NewResult(1, 1))

	rule := &models.AvailabilityRule{TutorID: "tutor-1", DayOfWeek: models.Friday, StartTime: "10:00", EndTime: "14:00"}
	err := repo.Create(context.Background(), rule)
	require.NoError(t, err)
	assert.NotEmpty(t, rule.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
