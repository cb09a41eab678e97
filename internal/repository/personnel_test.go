package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vperreard/mathildanesth/pkg/model"
)

func personColumns() []string {
	return []string{"id", "name", "work_ratio", "specialty", "experience_years", "active", "joined_at", "left_at"}
}

func TestPersonnelRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPersonnelRepository(db)
	p := &model.Person{
		Name:            "张三",
		WorkRatio:       1.0,
		Specialty:       "anesthesia",
		ExperienceYears: 8,
		Active:          true,
	}

	mock.ExpectExec("INSERT INTO personnel").
		WithArgs(sqlmock.AnyArg(), p.Name, p.WorkRatio, p.Specialty, p.ExperienceYears, p.Active, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Create(context.Background(), p)
	assert.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, p.ID, "Create should assign an ID")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersonnelRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPersonnelRepository(db)
	id := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM personnel").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(personColumns()).
			AddRow(id, "张三", 1.0, "anesthesia", 8, true, nil, nil))

	p, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, p.ID)
	assert.Equal(t, "张三", p.Name)
	assert.True(t, p.Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersonnelRepository_GetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPersonnelRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM personnel").
		WillReturnRows(sqlmock.NewRows(personColumns()))

	_, err = repo.GetByID(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestPersonnelRepository_ListActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPersonnelRepository(db)
	date := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM personnel").
		WithArgs(date).
		WillReturnRows(sqlmock.NewRows(personColumns()).
			AddRow(uuid.New(), "张三", 1.0, "anesthesia", 8, true, nil, nil).
			AddRow(uuid.New(), "李四", 0.5, "pediatrics", 3, true, nil, nil))

	personnel, err := repo.ListActive(context.Background(), date)
	require.NoError(t, err)
	assert.Len(t, personnel, 2)
	assert.True(t, personnel[1].IsPartTime())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPersonnelRepository_Update_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPersonnelRepository(db)
	p := &model.Person{ID: uuid.New(), Name: "张三", Active: true}

	mock.ExpectExec("UPDATE personnel").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.Update(context.Background(), p)
	assert.Error(t, err)
}

func TestPersonnelRepository_Deactivate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPersonnelRepository(db)
	id := uuid.New()
	leftAt := time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE personnel SET active = false").
		WithArgs(id, leftAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Deactivate(context.Background(), id, leftAt)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
