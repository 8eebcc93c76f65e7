package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resumate-app/resumate/internal/domain"
)

func newResumeStore(t *testing.T) (*ResumeStore, sqlmock.Sqlmock) {
	db, mock := newMock(t)
	return NewResumeStore(db, NewTxManager(db)), mock
}

func TestResumeStore_Create(t *testing.T) {
	store, mock := newResumeStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO resumes").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))
	mock.ExpectExec("INSERT INTO work_experiences \\(resume_id, position, job_position, company, start_date, end_date, description\\)").
		WithArgs(sqlmock.AnyArg(), 0, "Engineer", "Acme", time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC), nil, "Built things").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO projects").
		WithArgs(sqlmock.AnyArg(), 0, "", "", "", nil, nil, "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO projects").
		WithArgs(sqlmock.AnyArg(), 1, "CLI", "", "https://x.dev", nil, nil, "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	v := &domain.ResumeValues{
		Title:           "Backend",
		Skills:          []string{"Go"},
		WorkExperiences: []domain.WorkExperience{{Position: "Engineer", Company: "Acme", StartDate: "2020-01-15", EndDate: "not a date", Description: "Built things"}},
		Projects:        []domain.Project{{}, {Title: "CLI", ProjectURL: "https://x.dev"}},
	}
	require.NoError(t, store.Create(context.Background(), "u1", v))

	assert.NotEmpty(t, v.ID)
	require.NotNil(t, v.UpdatedAt)
}

func TestResumeStore_CreateRollsBackOnChildFailure(t *testing.T) {
	store, mock := newResumeStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO resumes").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))
	mock.ExpectExec("INSERT INTO educations").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	v := &domain.ResumeValues{Educations: []domain.Education{{Degree: "BSc"}}}
	err := store.Create(context.Background(), "u1", v)
	require.Error(t, err)
	assert.Empty(t, v.ID)
}

func TestResumeStore_UpdateRecreatesChildren(t *testing.T) {
	store, mock := newResumeStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE resumes SET").
		WillReturnRows(sqlmock.NewRows([]string{"photo_url", "updated_at"}).AddRow("https://cdn/p.png", time.Now()))
	for _, table := range childTables {
		mock.ExpectExec("DELETE FROM " + table + " WHERE resume_id = \\$1").
			WithArgs("r1").
			WillReturnResult(sqlmock.NewResult(0, 2))
	}
	mock.ExpectExec("INSERT INTO course_works").
		WithArgs("r1", 0, "Algorithms", "MIT", time.Date(2019, 6, 1, 0, 0, 0, 0, time.UTC), "Graphs", "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	v := &domain.ResumeValues{
		ID:         "r1",
		CourseWork: []domain.CourseWork{{Title: "Algorithms", Source: "MIT", Duration: "2019-06", Skills: "Graphs"}},
	}
	require.NoError(t, store.Update(context.Background(), "u1", v))
	assert.Equal(t, "https://cdn/p.png", v.PhotoURL)
}

func TestResumeStore_UpdateNotOwned(t *testing.T) {
	store, mock := newResumeStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE resumes SET").
		WillReturnRows(sqlmock.NewRows([]string{"photo_url", "updated_at"}))
	mock.ExpectRollback()

	err := store.Update(context.Background(), "intruder", &domain.ResumeValues{ID: "r1"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResumeStore_Get(t *testing.T) {
	store, mock := newResumeStore(t)
	now := time.Now()
	start := time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM resumes WHERE id = \\$1 AND user_id = \\$2").
		WithArgs("r1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "title", "description", "photo_url", "color_hex", "border_style", "summary",
			"first_name", "last_name", "job_title", "city", "country", "phone", "email",
			"linkedin_url", "x_url", "github_url", "skills", "updated_at",
		}).AddRow("r1", "Backend", "", "", "#000000", "squircle", "",
			"Ada", "Lovelace", "Engineer", "", "", "", "ada@example.com",
			"", "", "", "{Go,SQL}", now))
	mock.ExpectQuery("FROM work_experiences").
		WillReturnRows(sqlmock.NewRows([]string{"job_position", "company", "start_date", "end_date", "description"}).
			AddRow("Engineer", "Acme", start, nil, "Built things"))
	mock.ExpectQuery("FROM educations").
		WillReturnRows(sqlmock.NewRows([]string{"degree", "school", "start_date", "end_date"}))
	mock.ExpectQuery("FROM projects").
		WillReturnRows(sqlmock.NewRows([]string{"title", "organisation_name", "project_url", "start_date", "end_date", "description"}).
			AddRow("CLI", "", "https://x.dev", nil, nil, ""))
	mock.ExpectQuery("FROM certificates").
		WillReturnRows(sqlmock.NewRows([]string{"title", "source", "duration", "description"}))
	mock.ExpectQuery("FROM course_works").
		WillReturnRows(sqlmock.NewRows([]string{"title", "source", "duration", "skills", "description"}))

	v, err := store.Get(context.Background(), "u1", "r1")
	require.NoError(t, err)

	assert.Equal(t, []string{"Go", "SQL"}, v.Skills)
	require.Len(t, v.WorkExperiences, 1)
	assert.Equal(t, "2020-01-15", v.WorkExperiences[0].StartDate)
	assert.Empty(t, v.WorkExperiences[0].EndDate)
	assert.Len(t, v.Projects, 1)
	assert.Empty(t, v.Educations)
	assert.Equal(t, "Ada Lovelace", v.FullName())
}

func TestResumeStore_List(t *testing.T) {
	store, mock := newResumeStore(t)
	now := time.Now()

	mock.ExpectQuery("ORDER BY updated_at DESC").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "photo_url", "created_at", "updated_at"}).
			AddRow("r2", "Newer", "", "", now, now).
			AddRow("r1", "Older", "", "", now.Add(-time.Hour), now.Add(-time.Hour)))

	list, err := store.List(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "r2", list[0].ID)
}

func TestResumeStore_Delete(t *testing.T) {
	store, mock := newResumeStore(t)

	mock.ExpectQuery("DELETE FROM resumes WHERE id = \\$1 AND user_id = \\$2 RETURNING photo_url").
		WithArgs("r1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"photo_url"}).AddRow("https://cdn/p.png"))

	photo, err := store.Delete(context.Background(), "u1", "r1")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/p.png", photo)
}

func TestResumeStore_SetPhoto(t *testing.T) {
	store, mock := newResumeStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT photo_url FROM resumes WHERE id = \\$1 AND user_id = \\$2 FOR UPDATE").
		WithArgs("r1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"photo_url"}).AddRow("https://cdn/old.png"))
	mock.ExpectExec("UPDATE resumes SET photo_url").
		WithArgs("r1", "https://cdn/new.png").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	old, err := store.SetPhoto(context.Background(), "u1", "r1", "https://cdn/new.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/old.png", old)
}
