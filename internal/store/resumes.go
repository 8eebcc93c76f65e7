package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/resumate-app/resumate/internal/domain"
)

// ResumeStore persists resumes and their ordered child collections
type ResumeStore struct {
	db *sql.DB
	tx *TxManager
}

// NewResumeStore creates a resume store
func NewResumeStore(db *sql.DB, tx *TxManager) *ResumeStore {
	return &ResumeStore{db: db, tx: tx}
}

const resumeColumns = `id, title, description, photo_url, color_hex, border_style, summary,
	first_name, last_name, job_title, city, country, phone, email,
	linkedin_url, x_url, github_url, skills, updated_at`

func resumeArgs(v *domain.ResumeValues) []any {
	skills := v.Skills
	if skills == nil {
		skills = []string{}
	}
	return []any{
		v.Title, v.Description, v.ColorHex, v.BorderStyle, v.Summary,
		v.FirstName, v.LastName, v.JobTitle, v.City, v.Country, v.Phone, v.Email,
		v.LinkedinURL, v.XURL, v.GithubURL, pq.Array(skills),
	}
}

// Create inserts a resume owned by userID together with its children and
// sets v.ID and v.UpdatedAt.
func (s *ResumeStore) Create(ctx context.Context, userID string, v *domain.ResumeValues) error {
	id := uuid.NewString()
	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		args := append([]any{id, userID}, resumeArgs(v)...)
		row := tx.QueryRowContext(ctx, `
INSERT INTO resumes (id, user_id, title, description, color_hex, border_style, summary,
	first_name, last_name, job_title, city, country, phone, email,
	linkedin_url, x_url, github_url, skills)
VALUES ($1, $2, $3, $4, COALESCE(NULLIF($5, ''), '#000000'), COALESCE(NULLIF($6, ''), 'squircle'), $7,
	$8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
RETURNING updated_at`, args...)

		var updated sql.NullTime
		if err := row.Scan(&updated); err != nil {
			return mapError(err)
		}
		if updated.Valid {
			v.UpdatedAt = &updated.Time
		}
		return insertChildren(ctx, tx, id, v)
	})
	if err != nil {
		return fmt.Errorf("create resume: %w", err)
	}
	v.ID = id
	return nil
}

// Update overwrites the resume v.ID owned by userID. Child collections are
// deleted and recreated. A resume that does not exist or belongs to someone
// else yields domain.ErrNotFound.
func (s *ResumeStore) Update(ctx context.Context, userID string, v *domain.ResumeValues) error {
	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		args := append([]any{v.ID, userID}, resumeArgs(v)...)
		row := tx.QueryRowContext(ctx, `
UPDATE resumes SET
	title = $3, description = $4,
	color_hex = COALESCE(NULLIF($5, ''), color_hex),
	border_style = COALESCE(NULLIF($6, ''), border_style),
	summary = $7, first_name = $8, last_name = $9, job_title = $10,
	city = $11, country = $12, phone = $13, email = $14,
	linkedin_url = $15, x_url = $16, github_url = $17, skills = $18,
	updated_at = NOW()
WHERE id = $1 AND user_id = $2
RETURNING photo_url, updated_at`, args...)

		var updated sql.NullTime
		if err := row.Scan(&v.PhotoURL, &updated); err != nil {
			return mapError(err)
		}
		if updated.Valid {
			v.UpdatedAt = &updated.Time
		}

		for _, table := range childTables {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE resume_id = $1`, v.ID); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return insertChildren(ctx, tx, v.ID, v)
	})
	if err != nil {
		return fmt.Errorf("update resume: %w", err)
	}
	return nil
}

var childTables = []string{"work_experiences", "educations", "projects", "certificates", "course_works"}

func insertChildren(ctx context.Context, tx *sql.Tx, resumeID string, v *domain.ResumeValues) error {
	for i, w := range v.WorkExperiences {
		if err := insertChild(ctx, tx, "work_experiences",
			[]string{"job_position", "company", "start_date", "end_date", "description"},
			resumeID, i, w.Position, w.Company, parseDate(w.StartDate), parseDate(w.EndDate), w.Description); err != nil {
			return err
		}
	}
	for i, e := range v.Educations {
		if err := insertChild(ctx, tx, "educations",
			[]string{"degree", "school", "start_date", "end_date"},
			resumeID, i, e.Degree, e.School, parseDate(e.StartDate), parseDate(e.EndDate)); err != nil {
			return err
		}
	}
	for i, p := range v.Projects {
		if err := insertChild(ctx, tx, "projects",
			[]string{"title", "organisation_name", "project_url", "start_date", "end_date", "description"},
			resumeID, i, p.Title, p.OrganisationName, p.ProjectURL, parseDate(p.StartDate), parseDate(p.EndDate), p.Description); err != nil {
			return err
		}
	}
	for i, c := range v.Certificates {
		if err := insertChild(ctx, tx, "certificates",
			[]string{"title", "source", "duration", "description"},
			resumeID, i, c.Title, c.Source, parseDate(c.Duration), c.Description); err != nil {
			return err
		}
	}
	for i, c := range v.CourseWork {
		if err := insertChild(ctx, tx, "course_works",
			[]string{"title", "source", "duration", "skills", "description"},
			resumeID, i, c.Title, c.Source, parseDate(c.Duration), c.Skills, c.Description); err != nil {
			return err
		}
	}
	return nil
}

func insertChild(ctx context.Context, tx *sql.Tx, table string, columns []string, resumeID string, position int, values ...any) error {
	placeholders := make([]string, len(columns)+2)
	for i := range placeholders {
		placeholders[i] = "$" + strconv.Itoa(i+1)
	}
	query := fmt.Sprintf("INSERT INTO %s (resume_id, position, %s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	args := append([]any{resumeID, position}, values...)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert %s: %w", table, mapError(err))
	}
	return nil
}

// Get loads a full resume owned by userID
func (s *ResumeStore) Get(ctx context.Context, userID, id string) (*domain.ResumeValues, error) {
	var (
		v       domain.ResumeValues
		updated sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `SELECT `+resumeColumns+` FROM resumes WHERE id = $1 AND user_id = $2`, id, userID).Scan(
		&v.ID, &v.Title, &v.Description, &v.PhotoURL, &v.ColorHex, &v.BorderStyle, &v.Summary,
		&v.FirstName, &v.LastName, &v.JobTitle, &v.City, &v.Country, &v.Phone, &v.Email,
		&v.LinkedinURL, &v.XURL, &v.GithubURL, pq.Array(&v.Skills), &updated,
	)
	if err != nil {
		return nil, mapError(err)
	}
	if updated.Valid {
		v.UpdatedAt = &updated.Time
	}

	if err := s.loadChildren(ctx, &v); err != nil {
		return nil, fmt.Errorf("load resume %s: %w", id, err)
	}
	return &v, nil
}

func (s *ResumeStore) loadChildren(ctx context.Context, v *domain.ResumeValues) error {
	err := eachRow(ctx, s.db, `SELECT job_position, company, start_date, end_date, description
FROM work_experiences WHERE resume_id = $1 ORDER BY position`, v.ID, func(rows *sql.Rows) error {
		var w domain.WorkExperience
		var start, end sql.NullTime
		if err := rows.Scan(&w.Position, &w.Company, &start, &end, &w.Description); err != nil {
			return err
		}
		w.StartDate, w.EndDate = formatDate(start), formatDate(end)
		v.WorkExperiences = append(v.WorkExperiences, w)
		return nil
	})
	if err != nil {
		return err
	}

	err = eachRow(ctx, s.db, `SELECT degree, school, start_date, end_date
FROM educations WHERE resume_id = $1 ORDER BY position`, v.ID, func(rows *sql.Rows) error {
		var e domain.Education
		var start, end sql.NullTime
		if err := rows.Scan(&e.Degree, &e.School, &start, &end); err != nil {
			return err
		}
		e.StartDate, e.EndDate = formatDate(start), formatDate(end)
		v.Educations = append(v.Educations, e)
		return nil
	})
	if err != nil {
		return err
	}

	err = eachRow(ctx, s.db, `SELECT title, organisation_name, project_url, start_date, end_date, description
FROM projects WHERE resume_id = $1 ORDER BY position`, v.ID, func(rows *sql.Rows) error {
		var p domain.Project
		var start, end sql.NullTime
		if err := rows.Scan(&p.Title, &p.OrganisationName, &p.ProjectURL, &start, &end, &p.Description); err != nil {
			return err
		}
		p.StartDate, p.EndDate = formatDate(start), formatDate(end)
		v.Projects = append(v.Projects, p)
		return nil
	})
	if err != nil {
		return err
	}

	err = eachRow(ctx, s.db, `SELECT title, source, duration, description
FROM certificates WHERE resume_id = $1 ORDER BY position`, v.ID, func(rows *sql.Rows) error {
		var c domain.Certificate
		var duration sql.NullTime
		if err := rows.Scan(&c.Title, &c.Source, &duration, &c.Description); err != nil {
			return err
		}
		c.Duration = formatDate(duration)
		v.Certificates = append(v.Certificates, c)
		return nil
	})
	if err != nil {
		return err
	}

	return eachRow(ctx, s.db, `SELECT title, source, duration, skills, description
FROM course_works WHERE resume_id = $1 ORDER BY position`, v.ID, func(rows *sql.Rows) error {
		var c domain.CourseWork
		var duration sql.NullTime
		if err := rows.Scan(&c.Title, &c.Source, &duration, &c.Skills, &c.Description); err != nil {
			return err
		}
		c.Duration = formatDate(duration)
		v.CourseWork = append(v.CourseWork, c)
		return nil
	})
}

func eachRow(ctx context.Context, q querier, query string, arg any, fn func(*sql.Rows) error) error {
	rows, err := q.QueryContext(ctx, query, arg)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// List returns the user's resumes, most recently updated first
func (s *ResumeStore) List(ctx context.Context, userID string) ([]domain.ResumeSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, title, description, photo_url, created_at, updated_at
FROM resumes WHERE user_id = $1
ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list resumes: %w", err)
	}
	defer rows.Close()

	resumes := []domain.ResumeSummary{}
	for rows.Next() {
		var r domain.ResumeSummary
		if err := rows.Scan(&r.ID, &r.Title, &r.Description, &r.PhotoURL, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan resume: %w", err)
		}
		resumes = append(resumes, r)
	}
	return resumes, rows.Err()
}

// Count returns how many resumes the user owns
func (s *ResumeStore) Count(ctx context.Context, userID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM resumes WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count resumes: %w", err)
	}
	return n, nil
}

// Delete removes the resume and, through cascades, its children and cover
// letters. It returns the photo URL the resume carried.
func (s *ResumeStore) Delete(ctx context.Context, userID, id string) (string, error) {
	var photo string
	err := s.db.QueryRowContext(ctx,
		`DELETE FROM resumes WHERE id = $1 AND user_id = $2 RETURNING photo_url`, id, userID).Scan(&photo)
	if err != nil {
		return "", mapError(err)
	}
	return photo, nil
}

// SetPhoto replaces the photo URL and returns the previous one
func (s *ResumeStore) SetPhoto(ctx context.Context, userID, id, url string) (string, error) {
	var previous string
	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT photo_url FROM resumes WHERE id = $1 AND user_id = $2 FOR UPDATE`, id, userID).Scan(&previous)
		if err != nil {
			return mapError(err)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE resumes SET photo_url = $2, updated_at = NOW() WHERE id = $1`, id, url)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("set photo: %w", err)
	}
	return previous, nil
}
