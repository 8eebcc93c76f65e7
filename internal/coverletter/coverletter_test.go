package coverletter

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resumate-app/resumate/internal/domain"
	"github.com/resumate-app/resumate/internal/validation"
)

type fakeResumes map[string]*domain.ResumeValues

func (f fakeResumes) Get(ctx context.Context, userID, id string) (*domain.ResumeValues, error) {
	r, ok := f[userID+"/"+id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r
	cp.WorkExperiences = append([]domain.WorkExperience(nil), r.WorkExperiences...)
	return &cp, nil
}

type memoryLetters struct {
	letters map[string]*domain.CoverLetter
}

func newMemoryLetters() *memoryLetters {
	return &memoryLetters{letters: map[string]*domain.CoverLetter{}}
}

func (m *memoryLetters) Create(ctx context.Context, c *domain.CoverLetter) error {
	c.ID = "cl-1"
	m.letters[c.ID] = c
	return nil
}

func (m *memoryLetters) List(ctx context.Context, userID string) ([]domain.CoverLetter, error) {
	out := []domain.CoverLetter{}
	for _, c := range m.letters {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memoryLetters) Get(ctx context.Context, userID, id string) (*domain.CoverLetter, error) {
	c, ok := m.letters[id]
	if !ok || c.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (m *memoryLetters) UpdateContent(ctx context.Context, userID, id, content string) (*domain.CoverLetter, error) {
	c, err := m.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	c.Content = content
	return c, nil
}

func (m *memoryLetters) Delete(ctx context.Context, userID, id string) error {
	if _, err := m.Get(ctx, userID, id); err != nil {
		return err
	}
	delete(m.letters, id)
	return nil
}

func testResume() *domain.ResumeValues {
	return &domain.ResumeValues{
		ID:        "r1",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Phone:     "+44 1234",
		Skills:    []string{"Go", "Leadership", "React", "Communication", "CSS"},
		WorkExperiences: []domain.WorkExperience{
			{Company: "Old Co", StartDate: "2015-01-01"},
			{Company: "Undated Co"},
			{Company: "New Co", StartDate: "2021-03-01"},
		},
	}
}

func newTestService() (*Service, *memoryLetters) {
	letters := newMemoryLetters()
	svc := NewService(fakeResumes{"u1/r1": testResume()}, letters, nil)
	svc.now = func() time.Time { return time.Date(2025, time.March, 7, 10, 0, 0, 0, time.UTC) }
	return svc, letters
}

func TestGenerate_ProfessionalLetter(t *testing.T) {
	svc, letters := newTestService()

	letter, err := svc.Generate(context.Background(), "u1", Request{
		ResumeID:       "r1",
		JobTitle:       "Frontend Engineer",
		CompanyName:    "Acme",
		JobDescription: "We value innovation. You need React, CSS, leadership and communication skills.",
	})
	require.NoError(t, err)

	assert.Equal(t, "Frontend Engineer at Acme", letter.Title)
	assert.Equal(t, domain.ToneProfessional, letter.Tone)
	assert.Same(t, letter, letters.letters["cl-1"])

	content := letter.Content
	assert.True(t, strings.HasPrefix(content, "March 7, 2025\n\nDear Hiring Manager,\n\n"), content)
	assert.Contains(t, content, "With my background in Go, Leadership, React, Communication, CSS, I am confident in my ability to contribute effectively to your team.")
	assert.Contains(t, content, "experience in communication, leadership, react, and related competencies.")
	assert.Contains(t, content, "During my time at New Co, I successfully developed robust, scalable solutions")
	assert.Contains(t, content, "because of your focus on innovation and cutting-edge approach to the industry.")
	assert.Contains(t, content, "my expertise in Leadership and React to your team")
	assert.True(t, strings.HasSuffix(content, "Sincerely,\nAda Lovelace\nada@example.com\n+44 1234\n"), content)
}

func TestGenerate_HealthCoachWithNotesAndTone(t *testing.T) {
	svc, _ := newTestService()

	letter, err := svc.Generate(context.Background(), "u1", Request{
		ResumeID:       "r1",
		JobTitle:       "Health Coach",
		CompanyName:    "Vital",
		JobDescription: "Support client wellness journeys.",
		HiringManager:  "Dr. <b>Smith</b>",
		CustomNotes:    "I completed a nutrition certificate in 2024.",
		Tone:           domain.ToneFormal,
	})
	require.NoError(t, err)

	content := letter.Content
	assert.Contains(t, content, "Dear Dr. Smith,\n\n")
	assert.Contains(t, content, "passion for promoting holistic wellness")
	assert.Contains(t, content, "I completed a nutrition certificate in 2024.\n\nAfter reviewing the job description")
	assert.Contains(t, content, "who can various technical and interpersonal skills relevant to this role.")
	assert.Contains(t, content, "helped clients achieve sustainable health improvements")
	assert.Contains(t, content, "commitment to client-centered approach and commitment to exceptional service.")
	assert.Contains(t, content, "expertise in personalized coaching and evidence-based wellness strategies")
	assert.Contains(t, content, tones[domain.ToneFormal].closing)
	assert.Contains(t, content, "Respectfully,\nAda Lovelace")
}

func TestGenerate_Validation(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Generate(context.Background(), "u1", Request{
		ResumeID:    "r1",
		JobTitle:    "  ",
		CompanyName: "Acme",
		Tone:        "sarcastic",
	})
	ve, ok := validation.As(err)
	require.True(t, ok, "expected validation errors, got %v", err)
	assert.Contains(t, ve.Fields, "jobTitle")
	assert.Contains(t, ve.Fields, "jobDescription")
	assert.Contains(t, ve.Fields, "tone")
}

func TestGenerate_ResumeOfAnotherUser(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Generate(context.Background(), "u2", Request{
		ResumeID:       "r1",
		JobTitle:       "Engineer",
		CompanyName:    "Acme",
		JobDescription: "Go",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateContent(t *testing.T) {
	svc, letters := newTestService()
	letters.letters["cl-1"] = &domain.CoverLetter{ID: "cl-1", UserID: "u1", Content: "old"}

	updated, err := svc.UpdateContent(context.Background(), "u1", "cl-1", "<p>Dear team &amp; friends,</p><script>x()</script>")
	require.NoError(t, err)
	assert.Equal(t, "Dear team & friends,", updated.Content)

	_, err = svc.UpdateContent(context.Background(), "u1", "cl-1", "<div>  </div>")
	_, ok := validation.As(err)
	assert.True(t, ok)

	_, err = svc.UpdateContent(context.Background(), "u2", "cl-1", "hijack")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListAndDelete(t *testing.T) {
	svc, letters := newTestService()
	letters.letters["a"] = &domain.CoverLetter{ID: "a", UserID: "u1"}
	letters.letters["b"] = &domain.CoverLetter{ID: "b", UserID: "u2"}

	list, err := svc.List(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.ErrorIs(t, svc.Delete(context.Background(), "u1", "b"), domain.ErrNotFound)
	require.NoError(t, svc.Delete(context.Background(), "u1", "a"))
	_, err = svc.Get(context.Background(), "u1", "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestExtractSkills(t *testing.T) {
	assert.Equal(t, "react, css",
		extractSkills("React and CSS required", []string{"ReactJS", "css3", "Go"}))
	assert.Equal(t, "various technical and interpersonal skills relevant to this role",
		extractSkills("Rust", []string{"Go"}))
}

func TestRelevantAchievement(t *testing.T) {
	exp := []domain.WorkExperience{{Company: "Acme"}}

	assert.Contains(t, relevantAchievement("Engineering Manager", exp), "developed robust")
	assert.Contains(t, relevantAchievement("Team Lead", exp), "led teams")
	assert.Contains(t, relevantAchievement("Accountant", exp), "achieved significant results")
	assert.Contains(t, relevantAchievement("Engineer", nil), "delivered exceptional results")
}

func TestCompanyValue(t *testing.T) {
	assert.Equal(t, "holistic approach to health and commitment to client wellbeing", companyValue("Promote wellbeing"))
	assert.Equal(t, "commitment to excellence and industry leadership", companyValue("Write Go"))
}

func TestRelevantSkills(t *testing.T) {
	assert.Equal(t, "Go", relevantSkills([]string{"Go", "SQL"}, "We use go daily"))
	assert.Equal(t, "Java and Kotlin", relevantSkills([]string{"Java", "Kotlin", "Scala"}, "Rust role"))
	assert.Equal(t, "my core competencies", relevantSkills(nil, "Rust role"))
}

func TestSortByStartDesc(t *testing.T) {
	exp := testResume().WorkExperiences
	sortByStartDesc(exp)

	assert.Equal(t, "New Co", exp[0].Company)
	assert.Equal(t, "Old Co", exp[1].Company)
	assert.Equal(t, "Undated Co", exp[2].Company)
}

func TestPhrasesForUnknownTone(t *testing.T) {
	assert.Equal(t, tones[domain.ToneProfessional], phrasesFor("shouty"))
}
