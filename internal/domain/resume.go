// Package domain holds the entities shared by the store, services and HTTP
// handlers.
package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// ResumeValues is the editor's wire form of a resume. All fields are
// optional; dates travel as YYYY-MM-DD strings.
type ResumeValues struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title,omitempty" validate:"max=200"`
	Description string `json:"description,omitempty" validate:"max=1000"`
	PhotoURL    string `json:"photoUrl,omitempty"`
	ColorHex    string `json:"colorHex,omitempty" validate:"omitempty,hexcolor"`
	BorderStyle string `json:"borderStyle,omitempty" validate:"omitempty,oneof=squircle circle square"`
	Summary     string `json:"summary,omitempty"`

	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	JobTitle    string `json:"jobTitle,omitempty"`
	City        string `json:"city,omitempty"`
	Country     string `json:"country,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	LinkedinURL string `json:"linkedinUrl,omitempty"`
	XURL        string `json:"xUrl,omitempty"`
	GithubURL   string `json:"githubUrl,omitempty"`

	Skills          []string         `json:"skills,omitempty"`
	WorkExperiences []WorkExperience `json:"workExperiences,omitempty" validate:"dive"`
	Educations      []Education      `json:"educations,omitempty" validate:"dive"`
	Projects        []Project        `json:"projects,omitempty" validate:"dive"`
	Certificates    []Certificate    `json:"certificates,omitempty" validate:"dive"`
	CourseWork      []CourseWork     `json:"CourseWork,omitempty" validate:"dive"`

	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// WorkExperience is one employment entry
type WorkExperience struct {
	Position    string `json:"position,omitempty"`
	Company     string `json:"company,omitempty"`
	StartDate   string `json:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty"`
	Description string `json:"description,omitempty"`
}

// Education is one education entry
type Education struct {
	Degree    string `json:"degree,omitempty"`
	School    string `json:"school,omitempty"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

// Project is one project entry
type Project struct {
	Title            string `json:"title,omitempty"`
	OrganisationName string `json:"organisationName,omitempty"`
	ProjectURL       string `json:"projectUrl,omitempty"`
	StartDate        string `json:"startDate,omitempty"`
	EndDate          string `json:"endDate,omitempty"`
	Description      string `json:"description,omitempty"`
}

// Certificate is one certification entry. Duration holds a completion date.
type Certificate struct {
	Title       string `json:"title,omitempty"`
	Source      string `json:"source,omitempty"`
	Duration    string `json:"duration,omitempty"`
	Description string `json:"description,omitempty"`
}

// CourseWork is one course entry. Duration holds a completion date.
type CourseWork struct {
	Title       string `json:"title,omitempty"`
	Source      string `json:"source,omitempty"`
	Duration    string `json:"duration,omitempty"`
	Skills      string `json:"skills,omitempty"`
	Description string `json:"description,omitempty"`
}

// ResumeSummary is a list entry for the dashboard
type ResumeSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PhotoURL    string    `json:"photoUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Clone returns a copy that shares no slice memory with v
func (v ResumeValues) Clone() ResumeValues {
	c := v
	c.Skills = append([]string(nil), v.Skills...)
	c.WorkExperiences = append([]WorkExperience(nil), v.WorkExperiences...)
	c.Educations = append([]Education(nil), v.Educations...)
	c.Projects = append([]Project(nil), v.Projects...)
	c.Certificates = append([]Certificate(nil), v.Certificates...)
	c.CourseWork = append([]CourseWork(nil), v.CourseWork...)
	if v.UpdatedAt != nil {
		t := *v.UpdatedAt
		c.UpdatedAt = &t
	}
	return c
}

// Normalize trims every string field and drops blank skills. Slices are
// replaced, never written through, so callers' copies stay intact.
func (v *ResumeValues) Normalize() {
	trim := func(fields ...*string) {
		for _, f := range fields {
			*f = strings.TrimSpace(*f)
		}
	}

	trim(&v.Title, &v.Description, &v.ColorHex, &v.BorderStyle, &v.Summary,
		&v.FirstName, &v.LastName, &v.JobTitle, &v.City, &v.Country,
		&v.Phone, &v.Email, &v.LinkedinURL, &v.XURL, &v.GithubURL)

	var skills []string
	if v.Skills != nil {
		skills = make([]string, 0, len(v.Skills))
	}
	for _, s := range v.Skills {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, s)
		}
	}

	*v = v.Clone()
	v.Skills = skills

	for i := range v.WorkExperiences {
		w := &v.WorkExperiences[i]
		trim(&w.Position, &w.Company, &w.StartDate, &w.EndDate, &w.Description)
	}
	for i := range v.Educations {
		e := &v.Educations[i]
		trim(&e.Degree, &e.School, &e.StartDate, &e.EndDate)
	}
	for i := range v.Projects {
		p := &v.Projects[i]
		trim(&p.Title, &p.OrganisationName, &p.ProjectURL, &p.StartDate, &p.EndDate, &p.Description)
	}
	for i := range v.Certificates {
		c := &v.Certificates[i]
		trim(&c.Title, &c.Source, &c.Duration, &c.Description)
	}
	for i := range v.CourseWork {
		c := &v.CourseWork[i]
		trim(&c.Title, &c.Source, &c.Duration, &c.Skills, &c.Description)
	}
}

// Snapshot serialises the editable content of the resume. Server-managed
// fields (id, photo, timestamps) are left out so that two snapshots compare
// equal exactly when the user's content is unchanged.
func (v ResumeValues) Snapshot() ([]byte, error) {
	v.ID = ""
	v.PhotoURL = ""
	v.UpdatedAt = nil
	return json.Marshal(v)
}

// FullName joins first and last name
func (v ResumeValues) FullName() string {
	return strings.TrimSpace(v.FirstName + " " + v.LastName)
}
