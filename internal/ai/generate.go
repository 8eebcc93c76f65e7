package ai

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/resumate-app/resumate/internal/domain"
	"github.com/resumate-app/resumate/internal/llm"
)

// SummaryInput is the part of a resume a summary is written from
type SummaryInput struct {
	JobTitle        string                  `json:"jobTitle"`
	WorkExperiences []domain.WorkExperience `json:"workExperiences"`
	Educations      []domain.Education      `json:"educations"`
	Skills          []string                `json:"skills"`
}

// GenerateSummary writes a professional summary for the resume
func (s *Service) GenerateSummary(ctx context.Context, in SummaryInput) (string, error) {
	user, err := render("summary_user.tmpl", in)
	if err != nil {
		return "", err
	}

	reply, err := s.llm.Complete(ctx, llm.Request{
		Model:  s.models.Generation,
		System: summarySystem,
		User:   user,
	})
	if err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}

	summary := strings.TrimSpace(reply)
	if summary == "" {
		return "", fmt.Errorf("generate summary: %w", llm.ErrEmptyResponse)
	}
	return summary, nil
}

var (
	jobTitleRe    = regexp.MustCompile(`Job title: (.*)`)
	companyRe     = regexp.MustCompile(`Company: (.*)`)
	titleRe       = regexp.MustCompile(`Title: (.*)`)
	organisRe     = regexp.MustCompile(`Organisation: (.*)`)
	projectURLRe  = regexp.MustCompile(`Project URL: (.*)`)
	descriptionRe = regexp.MustCompile(`Description:([\s\S]*)`)
	startDateRe   = regexp.MustCompile(`Start date: (\d{4}-\d{2}-\d{2})`)
	endDateRe     = regexp.MustCompile(`End date: (\d{4}-\d{2}-\d{2})`)
)

// GenerateWorkExperience turns a free-form description into a work
// experience entry
func (s *Service) GenerateWorkExperience(ctx context.Context, description string) (domain.WorkExperience, error) {
	reply, err := s.generateEntry(ctx, workExperienceSystem,
		"Please provide a work experience entry from this description:\n"+description)
	if err != nil {
		return domain.WorkExperience{}, fmt.Errorf("generate work experience: %w", err)
	}

	return domain.WorkExperience{
		Position:    match(jobTitleRe, reply),
		Company:     match(companyRe, reply),
		Description: match(descriptionRe, reply),
		StartDate:   match(startDateRe, reply),
		EndDate:     match(endDateRe, reply),
	}, nil
}

// GenerateProject turns a free-form description into a project entry.
// Dates that are not real calendar dates are dropped.
func (s *Service) GenerateProject(ctx context.Context, description string) (domain.Project, error) {
	reply, err := s.generateEntry(ctx, projectSystem,
		"Please provide a project entry from this description:\n"+description)
	if err != nil {
		return domain.Project{}, fmt.Errorf("generate project: %w", err)
	}

	return domain.Project{
		Title:            match(titleRe, reply),
		OrganisationName: match(organisRe, reply),
		ProjectURL:       match(projectURLRe, reply),
		Description:      match(descriptionRe, reply),
		StartDate:        calendarDate(match(startDateRe, reply)),
		EndDate:          calendarDate(match(endDateRe, reply)),
	}, nil
}

func (s *Service) generateEntry(ctx context.Context, system, user string) (string, error) {
	reply, err := s.llm.Complete(ctx, llm.Request{
		Model:  s.models.Generation,
		System: system,
		User:   user,
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(reply) == "" {
		return "", llm.ErrEmptyResponse
	}
	return reply, nil
}

func match(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func calendarDate(s string) string {
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return ""
	}
	return s
}
