package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/resumate-app/resumate/internal/domain"
	"github.com/resumate-app/resumate/internal/llm"
	"github.com/resumate-app/resumate/internal/web/cache"
)

// Section keys used in section_scores and sections_to_improve
const (
	SectionPersonalInfo = "personal_info"
	SectionContactInfo  = "contact_info"
	SectionExperience   = "experience"
	SectionEducation    = "education"
	SectionSkills       = "skills"
	SectionProjects     = "projects"
	SectionSummary      = "summary"
)

// AtsAnalysisResult is the scored analysis of a resume against a job
// description.
type AtsAnalysisResult struct {
	Score             int                 `json:"score"`
	SectionScores     map[string]int      `json:"section_scores"`
	MatchedKeywords   []string            `json:"matched_keywords"`
	MissingKeywords   []string            `json:"missing_keywords"`
	SectionsToImprove map[string][]string `json:"sections_to_improve"`
	ContentIssues     ContentIssues       `json:"content_issues"`
	Recommendations   []string            `json:"recommendations"`

	// Fallback marks a heuristic result produced without the model
	Fallback bool `json:"-"`
}

// ContentIssues groups quality problems found in the resume
type ContentIssues struct {
	Duplicates      []string `json:"duplicates,omitempty"`
	MissingInfo     []string `json:"missing_info,omitempty"`
	WeakContent     []string `json:"weak_content,omitempty"`
	MissingSections []string `json:"missing_sections,omitempty"`
}

// analysisResume is the view of a resume the model sees
type analysisResume struct {
	Summary         string                  `json:"summary,omitempty"`
	Skills          []string                `json:"skills"`
	FirstName       string                  `json:"firstName,omitempty"`
	LastName        string                  `json:"lastName,omitempty"`
	JobTitle        string                  `json:"jobTitle,omitempty"`
	Email           string                  `json:"email,omitempty"`
	Phone           string                  `json:"phone,omitempty"`
	City            string                  `json:"city,omitempty"`
	Country         string                  `json:"country,omitempty"`
	LinkedinURL     string                  `json:"linkedinUrl,omitempty"`
	GithubURL       string                  `json:"githubUrl,omitempty"`
	WorkExperiences []domain.WorkExperience `json:"workExperiences,omitempty"`
	Educations      []domain.Education      `json:"educations,omitempty"`
	Projects        []domain.Project        `json:"projects,omitempty"`
	Certificates    []domain.Certificate    `json:"certificates,omitempty"`
	CourseWork      []domain.CourseWork     `json:"courseWork,omitempty"`
}

func newAnalysisResume(r domain.ResumeValues) analysisResume {
	skills := r.Skills
	if skills == nil {
		skills = []string{}
	}
	return analysisResume{
		Summary:         r.Summary,
		Skills:          skills,
		FirstName:       r.FirstName,
		LastName:        r.LastName,
		JobTitle:        r.JobTitle,
		Email:           r.Email,
		Phone:           r.Phone,
		City:            r.City,
		Country:         r.Country,
		LinkedinURL:     r.LinkedinURL,
		GithubURL:       r.GithubURL,
		WorkExperiences: r.WorkExperiences,
		Educations:      r.Educations,
		Projects:        r.Projects,
		Certificates:    r.Certificates,
		CourseWork:      r.CourseWork,
	}
}

// AnalyzeResume scores resume against jobDescription. It never fails: when
// the model is unavailable or answers with something that is not the
// expected JSON, a heuristic analysis is returned instead. Model results are
// cached by resume content and job description.
func (s *Service) AnalyzeResume(ctx context.Context, resume domain.ResumeValues, jobDescription string) *AtsAnalysisResult {
	view, err := json.MarshalIndent(newAnalysisResume(resume), "", "  ")
	if err != nil {
		s.logger.Error("failed to encode resume for analysis", zap.Error(err))
		return fallbackAnalysis(resume)
	}

	key := cache.Key("ats", string(view), jobDescription)
	if s.cache != nil {
		var cached AtsAnalysisResult
		err := cache.GetJSON(ctx, s.cache, key, &cached)
		if err == nil {
			return &cached
		}
		if !cache.IsCacheMiss(err) {
			s.logger.Warn("ats cache read failed", zap.Error(err))
		}
	}

	result, err := s.analyze(ctx, string(view), jobDescription)
	if err != nil {
		s.logger.Warn("ats analysis fell back to heuristics", zap.Error(err))
		return fallbackAnalysis(resume)
	}
	postProcess(result, resume)

	if s.cache != nil {
		if err := cache.SetJSON(ctx, s.cache, key, result, s.cacheTTL); err != nil {
			s.logger.Warn("ats cache write failed", zap.Error(err))
		}
	}
	return result
}

func (s *Service) analyze(ctx context.Context, resumeJSON, jobDescription string) (*AtsAnalysisResult, error) {
	user, err := render("ats_user.tmpl", map[string]string{
		"JobDescription": jobDescription,
		"Resume":         resumeJSON,
	})
	if err != nil {
		return nil, err
	}

	reply, err := s.llm.Complete(ctx, llm.Request{
		Model:  s.models.Analysis,
		System: atsSystem,
		User:   user,
		JSON:   true,
	})
	if err != nil {
		return nil, err
	}
	return parseAnalysis(reply)
}

// rawAnalysis accepts fractional scores from the model
type rawAnalysis struct {
	Score             *float64            `json:"score"`
	SectionScores     map[string]float64  `json:"section_scores"`
	MatchedKeywords   []string            `json:"matched_keywords"`
	MissingKeywords   []string            `json:"missing_keywords"`
	SectionsToImprove map[string][]string `json:"sections_to_improve"`
	ContentIssues     ContentIssues       `json:"content_issues"`
	Recommendations   []string            `json:"recommendations"`
}

func parseAnalysis(reply string) (*AtsAnalysisResult, error) {
	cleaned := llm.CleanJSON(reply)
	if cleaned == "" {
		return nil, llm.ErrEmptyResponse
	}

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("parse analysis: %w", err)
	}
	if raw.Score == nil {
		return nil, fmt.Errorf("parse analysis: missing score")
	}

	result := &AtsAnalysisResult{
		Score:             clampScore(*raw.Score),
		SectionScores:     make(map[string]int, len(raw.SectionScores)),
		MatchedKeywords:   nonNil(raw.MatchedKeywords),
		MissingKeywords:   nonNil(raw.MissingKeywords),
		SectionsToImprove: raw.SectionsToImprove,
		ContentIssues:     raw.ContentIssues,
		Recommendations:   nonNil(raw.Recommendations),
	}
	for k, v := range raw.SectionScores {
		result.SectionScores[k] = clampScore(v)
	}
	if result.SectionsToImprove == nil {
		result.SectionsToImprove = map[string][]string{}
	}
	return result, nil
}

func clampScore(v float64) int {
	return int(math.Round(math.Max(0, math.Min(100, v))))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

const (
	essentialsRecommendation  = "Complete all essential resume sections (personal info, contact details, education)"
	contactInfoRecommendation = "ATS systems require complete personal and contact information to process your application"
	projectTitlesMissingInfo  = "Project titles are missing in some entries."
	projectTitlesImprovement  = "Add titles to all projects - projects without titles are seen as incomplete by ATS systems."
	projectTitlesRecommended  = "Ensure every project has a clear, descriptive title - ATS systems categorize projects by their titles."
)

// postProcess enforces the rules the model tends to overlook
func postProcess(r *AtsAnalysisResult, resume domain.ResumeValues) {
	if missingEssentials(resume) && r.Score > 65 {
		r.Score = 65
		r.Recommendations = append([]string{essentialsRecommendation, contactInfoRecommendation}, r.Recommendations...)
	}

	if !missingProjectTitles(resume) {
		return
	}

	if score, ok := r.SectionScores[SectionProjects]; ok && score > 60 {
		r.SectionScores[SectionProjects] = 60
	}

	if !anyContains(r.ContentIssues.MissingInfo, "project title") {
		r.ContentIssues.MissingInfo = append(r.ContentIssues.MissingInfo, projectTitlesMissingInfo)
	}

	if !anyContains(r.SectionsToImprove[SectionProjects], "title") {
		r.SectionsToImprove[SectionProjects] = append(r.SectionsToImprove[SectionProjects], projectTitlesImprovement)
	}

	mentioned := false
	for _, rec := range r.Recommendations {
		if strings.Contains(rec, "project") && strings.Contains(rec, "title") {
			mentioned = true
			break
		}
	}
	if !mentioned {
		r.Recommendations = append(r.Recommendations, projectTitlesRecommended)
	}
}

func anyContains(items []string, sub string) bool {
	for _, item := range items {
		if strings.Contains(item, sub) {
			return true
		}
	}
	return false
}

func isEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

func missingEssentials(r domain.ResumeValues) bool {
	missingPersonal := isEmpty(r.FirstName) || isEmpty(r.LastName) || isEmpty(r.JobTitle)
	missingContact := isEmpty(r.Email) || isEmpty(r.Phone)
	return missingPersonal || missingContact || len(r.Educations) == 0
}

func missingProjectTitles(r domain.ResumeValues) bool {
	for _, p := range r.Projects {
		if isEmpty(p.Title) {
			return true
		}
	}
	return false
}
