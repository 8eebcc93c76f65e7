package ai

import (
	"fmt"

	"github.com/resumate-app/resumate/internal/domain"
)

// fallbackAnalysis builds a conservative analysis from the resume alone
func fallbackAnalysis(r domain.ResumeValues) *AtsAnalysisResult {
	missingTitles := missingProjectTitles(r)
	fieldMessages := projectFieldMessages(r)
	if missingTitles && !anyContains(fieldMessages, "missing titles") {
		fieldMessages = append(fieldMessages, "One or more projects are missing titles.")
	}

	projectsImprove := []string{"Add project URLs and detail technologies used."}
	missingInfo := []string{"Several sections are missing key information such as dates, links, or measurable achievements."}
	recommendations := []string{
		"Complete all essential resume sections (personal info, contact details, education).",
		"ATS systems require complete personal and contact information to process your application.",
		"Mirror job description keywords exactly in your resume.",
		"Quantify achievements with numbers when possible.",
		"Use standard section headings for better ATS parsing.",
		"Remove duplicate content that may appear to be keyword stuffing.",
		"Add missing essential information like project links and technology details.",
	}

	if missingTitles {
		projectsImprove = append(projectsImprove, "Add missing project titles - every project must have a title.")
		missingInfo = append(missingInfo, "One or more projects are missing titles.")
		recommendations = append(recommendations, projectTitlesRecommended)
	}
	if len(fieldMessages) > 0 {
		projectsImprove = append(projectsImprove, "Complete all project information including titles, descriptions, and URLs.")
		recommendations = append(recommendations, "Ensure all projects have complete information including titles.")
	}
	missingInfo = append(missingInfo, fieldMessages...)

	return &AtsAnalysisResult{
		Score: 45,
		SectionScores: map[string]int{
			SectionPersonalInfo: pick(isEmpty(r.FirstName) || isEmpty(r.LastName), 20, 80),
			SectionContactInfo:  pick(isEmpty(r.Email) || isEmpty(r.Phone), 30, 80),
			SectionExperience:   pick(len(r.WorkExperiences) == 0, 0, 60),
			SectionEducation:    pick(len(r.Educations) == 0, 0, 60),
			SectionSkills:       pick(len(r.Skills) == 0, 0, 50),
			SectionProjects:     projectsScore(r, missingTitles),
			SectionSummary:      pick(isEmpty(r.Summary), 0, 50),
		},
		MatchedKeywords: []string{},
		MissingKeywords: []string{},
		SectionsToImprove: map[string][]string{
			SectionSkills: {"Add more specific technical skills from the job description."},
			SectionExperience: {
				"Quantify achievements with specific metrics.",
				"Remove duplicate work experiences.",
			},
			SectionSummary:  {"Customize your professional summary to highlight relevant experience for this role."},
			SectionProjects: projectsImprove,
		},
		ContentIssues: ContentIssues{
			Duplicates:      []string{"Check for duplicate content in your work experience section."},
			MissingInfo:     missingInfo,
			WeakContent:     []string{"Experience descriptions use generic language instead of powerful action verbs and specific accomplishments."},
			MissingSections: missingSections(r),
		},
		Recommendations: recommendations,
		Fallback:        true,
	}
}

func pick(cond bool, yes, no int) int {
	if cond {
		return yes
	}
	return no
}

func projectsScore(r domain.ResumeValues, missingTitles bool) int {
	switch {
	case len(r.Projects) == 0:
		return 0
	case missingTitles:
		return 30
	default:
		return 50
	}
}

func missingSections(r domain.ResumeValues) []string {
	var out []string
	if isEmpty(r.FirstName) || isEmpty(r.LastName) {
		out = append(out, "Personal information (name) is incomplete or missing.")
	}
	if isEmpty(r.Email) || isEmpty(r.Phone) {
		out = append(out, "Contact information is incomplete or missing.")
	}
	if len(r.Educations) == 0 {
		out = append(out, "Education section is completely missing.")
	}
	if len(r.WorkExperiences) == 0 {
		out = append(out, "Work experience section is completely missing.")
	}
	if len(r.Skills) == 0 {
		out = append(out, "Skills section is completely missing.")
	}
	if isEmpty(r.Summary) {
		out = append(out, "Professional summary is missing.")
	}
	if missingProjectTitles(r) {
		out = append(out, "One or more projects are missing titles.")
	}
	return out
}

// projectFieldMessages counts projects lacking a title, description or URL
func projectFieldMessages(r domain.ResumeValues) []string {
	var noTitle, noDescription, noURL int
	for _, p := range r.Projects {
		if isEmpty(p.Title) {
			noTitle++
		}
		if isEmpty(p.Description) {
			noDescription++
		}
		if isEmpty(p.ProjectURL) {
			noURL++
		}
	}

	var out []string
	for _, c := range []struct {
		n    int
		what string
	}{{noTitle, "titles"}, {noDescription, "descriptions"}, {noURL, "URLs"}} {
		if c.n > 0 {
			out = append(out, fmt.Sprintf("%d project(s) are missing %s.", c.n, c.what))
		}
	}
	return out
}
