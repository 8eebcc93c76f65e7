package coverletter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/resumate-app/resumate/internal/domain"
)

// DateLayout is how the letter date is written
const DateLayout = "January 2, 2006"

// Letter is everything a cover letter is composed from
type Letter struct {
	Request Request
	Resume  domain.ResumeValues
	Date    time.Time
}

var skillKeywords = []string{
	"communication",
	"leadership",
	"teamwork",
	"problem-solving",
	"creativity",
	"adaptability",
	"time management",
	"organization",
	"react",
	"javascript",
	"typescript",
	"node",
	"html",
	"css",
	"customer service",
	"client management",
	"coaching",
	"mentoring",
	"nutrition",
	"fitness",
	"wellness",
	"health",
	"patient care",
	"meal planning",
	"behavioral change",
	"motivational interviewing",
}

type tonePhrases struct {
	opening string
	closing string
	signOff string
}

var tones = map[domain.Tone]tonePhrases{
	domain.ToneProfessional: {
		opening: "I am confident in my ability to contribute effectively to your team.",
		closing: "Thank you for considering my application. I look forward to the opportunity to discuss how my skills and experiences align with your needs.",
		signOff: "Sincerely,",
	},
	domain.ToneEnthusiastic: {
		opening: "I am genuinely excited about the chance to bring that energy to your team.",
		closing: "Thank you so much for considering my application! I would love the chance to talk about how I can help your team succeed.",
		signOff: "With enthusiasm,",
	},
	domain.ToneConfident: {
		opening: "I know I can make an immediate, measurable impact on your team.",
		closing: "Thank you for your consideration. I am ready to deliver results from day one and look forward to discussing how.",
		signOff: "Sincerely,",
	},
	domain.ToneFormal: {
		opening: "I believe I possess the qualifications necessary to contribute effectively to your organization.",
		closing: "I appreciate your consideration of my application and would welcome the opportunity to discuss my qualifications at your convenience.",
		signOff: "Respectfully,",
	},
	domain.ToneConversational: {
		opening: "I think I'd be a great fit for your team, and I'd love to tell you why.",
		closing: "Thanks for reading! I'd be glad to chat about how I could help out and what your team is working on.",
		signOff: "Best regards,",
	},
}

func phrasesFor(t domain.Tone) tonePhrases {
	if p, ok := tones[t]; ok {
		return p
	}
	return tones[domain.ToneProfessional]
}

// Title names a letter after the job it was written for
func Title(jobTitle, companyName string) string {
	return jobTitle + " at " + companyName
}

// Compose renders the letter text. Work experiences are expected newest
// first.
func Compose(l Letter) string {
	req, resume := l.Request, l.Resume
	tone := phrasesFor(req.Tone)

	background := strings.Join(resume.Skills, ", ")
	if background == "" {
		background = "my field"
	}

	companyExperience := "my previous role"
	if len(resume.WorkExperiences) > 0 && resume.WorkExperiences[0].Company != "" {
		companyExperience = resume.WorkExperiences[0].Company
	}

	salutation := "Dear Hiring Manager,"
	if req.HiringManager != "" {
		salutation = fmt.Sprintf("Dear %s,", req.HiringManager)
	}

	skills := extractSkills(req.JobDescription, resume.Skills)
	achievement := relevantAchievement(req.JobTitle, resume.WorkExperiences)
	value := companyValue(req.JobDescription)
	highlight := relevantSkills(resume.Skills, req.JobDescription)

	var b strings.Builder
	b.WriteString(l.Date.Format(DateLayout) + "\n\n")
	b.WriteString(salutation + "\n\n")

	if isHealthCoach(req.JobTitle) {
		fmt.Fprintf(&b, "I am writing to express my interest in the %s position at %s. With my background in %s and passion for promoting holistic wellness and sustainable lifestyle changes, I am well-positioned to help your clients achieve their health and wellness goals.\n\n",
			req.JobTitle, req.CompanyName, background)
		writeNotes(&b, req.CustomNotes)
		fmt.Fprintf(&b, "After reviewing the job description, I understand you're seeking a dedicated professional who can %s. During my time at %s, I successfully %s, demonstrating my ability to connect with clients and guide them toward their personal health milestones.\n\n",
			skills, companyExperience, achievement)
		fmt.Fprintf(&b, "What particularly draws me to %s is your commitment to %s. I am excited about the opportunity to bring my expertise in %s to your team and contribute to your mission of transforming lives through evidence-based coaching and personalized wellness strategies.\n\n",
			req.CompanyName, value, highlight)
		if req.Tone == "" || req.Tone == domain.ToneProfessional {
			b.WriteString("Thank you for considering my application. I look forward to discussing how my approach to health coaching aligns with your vision and how I can contribute to your clients' success.\n\n")
		} else {
			b.WriteString(tone.closing + "\n\n")
		}
	} else {
		fmt.Fprintf(&b, "I am writing to express my interest in the %s position at %s. With my background in %s, %s\n\n",
			req.JobTitle, req.CompanyName, background, tone.opening)
		writeNotes(&b, req.CustomNotes)
		fmt.Fprintf(&b, "After reviewing the job description, I understand you're seeking a professional with experience in %s. During my time at %s, I successfully %s, which directly relates to the requirements of this position.\n\n",
			skills, companyExperience, achievement)
		fmt.Fprintf(&b, "I am particularly drawn to %s because of your focus on %s. I am excited about the opportunity to bring my expertise in %s to your team and contribute to your continued success.\n\n",
			req.CompanyName, value, highlight)
		b.WriteString(tone.closing + "\n\n")
	}

	b.WriteString(tone.signOff + "\n")
	for _, line := range []string{resume.FullName(), resume.Email, resume.Phone} {
		if line != "" {
			b.WriteString(line + "\n")
		}
	}
	return b.String()
}

func writeNotes(b *strings.Builder, notes string) {
	if notes = strings.TrimSpace(notes); notes != "" {
		b.WriteString(notes + "\n\n")
	}
}

func isHealthCoach(jobTitle string) bool {
	t := strings.ToLower(jobTitle)
	return strings.Contains(t, "health") &&
		(strings.Contains(t, "coach") || strings.Contains(t, "wellness") || strings.Contains(t, "fitness"))
}

// extractSkills lists the known skill keywords both the job description and
// the user's skills mention.
func extractSkills(jobDescription string, userSkills []string) string {
	description := strings.ToLower(jobDescription)

	var matched []string
	for _, keyword := range skillKeywords {
		if !strings.Contains(description, keyword) {
			continue
		}
		for _, skill := range userSkills {
			if strings.Contains(strings.ToLower(strings.TrimSpace(skill)), keyword) {
				matched = append(matched, keyword)
				break
			}
		}
	}

	switch {
	case len(matched) == 0:
		return "various technical and interpersonal skills relevant to this role"
	case len(matched) > 3:
		return strings.Join(matched[:3], ", ") + ", and related competencies"
	default:
		return strings.Join(matched, ", ")
	}
}

func relevantAchievement(jobTitle string, experiences []domain.WorkExperience) string {
	if len(experiences) == 0 {
		return "delivered exceptional results and developed skills directly applicable to this position"
	}

	t := strings.ToLower(jobTitle)
	switch {
	case containsAny(t, "health", "coach", "wellness"):
		return "helped clients achieve sustainable health improvements through personalized coaching and evidence-based strategies"
	case containsAny(t, "developer", "engineer", "programmer"):
		return "developed robust, scalable solutions that improved efficiency and user experience"
	case containsAny(t, "manager", "lead"):
		return "led teams to exceed targets and implemented processes that improved operational efficiency"
	default:
		return "achieved significant results that demonstrate my capabilities in areas relevant to this position"
	}
}

func companyValue(jobDescription string) string {
	d := strings.ToLower(jobDescription)
	switch {
	case containsAny(d, "innovation", "cutting-edge"):
		return "innovation and cutting-edge approach to the industry"
	case containsAny(d, "client", "customer", "service"):
		return "client-centered approach and commitment to exceptional service"
	case containsAny(d, "health", "wellness", "wellbeing"):
		return "holistic approach to health and commitment to client wellbeing"
	default:
		return "commitment to excellence and industry leadership"
	}
}

func relevantSkills(skills []string, jobDescription string) string {
	d := strings.ToLower(jobDescription)

	var all, matched []string
	for _, skill := range skills {
		skill = strings.TrimSpace(skill)
		if skill == "" {
			continue
		}
		all = append(all, skill)
		if strings.Contains(d, strings.ToLower(skill)) {
			matched = append(matched, skill)
		}
	}

	switch {
	case len(matched) > 0:
		return strings.Join(firstN(matched, 2), " and ")
	case containsAny(d, "health", "wellness", "coaching"):
		return "personalized coaching and evidence-based wellness strategies"
	case len(all) > 0:
		return strings.Join(firstN(all, 2), " and ")
	default:
		return "my core competencies"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// sortByStartDesc orders experiences newest first with undated ones last
func sortByStartDesc(experiences []domain.WorkExperience) {
	sort.SliceStable(experiences, func(i, j int) bool {
		a, b := experiences[i].StartDate, experiences[j].StartDate
		if a == "" || b == "" {
			return a != "" && b == ""
		}
		return a > b
	})
}
