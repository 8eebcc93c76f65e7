package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/resumate-app/resumate/internal/domain"
	"github.com/resumate-app/resumate/internal/llm"
)

// optimizeView keeps the content fields the model is allowed to rewrite
func optimizeView(r domain.ResumeValues) domain.ResumeValues {
	return domain.ResumeValues{
		Summary:         r.Summary,
		Skills:          r.Skills,
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

// OptimizeResume rewrites the existing content of resume towards
// jobDescription. The model may only touch fields that are already present
// and may never add list items. Any failure returns resume unchanged.
func (s *Service) OptimizeResume(ctx context.Context, resume domain.ResumeValues, jobDescription string) domain.ResumeValues {
	out, err := s.optimize(ctx, resume, jobDescription)
	if err != nil {
		s.logger.Warn("resume optimization failed, returning original", zap.Error(err))
		return resume
	}
	return out
}

func (s *Service) optimize(ctx context.Context, resume domain.ResumeValues, jobDescription string) (domain.ResumeValues, error) {
	view, err := json.MarshalIndent(optimizeView(resume), "", "  ")
	if err != nil {
		return resume, err
	}

	user, err := render("optimize_user.tmpl", map[string]string{
		"JobDescription": jobDescription,
		"Resume":         string(view),
	})
	if err != nil {
		return resume, err
	}

	reply, err := s.llm.Complete(ctx, llm.Request{
		Model:  s.models.Analysis,
		System: optimizeSystem,
		User:   user,
		JSON:   true,
	})
	if err != nil {
		return resume, err
	}

	cleaned := llm.CleanJSON(reply)
	if cleaned == "" {
		return resume, llm.ErrEmptyResponse
	}

	var original, optimized map[string]any
	if err := json.Unmarshal(view, &original); err != nil {
		return resume, err
	}
	if err := json.Unmarshal([]byte(cleaned), &optimized); err != nil {
		return resume, fmt.Errorf("parse optimized resume: %w", err)
	}

	return mergeOptimized(resume, sanitize(original, optimized))
}

// sanitize keeps only the keys of optimized that exist in original. Lists are
// cut to the original length and objects keep only their existing sub-keys.
// Values whose kind differs from the original are dropped.
func sanitize(original, optimized map[string]any) map[string]any {
	out := make(map[string]any, len(optimized))
	for key, next := range optimized {
		prev, ok := original[key]
		if !ok || next == nil {
			continue
		}

		switch p := prev.(type) {
		case []any:
			n, ok := next.([]any)
			if !ok {
				continue
			}
			if len(n) > len(p) {
				n = n[:len(p)]
			}
			out[key] = n
		case map[string]any:
			n, ok := next.(map[string]any)
			if !ok {
				continue
			}
			kept := make(map[string]any, len(n))
			for sub, v := range n {
				if _, ok := p[sub]; ok {
					kept[sub] = v
				}
			}
			out[key] = kept
		default:
			if reflect.TypeOf(prev) != reflect.TypeOf(next) {
				continue
			}
			out[key] = next
		}
	}
	return out
}

// mergeOptimized lays the sanitized fields over the full original resume
func mergeOptimized(resume domain.ResumeValues, fields map[string]any) (domain.ResumeValues, error) {
	full, err := json.Marshal(resume)
	if err != nil {
		return resume, err
	}

	var merged map[string]any
	if err := json.Unmarshal(full, &merged); err != nil {
		return resume, err
	}
	for k, v := range fields {
		merged[k] = v
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return resume, err
	}

	var out domain.ResumeValues
	if err := json.Unmarshal(data, &out); err != nil {
		return resume, fmt.Errorf("decode optimized resume: %w", err)
	}
	out.ID = resume.ID
	out.PhotoURL = resume.PhotoURL
	out.UpdatedAt = resume.UpdatedAt
	return out, nil
}
