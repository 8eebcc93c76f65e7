package domain

import "time"

// Tone selects the voice of a generated cover letter
type Tone string

const (
	ToneProfessional   Tone = "professional"
	ToneEnthusiastic   Tone = "enthusiastic"
	ToneConfident      Tone = "confident"
	ToneFormal         Tone = "formal"
	ToneConversational Tone = "conversational"
)

// CoverLetter is a stored, user-editable letter
type CoverLetter struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	ResumeID    string    `json:"resumeId"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	JobTitle    string    `json:"jobTitle"`
	CompanyName string    `json:"companyName"`
	Tone        Tone      `json:"tone"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
