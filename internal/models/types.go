package models

import (
	"encoding/json"
	"errors"
	"time"
)

// SessionRecord is the stored document for one respondent attempt. The JSON
// field names are the on-disk format; responses written by older deployments
// must keep loading, so do not rename them.
type SessionRecord struct {
	SessionID    string                 `json:"sessionId"`
	StartTime    time.Time              `json:"startTime"`
	Demographics map[string]AnswerValue `json:"demographics"`
	Answers      []WebsiteAnswer        `json:"answers"`
	Completed    bool                   `json:"completed"`
	LastUpdated  *time.Time             `json:"lastUpdated,omitempty"`
	LastActivity *time.Time             `json:"lastActivity,omitempty"`
	CompletedAt  *time.Time             `json:"completedAt,omitempty"`
}

// WebsiteAnswer holds the responses for a single evaluated website design.
// At most one entry per WebsiteID exists in a record; partial saves update
// the entry in place.
type WebsiteAnswer struct {
	WebsiteID  string                 `json:"websiteId"`
	Responses  map[string]AnswerValue `json:"responses"`
	ViewTime   *float64               `json:"viewTime,omitempty"`
	IsPartial  bool                   `json:"isPartial"`
	AnsweredAt time.Time              `json:"answeredAt"`
	UpdatedAt  time.Time              `json:"updatedAt"`
}

// AnswerKind tags the closed set of answer value shapes.
type AnswerKind int

const (
	AnswerText AnswerKind = iota
	AnswerChoices
	AnswerNumber
)

// AnswerValue is a single answer: free text, a multi-choice selection, or a
// number, depending on the question type. It marshals as the bare JSON value
// so stored documents stay self-describing.
type AnswerValue struct {
	Kind    AnswerKind
	Text    string
	Choices []string
	Number  float64
}

// ErrInvalidAnswerValue rejects payload values outside the supported shapes.
var ErrInvalidAnswerValue = errors.New("answer value must be a string, string array or number")

func TextAnswer(s string) AnswerValue      { return AnswerValue{Kind: AnswerText, Text: s} }
func ChoicesAnswer(c []string) AnswerValue { return AnswerValue{Kind: AnswerChoices, Choices: c} }
func NumberAnswer(n float64) AnswerValue   { return AnswerValue{Kind: AnswerNumber, Number: n} }

func (v AnswerValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case AnswerChoices:
		if v.Choices == nil {
			return json.Marshal([]string{})
		}
		return json.Marshal(v.Choices)
	case AnswerNumber:
		return json.Marshal(v.Number)
	default:
		return json.Marshal(v.Text)
	}
}

func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = TextAnswer(s)
		return nil
	}
	var c []string
	if err := json.Unmarshal(data, &c); err == nil {
		*v = ChoicesAnswer(c)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*v = NumberAnswer(n)
		return nil
	}
	return ErrInvalidAnswerValue
}

// Question is one entry of the transformed question model. Not persisted;
// recomputed from the active survey document on every fetch.
type Question struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Text     string   `json:"text"`
	Required bool     `json:"required"`
	GroupID  string   `json:"groupId"`
	Options  []Option `json:"options,omitempty"`
	Min      int      `json:"min,omitempty"`
	Max      int      `json:"max,omitempty"`
	MinLabel string   `json:"minLabel,omitempty"`
	MaxLabel string   `json:"maxLabel,omitempty"`
}

// Option is a (value, label) pair for choice-bearing question types. Value is
// the 1-based position, distinct from the display label.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Website is one of the designs under evaluation.
type Website struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// QuestionModel is the full transformed survey consumed by the form renderer.
// DemographicQuestions and WebsiteQuestions partition Questions.
type QuestionModel struct {
	Websites             []Website  `json:"websites"`
	Questions            []Question `json:"questions"`
	DemographicQuestions []Question `json:"demographicQuestions"`
	WebsiteQuestions     []Question `json:"websiteQuestions"`
	RandomizeWebsites    bool       `json:"-"`
}

// ResponseSummary is the admin listing row for one stored record.
type ResponseSummary struct {
	ID           string    `json:"id"`
	StartTime    time.Time `json:"startTime"`
	AnswersCount int       `json:"answersCount"`
}

// SurveyStats aggregates all stored records.
type SurveyStats struct {
	TotalResponses            int     `json:"totalResponses"`
	TotalAnswers              int     `json:"totalAnswers"`
	AverageAnswersPerResponse float64 `json:"averageAnswersPerResponse"`
}
