package services

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/koldby/designsurvey/internal/models"
)

// The survey document is Danish-format XML:
//
//	<spørgeskema>
//	  <spørgsmålsgruppe>
//	    <id>demografi</id>
//	    <tilfældigRækkefølge>false</tilfældigRækkefølge>
//	    <spørgsmål>
//	      <id>q1</id><type>Lickert</type><tekst>...</tekst>
//	      <obligatorisk>true</obligatorisk><niveauer>5</niveauer>
//	      <option>...</option>
//	    </spørgsmål>
//	  </spørgsmålsgruppe>
//	</spørgeskema>
//
// Optional or repeatable elements decode straight into slices, so the
// "single element or list" ambiguity of the source format is resolved at
// parse time.
type xmlQuestionnaire struct {
	XMLName xml.Name   `xml:"spørgeskema"`
	Groups  []xmlGroup `xml:"spørgsmålsgruppe"`
}

type xmlGroup struct {
	ID        string        `xml:"id"`
	Randomize string        `xml:"tilfældigRækkefølge"`
	Questions []xmlQuestion `xml:"spørgsmål"`
}

type xmlQuestion struct {
	ID       string   `xml:"id"`
	Type     string   `xml:"type"`
	Text     string   `xml:"tekst"`
	Required string   `xml:"obligatorisk"`
	Levels   string   `xml:"niveauer"`
	Options  []string `xml:"option"`
}

const questionnaireRoot = "spørgeskema"

// demographicGroupMarker classifies a group's questions as demographic.
const demographicGroupMarker = "demografi"

var likertLabels = map[int][]string{
	5: {"Meget uenig", "Uenig", "Hverken enig eller uenig", "Enig", "Meget enig"},
	6: {"Meget uenig", "Uenig", "Lidt uenig", "Lidt enig", "Enig", "Meget enig"},
}

// defaultWebsites is the fixed set of designs under evaluation. The XML
// supplies no website metadata in this version.
func defaultWebsites() []models.Website {
	return []models.Website{
		{ID: "1", URL: "/designs/website1.html", Name: "Hjemmeside Design 1", Description: "Første hjemmeside til evaluering"},
		{ID: "2", URL: "/designs/website2.html", Name: "Hjemmeside Design 2", Description: "Anden hjemmeside til evaluering"},
		{ID: "3", URL: "/designs/website3.html", Name: "Hjemmeside Design 3", Description: "Tredje hjemmeside til evaluering"},
	}
}

// ValidateSurveyXML checks well-formedness and the required document shape.
// It returns a *ValidationError describing the first failure, or nil.
func ValidateSurveyXML(data []byte) error {
	root, err := wellFormedRoot(data)
	if err != nil {
		return &ValidationError{Code: ValidationMalformed, Details: []string{"XML er ikke velformet"}}
	}
	if root != questionnaireRoot {
		return &ValidationError{Code: ValidationMissingRoot, Details: []string{`Manglende rod "spørgeskema" element`}}
	}
	doc, err := decodeQuestionnaire(data)
	if err != nil {
		return &ValidationError{Code: ValidationMalformed, Details: []string{"XML er ikke velformet"}}
	}
	if len(doc.Groups) == 0 {
		return &ValidationError{Code: ValidationMissingGroups, Details: []string{`Manglende "spørgsmålsgruppe" elementer`}}
	}
	for _, g := range doc.Groups {
		if len(g.Questions) == 0 {
			return &ValidationError{Code: ValidationGroupMissingQuestions, Details: []string{`Spørgsmålsgruppe mangler "spørgsmål" elementer`}}
		}
	}
	return nil
}

// wellFormedRoot scans the whole document for well-formedness and reports the
// name of the root element.
func wellFormedRoot(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	root := ""
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		if se, ok := tok.(xml.StartElement); ok && root == "" {
			root = se.Name.Local
		}
	}
	if root == "" {
		return "", io.ErrUnexpectedEOF
	}
	return root, nil
}

func decodeQuestionnaire(data []byte) (*xmlQuestionnaire, error) {
	var doc xmlQuestionnaire
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// TransformSurveyXML validates and transforms a survey document into the
// question model. The model is never partially applied: any validation
// failure returns before transformation starts.
func TransformSurveyXML(data []byte) (*models.QuestionModel, error) {
	if err := ValidateSurveyXML(data); err != nil {
		return nil, err
	}
	doc, err := decodeQuestionnaire(data)
	if err != nil {
		return nil, &ValidationError{Code: ValidationMalformed, Details: []string{"XML er ikke velformet"}}
	}

	var all []models.Question
	randomize := false
	for _, g := range doc.Groups {
		if strings.EqualFold(strings.TrimSpace(g.Randomize), "true") {
			randomize = true
		}
		for _, q := range g.Questions {
			all = append(all, transformQuestion(q, g.ID))
		}
	}

	var demographic, website []models.Question
	for _, q := range all {
		if strings.Contains(q.GroupID, demographicGroupMarker) {
			demographic = append(demographic, q)
		} else {
			website = append(website, q)
		}
	}

	return &models.QuestionModel{
		Websites:             defaultWebsites(),
		Questions:            all,
		DemographicQuestions: demographic,
		WebsiteQuestions:     website,
		RandomizeWebsites:    randomize,
	}, nil
}

func transformQuestion(q xmlQuestion, groupID string) models.Question {
	out := models.Question{
		ID:       q.ID,
		Text:     q.Text,
		Required: strings.EqualFold(strings.TrimSpace(q.Required), "true"),
		GroupID:  groupID,
	}

	levels := parseLevels(q.Levels)
	switch q.Type {
	case "tekst", "integer":
		out.Type = "text"
	case "dropdown":
		out.Type = "select"
	case "skala":
		out.Type = "scale"
		out.Min = 1
		out.Max = levels
		out.MinLabel = "1"
		out.MaxLabel = strings.TrimSpace(q.Levels)
		if out.MaxLabel == "" {
			out.MaxLabel = "5"
		}
	case "Lickert":
		out.Type = "radio"
	default:
		out.Type = "text"
	}

	if out.Type == "select" || out.Type == "radio" {
		out.Options = positionalOptions(q.Options)
		if q.Type == "Lickert" && len(q.Options) == 0 {
			// Synthesize the standard agreement labels. Level counts
			// without a predefined label set yield an empty option list.
			out.Options = positionalOptions(likertLabels[levels])
		}
	}
	return out
}

func parseLevels(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 5
	}
	return n
}

func positionalOptions(labels []string) []models.Option {
	opts := make([]models.Option, 0, len(labels))
	for i, label := range labels {
		opts = append(opts, models.Option{Value: strconv.Itoa(i + 1), Label: label})
	}
	return opts
}

// SurveyStore is the persistence surface for the single active survey
// document. ActiveSurvey returns (nil, nil) when none is installed.
type SurveyStore interface {
	InstallSurvey(data []byte) error
	ActiveSurvey() ([]byte, error)
}

// SurveyService manages the active survey document. Install replaces the
// document wholesale; there is no versioning.
type SurveyService struct {
	surveys SurveyStore
}

func NewSurveyService(surveys SurveyStore) *SurveyService {
	return &SurveyService{surveys: surveys}
}

// Install validates the document, then atomically replaces the active one.
// All sessions, including sessions already in progress, see the new document
// on their next questions fetch.
func (s *SurveyService) Install(data []byte) error {
	if err := ValidateSurveyXML(data); err != nil {
		return err
	}
	return s.surveys.InstallSurvey(data)
}

func (s *SurveyService) Active() ([]byte, error) {
	return s.surveys.ActiveSurvey()
}
