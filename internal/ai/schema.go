package ai

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"google.golang.org/genai"
)

// FieldKind is the JSON type of a contract field
type FieldKind string

const (
	KindString     FieldKind = "string"
	KindNumber     FieldKind = "number"
	KindStringList FieldKind = "array"
	KindObject     FieldKind = "object"
)

// Field describes one property of the analysis contract.
// Every field is required; Min and Max bound numbers.
type Field struct {
	Name        string
	Kind        FieldKind
	Description string
	Min         *float64
	Max         *float64
	Fields      []Field
}

func bound(v float64) *float64 { return &v }

func scoreDetail(name, scoreDescription, detailsDescription string) Field {
	return Field{
		Name: name,
		Kind: KindObject,
		Fields: []Field{
			{Name: "score", Kind: KindNumber, Description: scoreDescription, Min: bound(0), Max: bound(100)},
			{Name: "details", Kind: KindString, Description: detailsDescription},
		},
	}
}

// AnalysisContract is the single source for both the structured-output schema sent with a
// request and the validation applied to the reply. Field order is the order the model is asked to emit.
var AnalysisContract = []Field{
	{Name: "careerOverview", Kind: KindString,
		Description: "A brutal, 2-sentence summary of the career's current state."},
	{Name: "shortTermUpside", Kind: KindString,
		Description: "What is good about this right now? (Salary, demand, prestige)."},
	{Name: "longTermRisks", Kind: KindStringList,
		Description: "List of 3-4 specific existential threats (AI, offshoring, saturation)."},
	scoreDetail("automationExposure",
		"0 to 100 probability of AI/Robot replacement within 10 years.",
		"Why is it exposed or safe?"),
	scoreDetail("burnoutProbability",
		"0 to 100 probability of severe burnout.",
		"Stress factors impacting this role."),
	{Name: "survivalScore", Kind: KindNumber,
		Description: "Overall rating 0.0 to 10.0. 0 is dead, 10 is future-proof.",
		Min:         bound(0), Max: bound(10)},
	{Name: "survivalScoreExplanation", Kind: KindString,
		Description: "Final verdict logic."},
}

func fieldNames(fields []Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// GenaiSchema renders the contract as a Gemini response schema
func GenaiSchema() *genai.Schema {
	return genaiObject(AnalysisContract, "")
}

func genaiObject(fields []Field, description string) *genai.Schema {
	properties := make(map[string]*genai.Schema, len(fields))
	for _, f := range fields {
		properties[f.Name] = genaiField(f)
	}
	return &genai.Schema{
		Type:             genai.TypeObject,
		Description:      description,
		Properties:       properties,
		Required:         fieldNames(fields),
		PropertyOrdering: fieldNames(fields),
	}
}

func genaiField(f Field) *genai.Schema {
	switch f.Kind {
	case KindObject:
		return genaiObject(f.Fields, f.Description)
	case KindStringList:
		return &genai.Schema{
			Type:        genai.TypeArray,
			Description: f.Description,
			Items:       &genai.Schema{Type: genai.TypeString},
		}
	case KindNumber:
		return &genai.Schema{Type: genai.TypeNumber, Description: f.Description}
	default:
		return &genai.Schema{Type: genai.TypeString, Description: f.Description}
	}
}

// JSONSchema renders the contract as a JSON Schema document.
// With bounds set, numeric ranges become minimum/maximum keywords; without them the
// ranges only live in the descriptions, which is what structured-output endpoints accept.
func JSONSchema(bounds bool) map[string]any {
	schema := jsonObject(AnalysisContract, "", bounds)
	schema["$schema"] = "http://json-schema.org/draft-07/schema#"
	schema["title"] = "CareerAnalysis"
	return schema
}

func jsonObject(fields []Field, description string, bounds bool) map[string]any {
	properties := make(map[string]any, len(fields))
	for _, f := range fields {
		properties[f.Name] = jsonField(f, bounds)
	}
	obj := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             fieldNames(fields),
		"additionalProperties": false,
	}
	if description != "" {
		obj["description"] = description
	}
	return obj
}

func jsonField(f Field, bounds bool) map[string]any {
	switch f.Kind {
	case KindObject:
		return jsonObject(f.Fields, f.Description, bounds)
	case KindStringList:
		return map[string]any{
			"type":        "array",
			"description": f.Description,
			"items":       map[string]any{"type": "string"},
		}
	case KindNumber:
		prop := map[string]any{"type": "number", "description": f.Description}
		if bounds && f.Min != nil {
			prop["minimum"] = *f.Min
		}
		if bounds && f.Max != nil {
			prop["maximum"] = *f.Max
		}
		return prop
	default:
		return map[string]any{"type": "string", "description": f.Description}
	}
}

// SchemaDocument returns the validation schema as indented JSON
func SchemaDocument() (string, error) {
	data, err := json.MarshalIndent(JSONSchema(true), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal analysis schema: %w", err)
	}
	return string(data), nil
}

// ViolationError lists every way a reply broke the analysis contract
type ViolationError struct {
	Violations []Violation
}

// Violation is a single contract failure at a field path
type Violation struct {
	Field   string
	Message string
}

func (e *ViolationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = fmt.Sprintf("%s: %s", v.Field, v.Message)
	}
	return "analysis contract violated: " + strings.Join(parts, "; ")
}

var (
	compiledOnce   sync.Once
	compiledSchema *gojsonschema.Schema
	compileErr     error
)

func analysisSchema() (*gojsonschema.Schema, error) {
	compiledOnce.Do(func() {
		compiledSchema, compileErr = gojsonschema.NewSchema(gojsonschema.NewGoLoader(JSONSchema(true)))
	})
	return compiledSchema, compileErr
}

// ValidateAnalysisJSON checks a JSON document against the analysis contract.
// It returns a *ViolationError when the document parses but does not conform.
func ValidateAnalysisJSON(document string) error {
	schema, err := analysisSchema()
	if err != nil {
		return fmt.Errorf("failed to compile analysis schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewStringLoader(document))
	if err != nil {
		return fmt.Errorf("failed to validate analysis document: %w", err)
	}
	if result.Valid() {
		return nil
	}

	violations := make([]Violation, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		violations = append(violations, Violation{Field: re.Field(), Message: re.Description()})
	}
	return &ViolationError{Violations: violations}
}
