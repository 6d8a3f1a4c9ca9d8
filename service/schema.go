package service

import (
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"google.golang.org/genai"
)

// analysisSchemaJSON is the shape the reasoning model must return. The same
// shape is requested from the model (analysisResponseSchema) and re-checked
// here before unmarshalling, so a malformed payload never becomes a partial
// AnalysisResult.
const analysisSchemaJSON = `{
  "type": "object",
  "required": ["summary", "documentType"],
  "properties": {
    "rawText": {"type": "string"},
    "summary": {"type": "string"},
    "documentType": {"type": "string"},
    "parties": {"type": "array", "items": {"type": "string"}},
    "dates": {"type": "array", "items": {"type": "string"}},
    "missingRequirements": {"type": "array", "items": {"type": "string"}},
    "riskFactors": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["severity", "description"],
        "properties": {
          "severity": {"type": "string", "enum": ["LOW", "MEDIUM", "HIGH"]},
          "description": {"type": "string"},
          "location": {"type": "string"}
        }
      }
    }
  }
}`

var analysisSchema = jsonschema.MustCompileString("analysis.schema.json", analysisSchemaJSON)

func validateAnalysisPayload(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	return analysisSchema.Validate(v)
}

// analysisResponseSchema is the request-side schema sent to the model so it
// is constrained to the expected JSON shape.
func analysisResponseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"rawText":      {Type: genai.TypeString},
			"summary":      {Type: genai.TypeString},
			"documentType": {Type: genai.TypeString},
			"parties": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
			"dates": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
			"missingRequirements": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
			"riskFactors": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"severity":    {Type: genai.TypeString, Enum: []string{"LOW", "MEDIUM", "HIGH"}},
						"description": {Type: genai.TypeString},
						"location":    {Type: genai.TypeString},
					},
					Required: []string{"severity", "description"},
				},
			},
		},
		Required: []string{"summary", "documentType"},
	}
}
