package openai

import (
	"fmt"
	"strings"
)

const extractionResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "entities": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "text": {
            "type": "string"
          },
          "label": {
            "type": "string"
          },
          "confidence": {
            "type": "number",
            "minimum": 0,
            "maximum": 1
          }
        },
        "required": ["text", "label"],
        "additionalProperties": false
      }
    }
  },
  "required": ["entities"],
  "additionalProperties": false
}`

const extractionPromptTemplate = `Extract every named entity from the given text and return them as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- "text" must be copied verbatim from the input, character for character.
- "label" must be one of: %s.
- Report each distinct entity once even if it occurs multiple times.
- Set "confidence" to your certainty that the label is correct, between 0 and 1.
- Return {"entities": []} when the text contains no entities.`

// buildSystemPrompt renders the extraction instructions for the configured
// label set.
func buildSystemPrompt(labels []string) string {
	return fmt.Sprintf(extractionPromptTemplate, extractionResponseSchema, strings.Join(labels, ", "))
}
