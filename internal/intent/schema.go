// Package intent implements C4: turning free text into a strict-schema
// Intent JSON object via a cloud or edge LLM backend, with schema
// enforcement and fallback to Clarify.
package intent

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/eldercare/triage-core/internal/domain"
	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
)

// Errors surfaced by ParseIntent; the orchestrator treats all of them as
// equivalent to a Clarify (§4.4 "Fallback mode").
var (
	ErrNoJSONObject  = errors.New("intent: no JSON object found in response")
	ErrSchemaInvalid = errors.New("intent: response failed schema validation")
	ErrDisallowedTag = errors.New("intent: intent tag not in the allowed set")
)

// allowedTags is the closed enum of wire intent tags (§6 "Intent JSON schema").
var allowedTags = map[string]bool{
	domain.IntentSmartHome:        true,
	domain.IntentCallEmergency:    true,
	domain.IntentSocialChat:       true,
	domain.IntentAssistMove:       true,
	domain.IntentLockUnlock:       true,
	domain.IntentAskClarification: true,
}

// intentSchemaJSON is deliberately permissive on a per-tag basis: it only
// pins down that "intent" is present and one of the closed enum values,
// leaving per-tag required fields to ParseIntent's own checks (a nested
// oneOf keyed by a sibling field is awkward to express and re-verify in
// jsonschema terms, so the coarse enum check plus Go-side field checks
// divide the work the way the schema and the orchestrator divide it in
// §4.4/§4.5).
const intentSchemaJSON = `{
  "type": "object",
  "required": ["intent"],
  "properties": {
    "intent": {
      "type": "string",
      "enum": ["smart.home", "call.emergency", "social.chat", "assist.move", "lock.unlock", "ask.clarification"]
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(intentSchemaJSON)

// ExtractJSONObject scans s for the first '{' and walks a brace-depth
// counter to find its match, returning the enclosed substring. Ported from
// the Python json_only() reference implementation this contract was
// distilled from.
func ExtractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// ParseIntent extracts the first JSON object from raw, validates it against
// the Intent schema, and decodes it. An intent tag outside the allowed set
// is coerced to Unknown and returned alongside ErrDisallowedTag, per §4.4
// "surfaced as a parse failure to the orchestrator."
func ParseIntent(raw string) (domain.Intent, error) {
	obj, ok := ExtractJSONObject(raw)
	if !ok {
		return domain.Intent{}, ErrNoJSONObject
	}

	// The tag is checked before schema validation, since the schema's enum
	// would otherwise reject a disallowed tag as a plain schema failure.
	if tag := gjson.Get(obj, "intent"); tag.Type == gjson.String && !allowedTags[tag.String()] {
		return domain.Intent{Tag: domain.IntentUnknown}, ErrDisallowedTag
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewStringLoader(obj))
	if err != nil || !result.Valid() {
		return domain.Intent{}, ErrSchemaInvalid
	}

	var i domain.Intent
	if err := json.Unmarshal([]byte(obj), &i); err != nil {
		return domain.Intent{}, ErrSchemaInvalid
	}
	return i, nil
}
