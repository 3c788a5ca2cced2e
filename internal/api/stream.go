package api

import (
	"encoding/json"
	"fmt"

	"github.com/okampo/ragline/internal/engine"
)

// Stream part type codes of the line-delimited wire protocol. Each line
// is "<code>:<payload>\n". The vocabulary is fixed; codes not produced
// by the current pipeline are reserved.
const (
	partText                    = "0"
	partFunctionCall            = "1"
	partData                    = "2"
	partError                   = "3"
	partAssistantMessage        = "4"
	partAssistantDataStreamPart = "5"
	partDataStreamPart          = "6"
	partMessageAnnotations      = "7"
)

// encodeEvent renders a progress event as one protocol line.
//
// Text events carry just the JSON-encoded delta string; data events
// carry a JSON single-element array holding the full event record.
// Unknown event types produce no line and ok is false.
func encodeEvent(ev engine.ProgressEvent) (line string, ok bool) {
	switch ev.Type {
	case engine.EventText:
		payload, err := json.Marshal(ev.Message)
		if err != nil {
			return "", false
		}
		return partText + ":" + string(payload) + "\n", true

	case engine.EventData:
		payload, err := json.Marshal([]engine.ProgressEvent{ev})
		if err != nil {
			return "", false
		}
		return partData + ":" + string(payload) + "\n", true

	default:
		return "", false
	}
}

// errorLine renders a run failure as an error-typed protocol line.
func errorLine(err error) string {
	payload, merr := json.Marshal(err.Error())
	if merr != nil {
		payload = []byte(`"internal error"`)
	}
	return partError + ":" + string(payload) + "\n"
}

// summaryLine renders the final token-usage summary. The payload is
// plain text, not JSON.
func summaryLine(inputTokens, outputTokens int) string {
	return fmt.Sprintf("%s:Input tokens: %d, output tokens: %d\n", partData, inputTokens, outputTokens)
}
