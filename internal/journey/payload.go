package journey

import "encoding/json"

// Action payloads. Produced by the engine, parsed by the dispatcher.

type CadencePayload struct {
	Step        int    `json:"step"`
	TemplateKey string `json:"templateKey"`
}

type ReplyPayload struct {
	TemplateKey string `json:"templateKey"`
	Intent      string `json:"intent"`
}

type CallPayload struct {
	ScriptKey string `json:"scriptKey"`
	Step      int    `json:"step"`
}

type NotePayload struct {
	Text string `json:"text"`
}

type NotifyPayload struct {
	Text   string `json:"text"`
	Reason string `json:"reason,omitempty"`
}

type TaskPayload struct {
	Title      string   `json:"title"`
	Body       string   `json:"body"`
	Priority   string   `json:"priority"`
	DueInHours int      `json:"dueInHours"`
	Labels     []string `json:"labels,omitempty"`
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		// Payload types are plain structs of strings and ints; marshal
		// cannot fail for them.
		panic(err)
	}
	return string(b)
}
