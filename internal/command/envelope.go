package command

import (
	"encoding/json"

	"recall/internal/recall"
)

// Request is one inbound command. Payload carries the JSON body of create and
// update commands; Args carries the scalar arguments of the others.
type Request struct {
	ID      string          `json:"id,omitempty"`
	Command string          `json:"command"`
	Token   string          `json:"token,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Args    Args            `json:"args,omitempty"`
}

// Args are the named scalar arguments a command may take.
type Args struct {
	ID        string  `json:"id,omitempty"`
	AreaID    *string `json:"area_id,omitempty"`
	ProjectID *string `json:"project_id,omitempty"`
	NewStatus string  `json:"new_status,omitempty"`
	StartTime *int64  `json:"start_time,omitempty"`
	EndTime   *int64  `json:"end_time,omitempty"`
}

// Envelope is the response body: {"success": bool, "message"?: string}
// merged with the payload fields, such as "area" or "token" and "user".
type Envelope struct {
	Success bool
	Message string
	Fields  map[string]any
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(e.Fields)+2)
	for k, v := range e.Fields {
		m[k] = v
	}
	m["success"] = e.Success
	if e.Message != "" {
		m["message"] = e.Message
	}
	return json.Marshal(m)
}

// UnmarshalJSON reverses MarshalJSON for clients reading responses.
func (e *Envelope) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	e.Success, _ = m["success"].(bool)
	e.Message, _ = m["message"].(string)
	delete(m, "success")
	delete(m, "message")
	e.Fields = nil
	if len(m) > 0 {
		e.Fields = m
	}
	return nil
}

func ok(key string, value any) Envelope {
	return Envelope{Success: true, Fields: map[string]any{key: value}}
}

func done(message string) Envelope {
	return Envelope{Success: true, Message: message}
}

func rejected(err error) Envelope {
	return Envelope{Success: false, Message: recall.PublicMessage(err)}
}

// Response pairs an envelope with the request it answers. Error is set
// instead of Result when the command failed hard.
type Response struct {
	ID     string    `json:"id"`
	Result *Envelope `json:"result,omitempty"`
	Error  string    `json:"error,omitempty"`
}
