// Package llm holds the provider-agnostic chat message types that flow
// through the generation interceptor.
package llm

import "encoding/json"

// Role names used by chat hosts.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single message in a conversation.
// Content is stored as an array of ContentBlocks to support multimodal content
// in a provider-agnostic way.
type Message struct {
	Role    string         `json:"role"`    // "system", "user", "assistant"
	Name    string         `json:"name,omitempty"`
	Content []ContentBlock `json:"content"` // Array of content blocks
}

// ContentBlock represents a single piece of content within a message.
// The Type field determines which other fields are populated.
type ContentBlock struct {
	Type string `json:"type"` // "text", "image"

	// Text content (type="text")
	Text string `json:"text,omitempty"`

	// Image content (type="image")
	ImageURL  string `json:"image_url,omitempty"`
	MediaType string `json:"media_type,omitempty"`
}

// UnmarshalJSON accepts content either as an array of blocks or as a plain
// string, which hosts commonly send.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role    string          `json:"role"`
		Name    string          `json:"name,omitempty"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	m.Role = raw.Role
	m.Name = raw.Name
	m.Content = nil

	if len(raw.Content) == 0 || string(raw.Content) == "null" {
		return nil
	}

	var text string
	if err := json.Unmarshal(raw.Content, &text); err == nil {
		m.Content = []ContentBlock{{Type: "text", Text: text}}
		return nil
	}

	return json.Unmarshal(raw.Content, &m.Content)
}

// NewTextMessage creates a simple text message with the given role and content.
func NewTextMessage(role, text string) Message {
	return Message{
		Role: role,
		Content: []ContentBlock{
			{Type: "text", Text: text},
		},
	}
}

// GetText returns the concatenated text content from all text blocks in the message.
func (m *Message) GetText() string {
	var result string
	for _, block := range m.Content {
		if block.Type == "text" {
			result += block.Text
		}
	}
	return result
}

// CloneMessages returns a deep copy of msgs.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}

	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m
		out[i].Content = append([]ContentBlock(nil), m.Content...)
	}
	return out
}

// ErrorResponse is the JSON body returned by the HTTP bridge on failure.
type ErrorResponse struct {
	Error string `json:"error"`
}
