package responses

import "encoding/json"

// ResponsesRequest is the request body for /v1/responses.
type ResponsesRequest struct {
	Model           string           `json:"model"`
	Input           Input            `json:"input"`
	Stream          bool             `json:"stream"`
	Instructions    *string          `json:"instructions"`
	MaxOutputTokens *int             `json:"max_output_tokens"`
	Temperature     *float64         `json:"temperature"`
	TopP            *float64         `json:"top_p"`
	Tools           []Tool           `json:"tools"`
	ToolChoice      json.RawMessage  `json:"tool_choice"`
	Store           *bool            `json:"store"`
	Reasoning       *ReasoningConfig `json:"reasoning"`
	Text            *TextConfig      `json:"text"`
}

// Input holds the two wire forms of the input field: a plain string or a
// message list.
type Input struct {
	Text     string
	Messages []InputMessage
	IsText   bool
}

// UnmarshalJSON accepts either a JSON string or an array of input messages.
func (in *Input) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		in.IsText = true
		return json.Unmarshal(data, &in.Text)
	}
	return json.Unmarshal(data, &in.Messages)
}

// InputMessage is one conversation turn.
type InputMessage struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
}

// MessageContent holds the two wire forms of a message body.
type MessageContent struct {
	Text   string
	Parts  []ContentPart
	IsText bool
}

// UnmarshalJSON accepts either a JSON string or an array of content parts.
func (m *MessageContent) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		m.IsText = true
		return json.Unmarshal(data, &m.Text)
	}
	return json.Unmarshal(data, &m.Parts)
}

// ContentPart is one typed element of a structured message body.
type ContentPart struct {
	Type string  `json:"type"`
	Text *string `json:"text"`
}

// Tool is a declared function the model may invoke.
type Tool struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ReasoningConfig selects the reasoning effort.
type ReasoningConfig struct {
	Effort *string `json:"effort"`
}

// TextConfig selects the output text format.
type TextConfig struct {
	Format    *TextFormat `json:"format"`
	Verbosity *string     `json:"verbosity"`
}

// TextFormat names the requested format type.
type TextFormat struct {
	Type string `json:"type"`
}

// ResponsesResponse is the non-streaming response envelope.
type ResponsesResponse struct {
	ID                 string          `json:"id"`
	Object             string          `json:"object"`
	CreatedAt          int64           `json:"created_at"`
	Status             string          `json:"status"`
	Background         bool            `json:"background"`
	Model              string          `json:"model"`
	Output             []OutputItem    `json:"output"`
	Usage              Usage           `json:"usage"`
	Billing            Billing         `json:"billing"`
	CompletedAt        int64           `json:"completed_at"`
	Error              json.RawMessage `json:"error"`
	IncompleteDetails  json.RawMessage `json:"incomplete_details"`
	Instructions       *string         `json:"instructions"`
	MaxOutputTokens    *int            `json:"max_output_tokens"`
	MaxToolCalls       *int            `json:"max_tool_calls"`
	ParallelToolCalls  bool            `json:"parallel_tool_calls"`
	PreviousResponseID *string         `json:"previous_response_id"`
	Reasoning          ReasoningOutput `json:"reasoning"`
	ServiceTier        string          `json:"service_tier"`
	Store              bool            `json:"store"`
	Temperature        float64         `json:"temperature"`
	Text               TextOutput      `json:"text"`
	ToolChoice         string          `json:"tool_choice"`
	Tools              []any           `json:"tools"`
	TopP               float64         `json:"top_p"`
	Truncation         string          `json:"truncation"`
	User               *string         `json:"user"`
	Metadata           map[string]any  `json:"metadata"`
}

// OutputItem is one element of the output list: an assistant message or a
// structured function call.
type OutputItem struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Status    string          `json:"status"`
	Content   []OutputContent `json:"content,omitempty"`
	Role      string          `json:"role,omitempty"`
	Name      string          `json:"name,omitempty"`
	Arguments string          `json:"arguments,omitempty"`
	CallID    string          `json:"call_id,omitempty"`
}

// OutputContent is one typed element of an output message.
type OutputContent struct {
	Type        string `json:"type"`
	Annotations []any  `json:"annotations"`
	Logprobs    []any  `json:"logprobs"`
	Text        string `json:"text"`
}

// Usage is the token accounting block.
type Usage struct {
	InputTokens         int                `json:"input_tokens"`
	InputTokensDetails  TokenDetails       `json:"input_tokens_details"`
	OutputTokens        int                `json:"output_tokens"`
	OutputTokensDetails OutputTokenDetails `json:"output_tokens_details"`
	TotalTokens         int                `json:"total_tokens"`
}

// TokenDetails carries input cache accounting, always zero for the mock.
type TokenDetails struct {
	CachedTokens int `json:"cached_tokens"`
}

// OutputTokenDetails carries reasoning accounting, always zero for the mock.
type OutputTokenDetails struct {
	ReasoningTokens int `json:"reasoning_tokens"`
}

// Billing names who pays for the request.
type Billing struct {
	Payer string `json:"payer"`
}

// ReasoningOutput echoes the requested reasoning effort.
type ReasoningOutput struct {
	Effort  *string `json:"effort"`
	Summary *string `json:"summary"`
}

// TextOutput echoes the output text format.
type TextOutput struct {
	Format    TextFormatOutput `json:"format"`
	Verbosity string           `json:"verbosity"`
}

// TextFormatOutput names the applied format type.
type TextFormatOutput struct {
	Type string `json:"type"`
}
