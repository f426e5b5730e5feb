package gemini

import "encoding/json"

// GenerateContentRequest is the request body for both generateContent and
// streamGenerateContent actions.
type GenerateContentRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction"`
	GenerationConfig  *GenerationConfig `json:"generationConfig"`
	Tools             []ToolDeclaration `json:"tools"`
	ToolConfig        json.RawMessage   `json:"toolConfig"`
}

// Content is one conversation turn made of parts.
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// Part is one element of a turn: text, a function call, or a function
// response.
type Part struct {
	Text             *string         `json:"text"`
	FunctionCall     json.RawMessage `json:"functionCall"`
	FunctionResponse json.RawMessage `json:"functionResponse"`
}

// GenerationConfig carries sampling and length settings.
type GenerationConfig struct {
	MaxOutputTokens *int     `json:"maxOutputTokens"`
	Temperature     *float64 `json:"temperature"`
	TopP            *float64 `json:"topP"`
	StopSequences   []string `json:"stopSequences"`
}

// ToolDeclaration groups the function declarations of one tool.
type ToolDeclaration struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations"`
}

// FunctionDeclaration describes one callable function.
type FunctionDeclaration struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// GenerateContentResponse is the non-streaming response envelope.
type GenerateContentResponse struct {
	Candidates    []Candidate   `json:"candidates"`
	UsageMetadata UsageMetadata `json:"usageMetadata"`
	ModelVersion  string        `json:"modelVersion"`
}

// Candidate is one generated alternative; the mock always emits exactly one.
type Candidate struct {
	Content      ResponseContent `json:"content"`
	FinishReason string          `json:"finishReason,omitempty"`
	Index        int             `json:"index"`
}

// ResponseContent is the model turn inside a candidate.
type ResponseContent struct {
	Parts []ResponsePart `json:"parts"`
	Role  string         `json:"role"`
}

// ResponsePart is one output part: text or a structured function call.
type ResponsePart struct {
	Text         *string       `json:"text,omitempty"`
	FunctionCall *FunctionCall `json:"functionCall,omitempty"`
}

// FunctionCall carries the invoked function name and its arguments.
type FunctionCall struct {
	Name string            `json:"name"`
	Args map[string]string `json:"args"`
}

// UsageMetadata is the token accounting block.
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}
