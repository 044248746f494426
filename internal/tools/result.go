package tools

import "encoding/json"

// ResultKind discriminates the variants a tool execution can produce.
type ResultKind string

const (
	KindImage      ResultKind = "image"
	KindMessage    ResultKind = "message"
	KindError      ResultKind = "error"
	KindRawContent ResultKind = "raw_content"
	KindUnknown    ResultKind = "unknown"
)

// ImageResult carries the output of an image-style tool.
type ImageResult struct {
	GeneratedImageURL string `json:"generatedImageUrl"`
	Message           string `json:"message"`
}

// Result is the tagged union of tool outcomes. Exactly one payload field is
// populated, selected by Kind.
type Result struct {
	Kind    ResultKind      `json:"kind"`
	Image   *ImageResult    `json:"image,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
	Raw     json.RawMessage `json:"raw,omitempty"`
}

// ImageOf wraps an image payload.
func ImageOf(url, message string) Result {
	return Result{Kind: KindImage, Image: &ImageResult{GeneratedImageURL: url, Message: message}}
}

// MessageOf wraps a plain acknowledgement.
func MessageOf(message string) Result {
	return Result{Kind: KindMessage, Message: message}
}

// ErrorOf wraps a structured failure surfaced inside an otherwise
// successful chat turn.
func ErrorOf(message string) Result {
	return Result{Kind: KindError, Error: message}
}

// RawOf wraps backend output that did not match any known shape.
func RawOf(raw json.RawMessage) Result {
	if len(raw) == 0 {
		return Result{Kind: KindUnknown}
	}
	return Result{Kind: KindRawContent, Raw: raw}
}

// Call records one tool invocation attached to an assistant message.
type Call struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	Result    *Result        `json:"result,omitempty"`
}
