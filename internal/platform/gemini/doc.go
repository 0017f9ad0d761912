// Package gemini implements generation.ChatModel on top of Google's Gemini
// API through the google.golang.org/genai SDK.
//
// System messages are sent as the request's system instruction and assistant
// turns use the Gemini "model" role. Streaming responses are exposed through
// the pull-based generation.Stream interface.
package gemini
