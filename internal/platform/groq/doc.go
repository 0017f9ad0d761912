// Package groq adapts the Groq OpenAI-compatible API to the generation
// package: chat completions, streaming chat, Whisper transcription and vision.
// It uses the go-openai client pointed at the Groq base URL.
package groq
