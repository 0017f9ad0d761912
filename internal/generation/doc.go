// Package generation holds the provider-neutral side of LLM work: the
// ChatModel boundary implemented by the Groq and Gemini adapters, the French
// prompt templates, rate-limit retries, JSON extraction from model answers,
// emoji annotation of markdown output and the StudyGenerator that turns text
// into summaries, flashcards and QCM quizzes.
package generation
