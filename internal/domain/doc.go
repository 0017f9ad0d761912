// Package domain contains the core business entities of Nextudy: users and
// their activation tokens, tutoring conversations, background generation
// tasks, generated study content (summaries, flashcards, QCM), uploaded
// documents, planner todos and billing subscriptions.
//
// Entities are plain structs with constructors and Validate methods. They
// carry no persistence or transport concerns.
package domain
