// Package task runs background work outside the HTTP request cycle.
// The TaskRunner owns a bounded in-memory queue and a fixed pool of workers;
// ChatGenerationTask streams a tutoring answer from the LLM into its
// generation_tasks row so clients can poll partial output. Rows left in the
// generating state by a previous process are failed on start, and a monitor
// fails rows that stay generating for too long.
package task
