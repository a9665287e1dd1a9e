// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Interfaces
//
//   - RecordSource: Reads delimited export files into records
//   - RecordStore: Line-delimited record files between stages
//   - ChatCompleter: One chat-completion call against a named model
//   - DigestWriter: Serialises grouped records into documents
//   - Pacer: Bounds the request rate between records
//   - ConfigStore: Application configuration
//   - PromptStore: Prompt templates
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
