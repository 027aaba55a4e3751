// Package backend defines the provider-agnostic abstraction for the model
// endpoints participating in a deliberation run.
//
// Core goals:
//   - Keep the invocation surface minimal: ordered messages in, text out
//   - Stay transport independent so the engine never branches per vendor
//   - Facilitate lightweight mocking for tests (MockInvoker)
//
// Providers (e.g. OpenAI, Anthropic) implement the Invoker interface from
// this package so the engine remains decoupled from vendor SDKs.
package backend
