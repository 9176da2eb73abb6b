// Package httpapi is the HTTP adapter over the authgate engine. It owns
// routing, request decoding, the user-visible error messages, and the
// operator endpoints; all policy decisions stay in the engine.
//
// # What this package must NOT do
//
//   - Touch Redis or Postgres directly. Every effect goes through the
//     engine's public API.
//   - Leak token contents or password material into logs or responses.
//   - Invent failure semantics: each engine sentinel maps to exactly one
//     status code and message here.
package httpapi
