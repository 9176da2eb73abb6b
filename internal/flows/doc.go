// Package flows contains pure-function orchestrators for the Engine's
// login and token-exchange operations.
//
// Each flow function accepts a typed dependency struct and returns a result
// carrying a failure kind for root-level mapping; side effects happen only
// through the dependencies. This keeps the Engine type thin and the decision
// logic exhaustively unit-testable with fakes.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import authgate (to avoid import cycles).
//   - Perform I/O directly; all I/O is mediated through dependency fields.
package flows
