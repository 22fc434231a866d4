// Package transcript maintains the conversation record for a session.
// It consumes canonical events as the router's conversation sink, folds
// in history replayed after a reconnect without duplicating what was
// already seen live, and exports the result as HTML.
package transcript
