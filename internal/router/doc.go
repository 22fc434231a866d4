// Package router fans canonical events out to the embedding application's
// sinks with duplicate suppression.
//
// The gateway may redeliver or reorder push events around reconnects.
// Each router keeps a last-seen-sequence watermark and drops anything at
// or below it; events without a sequence number always pass. The dispatch
// table is fixed: conversation kinds go to the conversation sink, content
// diffs additionally to the editor sink, and UI descriptions are converted
// into structured operations for the rendering sink only.
package router
