// Package canvas converts agent-authored freeform UI descriptions into the
// strict operation sequence the rendering sink understands.
//
// # Overview
//
// Agents describe UI loosely: field-name aliases, composite widget types,
// unwrapped scalar props, inline child objects. The renderer accepts none
// of that — it consumes exactly four structured operations
// (surfaceUpdate, beginRendering, dataModelUpdate, deleteSurface) over
// component graphs with wrapped props and explicit child-id references.
//
// # Conversion
//
// Convert classifies each top-level object of a batch, then applies one of
// three policies: already-structured batches pass through idempotently;
// batches mixing structured operations with create-surface wrappers are
// converted object by object; batches of bare components are extracted
// into a single synthetic Column on the default surface.
//
// Composite widget types with no renderer equivalent (tables, progress
// bars, code blocks) decompose into text/divider/stack primitives during
// extraction. Component ids are allocated from a counter scoped to one
// Convert call, keeping a shared Converter safe for concurrent use.
package canvas
