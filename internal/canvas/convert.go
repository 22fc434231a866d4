// ABOUTME: Batch-level conversion policy: freeform UI payloads become structured operations.
// ABOUTME: Structured input passes through unchanged; create-surface wrappers and bare components are extracted.

package canvas

import (
	"encoding/json"
	"log/slog"
	"strings"
)

// Field aliases accepted on create-surface wrappers. The freeform format is
// agent-authored, so several spellings of each concept appear in practice;
// resolution lives here rather than scattered duck-typing at use sites.
var (
	surfaceIDKeys       = []string{"surfaceId", "surface_id", "canvasId", "surface", "id"}
	componentListKeys   = []string{"components", "items"}
	singleComponentKeys = []string{"component", "root", "content"}
	createSurfaceTags   = []string{"createsurface", "create-surface", "create_surface"}
	metaTags            = []string{"page", "header", "title"}
	titleTextKeys       = []string{"text", "title", "label", "heading"}
)

// batchClass classifies one top-level payload object.
type batchClass int

const (
	classStructured batchClass = iota
	classCreateSurface
	classMeta
	classFreeform
)

// Converter turns freeform UI payload batches into structured operations.
// It is stateless between calls; the id counter is scoped to one Convert
// call, so a single Converter is safe for concurrent use.
type Converter struct {
	logger *slog.Logger
}

// NewConverter creates a converter. Pass nil logger for default.
func NewConverter(logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{logger: logger.With("component", "canvas")}
}

// Convert accepts one batch of freeform payload objects and returns the
// flat structured-operation sequence for the rendering sink. Conversion
// never fails; unrecognized shapes are dropped and logged.
func (c *Converter) Convert(batch []map[string]any) []Op {
	if len(batch) == 0 {
		return nil
	}

	allStructured := true
	anyStructuredOrWrapper := false
	for _, obj := range batch {
		switch classify(obj) {
		case classStructured:
			anyStructuredOrWrapper = true
		case classCreateSurface:
			allStructured = false
			anyStructuredOrWrapper = true
		default:
			allStructured = false
		}
	}

	// Already-structured batches pass through unchanged.
	if allStructured {
		ops := make([]Op, 0, len(batch))
		for _, obj := range batch {
			if op, ok := c.parseStructured(obj); ok {
				ops = append(ops, op)
			}
		}
		return ops
	}

	// Mixed structured operations and create-surface wrappers: convert each
	// independently and concatenate in order.
	if anyStructuredOrWrapper {
		var ops []Op
		for _, obj := range batch {
			switch classify(obj) {
			case classStructured:
				if op, ok := c.parseStructured(obj); ok {
					ops = append(ops, op)
				}
			case classCreateSurface:
				ops = append(ops, c.convertCreateSurface(obj)...)
			default:
				c.logger.Debug("dropping unrecognized object in mixed batch")
			}
		}
		return ops
	}

	// All bare freeform components.
	return c.convertFreeform(batch)
}

// convertFreeform extracts every non-meta object as its own subtree, wraps
// title and roots into one synthetic Column, and emits exactly one
// surface-update plus one begin-rendering against the default surface.
func (c *Converter) convertFreeform(batch []map[string]any) []Op {
	ext := &extractor{}

	var title string
	var rootIDs []any
	for _, obj := range batch {
		if classify(obj) == classMeta {
			if text := firstString(obj, titleTextKeys...); text != "" {
				title = text // last one wins
			}
			continue
		}
		rootIDs = append(rootIDs, ext.extract(obj, ""))
	}

	children := make([]any, 0, len(rootIDs)+1)
	if title != "" {
		children = append(children, ext.emitText(title))
	}
	children = append(children, rootIDs...)

	rootID := ext.emitComponent("Column", map[string]any{"children": children})

	return []Op{
		{Op: OpSurfaceUpdate, SurfaceID: DefaultSurfaceID, Components: ext.components},
		{Op: OpBeginRendering, SurfaceID: DefaultSurfaceID, Root: rootID},
	}
}

// convertCreateSurface resolves the wrapper's surface id and component list
// through the alias tables and emits one surface-update + begin-rendering
// pair. Unrecognized wrapper shapes produce no operations.
func (c *Converter) convertCreateSurface(obj map[string]any) []Op {
	surfaceID := DefaultSurfaceID
	for _, key := range surfaceIDKeys {
		if s, ok := obj[key].(string); ok && s != "" {
			surfaceID = s
			break
		}
	}

	components, ok := resolveComponentList(obj)
	if !ok {
		c.logger.Debug("dropping create-surface wrapper with unrecognized shape",
			"surface_id", surfaceID)
		return nil
	}

	ext := &extractor{}
	var rootIDs []any
	for _, rawComp := range components {
		comp, isMap := rawComp.(map[string]any)
		if !isMap {
			continue
		}
		rootIDs = append(rootIDs, ext.extract(comp, ""))
	}
	if len(rootIDs) == 0 {
		c.logger.Debug("dropping create-surface wrapper with no components",
			"surface_id", surfaceID)
		return nil
	}

	var rootID string
	if len(rootIDs) == 1 {
		rootID = rootIDs[0].(string)
	} else {
		rootID = ext.emitComponent("Column", map[string]any{"children": rootIDs})
	}

	return []Op{
		{Op: OpSurfaceUpdate, SurfaceID: surfaceID, Components: ext.components},
		{Op: OpBeginRendering, SurfaceID: surfaceID, Root: rootID},
	}
}

// resolveComponentList accepts the explicit array, the nested
// surface-scoped array, or a single component under one of its aliases.
func resolveComponentList(obj map[string]any) ([]any, bool) {
	for _, key := range componentListKeys {
		if list, ok := obj[key].([]any); ok {
			return list, true
		}
	}

	if nested, ok := obj["surface"].(map[string]any); ok {
		for _, key := range componentListKeys {
			if list, ok := nested[key].([]any); ok {
				return list, true
			}
		}
	}

	for _, key := range singleComponentKeys {
		if comp, ok := obj[key].(map[string]any); ok {
			return []any{comp}, true
		}
	}

	return nil, false
}

// parseStructured round-trips an already-structured operation object into
// an Op, preserving it unchanged.
func (c *Converter) parseStructured(obj map[string]any) (Op, bool) {
	data, err := json.Marshal(obj)
	if err != nil {
		c.logger.Debug("dropping unmarshalable structured op", "error", err)
		return Op{}, false
	}
	var op Op
	if err := json.Unmarshal(data, &op); err != nil {
		c.logger.Debug("dropping malformed structured op", "error", err)
		return Op{}, false
	}
	return op, true
}

// classify decides how one top-level object participates in the batch.
func classify(obj map[string]any) batchClass {
	if kind, ok := obj["op"].(string); ok {
		if isStructuredOp(kind) {
			return classStructured
		}
		if matchesTag(kind, createSurfaceTags) {
			return classCreateSurface
		}
	}

	if typeName, ok := obj["type"].(string); ok {
		if matchesTag(typeName, createSurfaceTags) {
			return classCreateSurface
		}
		if matchesTag(typeName, metaTags) {
			return classMeta
		}
	}

	// A wrapper can also be recognized structurally: a component list plus
	// an explicit surface id.
	if _, hasComponents := obj["components"]; hasComponents {
		if _, hasSurface := obj["surfaceId"]; hasSurface {
			return classCreateSurface
		}
	}

	return classFreeform
}

func matchesTag(value string, tags []string) bool {
	lower := strings.ToLower(strings.TrimSpace(value))
	for _, tag := range tags {
		if lower == tag {
			return true
		}
	}
	return false
}
