// ABOUTME: Structured operation and component types consumed by the rendering sink.
// ABOUTME: Exactly four operation kinds exist downstream; nothing else ever reaches the renderer.

package canvas

// Operation kinds.
const (
	OpSurfaceUpdate   = "surfaceUpdate"
	OpBeginRendering  = "beginRendering"
	OpDataModelUpdate = "dataModelUpdate"
	OpDeleteSurface   = "deleteSurface"
)

// DefaultSurfaceID is the surface targeted when a freeform batch names none.
const DefaultSurfaceID = "default"

// Op is one structured update primitive. Fields beyond Op/SurfaceID are
// populated per kind: Components for surfaceUpdate, Root for
// beginRendering, Path/Contents for dataModelUpdate.
type Op struct {
	Op         string      `json:"op"`
	SurfaceID  string      `json:"surfaceId,omitempty"`
	Components []Component `json:"components,omitempty"`
	Root       string      `json:"root,omitempty"`
	Path       string      `json:"path,omitempty"`
	Contents   any         `json:"contents,omitempty"`
}

// Component is one node of the renderable component graph. Props values are
// wrapped scalars (literalString / literalNumber / literalBoolean maps) or
// nested structured references passed through unwrapped. Child components
// are referenced by id under the "children" prop; ids are unique within a
// conversion batch and every referenced child exists in the same batch.
type Component struct {
	ID    string         `json:"id"`
	Type  string         `json:"type"`
	Props map[string]any `json:"props,omitempty"`
}

// isStructuredOp reports whether the value names one of the four kinds.
func isStructuredOp(kind string) bool {
	switch kind {
	case OpSurfaceUpdate, OpBeginRendering, OpDataModelUpdate, OpDeleteSurface:
		return true
	}
	return false
}
