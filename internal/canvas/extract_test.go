// ABOUTME: Tests for recursive extraction, value wrapping, and composite decompositions.
// ABOUTME: Covers the table, progress, and code-block renderings plus direct component mapping.

package canvas

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textOf(t *testing.T, comp Component) string {
	t.Helper()
	wrapped, ok := comp.Props["text"].(map[string]any)
	require.True(t, ok, "component %s has no wrapped text prop", comp.ID)
	s, ok := wrapped["literalString"].(string)
	require.True(t, ok)
	return s
}

func extractOne(t *testing.T, node map[string]any) ([]Component, string) {
	t.Helper()
	ext := &extractor{}
	rootID := ext.extract(node, "")
	return ext.components, rootID
}

func TestExtract_TableDecomposition(t *testing.T) {
	components, rootID := extractOne(t, map[string]any{
		"type":    "table",
		"columns": []any{"A", "B"},
		"rows":    []any{[]any{"1", "2"}},
	})

	// Header text, divider, one row text, then the Column root — in order.
	require.Len(t, components, 4)
	assert.Equal(t, "Text", components[0].Type)
	assert.Equal(t, "A │ B", textOf(t, components[0]))
	assert.Equal(t, "Divider", components[1].Type)
	assert.Equal(t, "Text", components[2].Type)
	assert.Equal(t, "1 │ 2", textOf(t, components[2]))

	root := components[3]
	assert.Equal(t, rootID, root.ID)
	assert.Equal(t, "Column", root.Type)
	children := root.Props["children"].([]any)
	require.Len(t, children, 3)
	assert.Equal(t, components[0].ID, children[0])
	assert.Equal(t, components[1].ID, children[1])
	assert.Equal(t, components[2].ID, children[2])
}

func TestExtract_TableColumnLabelAliases(t *testing.T) {
	components, _ := extractOne(t, map[string]any{
		"type": "table",
		"columns": []any{
			map[string]any{"label": "Name"},
			map[string]any{"title": "Age"},
			map[string]any{"header": "City"},
			map[string]any{"name": "score"},
			map[string]any{"key": "id"},
			float64(7),
		},
	})

	assert.Equal(t, "Name │ Age │ City │ score │ id │ 7", textOf(t, components[0]))
}

func TestExtract_TableObjectRowsByDeclaredKeys(t *testing.T) {
	components, _ := extractOne(t, map[string]any{
		"type": "table",
		"columns": []any{
			map[string]any{"label": "Name", "key": "name"},
			map[string]any{"label": "Age", "key": "age"},
		},
		"rows": []any{
			map[string]any{"name": "Ada", "age": float64(36)},
		},
	})

	require.Len(t, components, 4)
	assert.Equal(t, "Ada │ 36", textOf(t, components[2]))
}

func TestExtract_TableObjectRowsRawValuesWhenNoKeys(t *testing.T) {
	components, _ := extractOne(t, map[string]any{
		"type":    "table",
		"columns": []any{"A", "B"},
		"rows": []any{
			map[string]any{"b": "two", "a": "one"},
		},
	})

	// No declared keys: values in sorted key order.
	assert.Equal(t, "one │ two", textOf(t, components[2]))
}

func TestExtract_ProgressFiftyPercent(t *testing.T) {
	components, rootID := extractOne(t, map[string]any{
		"type":  "progress",
		"value": float64(50),
		"max":   float64(100),
	})

	require.Len(t, components, 1)
	assert.Equal(t, rootID, components[0].ID)

	text := textOf(t, components[0])
	lines := strings.SplitN(text, "\n", 2)
	require.Len(t, lines, 2)
	assert.Equal(t, "50%", lines[0])
	assert.Equal(t, strings.Repeat(barFilled, 10)+strings.Repeat(barEmpty, 10), lines[1])
}

func TestExtract_ProgressClampsAndLabels(t *testing.T) {
	tests := []struct {
		name       string
		node       map[string]any
		wantLabel  string
		wantFilled int
	}{
		{"over max clamps", map[string]any{"type": "progress", "value": float64(150), "max": float64(100)}, "100%", 20},
		{"negative clamps", map[string]any{"type": "progress", "value": float64(-5), "max": float64(100)}, "0%", 0},
		{"custom label", map[string]any{"type": "progress", "value": float64(30), "max": float64(100), "label": "Uploading"}, "Uploading", 6},
		{"default max", map[string]any{"type": "progressbar", "value": float64(25)}, "25%", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			components, _ := extractOne(t, tt.node)
			require.Len(t, components, 1)

			lines := strings.SplitN(textOf(t, components[0]), "\n", 2)
			require.Len(t, lines, 2)
			assert.Equal(t, tt.wantLabel, lines[0])
			assert.Equal(t, strings.Count(lines[1], barFilled), tt.wantFilled)
		})
	}
}

func TestExtract_CodeBlockPrefixes(t *testing.T) {
	tests := []struct {
		name string
		node map[string]any
		want string
	}{
		{
			"filename wins",
			map[string]any{"type": "code", "filename": "main.go", "language": "go", "code": "package main"},
			"main.go\npackage main",
		},
		{
			"language fallback",
			map[string]any{"type": "codeblock", "language": "python", "code": "print(1)"},
			"[python]\nprint(1)",
		},
		{
			"bare content",
			map[string]any{"type": "code-block", "content": "x = 1"},
			"x = 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			components, _ := extractOne(t, tt.node)
			require.Len(t, components, 1)
			assert.Equal(t, "Text", components[0].Type)
			assert.Equal(t, tt.want, textOf(t, components[0]))
		})
	}
}

func TestExtract_DirectComponentWrapsScalars(t *testing.T) {
	components, _ := extractOne(t, map[string]any{
		"type":     "slider",
		"id":       "vol",
		"value":    float64(7),
		"enabled":  true,
		"label":    "Volume",
		"tooltip":  nil,
		"dataRef":  map[string]any{"path": "/settings/volume"},
		"children": []any{},
	})

	require.Len(t, components, 1)
	comp := components[0]
	assert.Equal(t, "vol", comp.ID)
	assert.Equal(t, "Slider", comp.Type)

	assert.Equal(t, map[string]any{"literalNumber": float64(7)}, comp.Props["value"])
	assert.Equal(t, map[string]any{"literalBoolean": true}, comp.Props["enabled"])
	assert.Equal(t, map[string]any{"literalString": "Volume"}, comp.Props["label"])
	assert.Equal(t, map[string]any{"literalString": ""}, comp.Props["tooltip"])
	// Non-scalar passes through unwrapped.
	assert.Equal(t, map[string]any{"path": "/settings/volume"}, comp.Props["dataRef"])
	// Empty children list produces no children prop.
	_, hasChildren := comp.Props["children"]
	assert.False(t, hasChildren)
}

func TestExtract_SuppliedIDBeatsOwnID(t *testing.T) {
	ext := &extractor{}
	rootID := ext.extract(map[string]any{"type": "text", "id": "own", "text": "x"}, "forced")
	assert.Equal(t, "forced", rootID)

	ext = &extractor{}
	rootID = ext.extract(map[string]any{"type": "text", "id": "own", "text": "x"}, "")
	assert.Equal(t, "own", rootID)

	ext = &extractor{}
	rootID = ext.extract(map[string]any{"type": "text", "text": "x"}, "")
	assert.Equal(t, "c1", rootID)
}

func TestExtract_CapitalizedTypeNames(t *testing.T) {
	for input, want := range map[string]string{
		"button":    "Button",
		"textField": "TextField",
		"row":       "Row",
	} {
		components, _ := extractOne(t, map[string]any{"type": input})
		assert.Equal(t, want, components[0].Type)
	}
}
