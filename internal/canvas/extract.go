// ABOUTME: Recursive freeform-component extraction with per-type decompositions.
// ABOUTME: Tables, progress bars, and code blocks decompose into renderer primitives; everything else maps directly.

package canvas

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	columnJoiner = " │ "
	barWidth     = 20
	barFilled    = "█"
	barEmpty     = "░"
)

// columnLabelKeys resolve a table column's display label, in priority order.
var columnLabelKeys = []string{"label", "title", "header", "name", "key"}

// columnValueKeys resolve which row field a column reads, in priority order.
var columnValueKeys = []string{"key", "name", "label"}

// extractor holds the batch-scoped state of one conversion call: the flat
// component list being built and the monotonic id counter. A fresh extractor
// per Convert call keeps the converter reusable across concurrent callers.
type extractor struct {
	counter    int
	components []Component
}

// nextID allocates a batch-unique component id.
func (e *extractor) nextID() string {
	e.counter++
	return fmt.Sprintf("c%d", e.counter)
}

// extract converts one freeform node and its subtree, appending produced
// components depth-first (children before parent). Returns the subtree root id.
func (e *extractor) extract(node map[string]any, suppliedID string) string {
	id := suppliedID
	if id == "" {
		if own, ok := node["id"].(string); ok && own != "" {
			id = own
		} else {
			id = e.nextID()
		}
	}

	typeName, _ := node["type"].(string)
	typeName = strings.TrimSpace(typeName)
	if typeName == "" {
		typeName = "text"
	}

	switch strings.ToLower(typeName) {
	case "table":
		return e.extractTable(node, id)
	case "progress", "progressbar":
		return e.extractProgress(node, id)
	case "code", "codeblock", "code-block":
		return e.extractCode(node, id)
	default:
		return e.extractDirect(node, id, typeName)
	}
}

// extractDirect maps a node with a structured equivalent one-to-one:
// wrapped props, capitalized type, explicit child-id list.
func (e *extractor) extractDirect(node map[string]any, id, typeName string) string {
	var childIDs []any
	if rawChildren, ok := node["children"].([]any); ok {
		for _, rawChild := range rawChildren {
			child, ok := rawChild.(map[string]any)
			if !ok {
				continue
			}
			childIDs = append(childIDs, e.extract(child, ""))
		}
	}

	props := make(map[string]any)
	for key, value := range node {
		switch key {
		case "type", "id", "children":
			continue
		}
		props[key] = wrapValue(value)
	}
	if len(childIDs) > 0 {
		props["children"] = childIDs
	}

	e.components = append(e.components, Component{
		ID:    id,
		Type:  capitalize(typeName),
		Props: props,
	})
	return id
}

// extractTable decomposes a table into a header text line, a divider, one
// text line per row, and a Column wrapping them all as the subtree root.
func (e *extractor) extractTable(node map[string]any, id string) string {
	columns, _ := node["columns"].([]any)

	labels := make([]string, 0, len(columns))
	for _, rawCol := range columns {
		labels = append(labels, columnLabel(rawCol))
	}

	childIDs := []any{
		e.emitText(strings.Join(labels, columnJoiner)),
		e.emitComponent("Divider", nil),
	}

	rows, _ := node["rows"].([]any)
	for _, rawRow := range rows {
		childIDs = append(childIDs, e.emitText(renderRow(rawRow, columns)))
	}

	e.components = append(e.components, Component{
		ID:    id,
		Type:  "Column",
		Props: map[string]any{"children": childIDs},
	})
	return id
}

// extractProgress renders a progress bar as a single text component: the
// label (or "NN%") on one line, then a fixed-width bar of filled/empty
// glyphs rounded to the nearest 5%.
func (e *extractor) extractProgress(node map[string]any, id string) string {
	value := numberOf(node["value"])
	max := numberOf(node["max"])
	if max == 0 {
		max = 100
	}

	ratio := value / max
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	pct := int(math.Round(100 * ratio))

	label, _ := node["label"].(string)
	if label == "" {
		label = fmt.Sprintf("%d%%", pct)
	}

	// Bar resolution is one glyph per 5%.
	filled := int(math.Round(float64(pct) / 5))
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat(barFilled, filled) + strings.Repeat(barEmpty, barWidth-filled)

	e.components = append(e.components, Component{
		ID:    id,
		Type:  "Text",
		Props: map[string]any{"text": wrapValue(label + "\n" + bar)},
	})
	return id
}

// extractCode renders a code block as a single text component, prefixed by
// the filename when present, else the bracketed language, else bare.
func (e *extractor) extractCode(node map[string]any, id string) string {
	content := firstString(node, "code", "content", "text")

	var prefix string
	if filename := firstString(node, "filename", "file"); filename != "" {
		prefix = filename + "\n"
	} else if language, _ := node["language"].(string); language != "" {
		prefix = "[" + language + "]\n"
	}

	e.components = append(e.components, Component{
		ID:    id,
		Type:  "Text",
		Props: map[string]any{"text": wrapValue(prefix + content)},
	})
	return id
}

// emitText appends a Text component with a freshly allocated id.
func (e *extractor) emitText(text string) string {
	return e.emitComponent("Text", map[string]any{"text": wrapValue(text)})
}

// emitComponent appends a component with a freshly allocated id.
func (e *extractor) emitComponent(typeName string, props map[string]any) string {
	id := e.nextID()
	e.components = append(e.components, Component{ID: id, Type: typeName, Props: props})
	return id
}

// columnLabel resolves a column's display label from its aliases, falling
// back to stringifying the raw value.
func columnLabel(rawCol any) string {
	switch col := rawCol.(type) {
	case string:
		return col
	case map[string]any:
		for _, key := range columnLabelKeys {
			if label, ok := col[key].(string); ok && label != "" {
				return label
			}
		}
	}
	return stringify(rawCol)
}

// renderRow renders one table row: array rows join positionally, object
// rows are looked up by declared column keys, else raw object values.
func renderRow(rawRow any, columns []any) string {
	switch row := rawRow.(type) {
	case []any:
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = stringify(cell)
		}
		return strings.Join(cells, columnJoiner)

	case map[string]any:
		keys := declaredColumnKeys(columns)
		if len(keys) > 0 {
			cells := make([]string, len(keys))
			for i, key := range keys {
				cells[i] = stringify(row[key])
			}
			return strings.Join(cells, columnJoiner)
		}

		// No declared keys: emit values in sorted key order for stability.
		sortedKeys := make([]string, 0, len(row))
		for key := range row {
			sortedKeys = append(sortedKeys, key)
		}
		sort.Strings(sortedKeys)
		cells := make([]string, len(sortedKeys))
		for i, key := range sortedKeys {
			cells[i] = stringify(row[key])
		}
		return strings.Join(cells, columnJoiner)
	}

	return stringify(rawRow)
}

// declaredColumnKeys collects each column's row-lookup key, skipping
// columns that declare none.
func declaredColumnKeys(columns []any) []string {
	var keys []string
	for _, rawCol := range columns {
		col, ok := rawCol.(map[string]any)
		if !ok {
			continue
		}
		for _, alias := range columnValueKeys {
			if key, ok := col[alias].(string); ok && key != "" {
				keys = append(keys, key)
				break
			}
		}
	}
	return keys
}

// wrapValue wraps scalar leaf properties for the renderer. Non-scalar
// values pass through unwrapped as nested structured references.
func wrapValue(value any) any {
	switch v := value.(type) {
	case string:
		return map[string]any{"literalString": v}
	case float64:
		return map[string]any{"literalNumber": v}
	case int:
		return map[string]any{"literalNumber": float64(v)}
	case bool:
		return map[string]any{"literalBoolean": v}
	case nil:
		return map[string]any{"literalString": ""}
	default:
		return value
	}
}

// numberOf coerces JSON number representations to float64; anything else is 0.
func numberOf(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

// firstString returns the first non-empty string value among the keys.
func firstString(node map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := node[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// stringify renders an arbitrary cell value as display text. Integral
// floats lose their fraction so JSON numbers render naturally.
func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1e15 {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// capitalize upper-cases the first rune of a widget type name.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
