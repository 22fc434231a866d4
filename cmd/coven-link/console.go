// ABOUTME: Colorized console sinks for canonical events and structured render ops.
// ABOUTME: Implements the router's conversation, editor, and rendering sink interfaces.

package main

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/fatih/color"

	"github.com/2389/coven-link/internal/canvas"
	"github.com/2389/coven-link/internal/events"
)

// console renders the event stream for an interactive terminal. Token
// fragments print inline; everything else gets its own line.
type console struct {
	mu        sync.Mutex
	streaming bool
}

func newConsole() *console {
	return &console{}
}

// PostEvent implements the conversation sink.
func (c *console) PostEvent(evt *events.Canonical) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch evt.Kind {
	case events.KindText:
		fmt.Print(evt.Text)
		c.streaming = true

	case events.KindToolInvoke:
		c.breakLine()
		color.New(color.FgYellow).Printf("⚙ %s", evt.ToolInvoke.Name)
		if evt.ToolInvoke.InputJSON != "" {
			color.New(color.FgHiBlack).Printf(" %s", evt.ToolInvoke.InputJSON)
		}
		fmt.Println()

	case events.KindToolResult:
		c.breakLine()
		if evt.ToolResult.IsError {
			color.New(color.FgRed).Printf("✗ %s\n", evt.ToolResult.Output)
		} else {
			color.New(color.FgHiBlack).Printf("→ %s\n", evt.ToolResult.Output)
		}

	case events.KindDone:
		c.breakLine()
		switch evt.Reason {
		case events.ReasonNormal:
		case events.ReasonAborted:
			color.New(color.FgYellow).Println("(aborted)")
		default:
			color.New(color.FgRed).Printf("(failed: %s)\n", evt.Reason)
		}
	}
}

// ShowDiff implements the editor sink.
func (c *console) ShowDiff(original, modified, title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.breakLine()

	if title == "" {
		title = "(untitled)"
	}
	color.New(color.FgCyan, color.Bold).Printf("── %s ──\n", title)
	if original == "" {
		color.New(color.FgGreen).Println(modified)
		return
	}
	color.New(color.FgRed).Println("- " + original)
	color.New(color.FgGreen).Println("+ " + modified)
}

// PostStructuredOperations implements the rendering sink.
func (c *console) PostStructuredOperations(ops []canvas.Op) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.breakLine()

	for _, op := range ops {
		color.New(color.FgMagenta).Printf("◇ %s", op.Op)
		if op.SurfaceID != "" {
			color.New(color.FgHiBlack).Printf(" surface=%s", op.SurfaceID)
		}
		fmt.Println()
		for _, comp := range op.Components {
			data, err := json.Marshal(comp.Props)
			if err != nil {
				continue
			}
			color.New(color.FgHiBlack).Printf("  %s %s %s\n", comp.ID, comp.Type, data)
		}
	}
}

func (c *console) showState(state string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.breakLine()
	color.New(color.FgHiBlack).Printf("· %s\n", state)
}

// breakLine terminates an in-progress token stream line. Must hold mu.
func (c *console) breakLine() {
	if c.streaming {
		fmt.Println()
		c.streaming = false
	}
}
