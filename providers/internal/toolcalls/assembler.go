// Package toolcalls assembles tool and legacy function calls from streamed
// fragments.
package toolcalls

import (
	"encoding/json"
	"strings"

	"github.com/petal-labs/instructor/core"
)

// Fragment is one streamed tool-call delta.
type Fragment struct {
	Index     int
	ID        string
	Name      string
	Arguments string
}

type call struct {
	id   string
	name string
	args strings.Builder
}

// Assembler accumulates fragments. Arguments are kept verbatim; whether
// they are valid JSON is for the caller to decide.
// The zero value is ready to use.
type Assembler struct {
	calls    map[int]*call
	order    []int
	function *call
}

// AddFragment applies a tool-call fragment, creating the call on first
// sight of its index.
func (a *Assembler) AddFragment(f Fragment) {
	if a.calls == nil {
		a.calls = make(map[int]*call)
	}
	c, ok := a.calls[f.Index]
	if !ok {
		c = &call{}
		a.calls[f.Index] = c
		a.order = append(a.order, f.Index)
	}
	c.merge(f.ID, f.Name, f.Arguments)
}

// AddFunction applies a legacy function_call fragment.
func (a *Assembler) AddFunction(name, arguments string) {
	if a.function == nil {
		a.function = &call{}
	}
	a.function.merge("", name, arguments)
}

func (c *call) merge(id, name, args string) {
	if id != "" {
		c.id = id
	}
	if name != "" {
		c.name = name
	}
	c.args.WriteString(args)
}

// ToolCalls returns the assembled calls sorted by index, or nil.
func (a *Assembler) ToolCalls() []core.ToolCall {
	if len(a.calls) == 0 {
		return nil
	}
	maxIndex := 0
	for _, idx := range a.order {
		maxIndex = max(maxIndex, idx)
	}
	out := make([]core.ToolCall, 0, len(a.calls))
	for i := 0; i <= maxIndex; i++ {
		c, ok := a.calls[i]
		if !ok {
			continue
		}
		out = append(out, core.ToolCall{
			ID:        c.id,
			Name:      c.name,
			Arguments: json.RawMessage(c.args.String()),
		})
	}
	return out
}

// FunctionCall returns the assembled legacy function call, or nil.
func (a *Assembler) FunctionCall() *core.FunctionCall {
	if a.function == nil {
		return nil
	}
	return &core.FunctionCall{
		Name:      a.function.name,
		Arguments: json.RawMessage(a.function.args.String()),
	}
}
