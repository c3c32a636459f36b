package toolcalls

import "testing"

func TestAssemblerEmpty(t *testing.T) {
	var a Assembler
	if calls := a.ToolCalls(); calls != nil {
		t.Errorf("ToolCalls() = %v, want nil", calls)
	}
	if fc := a.FunctionCall(); fc != nil {
		t.Errorf("FunctionCall() = %v, want nil", fc)
	}
}

func TestAssemblerFragmentsAndOrder(t *testing.T) {
	var a Assembler
	a.AddFragment(Fragment{Index: 1, ID: "call_2", Name: "Address", Arguments: `{"city":"Oslo"}`})
	a.AddFragment(Fragment{Index: 0, ID: "call_1", Name: "User"})
	a.AddFragment(Fragment{Index: 0, Arguments: `{"name":`})
	a.AddFragment(Fragment{Index: 0, Arguments: `"Ada"}`})

	calls := a.ToolCalls()
	if len(calls) != 2 {
		t.Fatalf("len(calls) = %d, want 2", len(calls))
	}
	if calls[0].ID != "call_1" || calls[0].Name != "User" || string(calls[0].Arguments) != `{"name":"Ada"}` {
		t.Errorf("calls[0] = %+v", calls[0])
	}
	if calls[1].ID != "call_2" || calls[1].Name != "Address" {
		t.Errorf("calls[1] = %+v", calls[1])
	}
}

func TestAssemblerKeepsInvalidArguments(t *testing.T) {
	var a Assembler
	a.AddFragment(Fragment{Index: 0, Name: "User", Arguments: `{"name": "Ad`})

	calls := a.ToolCalls()
	if len(calls) != 1 || string(calls[0].Arguments) != `{"name": "Ad` {
		t.Errorf("ToolCalls() = %+v, want truncated arguments kept", calls)
	}
}

func TestAssemblerFunction(t *testing.T) {
	var a Assembler
	a.AddFunction("User", "")
	a.AddFunction("", `{"age":`)
	a.AddFunction("", `30}`)

	fc := a.FunctionCall()
	if fc == nil || fc.Name != "User" || string(fc.Arguments) != `{"age":30}` {
		t.Errorf("FunctionCall() = %+v", fc)
	}
}
