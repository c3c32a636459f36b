// Package partialjson turns a growing prefix of a JSON document into the
// largest well-formed document it implies.
//
// Open strings are closed, incomplete keys, literals and trailing commas
// are dropped and open containers are closed:
//
//	{"name": "Ad        -> {"name": "Ad"}
//	{"tags": ["a", "b   -> {"tags": ["a", "b"]}
//	{"name": "Ada", "ag -> {"name": "Ada"}
//
// Text before the first '{' or '[' is skipped. Input after the root value
// closes is ignored; Write reports how much of its input was consumed so a
// caller can Reset and resume scanning when the closed root turns out to
// be prose such as "[see below]".
package partialjson

import (
	"encoding/json"
	"strings"
)

type state uint8

const (
	objKeyOrEnd state = iota
	objKey
	objColon
	objValue
	objAfterValue
	arrValueOrEnd
	arrAfterValue
)

type frame struct {
	state  state
	closer byte
	// commit is the length of out at the last point where every member of
	// this container was complete.
	commit int
}

// Parser consumes a JSON document incrementally. The zero value is ready
// to use. A Parser is not safe for concurrent use.
type Parser struct {
	out     []byte
	stack   []frame
	started bool
	done    bool

	inString    bool
	stringIsKey bool
	escape      bool
	unicode     int
	escStart    int

	inLiteral bool
	litStart  int
}

// Write feeds the next piece of the document and returns the number of
// bytes consumed. Fewer than len(s) bytes are consumed only when the root
// value closes inside s.
func (p *Parser) Write(s string) int {
	i := 0
	for ; i < len(s) && !p.done; i++ {
		p.step(s[i])
	}
	return i
}

// Reset discards everything written so far.
func (p *Parser) Reset() {
	*p = Parser{}
}

// Done reports whether the root value has been closed.
func (p *Parser) Done() bool {
	return p.done
}

// Snapshot returns the completed document for everything written so far.
// It returns false until the root container has been opened.
func (p *Parser) Snapshot() (string, bool) {
	if !p.started {
		return "", false
	}
	if p.done {
		return string(p.out), true
	}

	out := append([]byte(nil), p.out...)
	stack := append([]frame(nil), p.stack...)
	top := &stack[len(stack)-1]

	switch {
	case p.inString && p.stringIsKey:
		// Incomplete key: the member is dropped by the commit below.
	case p.inString:
		if p.escape {
			out = out[:len(out)-1]
		} else if p.unicode > 0 {
			out = out[:p.escStart]
		}
		out = append(out, '"')
		top.commit = len(out)
	case p.inLiteral:
		// Keep the longest valid prefix so "1." still reads as 1.
		for end := len(out); end > p.litStart; end-- {
			if json.Valid(out[p.litStart:end]) {
				out = out[:end]
				top.commit = end
				break
			}
		}
	}

	for i := len(stack) - 1; i >= 0; i-- {
		out = append(out[:stack[i].commit], stack[i].closer)
		if i > 0 {
			stack[i-1].commit = len(out)
		}
	}
	return string(out), true
}

// Complete returns the completed document for prefix.
func Complete(prefix string) (string, bool) {
	var p Parser
	p.Write(prefix)
	return p.Snapshot()
}

// Unmarshal completes prefix and decodes it into v. It returns false when
// nothing could be decoded yet.
func Unmarshal(prefix string, v any) bool {
	doc, ok := Complete(prefix)
	if !ok {
		return false
	}
	return json.NewDecoder(strings.NewReader(doc)).Decode(v) == nil
}

func (p *Parser) step(c byte) {
	if !p.started {
		if c != '{' && c != '[' {
			return
		}
		p.started = true
	}

	if p.inString {
		p.stringByte(c)
		return
	}

	if p.inLiteral {
		if isLiteralByte(c) {
			p.out = append(p.out, c)
			return
		}
		p.inLiteral = false
		p.valueDone()
	}

	if len(p.stack) == 0 {
		p.open(c)
		return
	}

	top := &p.stack[len(p.stack)-1]
	switch c {
	case ' ', '\t', '\n', '\r':
		p.out = append(p.out, c)
		return
	}

	switch top.state {
	case objKeyOrEnd:
		switch c {
		case '"':
			p.out = append(p.out, c)
			p.inString, p.stringIsKey = true, true
			top.state = objKey
		case '}':
			p.close()
		}
	case objColon:
		if c == ':' {
			p.out = append(p.out, c)
			top.state = objValue
		}
	case objValue, arrValueOrEnd:
		if c == ']' && top.state == arrValueOrEnd {
			p.close()
			return
		}
		p.value(c)
	case objAfterValue, arrAfterValue:
		switch c {
		case ',':
			p.out = append(p.out, c)
			if top.state == objAfterValue {
				top.state = objKeyOrEnd
			} else {
				top.state = arrValueOrEnd
			}
		case '}', ']':
			p.close()
		}
	}
}

func (p *Parser) open(c byte) {
	p.out = append(p.out, c)
	f := frame{state: objKeyOrEnd, closer: '}'}
	if c == '[' {
		f = frame{state: arrValueOrEnd, closer: ']'}
	}
	f.commit = len(p.out)
	p.stack = append(p.stack, f)
}

func (p *Parser) value(c byte) {
	switch {
	case c == '{' || c == '[':
		p.open(c)
	case c == '"':
		p.out = append(p.out, c)
		p.inString, p.stringIsKey = true, false
	case isLiteralByte(c):
		p.litStart = len(p.out)
		p.out = append(p.out, c)
		p.inLiteral = true
	}
}

func (p *Parser) stringByte(c byte) {
	p.out = append(p.out, c)
	switch {
	case p.unicode > 0:
		p.unicode--
	case p.escape:
		p.escape = false
		if c == 'u' {
			p.unicode = 4
		}
	case c == '\\':
		p.escape = true
		p.escStart = len(p.out) - 1
	case c == '"':
		p.inString = false
		if p.stringIsKey {
			p.stack[len(p.stack)-1].state = objColon
			return
		}
		p.valueDone()
	}
}

// valueDone marks the current member or element complete.
func (p *Parser) valueDone() {
	top := &p.stack[len(p.stack)-1]
	top.commit = len(p.out)
	if top.closer == '}' {
		top.state = objAfterValue
	} else {
		top.state = arrAfterValue
	}
}

func (p *Parser) close() {
	top := p.stack[len(p.stack)-1]
	p.out = append(p.out[:top.commit], top.closer)
	p.stack = p.stack[:len(p.stack)-1]
	if len(p.stack) == 0 {
		p.done = true
		return
	}
	p.valueDone()
}

func isLiteralByte(c byte) bool {
	switch {
	case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c == '-', c == '+', c == '.':
		return true
	}
	return false
}
