// Package tokens estimates token usage for transports that do not report it.
package tokens

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

var (
	encOnce sync.Once
	enc     tokenizer.Codec
	encErr  error
)

// codec returns the o200k_base encoder, falling back to cl100k_base.
func codec() (tokenizer.Codec, error) {
	encOnce.Do(func() {
		enc, encErr = tokenizer.Get(tokenizer.O200kBase)
		if encErr != nil {
			enc, encErr = tokenizer.Get(tokenizer.Cl100kBase)
		}
	})
	return enc, encErr
}

// Count returns the number of BPE tokens in text. When no encoder is
// available it falls back to one token per four bytes.
func Count(text string) int {
	if text == "" {
		return 0
	}
	c, err := codec()
	if err != nil {
		return (len(text) + 3) / 4
	}
	ids, _, err := c.Encode(text)
	if err != nil {
		return (len(text) + 3) / 4
	}
	return len(ids)
}

// perMessage is the framing overhead of one chat message (role and
// separators) in the OpenAI accounting convention.
const perMessage = 4

// Message is the part of a chat message that counts toward the prompt.
type Message struct {
	Role    string
	Content string
	Name    string
}

// Prompt estimates the prompt tokens of a message list, including the
// three tokens that prime the assistant reply.
func Prompt(msgs []Message) int {
	n := 3
	for _, m := range msgs {
		n += perMessage + Count(m.Role) + Count(m.Content)
		if m.Name != "" {
			n += Count(m.Name) + 1
		}
	}
	return n
}
