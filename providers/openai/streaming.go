package openai

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/petal-labs/instructor/core"
	"github.com/petal-labs/instructor/providers/internal/toolcalls"
)

func (p *OpenAI) doStreamChat(ctx context.Context, req *core.ChatRequest) (*core.ChatStream, error) {
	ctx, cancel := p.withTimeout(ctx)

	resp, err := p.post(ctx, buildRequest(req, true))
	if err != nil {
		cancel()
		return nil, err
	}

	chunkCh := make(chan core.ChatChunk)
	errCh := make(chan error, 1)
	finalCh := make(chan *core.ChatResponse, 1)

	go func() {
		defer cancel()
		p.processSSEStream(ctx, resp.Body, chunkCh, errCh, finalCh)
	}()

	return &core.ChatStream{Ch: chunkCh, Err: errCh, Final: finalCh}, nil
}

// processSSEStream reads data lines until [DONE] or EOF. Content deltas go
// out as Delta; tool and function argument fragments go out as
// ArgumentsDelta and are also assembled for the final response.
func (p *OpenAI) processSSEStream(
	ctx context.Context,
	body io.ReadCloser,
	chunkCh chan<- core.ChatChunk,
	errCh chan<- error,
	finalCh chan<- *core.ChatResponse,
) {
	defer body.Close()
	defer close(finalCh)
	defer close(errCh)
	defer close(chunkCh)

	send := func(c core.ChatChunk) bool {
		select {
		case chunkCh <- c:
			return true
		case <-ctx.Done():
			errCh <- ctx.Err()
			return false
		}
	}

	reader := bufio.NewReader(body)
	var (
		asm          toolcalls.Assembler
		final        core.ChatResponse
		finishReason string
	)

	for {
		if ctx.Err() != nil {
			errCh <- ctx.Err()
			return
		}

		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			errCh <- p.networkError(err)
			return
		}
		eof := err == io.EOF

		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data:") {
			if eof {
				break
			}
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			errCh <- p.decodeError(err)
			return
		}
		if chunk.ID != "" {
			final.ID = chunk.ID
		}
		if chunk.Model != "" {
			final.Model = core.ModelID(chunk.Model)
		}
		if chunk.Usage != nil {
			final.Usage = mapUsage(chunk.Usage)
		}

		for _, choice := range chunk.Choices {
			if choice.Index != 0 {
				continue
			}
			if choice.FinishReason != nil {
				finishReason = *choice.FinishReason
			}
			if choice.Delta.Content != "" && !send(core.ChatChunk{Delta: choice.Delta.Content}) {
				return
			}
			for _, tc := range choice.Delta.ToolCalls {
				asm.AddFragment(toolcalls.Fragment{
					Index:     tc.Index,
					ID:        tc.ID,
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				})
				if tc.Function.Arguments != "" && !send(core.ChatChunk{ArgumentsDelta: tc.Function.Arguments}) {
					return
				}
			}
			if fc := choice.Delta.FunctionCall; fc != nil {
				asm.AddFunction(fc.Name, fc.Arguments)
				if fc.Arguments != "" && !send(core.ChatChunk{ArgumentsDelta: fc.Arguments}) {
					return
				}
			}
		}

		if eof {
			break
		}
	}

	final.FinishReason = finishReason
	final.ToolCalls = asm.ToolCalls()
	final.FunctionCall = asm.FunctionCall()
	finalCh <- &final
}
