package goopenai

import (
	"context"
	"errors"
	"io"

	"github.com/petal-labs/instructor/core"
	"github.com/petal-labs/instructor/providers/internal/toolcalls"
)

// StreamChat sends a streaming request.
func (t *Transport) StreamChat(ctx context.Context, req *core.ChatRequest) (*core.ChatStream, error) {
	stream, err := t.client.CreateChatCompletionStream(ctx, buildRequest(req, true))
	if err != nil {
		return nil, mapError(err)
	}

	chunkCh := make(chan core.ChatChunk)
	errCh := make(chan error, 1)
	finalCh := make(chan *core.ChatResponse, 1)

	go func() {
		defer stream.Close()
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

		var (
			asm   toolcalls.Assembler
			final core.ChatResponse
		)
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				if ctx.Err() != nil {
					err = ctx.Err()
				}
				errCh <- mapError(err)
				return
			}

			if resp.ID != "" {
				final.ID = resp.ID
			}
			if resp.Model != "" {
				final.Model = core.ModelID(resp.Model)
			}
			if resp.Usage != nil {
				final.Usage = mapUsage(*resp.Usage)
			}
			for _, choice := range resp.Choices {
				if choice.Index != 0 {
					continue
				}
				if choice.FinishReason != "" {
					final.FinishReason = string(choice.FinishReason)
				}
				if choice.Delta.Content != "" && !send(core.ChatChunk{Delta: choice.Delta.Content}) {
					return
				}
				for _, tc := range choice.Delta.ToolCalls {
					idx := 0
					if tc.Index != nil {
						idx = *tc.Index
					}
					asm.AddFragment(toolcalls.Fragment{Index: idx, ID: tc.ID, Name: tc.Function.Name, Arguments: tc.Function.Arguments})
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
		}

		final.ToolCalls = asm.ToolCalls()
		final.FunctionCall = asm.FunctionCall()
		finalCh <- &final
	}()

	return &core.ChatStream{Ch: chunkCh, Err: errCh, Final: finalCh}, nil
}
