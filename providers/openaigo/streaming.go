package openaigo

import (
	"context"

	"github.com/openai/openai-go/v3"

	"github.com/petal-labs/instructor/core"
	"github.com/petal-labs/instructor/providers/internal/toolcalls"
)

// StreamChat sends a streaming request. HTTP errors surface on the first
// Next call, so they are reported before the stream is returned.
func (t *Transport) StreamChat(ctx context.Context, req *core.ChatRequest) (*core.ChatStream, error) {
	params, opts := buildParams(req)
	params.StreamOptions = openai.ChatCompletionStreamOptionsParam{IncludeUsage: openai.Bool(true)}

	stream := t.cli.Chat.Completions.NewStreaming(ctx, params, opts...)
	if !stream.Next() {
		if err := stream.Err(); err != nil {
			stream.Close()
			return nil, mapError(err)
		}
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
		// The first chunk was already read above.
		for more := true; more; more = stream.Next() {
			chunk := stream.Current()
			if chunk.ID != "" {
				final.ID = chunk.ID
			}
			if chunk.Model != "" {
				final.Model = core.ModelID(chunk.Model)
			}
			if chunk.JSON.Usage.Valid() {
				final.Usage = mapUsage(chunk.Usage)
			}
			for _, choice := range chunk.Choices {
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
					asm.AddFragment(toolcalls.Fragment{
						Index:     int(tc.Index),
						ID:        tc.ID,
						Name:      tc.Function.Name,
						Arguments: tc.Function.Arguments,
					})
					if tc.Function.Arguments != "" && !send(core.ChatChunk{ArgumentsDelta: tc.Function.Arguments}) {
						return
					}
				}
				if fc := choice.Delta.FunctionCall; fc.Name != "" || fc.Arguments != "" {
					asm.AddFunction(fc.Name, fc.Arguments)
					if fc.Arguments != "" && !send(core.ChatChunk{ArgumentsDelta: fc.Arguments}) {
						return
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			errCh <- mapError(err)
			return
		}

		final.ToolCalls = asm.ToolCalls()
		final.FunctionCall = asm.FunctionCall()
		finalCh <- &final
	}()

	return &core.ChatStream{Ch: chunkCh, Err: errCh, Final: finalCh}, nil
}
