package generation

import (
	"context"
	"io"
)

type mockChatModel struct {
	CompleteFn   func(ctx context.Context, req CompletionRequest) (string, error)
	StreamChatFn func(ctx context.Context, req CompletionRequest) (Stream, error)
	calls        []CompletionRequest
}

func (m *mockChatModel) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	m.calls = append(m.calls, req)
	return m.CompleteFn(ctx, req)
}

func (m *mockChatModel) StreamChat(ctx context.Context, req CompletionRequest) (Stream, error) {
	m.calls = append(m.calls, req)
	if m.StreamChatFn == nil {
		return nil, io.ErrUnexpectedEOF
	}
	return m.StreamChatFn(ctx, req)
}
