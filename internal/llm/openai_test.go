package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockOpenAIClient 模拟 OpenAI 客户端
type mockOpenAIClient struct {
	mock.Mock
}

func (m *mockOpenAIClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(openai.ChatCompletionResponse), args.Error(1)
}

func chatResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
		},
	}
}

func TestOpenAIGenerate_Text(t *testing.T) {
	mockClient := new(mockOpenAIClient)
	mockClient.On("CreateChatCompletion", mock.Anything, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		if req.Model != "gemini-2.5-flash" || len(req.Messages) != 1 {
			return false
		}
		parts := req.Messages[0].MultiContent
		return len(parts) == 2 &&
			parts[0].Text == "hello" &&
			parts[1].Text == SummaryPrompt &&
			req.ResponseFormat != nil &&
			req.ResponseFormat.Type == openai.ChatCompletionResponseFormatTypeJSONObject &&
			req.Temperature == float32(0.2) &&
			req.TopP == float32(0.9)
	})).Return(chatResponse("```json\n{\"summary_bullets\":[]}\n```"), nil)

	c := &OpenAIClient{config: testLLMConfig(), openaiClient: mockClient}
	got, err := c.Generate(context.Background(), Request{Model: "gemini-2.5-flash", Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, `{"summary_bullets":[]}`, StripCodeFence(got))
	mockClient.AssertExpectations(t)
}

func TestOpenAIGenerate_ImageAsDataURL(t *testing.T) {
	mockClient := new(mockOpenAIClient)
	mockClient.On("CreateChatCompletion", mock.Anything, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		part := req.Messages[0].MultiContent[0]
		return part.Type == openai.ChatMessagePartTypeImageURL &&
			part.ImageURL != nil &&
			strings.HasPrefix(part.ImageURL.URL, "data:image/png;base64,")
	})).Return(chatResponse(`{"summary_bullets":[]}`), nil)

	c := &OpenAIClient{config: testLLMConfig(), openaiClient: mockClient}
	_, err := c.Generate(context.Background(), Request{Model: "m", Data: []byte{0x89, 'P', 'N', 'G'}, MIMEType: "image/png"})
	require.NoError(t, err)
	mockClient.AssertExpectations(t)
}

func TestOpenAIGenerate_PDFUnsupported(t *testing.T) {
	mockClient := new(mockOpenAIClient)

	c := &OpenAIClient{config: testLLMConfig(), openaiClient: mockClient}
	_, err := c.Generate(context.Background(), Request{Model: "m", Data: []byte("%PDF"), MIMEType: "application/pdf"})
	assert.ErrorIs(t, err, ErrUnsupportedMedia)
	mockClient.AssertNotCalled(t, "CreateChatCompletion", mock.Anything, mock.Anything)
}

func TestOpenAIGenerate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		resp    openai.ChatCompletionResponse
		err     error
		wantErr error
	}{
		{"API 错误", openai.ChatCompletionResponse{}, errors.New("401 unauthorized"), nil},
		{"无 choices", openai.ChatCompletionResponse{}, nil, ErrEmptyResponse},
		{"空内容", chatResponse("   "), nil, ErrEmptyResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockClient := new(mockOpenAIClient)
			mockClient.On("CreateChatCompletion", mock.Anything, mock.Anything).Return(tt.resp, tt.err)

			c := &OpenAIClient{config: testLLMConfig(), openaiClient: mockClient}
			_, err := c.Generate(context.Background(), Request{Model: "m", Text: "x"})
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
