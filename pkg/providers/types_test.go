package providers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageContentMarshalText(t *testing.T) {
	msg := UserMessage("hello")
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"user","content":"hello"}`, string(data))
}

func TestMessageContentMarshalBlocks(t *testing.T) {
	msg := Message{
		Role:    RoleAssistant,
		Content: BlocksContent(TextBlock("hi"), ToolUseBlock("tu_1", "Read", json.RawMessage(`{"file_path":"x"}`))),
	}
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded Message
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Content.Blocks, 2)
	assert.Equal(t, BlockText, decoded.Content.Blocks[0].Type)
	assert.Equal(t, "Read", decoded.Content.Blocks[1].Name)
}

func TestMessageContentUnmarshalString(t *testing.T) {
	var c MessageContent
	require.NoError(t, json.Unmarshal([]byte(`"plain"`), &c))
	assert.Equal(t, "plain", c.Text)
	assert.Nil(t, c.Blocks)
}

func TestMessageContentUnmarshalRejectsOtherShapes(t *testing.T) {
	var c MessageContent
	assert.Error(t, json.Unmarshal([]byte(`{"not":"valid"}`), &c))
}

func TestToText(t *testing.T) {
	assert.Equal(t, "plain", TextContent("plain").ToText())

	c := BlocksContent(
		TextBlock("first"),
		ToolUseBlock("tu_1", "exec", nil),
		ThinkingBlock("silent"),
		TextBlock("second"),
	)
	assert.Equal(t, "first\nsecond", c.ToText())
}

func TestCompletionResponseAccessors(t *testing.T) {
	resp := &CompletionResponse{
		Content: []ContentBlock{
			TextBlock("a"),
			ToolUseBlock("tu_1", "Read", nil),
			TextBlock("b"),
			ToolUseBlock("tu_2", "Write", nil),
		},
	}

	assert.Equal(t, "a\nb", resp.TextContent())

	uses := resp.ToolUses()
	require.Len(t, uses, 2)
	assert.Equal(t, "tu_1", uses[0].ID)
	assert.Equal(t, "tu_2", uses[1].ID)
}

func TestContentBlockWireShape(t *testing.T) {
	block := ToolResultBlock("tu_1", "output", true)
	data, err := json.Marshal(block)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"tool_result","tool_use_id":"tu_1","content":"output","is_error":true}`, string(data))

	data, err = json.Marshal(ThinkingBlock("weighing options"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"thinking","thinking":"weighing options"}`, string(data))
}
