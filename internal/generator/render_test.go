package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextToHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Hello world", "Hello world"},
		{"newline", "a\nb", "a<br>b"},
		{"escaped newline", `a\nb`, "a<br>b"},
		{"crlf", "a\r\nb", "a<br>b"},
		{"strong", "**bold** and __also__", "<strong>bold</strong> and <strong>also</strong>"},
		{"em", "*it* and _it_", "<em>it</em> and <em>it</em>"},
		{"code", "run `make`", "run <code>make</code>"},
		{"escapes markup", "<b>x</b> & y", "&lt;b&gt;x&lt;/b&gt; &amp; y"},
		{"markup inside strong", "**<i>**", "<strong>&lt;i&gt;</strong>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TextToHTML(tt.in))
		})
	}
}

func TestStateTransitions(t *testing.T) {
	assert.True(t, StateIdle.CanTransition(StateModalOpen))
	assert.True(t, StateModalOpen.CanTransition(StateReceiving))
	assert.True(t, StateModalOpen.CanTransition(StateWaiting))
	assert.True(t, StateReceiving.CanTransition(StateFinalizing))
	assert.True(t, StateWaiting.CanTransition(StateRendered))
	assert.True(t, StateReceiving.CanTransition(StateClosed))
	assert.True(t, StateClosed.CanTransition(StateModalOpen))
	assert.True(t, StateFinalizing.CanTransition(StateModalOpen))
	assert.True(t, StateRendered.CanTransition(StateModalOpen))

	assert.False(t, StateIdle.CanTransition(StateReceiving))
	assert.False(t, StateWaiting.CanTransition(StateFinalizing))
	assert.False(t, StateRendered.CanTransition(StateReceiving))
	assert.False(t, StateReceiving.CanTransition(StateModalOpen))
	assert.False(t, StateWaiting.CanTransition(StateModalOpen))

	assert.Equal(t, "receiving", StateReceiving.String())
	assert.Equal(t, "State(42)", State(42).String())
}
