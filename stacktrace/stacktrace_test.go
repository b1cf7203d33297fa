// ABOUTME: Tests for the stack trace tokenizer
// ABOUTME: Validates V8 and JSC frame grammars and the unknown fallback

package stacktrace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseV8Line(t *testing.T, frame string) string {
	t.Helper()
	s := Parse("Error\n" + frame)
	require.Equal(t, V8, s.VM)
	require.Len(t, s.Frames, 1)
	return s.Frames[0]
}

func TestV8Frames(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  string
	}{
		{
			name:  "constructor",
			frame: "    at new someFunction (somefile:12:34)",
			want:  "new someFunction",
		},
		{
			name:  "anonymous constructor",
			frame: "    at new <anonymous> (somefile:12:34)",
			want:  "new <anonymous>",
		},
		{
			name:  "method call",
			frame: "    at [object Object].function (somefile:12:34)",
			want:  "[object Object].function",
		},
		{
			name:  "method call with alias",
			frame: "    at [object Object].function [as method] (somefile:12:34)",
			want:  "[object Object].function [as method]",
		},
		{
			name:  "anonymous method",
			frame: "    at [object Object].<anonymous> (somefile:12:34)",
			want:  "[object Object].<anonymous>",
		},
		{
			name:  "plain function",
			frame: "    at function (somefile:12:34)",
			want:  "function",
		},
		{
			name:  "bare file location",
			frame: "    at somefile:12:34",
			want:  "somefile:12:34",
		},
		{
			name:  "eval",
			frame: "    at eval (native)",
			want:  "eval",
		},
		{
			name:  "nested eval",
			frame: "    at eval at <anonymous> (eval at <anonymous> (unkown source))",
			want:  "eval at <anonymous>",
		},
		{
			name:  "empty line",
			frame: "",
			want:  "*",
		},
		{
			name:  "garbage",
			frame: "random characters",
			want:  "*",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseV8Line(t, tt.frame))
		})
	}
}

func parseJSCLine(t *testing.T, frame string) string {
	t.Helper()
	s := Parse("--> Stack trace:\n" + frame)
	require.Equal(t, JSC, s.VM)
	require.Len(t, s.Frames, 1)
	return s.Frames[0]
}

func TestJSCFrames(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  string
	}{
		{
			name:  "function with file",
			frame: "    23   function@somefile:123",
			want:  "function",
		},
		{
			name:  "function with native code",
			frame: "    23   function@[native code]",
			want:  "function",
		},
		{
			name:  "nameless frame",
			frame: "    23   @somefile:123",
			want:  "*",
		},
		{
			name:  "global code",
			frame: "    7   global code@somefile:123",
			want:  "global code",
		},
		{
			name:  "eval code with file",
			frame: "    7   eval code@somefile:123",
			want:  "eval code",
		},
		{
			name:  "eval code without file",
			frame: "     7   eval code",
			want:  "eval code",
		},
		{
			name:  "empty line",
			frame: "",
			want:  "*",
		},
		{
			name:  "garbage",
			frame: "random characters",
			want:  "*",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseJSCLine(t, tt.frame))
		})
	}
}

func TestJSCStack(t *testing.T) {
	trace := "--> Stack trace:\n" +
		"    0   frame@somefile:42\n" +
		"    1    @eval code\n" +
		"    2   map@[native code]"

	s := Parse(trace)
	assert.Equal(t, JSC, s.VM)
	assert.Equal(t, []string{"frame", "*", "map"}, s.Frames)
}

func TestV8Stack(t *testing.T) {
	trace := "Error\n" +
		"    at frame (some file:42:1)\n" +
		"    at eval at <anonymous>\n" +
		"    at [object Object].function (unknown source)"

	s := Parse(trace)
	assert.Equal(t, V8, s.VM)
	assert.Equal(t, []string{"frame", "eval at <anonymous>", "[object Object].function"}, s.Frames)
}

func TestUnknownStack(t *testing.T) {
	raw := "some data\nacross a\nfew lines"
	s := Parse(raw)
	assert.Equal(t, Unknown, s.VM)
	assert.Equal(t, []string{"some data", "across a", "few lines"}, s.Frames)
}

func TestEmptyInput(t *testing.T) {
	s := Parse("")
	assert.Equal(t, Unknown, s.VM)
	assert.Empty(t, s.Frames)
}

func TestVMString(t *testing.T) {
	assert.Equal(t, "v8", V8.String())
	assert.Equal(t, "jsc", JSC.String())
	assert.Equal(t, "unknown", Unknown.String())
}
