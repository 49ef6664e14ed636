package agent

import "testing"

func TestExtractReply(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"assistant_response", `{"assistant_response":"direct answer"}`, "direct answer"},
		{"reply field", `{"reply":"short answer"}`, "short answer"},
		{"text field", `{"text":"plain text"}`, "plain text"},
		{"message field", `{"message":"a message"}`, "a message"},
		{
			"assistant_response wins over reply",
			`{"assistant_response":"primary","reply":"secondary"}`,
			"primary",
		},
		{
			"last assistant message",
			`{"messages":[{"role":"user","content":"q"},{"role":"assistant","content":"first"},{"role":"assistant","content":"last"}]}`,
			"last",
		},
		{
			"assistant message text field",
			`{"messages":[{"role":"assistant","text":"via text"}]}`,
			"via text",
		},
		{
			"skips non-assistant trailing messages",
			`{"messages":[{"role":"assistant","content":"answer"},{"role":"user","content":"thanks"}]}`,
			"answer",
		},
		{"trims whitespace", `{"reply":"  padded  "}`, "padded"},
		{"whitespace-only field falls through", `{"reply":"   ","text":"real"}`, "real"},
		{"empty body", `{}`, ""},
		{"malformed json", `{"reply":`, ""},
		{"messages without assistant", `{"messages":[{"role":"user","content":"q"}]}`, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := extractReply([]byte(tc.body)); got != tc.want {
				t.Fatalf("extractReply() = %q, want %q", got, tc.want)
			}
		})
	}
}
