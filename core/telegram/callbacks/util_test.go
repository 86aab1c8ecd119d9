package callbacks

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestParseCallbackData(t *testing.T) {
	tests := []struct {
		data    string
		unique  string
		payload string
	}{
		{"\fmgr_del|12|2", "mgr_del", "12|2"},
		{"\fgen_len|16", "gen_len", "16"},
		{"\fback_main", "back_main", ""},
		{"hist_page|3", "hist_page", "3"},
	}
	for _, tt := range tests {
		unique, payload := ParseCallbackData(&tele.Callback{Data: tt.data})
		if unique != tt.unique || payload != tt.payload {
			t.Errorf("ParseCallbackData(%q) = (%q, %q), want (%q, %q)",
				tt.data, unique, payload, tt.unique, tt.payload)
		}
	}
}

// Telebot splits the \f encoding before generic OnCallback dispatch: the
// unique moves into cb.Unique and cb.Data becomes the bare payload. The
// payload must come back intact in both wire forms, even when it contains
// the separator itself.
func TestPayloadFrom(t *testing.T) {
	tests := []struct {
		name string
		cb   *tele.Callback
		want string
	}{
		{"nil", nil, ""},
		{"split by telebot", &tele.Callback{Unique: "gen_len", Data: "16"}, "16"},
		{"split with separator inside", &tele.Callback{Unique: "mgr_del", Data: "12|2"}, "12|2"},
		{"raw encoding", &tele.Callback{Data: "\fgen_len|16"}, "16"},
		{"raw without payload", &tele.Callback{Data: "\fback_main"}, ""},
	}
	for _, tt := range tests {
		if got := PayloadFrom(tt.cb); got != tt.want {
			t.Errorf("%s: PayloadFrom = %q, want %q", tt.name, got, tt.want)
		}
	}
}
