package logging

import (
	"log/slog"
	"strings"
	"testing"

	"mercator-hq/auditor/pkg/config"
)

func TestNewRedactor(t *testing.T) {
	tests := []struct {
		name   string
		custom []config.RedactPattern
		want   int
	}{
		{name: "defaults", want: len(defaultPatterns)},
		{
			name:   "custom appended",
			custom: []config.RedactPattern{{Name: "booking_ref", Pattern: `BK-\d{6}`, Replacement: "BK-***"}},
			want:   len(defaultPatterns) + 1,
		},
		{
			name:   "invalid custom skipped",
			custom: []config.RedactPattern{{Name: "bad", Pattern: "[unclosed", Replacement: "***"}},
			want:   len(defaultPatterns),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRedactor(tt.custom)
			if got := len(r.Patterns()); got != tt.want {
				t.Errorf("len(Patterns()) = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRedactor_RedactString(t *testing.T) {
	r := NewRedactor(nil)

	tests := []struct {
		name    string
		input   string
		leaked  string
		keepsIn string
	}{
		{name: "email", input: "Customer jane.doe+trip@example.co.uk asked", leaked: "jane.doe", keepsIn: "Customer"},
		{name: "card", input: "card 4111 1111 1111 1111 was charged", leaked: "4111 1111", keepsIn: "was charged"},
		{name: "phone", input: "call (415) 555-0100 later", leaked: "555-0100", keepsIn: "later"},
		{name: "bearer", input: "Authorization: Bearer abc.def.ghi", leaked: "abc.def.ghi", keepsIn: "Bearer ***"},
		{name: "openai key", input: "key sk-proj-abc123", leaked: "abc123", keepsIn: "key"},
		{name: "password", input: "password=hunter2", leaked: "hunter2", keepsIn: "password"},
		{name: "ipv4", input: "from 10.1.2.3", leaked: "10.1.2.3", keepsIn: "from"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := r.RedactString(tt.input)
			if strings.Contains(out, tt.leaked) {
				t.Errorf("RedactString(%q) = %q, still contains %q", tt.input, out, tt.leaked)
			}
			if !strings.Contains(out, tt.keepsIn) {
				t.Errorf("RedactString(%q) = %q, lost %q", tt.input, out, tt.keepsIn)
			}
		})
	}
}

func TestRedactor_KeepsAmounts(t *testing.T) {
	r := NewRedactor(nil)
	for _, s := range []string{"refund of $150.00", "charged 1,250 USD", "ticket 48213"} {
		if got := r.RedactString(s); got != s {
			t.Errorf("RedactString(%q) = %q, want unchanged", s, got)
		}
	}
}

func TestRedactor_NilSafe(t *testing.T) {
	var r *Redactor
	if got := r.RedactString("jane@example.com"); got != "jane@example.com" {
		t.Errorf("nil redactor changed input: %q", got)
	}
	args := []any{"k", "v"}
	if got := r.RedactArgs(args...); len(got) != 2 {
		t.Errorf("nil RedactArgs() = %v", got)
	}
}

func TestRedactor_RedactArgs(t *testing.T) {
	r := NewRedactor(nil)
	args := []any{"ticket_id", "48213", "api_token", "abcdefghijkl", "note", "mail jane@example.com", "count", 3}

	got := r.RedactArgs(args...)

	if got[1] != "48213" {
		t.Errorf("ticket_id = %v, want unchanged", got[1])
	}
	if got[3] != "abcd***" {
		t.Errorf("api_token = %v", got[3])
	}
	if strings.Contains(got[5].(string), "jane@example.com") {
		t.Errorf("note = %v", got[5])
	}
	if got[7] != 3 {
		t.Errorf("count = %v", got[7])
	}
	if args[3] != "abcdefghijkl" {
		t.Error("RedactArgs() mutated its input")
	}
}

func TestRedactor_RedactAttr(t *testing.T) {
	r := NewRedactor(nil)

	tests := []struct {
		name string
		attr slog.Attr
		want string
	}{
		{"sensitive key", slog.String("webhook_secret", "s3cr3t"), "***"},
		{"string value", slog.String("to", "jane@example.com"), "[email]"},
		{"int untouched", slog.Int("rows", 4), "4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.RedactAttr(tt.attr)
			if got.Value.String() != tt.want {
				t.Errorf("RedactAttr() = %q, want %q", got.Value.String(), tt.want)
			}
		})
	}

	group := r.RedactAttr(slog.Group("requester", slog.String("email", "bob@example.com")))
	if strings.Contains(group.Value.String(), "bob@example.com") {
		t.Errorf("group not redacted: %v", group.Value)
	}
}

func TestIsSensitiveKey(t *testing.T) {
	tests := map[string]bool{
		"password":         true,
		"API_TOKEN":        true,
		"ssh_passphrase":   true,
		"Authorization":    true,
		"ticket_id":        false,
		"experience_type":  false,
		"observed_action":  false,
		"conversation_len": false,
	}
	for key, want := range tests {
		if got := isSensitiveKey(key); got != want {
			t.Errorf("isSensitiveKey(%q) = %v, want %v", key, got, want)
		}
	}
}

func TestRedactEmail(t *testing.T) {
	tests := map[string]string{
		"jane@example.com": "j***@example.com",
		"@example.com":     "***@example.com",
		"not-an-email":     "not-an-email",
		"a@b@c":            "a@b@c",
	}
	for in, want := range tests {
		if got := RedactEmail(in); got != want {
			t.Errorf("RedactEmail(%q) = %q, want %q", in, got, want)
		}
	}
}
