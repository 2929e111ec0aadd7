package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAttachments(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want Attachments
	}{
		{"nil", nil, Attachments{}},
		{"empty string", "  ", Attachments{}},
		{"single url", "https://cdn.example.com/a/brief.pdf?x=1", Attachments{
			{URL: "https://cdn.example.com/a/brief.pdf?x=1", Name: "brief.pdf"},
		}},
		{"json array string", `[{"url":"/media/logo.png","name":"Logo","type":"image/png"}]`, Attachments{
			{URL: "/media/logo.png", Name: "Logo", Type: "image/png"},
		}},
		{"double encoded", `"[\"https://x.io/a.txt\"]"`, Attachments{
			{URL: "https://x.io/a.txt", Name: "a.txt"},
		}},
		{"mixed slice", []any{
			"https://x.io/1.png",
			map[string]any{"url": "https://x.io/2.png", "type": "image/png"},
			map[string]any{"name": "no url"},
			42,
		}, Attachments{
			{URL: "https://x.io/1.png", Name: "1.png"},
			{URL: "https://x.io/2.png", Name: "2.png", Type: "image/png"},
		}},
		{"single object", map[string]any{"url": " https://x.io/3.png "}, Attachments{
			{URL: "https://x.io/3.png", Name: "3.png"},
		}},
		{"plain text", "not a link", Attachments{}},
		{"object with script url", map[string]any{"url": "javascript:alert(1)", "name": "click me"}, Attachments{}},
		{"typed attachment with data url", Attachments{{URL: "data:text/html;base64,PGgxPg=="}}, Attachments{}},
		{"protocol relative", `[{"url":"//evil.example.com/x.js"}]`, Attachments{}},
		{"uppercase scheme", map[string]any{"url": "HTTPS://x.io/4.png"}, Attachments{
			{URL: "HTTPS://x.io/4.png", Name: "4.png"},
		}},
		{"broken json", "[{", Attachments{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeAttachments(tt.raw))
		})
	}
}

func TestAttachments_JSON(t *testing.T) {
	var nilList Attachments
	raw, err := json.Marshal(nilList)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))

	var decoded struct {
		Files Attachments `json:"files"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"files":"https://x.io/a.pdf"}`), &decoded))
	assert.Equal(t, Attachments{{URL: "https://x.io/a.pdf", Name: "a.pdf"}}, decoded.Files)
}

func TestAttachments_Scan(t *testing.T) {
	var a Attachments
	require.NoError(t, a.Scan([]byte(`[{"url":"/media/x.png"}]`)))
	assert.Equal(t, Attachments{{URL: "/media/x.png", Name: "x.png"}}, a)

	require.NoError(t, a.Scan(nil))
	assert.Equal(t, Attachments{}, a)

	assert.Error(t, a.Scan(42))

	value, err := Attachments(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), value)
}
