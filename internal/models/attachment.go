package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

// Attachment описывает файл, приложенный к заданию, сообщению, работе или спору.
type Attachment struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Attachments канонический список вложений. Хранится в JSONB колонках.
// Любая форма входных данных приводится к нему через NormalizeAttachments.
type Attachments []Attachment

// NormalizeAttachments приводит вложения к списку {url, name, type}.
// Принимает JSON строку, одиночный объект, массив объектов или строк с URL.
// Нераспознанные элементы и элементы без url отбрасываются.
func NormalizeAttachments(raw any) Attachments {
	out := Attachments{}
	collectAttachments(raw, &out, 0)
	return out
}

func collectAttachments(raw any, out *Attachments, depth int) {
	// Строки с JSON внутри JSON строки встречаются в старых записях, но глубже не идём.
	if depth > 3 {
		return
	}

	switch v := raw.(type) {
	case nil:
	case Attachments:
		for _, a := range v {
			appendAttachment(out, a)
		}
	case []Attachment:
		for _, a := range v {
			appendAttachment(out, a)
		}
	case Attachment:
		appendAttachment(out, v)
	case *Attachment:
		if v != nil {
			appendAttachment(out, *v)
		}
	case json.RawMessage:
		collectJSON([]byte(v), out, depth)
	case []byte:
		collectJSON(v, out, depth)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return
		}
		switch s[0] {
		case '[', '{', '"':
			collectJSON([]byte(s), out, depth)
		default:
			if looksLikeURL(s) {
				appendAttachment(out, Attachment{URL: s})
			}
		}
	case []any:
		for _, item := range v {
			collectAttachments(item, out, depth+1)
		}
	case map[string]any:
		appendAttachment(out, Attachment{
			URL:  stringField(v, "url"),
			Name: stringField(v, "name"),
			Type: stringField(v, "type"),
		})
	}
}

func collectJSON(data []byte, out *Attachments, depth int) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return
	}
	collectAttachments(decoded, out, depth+1)
}

func appendAttachment(out *Attachments, a Attachment) {
	a.URL = strings.TrimSpace(a.URL)
	if !looksLikeURL(a.URL) {
		return
	}
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		a.Name = path.Base(strings.SplitN(a.URL, "?", 2)[0])
	}
	a.Type = strings.TrimSpace(a.Type)
	*out = append(*out, a)
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

// looksLikeURL пропускает только http(s) и пути от корня сайта.
func looksLikeURL(s string) bool {
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return true
	}
	return strings.HasPrefix(s, "/") && !strings.HasPrefix(s, "//")
}

// Scan реализует sql.Scanner. Значение из базы проходит нормализацию.
func (a *Attachments) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = Attachments{}
	case []byte:
		*a = NormalizeAttachments(v)
	case string:
		*a = NormalizeAttachments(v)
	default:
		return fmt.Errorf("attachments: неподдерживаемый тип %T", src)
	}
	return nil
}

// Value реализует driver.Valuer.
func (a Attachments) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Attachment(a))
}

// MarshalJSON всегда отдаёт массив, даже для nil.
func (a Attachments) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Attachment(a))
}

// UnmarshalJSON принимает любую поддерживаемую форму и нормализует её.
func (a *Attachments) UnmarshalJSON(data []byte) error {
	*a = NormalizeAttachments(json.RawMessage(data))
	return nil
}

// String возвращает канонический JSON списка.
func (a Attachments) String() string {
	raw, _ := a.MarshalJSON()
	return string(raw)
}
