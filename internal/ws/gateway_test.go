package ws

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func TestDecodePayloadObject(t *testing.T) {
	chatID := uuid.New()
	raw := json.RawMessage(`{"chat":"` + chatID.String() + `","content":"hello"}`)

	in, err := decodePayload(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if in.ChatID != chatID {
		t.Fatalf("chat = %s, want %s", in.ChatID, chatID)
	}
	if in.Content != "hello" || in.Edited {
		t.Fatalf("payload = %+v", in)
	}
}

func TestDecodePayloadStringEncoded(t *testing.T) {
	chatID := uuid.New()
	msgID := uuid.New()
	inner := `{"chat":"` + chatID.String() + `","content":"fixed","messageId":"` + msgID.String() + `","edited":true}`
	outer, err := json.Marshal(inner)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	in, err := decodePayload(json.RawMessage(outer))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if in.ChatID != chatID || in.MessageID != msgID {
		t.Fatalf("ids = %+v", in)
	}
	if !in.Edited || in.Content != "fixed" {
		t.Fatalf("payload = %+v", in)
	}
}

func TestDecodePayloadRejectsBadChat(t *testing.T) {
	cases := map[string]string{
		"missing chat": `{"content":"x"}`,
		"garbage chat": `{"chat":"not-a-uuid","content":"x"}`,
		"not json":     `"{{{{"`,
	}
	for name, raw := range cases {
		if _, err := decodePayload(json.RawMessage(raw)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestDecodePayloadRejectsBadMessageID(t *testing.T) {
	raw := json.RawMessage(`{"chat":"` + uuid.NewString() + `","content":"x","messageId":"nope"}`)
	if _, err := decodePayload(raw); err == nil {
		t.Fatalf("expected error for bad message id")
	}
}
