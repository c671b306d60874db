package handlers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleEnvelope = `{
  "entry": [
    {
      "changes": [
        {
          "value": {
            "messages": [
              {
                "from": "whatsapp:+5491122334455",
                "type": "text",
                "text": {"body": "hola"}
              },
              {
                "from": "+5491122334455",
                "type": "interactive",
                "interactive": {"button_reply": {"id": "menu_buscar"}}
              },
              {
                "from": "+5491122334455",
                "type": "interactive",
                "interactive": {"list_reply": {"id": "disambig:42"}}
              },
              {
                "from": "+5491122334455",
                "type": "image"
              }
            ]
          }
        }
      ]
    }
  ]
}`

func TestEnvelopeParsing(t *testing.T) {
	var envelope WebhookEnvelope
	require.NoError(t, json.Unmarshal([]byte(sampleEnvelope), &envelope))

	require.Len(t, envelope.Entry, 1)
	require.Len(t, envelope.Entry[0].Changes, 1)
	messages := envelope.Entry[0].Changes[0].Value.Messages
	require.Len(t, messages, 4)

	from, text, ok := messages[0].Normalize()
	assert.True(t, ok)
	assert.Equal(t, "+5491122334455", from, "whatsapp: prefix is stripped")
	assert.Equal(t, "hola", text)

	from, text, ok = messages[1].Normalize()
	assert.True(t, ok)
	assert.Equal(t, "+5491122334455", from)
	assert.Equal(t, "menu_buscar", text, "button taps surface as their id")

	_, text, ok = messages[2].Normalize()
	assert.True(t, ok)
	assert.Equal(t, "disambig:42", text, "list selections surface as their row id")

	_, _, ok = messages[3].Normalize()
	assert.False(t, ok, "media messages are dropped")
}

func TestNormalizeRejectsMalformedKinds(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"text without body", `{"from": "+54911", "type": "text"}`},
		{"interactive without reply", `{"from": "+54911", "type": "interactive", "interactive": {}}`},
		{"unknown type", `{"from": "+54911", "type": "sticker"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var msg InboundMessage
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &msg))
			_, _, ok := msg.Normalize()
			assert.False(t, ok)
		})
	}
}
