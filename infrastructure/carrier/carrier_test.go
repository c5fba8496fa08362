package carrier

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnconfigured(t *testing.T) {
	_, err := Unconfigured{}.Send(context.Background(), "a", "b", "c")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Equal(t, ErrorKind("unconfigured"), KindOf(err))
}

func TestErrorUnwrapAndKind(t *testing.T) {
	root := errors.New("dial tcp: connection refused")
	err := fmt.Errorf("send: %w", &Error{Kind: KindNetwork, Err: root})

	assert.ErrorIs(t, err, root)
	assert.Equal(t, KindNetwork, KindOf(err))
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("other")))
}

func TestParseInboundForm(t *testing.T) {
	form := url.Values{
		"MessageSid":        {"SM123"},
		"From":              {"whatsapp:+15550001"},
		"To":                {"whatsapp:+15559999"},
		"Body":              {"hi there"},
		"NumMedia":          {"2"},
		"MediaUrl0":         {"https://media.example/0"},
		"MediaContentType0": {"image/jpeg"},
		"MediaUrl1":         {"https://media.example/1"},
		"MediaContentType1": {"audio/ogg"},
	}

	ev := ParseInboundForm(form.Get)

	assert.Equal(t, "SM123", ev.MessageSID)
	assert.Equal(t, "whatsapp:+15550001", ev.From)
	assert.Equal(t, "whatsapp:+15559999", ev.To)
	assert.Equal(t, "hi there", ev.Body)
	require.Len(t, ev.MediaRefs, 2)
	assert.Equal(t, MediaRef{URL: "https://media.example/1", ContentType: "audio/ogg"}, ev.MediaRefs[1])
	assert.NoError(t, ev.Validate())
}

func TestParseInboundFormWithoutMedia(t *testing.T) {
	form := url.Values{"From": {"a"}, "To": {"b"}, "NumMedia": {"0"}}

	ev := ParseInboundForm(form.Get)

	assert.Empty(t, ev.MediaRefs)
	assert.Empty(t, ev.Body)
	assert.NoError(t, ev.Validate())
}

func TestValidateMissingFields(t *testing.T) {
	err := InboundEvent{Body: "hi"}.Validate()
	require.Error(t, err)

	fields, ok := IsMissingFields(err)
	require.True(t, ok)
	assert.Equal(t, []string{"From", "To"}, fields)
}

func TestRenderTwiML(t *testing.T) {
	out, err := RenderTwiML(`Tom & "Jerry" <3`)
	require.NoError(t, err)

	doc := string(out)
	assert.True(t, strings.HasPrefix(doc, "<?xml"))
	assert.Contains(t, doc, "<Response><Message>Tom &amp; &#34;Jerry&#34; &lt;3</Message></Response>")

	out, err = RenderTwiML("")
	require.NoError(t, err)
	assert.Contains(t, string(out), "<Response></Response>")
}
