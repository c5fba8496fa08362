package carrier

import (
	"errors"
	"fmt"
	"strconv"
)

// MaxMediaRefs bounds how many MediaUrlN fields are read from one webhook.
const MaxMediaRefs = 10

type MediaRef struct {
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
}

// InboundEvent is one message delivered by the carrier webhook.
type InboundEvent struct {
	MessageSID string     `json:"MessageSid"`
	From       string     `json:"From"`
	To         string     `json:"To"`
	Body       string     `json:"Body"`
	MediaRefs  []MediaRef `json:"MediaRefs,omitempty"`
}

// ParseInboundForm reads the carrier's form fields through get, which returns
// "" for missing keys.
func ParseInboundForm(get func(key string) string) InboundEvent {
	ev := InboundEvent{
		MessageSID: get("MessageSid"),
		From:       get("From"),
		To:         get("To"),
		Body:       get("Body"),
	}

	n, err := strconv.Atoi(get("NumMedia"))
	if err != nil || n <= 0 {
		return ev
	}
	if n > MaxMediaRefs {
		n = MaxMediaRefs
	}
	for i := 0; i < n; i++ {
		u := get(fmt.Sprintf("MediaUrl%d", i))
		if u == "" {
			continue
		}
		ev.MediaRefs = append(ev.MediaRefs, MediaRef{
			URL:         u,
			ContentType: get(fmt.Sprintf("MediaContentType%d", i)),
		})
	}
	return ev
}

// Validate checks the addressing fields. An empty body is allowed for media-only messages.
func (ev InboundEvent) Validate() error {
	var missing []string
	if ev.From == "" {
		missing = append(missing, "From")
	}
	if ev.To == "" {
		missing = append(missing, "To")
	}
	if len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}
	return nil
}

type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("inbound event missing fields: %v", e.Fields)
}

// IsMissingFields reports whether err is a MissingFieldsError and returns its fields.
func IsMissingFields(err error) ([]string, bool) {
	var mf *MissingFieldsError
	if errors.As(err, &mf) {
		return mf.Fields, true
	}
	return nil, false
}
