// Package line implements the thin LINE Messaging API boundary: webhook
// envelope types, webhook signature validation, and an outbound HTTP client
// for reply, push, and profile lookups. Everything above this package works
// with these types only and never touches the wire format directly.
package line

// Envelope is the webhook request body: a batch of events for one channel.
type Envelope struct {
	Destination string  `json:"destination"`
	Events      []Event `json:"events"`
}

// Event is a single webhook event. Only the fields the pipeline consumes are
// mapped; unknown fields are ignored by the decoder.
type Event struct {
	Type       string  `json:"type"`
	ReplyToken string  `json:"replyToken"`
	Timestamp  int64   `json:"timestamp"` // epoch milliseconds
	Source     Source  `json:"source"`
	Message    Message `json:"message"`
	Joined     Joined  `json:"joined"`
}

// Source identifies where an event originated. UserID is always the acting
// user; GroupID is set only for group-scoped events.
type Source struct {
	Type    string `json:"type"` // user|group|room
	UserID  string `json:"userId"`
	GroupID string `json:"groupId"`
}

// Message is the message payload of a message event.
type Message struct {
	ID   string `json:"id"`
	Type string `json:"type"` // text|image|sticker|...
	Text string `json:"text"`
}

// Joined lists the members of a memberJoined event.
type Joined struct {
	Members []Source `json:"members"`
}

// SourceID returns the conversation identity of the event: the group ID for
// group events, otherwise the user ID.
func (e Event) SourceID() string {
	if e.Source.GroupID != "" {
		return e.Source.GroupID
	}
	return e.Source.UserID
}

// IsGroup reports whether the event happened in a group or room conversation.
func (e Event) IsGroup() bool {
	return e.Source.Type == "group" || e.Source.Type == "room" || e.Source.GroupID != ""
}
