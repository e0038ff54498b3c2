// Package surface is the messaging capability set the core consumes.
// Everything here is fallible and treated as best effort by callers:
// a failed send or edit never rolls back a committed decision.
package surface

import (
	"github.com/tostemail20-glitch/MTCapplys/datastructs"
	"github.com/tostemail20-glitch/MTCapplys/emoji"
)

// ButtonStyle selects the visual weight of an action button.
type ButtonStyle int

const (
	StylePrimary ButtonStyle = iota
	StyleSuccess
	StyleDanger
	StyleSecondary
)

// Button is one clickable action under a message.
type Button struct {
	ID    string
	Label string
	Emoji *emoji.Emoji
	Style ButtonStyle
}

// Option is one entry of a select menu.
type Option struct {
	Label string
	Value string
}

// Menu is a single select menu under a message.
type Menu struct {
	ID          string
	Placeholder string
	Options     []Option
}

// Field is a labelled block of message body, used for question/answer
// pairs and status lines.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Content is the renderable payload of a message. The adapter decides
// how to express it on the concrete platform.
type Content struct {
	Title   string
	Body    string
	Color   int
	Fields  []Field
	Buttons []Button
	Menu    *Menu
}

// Surface is the platform contract. Implementations must report a
// message that is positively gone as (false, nil) from FetchMessage so
// callers can distinguish "confirmed gone" from a transient failure.
type Surface interface {
	SendMessage(channelID string, c *Content) (messageID string, err error)
	EditMessage(channelID, messageID string, c *Content) error
	FetchMessage(channelID, messageID string) (found bool, err error)
	FetchMember(userID string) (*datastructs.Actor, error)
	ChannelExists(channelID string) (bool, error)
	GroupExists(groupID string) (bool, error)
	GrantGroup(userID, groupID string) error
	DirectNotify(userID string, c *Content) error
	// CustomEmojiIDs lists the workspace's own emoji, for deciding
	// whether a stored custom emoji token is usable here.
	CustomEmojiIDs() (map[string]bool, error)
}
