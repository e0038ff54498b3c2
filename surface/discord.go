package surface

import (
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/tostemail20-glitch/MTCapplys/datastructs"
)

// Discord renders Content onto discordgo embeds and components for a
// single guild.
type Discord struct {
	Session *discordgo.Session
	GuildID string
}

func NewDiscord(s *discordgo.Session, guildID string) *Discord {
	return &Discord{Session: s, GuildID: guildID}
}

func (d *Discord) SendMessage(channelID string, c *Content) (string, error) {
	msg, err := d.Session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{RenderEmbed(c)},
		Components: RenderComponents(c),
	})
	if err != nil {
		return "", fmt.Errorf("surface: send to %s: %w", channelID, err)
	}
	return msg.ID, nil
}

func (d *Discord) EditMessage(channelID, messageID string, c *Content) error {
	embeds := []*discordgo.MessageEmbed{RenderEmbed(c)}
	components := RenderComponents(c)
	_, err := d.Session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    channelID,
		ID:         messageID,
		Embeds:     &embeds,
		Components: &components,
	})
	if err != nil {
		return fmt.Errorf("surface: edit %s/%s: %w", channelID, messageID, err)
	}
	return nil
}

func (d *Discord) FetchMessage(channelID, messageID string) (bool, error) {
	_, err := d.Session.ChannelMessage(channelID, messageID)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("surface: fetch %s/%s: %w", channelID, messageID, err)
	}
	return true, nil
}

func (d *Discord) FetchMember(userID string) (*datastructs.Actor, error) {
	member, err := d.Session.GuildMember(d.GuildID, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("surface: fetch member %s: %w", userID, err)
	}
	actor := &datastructs.Actor{
		UserID: userID,
		Groups: member.Roles,
	}
	if member.User != nil {
		actor.Username = member.User.Username
	}
	roles, err := d.Session.GuildRoles(d.GuildID)
	if err != nil {
		return nil, fmt.Errorf("surface: fetch roles: %w", err)
	}
	byID := make(map[string]*discordgo.Role, len(roles))
	for _, r := range roles {
		byID[r.ID] = r
	}
	for _, id := range member.Roles {
		if r, ok := byID[id]; ok && r.Permissions&discordgo.PermissionAdministrator != 0 {
			actor.Admin = true
			break
		}
	}
	return actor, nil
}

func (d *Discord) ChannelExists(channelID string) (bool, error) {
	_, err := d.Session.Channel(channelID)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("surface: fetch channel %s: %w", channelID, err)
	}
	return true, nil
}

func (d *Discord) GroupExists(groupID string) (bool, error) {
	roles, err := d.Session.GuildRoles(d.GuildID)
	if err != nil {
		return false, fmt.Errorf("surface: fetch roles: %w", err)
	}
	for _, r := range roles {
		if r.ID == groupID {
			return true, nil
		}
	}
	return false, nil
}

func (d *Discord) GrantGroup(userID, groupID string) error {
	if err := d.Session.GuildMemberRoleAdd(d.GuildID, userID, groupID); err != nil {
		return fmt.Errorf("surface: grant %s to %s: %w", groupID, userID, err)
	}
	return nil
}

func (d *Discord) DirectNotify(userID string, c *Content) error {
	dm, err := d.Session.UserChannelCreate(userID)
	if err != nil {
		return fmt.Errorf("surface: open dm with %s: %w", userID, err)
	}
	_, err = d.Session.ChannelMessageSendEmbed(dm.ID, RenderEmbed(c))
	if err != nil {
		return fmt.Errorf("surface: dm %s: %w", userID, err)
	}
	return nil
}

func (d *Discord) CustomEmojiIDs() (map[string]bool, error) {
	emojis, err := d.Session.GuildEmojis(d.GuildID)
	if err != nil {
		return nil, fmt.Errorf("surface: fetch emojis: %w", err)
	}
	ids := make(map[string]bool, len(emojis))
	for _, e := range emojis {
		ids[e.ID] = true
	}
	return ids, nil
}

// RenderEmbed converts Content into a discordgo embed. Exported so
// interaction responses can reuse the same rendering as sent messages.
func RenderEmbed(c *Content) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       c.Title,
		Description: c.Body,
		Color:       c.Color,
	}
	for _, f := range c.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}
	return embed
}

var buttonStyles = map[ButtonStyle]discordgo.ButtonStyle{
	StylePrimary:   discordgo.PrimaryButton,
	StyleSuccess:   discordgo.SuccessButton,
	StyleDanger:    discordgo.DangerButton,
	StyleSecondary: discordgo.SecondaryButton,
}

func RenderComponents(c *Content) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	if len(c.Buttons) > 0 {
		row := discordgo.ActionsRow{}
		for _, b := range c.Buttons {
			btn := discordgo.Button{
				Label:    b.Label,
				Style:    buttonStyles[b.Style],
				CustomID: b.ID,
			}
			if b.Emoji != nil {
				btn.Emoji = &discordgo.ComponentEmoji{
					Name:     b.Emoji.Name,
					ID:       b.Emoji.ID,
					Animated: b.Emoji.Animated,
				}
			}
			row.Components = append(row.Components, btn)
			// one action row holds at most five buttons
			if len(row.Components) == 5 {
				rows = append(rows, row)
				row = discordgo.ActionsRow{}
			}
		}
		if len(row.Components) > 0 {
			rows = append(rows, row)
		}
	}
	if c.Menu != nil {
		menu := discordgo.SelectMenu{
			CustomID:    c.Menu.ID,
			Placeholder: c.Menu.Placeholder,
		}
		for _, o := range c.Menu.Options {
			menu.Options = append(menu.Options, discordgo.SelectMenuOption{
				Label: o.Label,
				Value: o.Value,
			})
		}
		rows = append(rows, discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{menu},
		})
	}
	return rows
}

func isNotFound(err error) bool {
	if restErr, ok := err.(*discordgo.RESTError); ok && restErr.Response != nil {
		return restErr.Response.StatusCode == http.StatusNotFound
	}
	return false
}
