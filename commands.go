package main

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/tostemail20-glitch/MTCapplys/authz"
	"github.com/tostemail20-glitch/MTCapplys/datastructs"
	"github.com/tostemail20-glitch/MTCapplys/panels"
)

const commandPrefix = "+"

var userMention = regexp.MustCompile(`^<@!?(\d+)>$`)

func (b *bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	// a pending wizard prompt claims the message before command parsing
	if b.sessions.HandleMessage(m.Author.ID, m.ChannelID, m.Content) {
		return
	}
	if !strings.HasPrefix(m.Content, commandPrefix) {
		return
	}
	fields := strings.Fields(strings.TrimPrefix(m.Content, commandPrefix))
	if len(fields) == 0 {
		return
	}

	switch strings.ToLower(fields[0]) {
	case "apply":
		b.cmdApply(s, m, fields[1:])
	case "ahelp":
		b.cmdAhelp(s, m)
	case "black":
		b.cmdBlack(s, m, fields[1:])
	}
}

// cmdApply posts an apply panel for the named sections (or all of them)
// into the current channel and registers it for refresh.
func (b *bot) cmdApply(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	actor, err := b.surface.FetchMember(m.Author.ID)
	if err != nil || actor == nil || !authz.CanManageSystem(actor) {
		return
	}

	sectionIDs, err := b.resolveSections(args)
	if err != nil {
		reply(s, m.ChannelID, err.Error())
		return
	}
	if len(sectionIDs) == 0 {
		reply(s, m.ChannelID, "No matching sections. Usage: +apply <section names|all>")
		return
	}

	reg, err := b.store.LoadRegistry()
	if err != nil {
		fmt.Println("#[Commands]: failed to load registry:", err)
		return
	}
	known, err := b.surface.CustomEmojiIDs()
	if err != nil {
		known = nil
	}
	content, err := panels.BuildApplyContent(b.store, reg.MainMessage, sectionIDs, known)
	if err != nil {
		fmt.Println("#[Commands]: failed to build apply panel:", err)
		return
	}
	messageID, err := b.surface.SendMessage(m.ChannelID, content)
	if err != nil {
		fmt.Println("#[Commands]: failed to send apply panel:", err)
		return
	}
	if err := panels.Register(b.store, datastructs.PanelApply, m.ChannelID, messageID, sectionIDs); err != nil {
		fmt.Println("#[Commands]: failed to register apply panel:", err)
	}
}

// cmdAhelp posts the admin panel into the current channel.
func (b *bot) cmdAhelp(s *discordgo.Session, m *discordgo.MessageCreate) {
	actor, err := b.surface.FetchMember(m.Author.ID)
	if err != nil || actor == nil || !authz.CanManageSystem(actor) {
		return
	}
	content, err := panels.BuildAdminContent(b.store)
	if err != nil {
		fmt.Println("#[Commands]: failed to build admin panel:", err)
		return
	}
	messageID, err := b.surface.SendMessage(m.ChannelID, content)
	if err != nil {
		fmt.Println("#[Commands]: failed to send admin panel:", err)
		return
	}
	if err := panels.Register(b.store, datastructs.PanelAdmin, m.ChannelID, messageID, nil); err != nil {
		fmt.Println("#[Commands]: failed to register admin panel:", err)
	}
}

// cmdBlack toggles the blacklist entry for a mentioned user, per
// section or everywhere: +black @user <section|all>.
func (b *bot) cmdBlack(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	actor, err := b.surface.FetchMember(m.Author.ID)
	if err != nil || actor == nil || !authz.CanManageSystem(actor) {
		return
	}
	if len(args) < 2 {
		reply(s, m.ChannelID, "Usage: +black <@user> <section|all>")
		return
	}
	match := userMention.FindStringSubmatch(args[0])
	if match == nil {
		reply(s, m.ChannelID, "Mention the user to toggle, e.g. +black @user all")
		return
	}
	targetID := match[1]

	sectionIDs, err := b.resolveSections(args[1:])
	if err != nil {
		reply(s, m.ChannelID, err.Error())
		return
	}
	if len(sectionIDs) == 0 {
		reply(s, m.ChannelID, "No matching sections.")
		return
	}

	var added, removed []string
	for _, id := range sectionIDs {
		sec, err := b.store.UpdateSection(id, func(sec *datastructs.Section) error {
			if sec.IsBlacklisted(targetID) {
				sec.RemoveFromBlacklist(targetID)
			} else {
				sec.AddToBlacklist(targetID)
			}
			return nil
		})
		if err != nil {
			fmt.Printf("#[Commands]: failed to toggle blacklist in %s: %v\n", id, err)
			continue
		}
		if sec.IsBlacklisted(targetID) {
			added = append(added, sec.DisplayName())
		} else {
			removed = append(removed, sec.DisplayName())
		}
	}

	var parts []string
	if len(added) > 0 {
		parts = append(parts, "blacklisted in "+strings.Join(added, ", "))
	}
	if len(removed) > 0 {
		parts = append(parts, "unblacklisted in "+strings.Join(removed, ", "))
	}
	if len(parts) == 0 {
		reply(s, m.ChannelID, "Nothing changed.")
		return
	}
	reply(s, m.ChannelID, fmt.Sprintf("<@%s> %s.", targetID, strings.Join(parts, "; ")))
}

// resolveSections maps command arguments to section ids. "all" selects
// every section; anything else matches exactly first and then by
// case-insensitive substring.
func (b *bot) resolveSections(args []string) ([]string, error) {
	ids, err := b.store.ListSectionIDs()
	if err != nil {
		return nil, fmt.Errorf("could not list sections")
	}
	if len(args) == 1 && strings.EqualFold(args[0], "all") {
		return ids, nil
	}
	var out []string
	seen := make(map[string]bool)
	for _, arg := range args {
		id, ok := matchSection(ids, arg)
		if !ok {
			return nil, fmt.Errorf("unknown section %q", arg)
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}

func matchSection(ids []string, arg string) (string, bool) {
	for _, id := range ids {
		if id == arg {
			return id, true
		}
	}
	lower := strings.ToLower(arg)
	for _, id := range ids {
		if strings.Contains(strings.ToLower(id), lower) {
			return id, true
		}
	}
	return "", false
}

func reply(s *discordgo.Session, channelID, text string) {
	if _, err := s.ChannelMessageSend(channelID, text); err != nil {
		fmt.Println("#[Commands]: failed to reply:", err)
	}
}
