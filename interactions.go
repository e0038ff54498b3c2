package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/tostemail20-glitch/MTCapplys/applications"
	"github.com/tostemail20-glitch/MTCapplys/authz"
	"github.com/tostemail20-glitch/MTCapplys/datastructs"
	"github.com/tostemail20-glitch/MTCapplys/panels"
	"github.com/tostemail20-glitch/MTCapplys/sessions"
	"github.com/tostemail20-glitch/MTCapplys/surface"
	"github.com/tostemail20-glitch/MTCapplys/wizard"
)

// Custom ids of the admin wizard select menus.
const (
	menuSections  = "admin:sections"
	menuSection   = "admin:section"
	menuQuestions = "admin:questions"
	menuGroups    = "admin:groups"
)

const modalPrefix = "apply-submit"

func (b *bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionMessageComponent:
		b.onComponent(s, i)
	case discordgo.InteractionModalSubmit:
		b.onModalSubmit(s, i)
	}
}

func (b *bot) onComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.MessageComponentData()

	if sectionID, ok := panels.ParseApplyID(data.CustomID); ok {
		b.onApplyButton(s, i, sectionID)
		return
	}
	if action, sectionID, appID, ok := applications.ParseDecisionID(data.CustomID); ok {
		b.onDecisionButton(s, i, action, sectionID, appID)
		return
	}

	switch data.CustomID {
	case panels.AdminMenuID:
		b.onAdminMenu(s, i, data.Values)
	case menuSections:
		b.onSectionPicked(s, i, data.Values)
	case menuSection:
		b.onSectionAction(s, i, data.Values)
	case menuQuestions:
		b.onQuestionAction(s, i, data.Values)
	case menuGroups:
		b.onGroupAction(s, i, data.Values)
	}
}

// onApplyButton runs the admission policy and opens the question form.
func (b *bot) onApplyButton(s *discordgo.Session, i *discordgo.InteractionCreate, sectionID string) {
	actor, err := b.actorFor(i)
	if err != nil {
		respond(s, i, "Could not verify your membership. Please try again.")
		return
	}
	sec, err := b.store.LoadSection(sectionID)
	if err != nil {
		respond(s, i, userMessage(err))
		return
	}
	if err := applications.Admit(sec, actor, time.Now()); err != nil {
		respond(s, i, userMessage(err))
		return
	}
	if len(sec.Questions) == 0 {
		respond(s, i, "This section has no questions configured yet.")
		return
	}

	var rows []discordgo.MessageComponent
	for idx, q := range sec.Questions {
		if idx >= datastructs.MaxQuestions {
			break
		}
		label := fmt.Sprintf("%d. %s", idx+1, q)
		if len(label) > 45 {
			label = label[:45]
		}
		rows = append(rows, discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID: fmt.Sprintf("q_%d", idx+1),
					Label:    label,
					Style:    discordgo.TextInputParagraph,
					Required: true,
				},
			},
		})
	}
	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   modalPrefix + ":" + sectionID,
			Title:      fmt.Sprintf("Apply - %s", sec.DisplayName()),
			Components: rows,
		},
	})
	if err != nil {
		fmt.Println("#[Interactions]: failed to open application form:", err)
	}
}

func (b *bot) onModalSubmit(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ModalSubmitData()
	parts := strings.SplitN(data.CustomID, ":", 2)
	if len(parts) != 2 || parts[0] != modalPrefix {
		return
	}
	sectionID := parts[1]

	actor, err := b.actorFor(i)
	if err != nil {
		respond(s, i, "Could not verify your membership. Please try again.")
		return
	}
	var answers []string
	for _, row := range data.Components {
		ar, ok := row.(*discordgo.ActionsRow)
		if !ok || len(ar.Components) == 0 {
			continue
		}
		if input, ok := ar.Components[0].(*discordgo.TextInput); ok {
			answers = append(answers, input.Value)
		}
	}

	if _, err := applications.Submit(b.store, b.surface, sectionID, actor, answers, time.Now()); err != nil {
		respond(s, i, userMessage(err))
		return
	}
	respond(s, i, "Application submitted.")
}

func (b *bot) onDecisionButton(s *discordgo.Session, i *discordgo.InteractionCreate, action applications.Action, sectionID, appID string) {
	actor, err := b.actorFor(i)
	if err != nil {
		respond(s, i, "Could not verify your membership. Please try again.")
		return
	}
	var messageID string
	if i.Message != nil {
		messageID = i.Message.ID
	}
	_, err = applications.Decide(b.store, b.surface, action, sectionID, appID, actor, time.Now(), i.ChannelID, messageID)
	if err != nil {
		respond(s, i, userMessage(err))
		return
	}
	switch action {
	case applications.ActionApprove:
		respond(s, i, "Application accepted.")
	case applications.ActionReject:
		respond(s, i, "Application rejected.")
	case applications.ActionBlacklist:
		respond(s, i, "User blacklisted for this section.")
	case applications.ActionUnblacklist:
		respond(s, i, "User unblacklisted.")
	}
}

func (b *bot) onAdminMenu(s *discordgo.Session, i *discordgo.InteractionCreate, values []string) {
	if len(values) == 0 {
		return
	}
	actor, err := b.actorFor(i)
	if err != nil || !authz.CanManageSystem(actor) {
		respond(s, i, "No permission.")
		return
	}

	switch values[0] {
	case "edit_message":
		respond(s, i, "Check this channel for a prompt.")
		err := b.wizard.EditMainMessage(actor, i.ChannelID)
		followUp(s, i, doneMessage(err, "Main application message saved."))
	case "add_section":
		respond(s, i, "Check this channel for a prompt.")
		sec, err := b.wizard.AddSection(actor, i.ChannelID)
		if err != nil {
			followUp(s, i, userMessage(err))
			return
		}
		followUp(s, i, fmt.Sprintf("Section %s created. Use the admin panel to configure it.", sec.DisplayName()))
	case "sections":
		b.respondSectionList(s, i)
	}
}

func (b *bot) respondSectionList(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ids, err := b.store.ListSectionIDs()
	if err != nil {
		respond(s, i, userMessage(err))
		return
	}
	if len(ids) == 0 {
		respond(s, i, "No sections available.")
		return
	}
	menu := &surface.Menu{ID: menuSections, Placeholder: "Select section to manage"}
	for _, id := range ids {
		if len(menu.Options) == 25 {
			break
		}
		menu.Options = append(menu.Options, surface.Option{Label: id, Value: id})
	}
	respondContent(s, i, &surface.Content{Body: "Select a section to manage:", Menu: menu})
}

func (b *bot) onSectionPicked(s *discordgo.Session, i *discordgo.InteractionCreate, values []string) {
	if len(values) == 0 {
		return
	}
	sec, err := b.store.LoadSection(values[0])
	if err != nil || sec == nil {
		respond(s, i, "Section not found.")
		return
	}
	respondContent(s, i, sectionDetailContent(sec))
}

func sectionDetailContent(sec *datastructs.Section) *surface.Content {
	open := "No"
	if sec.Open {
		open = "Yes"
	}
	toggleLabel := "Enable"
	if sec.Open {
		toggleLabel = "Disable"
	}
	body := fmt.Sprintf(
		"Section: **%s**\nOpen: %s\nQuestions: %d\nReviewer Roles: %s\nApproved Roles: %s\nChannel: <#%s>\nApplicants: %d",
		sec.DisplayName(), open, len(sec.Questions),
		orNone(strings.Join(sec.ReviewerGroups, ", ")),
		orNone(strings.Join(sec.ApprovedGroups, ", ")),
		orNone(sec.ChannelID), len(sec.Applications),
	)
	return &surface.Content{
		Title: applications.EmbedTitle,
		Body:  body,
		Menu: &surface.Menu{
			ID:          menuSection,
			Placeholder: "Section actions",
			Options: []surface.Option{
				{Label: toggleLabel, Value: "toggle:" + sec.ID},
				{Label: "Edit Questions", Value: "questions:" + sec.ID},
				{Label: "Edit Emoji", Value: "emoji:" + sec.ID},
				{Label: "Edit Roles", Value: "groups:" + sec.ID},
				{Label: "Edit Channel", Value: "channel:" + sec.ID},
				{Label: "Delete Section", Value: "delete:" + sec.ID},
			},
		},
	}
}

func (b *bot) onSectionAction(s *discordgo.Session, i *discordgo.InteractionCreate, values []string) {
	op, sectionID, ok := splitValue(values)
	if !ok {
		return
	}
	actor, err := b.actorFor(i)
	if err != nil || !authz.CanManageSystem(actor) {
		respond(s, i, "No permission.")
		return
	}

	switch op {
	case "toggle":
		nowOpen, err := b.wizard.ToggleSection(actor, sectionID)
		if err != nil {
			respond(s, i, userMessage(err))
			return
		}
		state := "closed"
		if nowOpen {
			state = "open"
		}
		respond(s, i, fmt.Sprintf("Section %s is now %s.", sectionID, state))
	case "questions":
		respondContent(s, i, &surface.Content{
			Body: "Choose question operation:",
			Menu: &surface.Menu{
				ID:          menuQuestions,
				Placeholder: "Question ops",
				Options: []surface.Option{
					{Label: "Add Question", Value: "add:" + sectionID},
					{Label: "Remove Question", Value: "remove:" + sectionID},
					{Label: "Edit Question", Value: "edit:" + sectionID},
				},
			},
		})
	case "groups":
		respondContent(s, i, &surface.Content{
			Body: "Choose roles operation:",
			Menu: &surface.Menu{
				ID:          menuGroups,
				Placeholder: "Roles ops",
				Options: []surface.Option{
					{Label: "Add Reviewer Role", Value: "rev_add:" + sectionID},
					{Label: "Remove Reviewer Role", Value: "rev_remove:" + sectionID},
					{Label: "Add Approved Role", Value: "acc_add:" + sectionID},
					{Label: "Remove Approved Role", Value: "acc_remove:" + sectionID},
				},
			},
		})
	case "emoji":
		respond(s, i, "Check this channel for a prompt.")
		followUp(s, i, doneMessage(b.wizard.EditEmoji(actor, i.ChannelID, sectionID), "Emoji updated."))
	case "channel":
		respond(s, i, "Check this channel for a prompt.")
		followUp(s, i, doneMessage(b.wizard.EditChannel(actor, i.ChannelID, sectionID), "Channel updated."))
	case "delete":
		respond(s, i, "Check this channel for a prompt.")
		followUp(s, i, doneMessage(b.wizard.DeleteSection(actor, i.ChannelID, sectionID), fmt.Sprintf("Section %s deleted.", sectionID)))
	}
}

func (b *bot) onQuestionAction(s *discordgo.Session, i *discordgo.InteractionCreate, values []string) {
	op, sectionID, ok := splitValue(values)
	if !ok {
		return
	}
	actor, err := b.actorFor(i)
	if err != nil || !authz.CanManageSystem(actor) {
		respond(s, i, "No permission.")
		return
	}
	respond(s, i, "Check this channel for a prompt.")
	switch op {
	case "add":
		followUp(s, i, doneMessage(b.wizard.AddQuestion(actor, i.ChannelID, sectionID), "Question added."))
	case "remove":
		followUp(s, i, doneMessage(b.wizard.RemoveQuestion(actor, i.ChannelID, sectionID), "Question removed."))
	case "edit":
		followUp(s, i, doneMessage(b.wizard.EditQuestion(actor, i.ChannelID, sectionID), "Question updated."))
	}
}

func (b *bot) onGroupAction(s *discordgo.Session, i *discordgo.InteractionCreate, values []string) {
	op, sectionID, ok := splitValue(values)
	if !ok {
		return
	}
	actor, err := b.actorFor(i)
	if err != nil || !authz.CanManageSystem(actor) {
		respond(s, i, "No permission.")
		return
	}
	respond(s, i, "Check this channel for a prompt.")
	switch op {
	case "rev_add":
		followUp(s, i, doneMessage(b.wizard.AddGroup(actor, i.ChannelID, sectionID, wizard.ReviewerGroups), "Reviewer role added."))
	case "rev_remove":
		followUp(s, i, doneMessage(b.wizard.RemoveGroup(actor, i.ChannelID, sectionID, wizard.ReviewerGroups), "Reviewer role removed."))
	case "acc_add":
		followUp(s, i, doneMessage(b.wizard.AddGroup(actor, i.ChannelID, sectionID, wizard.ApprovedGroups), "Approved role added."))
	case "acc_remove":
		followUp(s, i, doneMessage(b.wizard.RemoveGroup(actor, i.ChannelID, sectionID, wizard.ApprovedGroups), "Approved role removed."))
	}
}

func (b *bot) actorFor(i *discordgo.InteractionCreate) (*datastructs.Actor, error) {
	if i.Member == nil || i.Member.User == nil {
		return nil, fmt.Errorf("interaction without guild member")
	}
	actor, err := b.surface.FetchMember(i.Member.User.ID)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, fmt.Errorf("member %s not found", i.Member.User.ID)
	}
	return actor, nil
}

func splitValue(values []string) (op, sectionID string, ok bool) {
	if len(values) == 0 {
		return "", "", false
	}
	parts := strings.SplitN(values[0], ":", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}

// userMessage translates core errors into the reply shown to the
// member who triggered the action.
func userMessage(err error) string {
	switch {
	case errors.Is(err, applications.ErrSectionUnavailable):
		return "This section is not accepting applications."
	case errors.Is(err, applications.ErrBlacklisted):
		return "You are blacklisted for this section."
	case errors.Is(err, applications.ErrAlreadyApproved):
		return "You already have the role for this section."
	case errors.Is(err, applications.ErrCooldownActive):
		return "You can only apply once every 3 days or after a rejection."
	case errors.Is(err, applications.ErrSectionNotFound):
		return "Section not found."
	case errors.Is(err, applications.ErrApplicationNotFound):
		return "Application not found."
	case errors.Is(err, applications.ErrAlreadyDecided), errors.Is(err, applications.ErrInvalidTransition):
		return "This application has already been decided."
	case errors.Is(err, authz.ErrPermissionDenied):
		return "You don't have permission."
	case errors.Is(err, wizard.ErrCancelled):
		return "Operation cancelled."
	case errors.Is(err, wizard.ErrSectionExists):
		return "Section already exists."
	case errors.Is(err, wizard.ErrSectionNotFound):
		return "Section not found."
	case errors.Is(err, wizard.ErrQuestionLimit):
		return "Cannot add more than 5 questions."
	case errors.Is(err, wizard.ErrInvalidInput):
		return "Invalid input. Operation cancelled."
	case errors.Is(err, sessions.ErrSessionActive):
		return "Finish your current prompt first."
	default:
		return "An error occurred while handling that action."
	}
}

func doneMessage(err error, success string) string {
	if err != nil {
		return userMessage(err)
	}
	return success
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, text string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: text,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		fmt.Println("#[Interactions]: failed to respond:", err)
	}
}

func respondContent(s *discordgo.Session, i *discordgo.InteractionCreate, c *surface.Content) {
	data := &discordgo.InteractionResponseData{
		Content:    c.Body,
		Components: surface.RenderComponents(c),
		Flags:      discordgo.MessageFlagsEphemeral,
	}
	if c.Title != "" {
		data.Content = ""
		data.Embeds = []*discordgo.MessageEmbed{surface.RenderEmbed(c)}
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		fmt.Println("#[Interactions]: failed to respond:", err)
	}
}

func followUp(s *discordgo.Session, i *discordgo.InteractionCreate, text string) {
	_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: text,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		fmt.Println("#[Interactions]: failed to follow up:", err)
	}
}
