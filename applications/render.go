package applications

import (
	"fmt"
	"strings"

	"github.com/tostemail20-glitch/MTCapplys/datastructs"
	"github.com/tostemail20-glitch/MTCapplys/surface"
)

// EmbedTitle heads every message this bot renders.
const EmbedTitle = "MT Community"

const (
	colorPending     = 0xADD8E6
	colorAccepted    = 0x57F287
	colorRejected    = 0xED4245
	colorBlacklisted = 0x000000
)

var statusColors = map[datastructs.Status]int{
	datastructs.StatusPending:     colorPending,
	datastructs.StatusAccepted:    colorAccepted,
	datastructs.StatusRejected:    colorRejected,
	datastructs.StatusBlacklisted: colorBlacklisted,
}

// Custom id layout for decision buttons: app:<verb>:<section>:<appID>.
const decisionPrefix = "app"

// DecisionID builds the custom id carried by a decision button.
func DecisionID(action Action, sectionID, appID string) string {
	return strings.Join([]string{decisionPrefix, string(action), sectionID, appID}, ":")
}

// ParseDecisionID reverses DecisionID. ok is false for foreign ids.
func ParseDecisionID(customID string) (action Action, sectionID, appID string, ok bool) {
	parts := strings.SplitN(customID, ":", 4)
	if len(parts) != 4 || parts[0] != decisionPrefix {
		return "", "", "", false
	}
	return Action(parts[1]), parts[2], parts[3], true
}

// BuildApplicationContent renders the live status message for one
// application: applicant, status, answers, and the follow-up action
// that matches the current state. A rejected but not blacklisted
// application offers Blacklist; a blacklisted one offers Unblacklist.
func BuildApplicationContent(sec *datastructs.Section, app *datastructs.Application) *surface.Content {
	c := &surface.Content{
		Title: EmbedTitle,
		Body:  fmt.Sprintf("Application for %s", sec.DisplayName()),
		Color: statusColors[app.Status],
		Fields: []surface.Field{
			{Name: "Applicant", Value: fmt.Sprintf("%s (<@%s>)", app.Username, app.UserID), Inline: true},
			{Name: "Status", Value: string(app.Status), Inline: true},
			{Name: "Submitted", Value: app.SubmittedAt.UTC().Format("Mon, 02 Jan 2006 15:04:05 MST"), Inline: false},
		},
	}
	for _, ans := range app.Answers {
		value := ans.Answer
		if value == "" {
			value = "No answer"
		}
		c.Fields = append(c.Fields, surface.Field{Name: ans.Question, Value: value})
	}
	c.Buttons = decisionButtons(sec, app)
	return c
}

func decisionButtons(sec *datastructs.Section, app *datastructs.Application) []surface.Button {
	if app.Status == datastructs.StatusPending {
		return []surface.Button{
			{ID: DecisionID(ActionApprove, sec.ID, app.ID), Label: "Approve", Style: surface.StyleSuccess},
			{ID: DecisionID(ActionReject, sec.ID, app.ID), Label: "Reject", Style: surface.StyleDanger},
			{ID: DecisionID(ActionBlacklist, sec.ID, app.ID), Label: "Blacklist", Style: surface.StyleSecondary},
		}
	}
	if sec.IsBlacklisted(app.UserID) {
		return []surface.Button{
			{ID: DecisionID(ActionUnblacklist, sec.ID, app.ID), Label: "Unblacklist", Style: surface.StyleSecondary},
		}
	}
	return []surface.Button{
		{ID: DecisionID(ActionBlacklist, sec.ID, app.ID), Label: "Blacklist", Style: surface.StyleSecondary},
	}
}
