// Package panels tracks which live messages render which logical panel
// and keeps their content reconciled with current section state.
package panels

import (
	"fmt"
	"strings"

	"github.com/tostemail20-glitch/MTCapplys/applications"
	"github.com/tostemail20-glitch/MTCapplys/datastructs"
	"github.com/tostemail20-glitch/MTCapplys/emoji"
	"github.com/tostemail20-glitch/MTCapplys/store"
	"github.com/tostemail20-glitch/MTCapplys/surface"
)

const colorPanel = 0x3498DB

// Custom id layout for apply buttons: apply:<sectionID>.
const applyPrefix = "apply"

// ApplyID builds the custom id for a section's apply button.
func ApplyID(sectionID string) string {
	return applyPrefix + ":" + sectionID
}

// ParseApplyID reverses ApplyID. ok is false for foreign ids.
func ParseApplyID(customID string) (sectionID string, ok bool) {
	parts := strings.SplitN(customID, ":", 2)
	if len(parts) != 2 || parts[0] != applyPrefix {
		return "", false
	}
	return parts[1], true
}

// AdminMenuID is the custom id of the admin panel's top level menu.
const AdminMenuID = "admin:main"

// Register records a live message as a panel. Registration is keyed by
// message id and idempotent: a duplicate is a silent no-op.
func Register(st store.Store, kind datastructs.PanelKind, channelID, messageID string, sectionIDs []string) error {
	_, err := st.UpdateRegistry(func(reg *datastructs.Registry) error {
		if reg.FindPanel(messageID) != nil {
			return nil
		}
		reg.Panels = append(reg.Panels, datastructs.Panel{
			Kind:      kind,
			ChannelID: channelID,
			MessageID: messageID,
			Sections:  sectionIDs,
		})
		return nil
	})
	return err
}

// Unregister drops the registration for a message, whatever its kind.
func Unregister(st store.Store, messageID string) error {
	_, err := st.UpdateRegistry(func(reg *datastructs.Registry) error {
		kept := reg.Panels[:0]
		for _, p := range reg.Panels {
			if p.MessageID != messageID {
				kept = append(kept, p)
			}
		}
		reg.Panels = kept
		return nil
	})
	return err
}

// BuildApplyContent renders an apply panel: one button per advertised
// section that exists and is open, and the section list substituted
// into the main message template. Custom emoji are attached only when
// the workspace owns them.
func BuildApplyContent(st store.Store, template string, sectionIDs []string, knownEmoji map[string]bool) (*surface.Content, error) {
	var lines []string
	var buttons []surface.Button
	for _, id := range sectionIDs {
		sec, err := st.LoadSection(id)
		if err != nil {
			return nil, err
		}
		if sec == nil || !sec.Open {
			continue
		}
		e, _ := emoji.Parse(sec.Emoji)
		label := strings.TrimSpace(sec.Emoji + " " + sec.DisplayName())
		lines = append(lines, label)
		btn := surface.Button{
			ID:    ApplyID(sec.ID),
			Label: sec.DisplayName(),
			Style: surface.StylePrimary,
		}
		if emoji.Usable(e, knownEmoji) {
			btn.Emoji = e
		}
		buttons = append(buttons, btn)
	}
	list := "None"
	if len(lines) > 0 {
		list = strings.Join(lines, "\n")
	}
	if template == "" {
		template = datastructs.DefaultMainMessage
	}
	return &surface.Content{
		Title:   applications.EmbedTitle,
		Body:    strings.Replace(template, datastructs.ApplysToken, list, 1),
		Color:   colorPanel,
		Buttons: buttons,
	}, nil
}

// BuildAdminContent renders the admin panel: a per-section applicant
// count summary plus the management menu.
func BuildAdminContent(st store.Store) (*surface.Content, error) {
	ids, err := st.ListSectionIDs()
	if err != nil {
		return nil, err
	}
	var counts []string
	for _, id := range ids {
		sec, err := st.LoadSection(id)
		if err != nil {
			return nil, err
		}
		if sec == nil {
			continue
		}
		counts = append(counts, fmt.Sprintf("**%s** - %d applicants", sec.DisplayName(), len(sec.Applications)))
	}
	summary := "No sections"
	if len(counts) > 0 {
		summary = strings.Join(counts, "\n")
	}
	return &surface.Content{
		Title: applications.EmbedTitle,
		Body:  fmt.Sprintf("Sections: %d\n\n%s", len(ids), summary),
		Color: colorPanel,
		Menu: &surface.Menu{
			ID:          AdminMenuID,
			Placeholder: "Manage application system",
			Options: []surface.Option{
				{Label: "Edit Message", Value: "edit_message"},
				{Label: "Sections", Value: "sections"},
				{Label: "Add Section", Value: "add_section"},
			},
		},
	}, nil
}
