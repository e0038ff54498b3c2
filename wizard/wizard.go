// Package wizard implements the admin configuration flows: each one
// prompts the acting admin in the channel they used, waits for exactly
// one reply, validates it and applies the change. A timeout or an
// invalid confirmation cancels the flow with no mutation.
package wizard

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tostemail20-glitch/MTCapplys/authz"
	"github.com/tostemail20-glitch/MTCapplys/datastructs"
	"github.com/tostemail20-glitch/MTCapplys/emoji"
	"github.com/tostemail20-glitch/MTCapplys/sessions"
	"github.com/tostemail20-glitch/MTCapplys/store"
	"github.com/tostemail20-glitch/MTCapplys/surface"
)

var (
	// ErrCancelled is the normal outcome of a timed out or aborted
	// flow, not a failure: nothing was mutated.
	ErrCancelled = errors.New("wizard: operation cancelled")

	ErrSectionExists   = errors.New("wizard: section already exists")
	ErrSectionNotFound = errors.New("wizard: section not found")
	ErrQuestionLimit   = fmt.Errorf("wizard: sections hold at most %d questions", datastructs.MaxQuestions)
	ErrInvalidInput    = errors.New("wizard: invalid input")
)

// DeleteConfirmation is the literal an admin must type to delete a
// section.
const DeleteConfirmation = "DELETE"

const (
	// DefaultReplyTimeout bounds ordinary prompts.
	DefaultReplyTimeout = 60 * time.Second
	// DefaultConfirmTimeout bounds destructive confirmations.
	DefaultConfirmTimeout = 30 * time.Second
)

var (
	channelMention = regexp.MustCompile(`^<#(\d+)>$`)
	groupMention   = regexp.MustCompile(`^<@&?(\d+)>$`)
	// section ids double as storage keys
	sectionIDStrip = regexp.MustCompile(`[\\/?%*:|"<>]`)
)

// Wizard bundles the collaborators every flow needs.
type Wizard struct {
	Store          store.Store
	Surface        surface.Surface
	Sessions       *sessions.Manager
	ReplyTimeout   time.Duration
	ConfirmTimeout time.Duration
}

func New(st store.Store, sfc surface.Surface, mgr *sessions.Manager) *Wizard {
	return &Wizard{
		Store:          st,
		Surface:        sfc,
		Sessions:       mgr,
		ReplyTimeout:   DefaultReplyTimeout,
		ConfirmTimeout: DefaultConfirmTimeout,
	}
}

// ask sends the prompt and waits for the actor's next message in the
// channel. The session is registered before the prompt goes out so an
// instant reply cannot be missed.
func (w *Wizard) ask(actor *datastructs.Actor, channelID, prompt string, timeout time.Duration) (string, error) {
	sess, err := w.Sessions.Expect(actor.UserID, channelID)
	if err != nil {
		return "", err
	}
	if _, err := w.Surface.SendMessage(channelID, &surface.Content{Body: prompt}); err != nil {
		sess.Cancel()
		return "", err
	}
	reply, ok := sess.Wait(timeout)
	if !ok {
		return "", ErrCancelled
	}
	return strings.TrimSpace(reply), nil
}

func (w *Wizard) requireAdmin(actor *datastructs.Actor) error {
	if !authz.CanManageSystem(actor) {
		return authz.ErrPermissionDenied
	}
	return nil
}

// EditMainMessage replaces the template the apply panels substitute the
// section list into.
func (w *Wizard) EditMainMessage(actor *datastructs.Actor, channelID string) error {
	if err := w.requireAdmin(actor); err != nil {
		return err
	}
	prompt := "Please send the new main application message content. Use " + datastructs.ApplysToken + " where the active sections should appear."
	reply, err := w.ask(actor, channelID, prompt, w.ReplyTimeout)
	if err != nil {
		return err
	}
	_, err = w.Store.UpdateRegistry(func(reg *datastructs.Registry) error {
		reg.MainMessage = reply
		return nil
	})
	return err
}

// AddSection creates an empty open section after prompting for a name.
func (w *Wizard) AddSection(actor *datastructs.Actor, channelID string) (*datastructs.Section, error) {
	if err := w.requireAdmin(actor); err != nil {
		return nil, err
	}
	reply, err := w.ask(actor, channelID, "Please send the new section name.", w.ReplyTimeout)
	if err != nil {
		return nil, err
	}
	id := sectionIDStrip.ReplaceAllString(reply, "")
	if len(id) > 60 {
		id = id[:60]
	}
	if id == "" {
		return nil, fmt.Errorf("%w: empty section name", ErrInvalidInput)
	}
	existing, err := w.Store.LoadSection(id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrSectionExists
	}
	sec := datastructs.NewSection(id)
	if err := w.Store.SaveSection(sec); err != nil {
		return nil, err
	}
	return sec, nil
}

// ToggleSection flips a section between open and closed.
func (w *Wizard) ToggleSection(actor *datastructs.Actor, sectionID string) (bool, error) {
	if err := w.requireAdmin(actor); err != nil {
		return false, err
	}
	sec, err := w.updateSection(sectionID, func(sec *datastructs.Section) error {
		sec.Open = !sec.Open
		return nil
	})
	if err != nil {
		return false, err
	}
	return sec.Open, nil
}

// AddQuestion appends a question, enforcing the five question cap.
func (w *Wizard) AddQuestion(actor *datastructs.Actor, channelID, sectionID string) error {
	if err := w.requireAdmin(actor); err != nil {
		return err
	}
	reply, err := w.ask(actor, channelID, "Send the new question text.", w.ReplyTimeout)
	if err != nil {
		return err
	}
	if reply == "" {
		return fmt.Errorf("%w: empty question", ErrInvalidInput)
	}
	_, err = w.updateSection(sectionID, func(sec *datastructs.Section) error {
		if len(sec.Questions) >= datastructs.MaxQuestions {
			return ErrQuestionLimit
		}
		sec.Questions = append(sec.Questions, reply)
		return nil
	})
	return err
}

// RemoveQuestion prompts for a 1-based question number and drops it.
func (w *Wizard) RemoveQuestion(actor *datastructs.Actor, channelID, sectionID string) error {
	if err := w.requireAdmin(actor); err != nil {
		return err
	}
	idx, err := w.askQuestionIndex(actor, channelID, sectionID, "remove")
	if err != nil {
		return err
	}
	_, err = w.updateSection(sectionID, func(sec *datastructs.Section) error {
		if idx < 1 || idx > len(sec.Questions) {
			return fmt.Errorf("%w: question %d does not exist", ErrInvalidInput, idx)
		}
		sec.Questions = append(sec.Questions[:idx-1], sec.Questions[idx:]...)
		return nil
	})
	return err
}

// EditQuestion prompts for a question number, then for its new text.
func (w *Wizard) EditQuestion(actor *datastructs.Actor, channelID, sectionID string) error {
	if err := w.requireAdmin(actor); err != nil {
		return err
	}
	idx, err := w.askQuestionIndex(actor, channelID, sectionID, "edit")
	if err != nil {
		return err
	}
	text, err := w.ask(actor, channelID, "Send the new question text.", w.ReplyTimeout)
	if err != nil {
		return err
	}
	if text == "" {
		return fmt.Errorf("%w: empty question", ErrInvalidInput)
	}
	_, err = w.updateSection(sectionID, func(sec *datastructs.Section) error {
		if idx < 1 || idx > len(sec.Questions) {
			return fmt.Errorf("%w: question %d does not exist", ErrInvalidInput, idx)
		}
		sec.Questions[idx-1] = text
		return nil
	})
	return err
}

func (w *Wizard) askQuestionIndex(actor *datastructs.Actor, channelID, sectionID, verb string) (int, error) {
	sec, err := w.Store.LoadSection(sectionID)
	if err != nil {
		return 0, err
	}
	if sec == nil {
		return 0, ErrSectionNotFound
	}
	if len(sec.Questions) == 0 {
		return 0, fmt.Errorf("%w: no questions to %s", ErrInvalidInput, verb)
	}
	var list []string
	for i, q := range sec.Questions {
		list = append(list, fmt.Sprintf("%d. %s", i+1, q))
	}
	prompt := fmt.Sprintf("Current questions:\n%s\nSend the number to %s.", strings.Join(list, "\n"), verb)
	reply, err := w.ask(actor, channelID, prompt, w.ReplyTimeout)
	if err != nil {
		return 0, err
	}
	idx, err := strconv.Atoi(reply)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidInput, reply)
	}
	return idx, nil
}

// EditEmoji stores a new raw emoji token after checking it parses.
func (w *Wizard) EditEmoji(actor *datastructs.Actor, channelID, sectionID string) error {
	if err := w.requireAdmin(actor); err != nil {
		return err
	}
	reply, err := w.ask(actor, channelID, "Send the new emoji (unicode or custom like <a:name:id> or <:name:id>).", w.ReplyTimeout)
	if err != nil {
		return err
	}
	if _, ok := emoji.Parse(reply); !ok {
		return fmt.Errorf("%w: empty emoji", ErrInvalidInput)
	}
	_, err = w.updateSection(sectionID, func(sec *datastructs.Section) error {
		sec.Emoji = reply
		return nil
	})
	return err
}

// EditChannel points the section's application feed at a new channel,
// verified to exist before anything is saved.
func (w *Wizard) EditChannel(actor *datastructs.Actor, channelID, sectionID string) error {
	if err := w.requireAdmin(actor); err != nil {
		return err
	}
	reply, err := w.ask(actor, channelID, "Please mention the new channel (e.g. #applications) or send its id.", w.ReplyTimeout)
	if err != nil {
		return err
	}
	target := reply
	if m := channelMention.FindStringSubmatch(reply); m != nil {
		target = m[1]
	}
	exists, err := w.Surface.ChannelExists(target)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: channel %s not found", ErrInvalidInput, target)
	}
	_, err = w.updateSection(sectionID, func(sec *datastructs.Section) error {
		sec.ChannelID = target
		return nil
	})
	return err
}

// GroupKind selects which of the two group sets a flow edits.
type GroupKind int

const (
	ReviewerGroups GroupKind = iota
	ApprovedGroups
)

func (g GroupKind) label() string {
	if g == ReviewerGroups {
		return "reviewer"
	}
	return "approved"
}

// AddGroup adds a reviewer or approved group, verified to exist.
func (w *Wizard) AddGroup(actor *datastructs.Actor, channelID, sectionID string, kind GroupKind) error {
	if err := w.requireAdmin(actor); err != nil {
		return err
	}
	reply, err := w.ask(actor, channelID, fmt.Sprintf("Mention the %s role to add (or send its id).", kind.label()), w.ReplyTimeout)
	if err != nil {
		return err
	}
	group := reply
	if m := groupMention.FindStringSubmatch(reply); m != nil {
		group = m[1]
	}
	exists, err := w.Surface.GroupExists(group)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: role %s not found", ErrInvalidInput, group)
	}
	_, err = w.updateSection(sectionID, func(sec *datastructs.Section) error {
		set := &sec.ReviewerGroups
		if kind == ApprovedGroups {
			set = &sec.ApprovedGroups
		}
		for _, g := range *set {
			if g == group {
				return nil
			}
		}
		*set = append(*set, group)
		return nil
	})
	return err
}

// RemoveGroup drops a reviewer or approved group.
func (w *Wizard) RemoveGroup(actor *datastructs.Actor, channelID, sectionID string, kind GroupKind) error {
	if err := w.requireAdmin(actor); err != nil {
		return err
	}
	reply, err := w.ask(actor, channelID, fmt.Sprintf("Mention the %s role to remove (or send its id).", kind.label()), w.ReplyTimeout)
	if err != nil {
		return err
	}
	group := reply
	if m := groupMention.FindStringSubmatch(reply); m != nil {
		group = m[1]
	}
	_, err = w.updateSection(sectionID, func(sec *datastructs.Section) error {
		set := &sec.ReviewerGroups
		if kind == ApprovedGroups {
			set = &sec.ApprovedGroups
		}
		kept := (*set)[:0]
		for _, g := range *set {
			if g != group {
				kept = append(kept, g)
			}
		}
		*set = kept
		return nil
	})
	return err
}

// DeleteSection removes a section after the admin types the exact
// confirmation literal. Any other reply cancels.
func (w *Wizard) DeleteSection(actor *datastructs.Actor, channelID, sectionID string) error {
	if err := w.requireAdmin(actor); err != nil {
		return err
	}
	sec, err := w.Store.LoadSection(sectionID)
	if err != nil {
		return err
	}
	if sec == nil {
		return ErrSectionNotFound
	}
	prompt := fmt.Sprintf("Type %s to confirm deletion of section %s.", DeleteConfirmation, sec.DisplayName())
	reply, err := w.ask(actor, channelID, prompt, w.ConfirmTimeout)
	if err != nil {
		return err
	}
	if reply != DeleteConfirmation {
		return ErrCancelled
	}
	return w.Store.DeleteSection(sectionID)
}

func (w *Wizard) updateSection(sectionID string, fn func(*datastructs.Section) error) (*datastructs.Section, error) {
	sec, err := w.Store.UpdateSection(sectionID, fn)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSectionNotFound
		}
		return nil, err
	}
	return sec, nil
}
