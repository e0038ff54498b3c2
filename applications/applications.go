// Package applications governs the lifecycle of one application: the
// admission policy that gates new submissions, the submission itself,
// and the moderation decisions that move it to a terminal state.
package applications

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tostemail20-glitch/MTCapplys/authz"
	"github.com/tostemail20-glitch/MTCapplys/datastructs"
	"github.com/tostemail20-glitch/MTCapplys/store"
	"github.com/tostemail20-glitch/MTCapplys/surface"
)

// Cooldown is the wait imposed after a non-rejected outcome, measured
// from the submission timestamp. A rejection imposes no cooldown.
const Cooldown = 3 * 24 * time.Hour

// Admission denials, in policy order. First match wins.
var (
	ErrSectionUnavailable = errors.New("applications: section does not exist or is closed")
	ErrBlacklisted        = errors.New("applications: user is blacklisted for this section")
	ErrAlreadyApproved    = errors.New("applications: user already holds a group this section grants")
	ErrCooldownActive     = errors.New("applications: cooldown active, try again later")
)

// Failures of moderation actions.
var (
	ErrSectionNotFound     = errors.New("applications: section not found")
	ErrApplicationNotFound = errors.New("applications: application not found")
	ErrAlreadyDecided      = errors.New("applications: application already decided")
	ErrInvalidTransition   = errors.New("applications: invalid status transition")
	ErrValidation          = errors.New("applications: invalid submission")
)

// Admit evaluates the submission policy for an applicant, in order:
// section open, blacklist, already-approved, cooldown. The cooldown
// clock runs from the last application's submission time and only
// non-rejected outcomes arm it.
func Admit(sec *datastructs.Section, actor *datastructs.Actor, now time.Time) error {
	if sec == nil || !sec.Open {
		return ErrSectionUnavailable
	}
	if sec.IsBlacklisted(actor.UserID) {
		return ErrBlacklisted
	}
	if authz.AlreadyHasOutcome(actor, sec) {
		return ErrAlreadyApproved
	}
	last := sec.LatestApplicationBy(actor.UserID)
	if last != nil && last.Status != datastructs.StatusRejected && now.Sub(last.SubmittedAt) < Cooldown {
		return ErrCooldownActive
	}
	return nil
}

// Submit records a new pending application. Admission is re-evaluated
// under the section lock so a blacklist or decision landing between
// form open and form submit still counts. The status message is posted
// to the section channel afterwards; a delivery failure does not undo
// the recorded submission.
func Submit(st store.Store, sfc surface.Surface, sectionID string, actor *datastructs.Actor, answers []string, now time.Time) (*datastructs.Application, error) {
	var app datastructs.Application
	sec, err := st.UpdateSection(sectionID, func(sec *datastructs.Section) error {
		if err := Admit(sec, actor, now); err != nil {
			return err
		}
		if len(answers) != len(sec.Questions) {
			return fmt.Errorf("%w: expected %d answers, got %d", ErrValidation, len(sec.Questions), len(answers))
		}
		paired := make([]datastructs.Answer, len(answers))
		for i, q := range sec.Questions {
			paired[i] = datastructs.Answer{Question: q, Answer: answers[i]}
		}
		app = datastructs.Application{
			ID:          uuid.New().String(),
			UserID:      actor.UserID,
			Username:    actor.Username,
			Answers:     paired,
			SubmittedAt: now,
			Status:      datastructs.StatusPending,
		}
		sec.Applications = append(sec.Applications, app)
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSectionUnavailable
		}
		return nil, err
	}

	if sec.ChannelID == "" {
		fmt.Printf("#[Applications]: no channel configured for section %s, application %s not delivered\n", sec.ID, app.ID)
		return &app, nil
	}
	if _, err := sfc.SendMessage(sec.ChannelID, BuildApplicationContent(sec, &app)); err != nil {
		fmt.Printf("#[Applications]: failed to deliver application %s: %v\n", app.ID, err)
	}
	return &app, nil
}

// Action is a moderation decision verb.
type Action string

const (
	ActionApprove     Action = "approve"
	ActionReject      Action = "reject"
	ActionBlacklist   Action = "blacklist"
	ActionUnblacklist Action = "unblack"
)

// Decide applies a moderation action to an application. The actor is
// authorized against the section before anything is touched, the
// transition happens exactly once under the section lock, and only then
// are the side effects run: group grants, the applicant DM and the
// status message re-render, all best effort.
//
// renderChannelID/renderMessageID point at the live status message; if
// empty the re-render is skipped.
func Decide(st store.Store, sfc surface.Surface, action Action, sectionID, appID string, actor *datastructs.Actor, now time.Time, renderChannelID, renderMessageID string) (*datastructs.Application, error) {
	var app datastructs.Application
	sec, err := st.UpdateSection(sectionID, func(sec *datastructs.Section) error {
		if !authz.CanModerate(actor, sec) {
			return authz.ErrPermissionDenied
		}
		target := sec.FindApplication(appID)
		if target == nil {
			return ErrApplicationNotFound
		}
		if err := transition(sec, target, action, now); err != nil {
			return err
		}
		app = *target
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrSectionNotFound
		}
		return nil, err
	}

	runSideEffects(sfc, sec, &app, action)

	if renderChannelID != "" && renderMessageID != "" {
		if err := sfc.EditMessage(renderChannelID, renderMessageID, BuildApplicationContent(sec, &app)); err != nil {
			fmt.Printf("#[Applications]: failed to re-render application %s: %v\n", app.ID, err)
		}
	}
	return &app, nil
}

// transition enforces the state machine: Pending fans out to the three
// terminal states, blacklist is additionally reachable from Rejected,
// and unblacklist is the single way back out of Blacklisted.
func transition(sec *datastructs.Section, app *datastructs.Application, action Action, now time.Time) error {
	switch action {
	case ActionApprove:
		if app.Status != datastructs.StatusPending {
			return ErrAlreadyDecided
		}
		app.Status = datastructs.StatusAccepted
		app.DecidedAt = &now
	case ActionReject:
		if app.Status != datastructs.StatusPending {
			return ErrAlreadyDecided
		}
		app.Status = datastructs.StatusRejected
		app.DecidedAt = &now
	case ActionBlacklist:
		if app.Status != datastructs.StatusPending && app.Status != datastructs.StatusRejected {
			return ErrAlreadyDecided
		}
		app.Status = datastructs.StatusBlacklisted
		app.DecidedAt = &now
		sec.AddToBlacklist(app.UserID)
	case ActionUnblacklist:
		if app.Status != datastructs.StatusBlacklisted {
			return ErrInvalidTransition
		}
		// the blacklist is lifted but the original decision stands
		app.Status = datastructs.StatusRejected
		if app.DecidedAt == nil {
			app.DecidedAt = &now
		}
		sec.RemoveFromBlacklist(app.UserID)
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, action)
	}
	return nil
}

func runSideEffects(sfc surface.Surface, sec *datastructs.Section, app *datastructs.Application, action Action) {
	switch action {
	case ActionApprove:
		for _, g := range sec.ApprovedGroups {
			if err := sfc.GrantGroup(app.UserID, g); err != nil {
				fmt.Printf("#[Applications]: failed to grant group %s to %s: %v\n", g, app.UserID, err)
			}
		}
		notify(sfc, app.UserID, fmt.Sprintf("Your application for %s was accepted.", sec.DisplayName()), colorAccepted)
	case ActionReject:
		notify(sfc, app.UserID, fmt.Sprintf("Your application for %s was rejected.", sec.DisplayName()), colorRejected)
	case ActionBlacklist:
		notify(sfc, app.UserID, fmt.Sprintf("You were blacklisted from %s applications.", sec.DisplayName()), colorBlacklisted)
	}
}

func notify(sfc surface.Surface, userID, text string, color int) {
	err := sfc.DirectNotify(userID, &surface.Content{
		Title: EmbedTitle,
		Body:  text,
		Color: color,
	})
	if err != nil {
		fmt.Printf("#[Applications]: failed to notify %s: %v\n", userID, err)
	}
}
