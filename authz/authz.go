// Package authz holds the pure predicates every moderation and admin
// entry point must pass before mutating anything.
package authz

import (
	"errors"

	"github.com/tostemail20-glitch/MTCapplys/datastructs"
)

// ErrPermissionDenied is returned by callers when a predicate fails.
// No mutation may have been attempted by then.
var ErrPermissionDenied = errors.New("authz: permission denied")

// CanManageSystem reports whether the actor holds the administrator
// capability. Required for every configuration wizard.
func CanManageSystem(actor *datastructs.Actor) bool {
	return actor != nil && actor.Admin
}

// CanModerate reports whether the actor may decide applications in the
// section: administrators always, otherwise membership in any of the
// section's reviewer groups.
func CanModerate(actor *datastructs.Actor, section *datastructs.Section) bool {
	if CanManageSystem(actor) {
		return true
	}
	if actor == nil || section == nil {
		return false
	}
	return intersects(actor.Groups, section.ReviewerGroups)
}

// AlreadyHasOutcome reports whether the actor already holds a group the
// section grants on approval, which blocks a new application.
func AlreadyHasOutcome(actor *datastructs.Actor, section *datastructs.Section) bool {
	if actor == nil || section == nil {
		return false
	}
	return intersects(actor.Groups, section.ApprovedGroups)
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
