package authz

import (
	"testing"

	"github.com/tostemail20-glitch/MTCapplys/datastructs"
)

func TestCanManageSystem(t *testing.T) {
	if CanManageSystem(nil) {
		t.Error("nil actor should not manage")
	}
	if CanManageSystem(&datastructs.Actor{UserID: "1"}) {
		t.Error("non-admin should not manage")
	}
	if !CanManageSystem(&datastructs.Actor{UserID: "1", Admin: true}) {
		t.Error("admin should manage")
	}
}

func TestCanModerate(t *testing.T) {
	sec := &datastructs.Section{ID: "helper", ReviewerGroups: []string{"r1", "r2"}}

	if !CanModerate(&datastructs.Actor{Admin: true}, sec) {
		t.Error("admin should moderate any section")
	}
	if !CanModerate(&datastructs.Actor{Groups: []string{"x", "r2"}}, sec) {
		t.Error("reviewer group member should moderate")
	}
	if CanModerate(&datastructs.Actor{Groups: []string{"x"}}, sec) {
		t.Error("outsider should not moderate")
	}
	if CanModerate(nil, sec) {
		t.Error("nil actor should not moderate")
	}
	if CanModerate(&datastructs.Actor{Groups: []string{"r1"}}, nil) {
		t.Error("nil section should not be moderatable")
	}
}

func TestAlreadyHasOutcome(t *testing.T) {
	sec := &datastructs.Section{ID: "helper", ApprovedGroups: []string{"g1"}}

	if !AlreadyHasOutcome(&datastructs.Actor{Groups: []string{"g1"}}, sec) {
		t.Error("holder of an approved group should be detected")
	}
	if AlreadyHasOutcome(&datastructs.Actor{Groups: []string{"other"}}, sec) {
		t.Error("non-holder should not be detected")
	}
	if AlreadyHasOutcome(&datastructs.Actor{Admin: true}, sec) {
		t.Error("admin bit alone should not count as an outcome")
	}
}
