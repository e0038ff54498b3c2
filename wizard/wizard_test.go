package wizard

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/tostemail20-glitch/MTCapplys/authz"
	"github.com/tostemail20-glitch/MTCapplys/datastructs"
	"github.com/tostemail20-glitch/MTCapplys/sessions"
	"github.com/tostemail20-glitch/MTCapplys/store"
	"github.com/tostemail20-glitch/MTCapplys/surface"
)

// fakeSurface answers each prompt with the next scripted reply, routed
// through the session manager exactly like an inbound message would be.
type fakeSurface struct {
	mgr      *sessions.Manager
	actor    *datastructs.Actor
	channel  string
	replies  []string
	prompts  []string
	channels map[string]bool
	groups   map[string]bool
}

func (f *fakeSurface) SendMessage(channelID string, c *surface.Content) (string, error) {
	f.prompts = append(f.prompts, c.Body)
	if len(f.replies) > 0 {
		reply := f.replies[0]
		f.replies = f.replies[1:]
		f.mgr.HandleMessage(f.actor.UserID, f.channel, reply)
	}
	return "m", nil
}

func (f *fakeSurface) EditMessage(channelID, messageID string, c *surface.Content) error {
	return nil
}
func (f *fakeSurface) FetchMessage(channelID, messageID string) (bool, error) { return true, nil }
func (f *fakeSurface) FetchMember(userID string) (*datastructs.Actor, error)  { return nil, nil }
func (f *fakeSurface) ChannelExists(channelID string) (bool, error) {
	return f.channels[channelID], nil
}
func (f *fakeSurface) GroupExists(groupID string) (bool, error)             { return f.groups[groupID], nil }
func (f *fakeSurface) GrantGroup(userID, groupID string) error              { return nil }
func (f *fakeSurface) DirectNotify(userID string, c *surface.Content) error { return nil }
func (f *fakeSurface) CustomEmojiIDs() (map[string]bool, error)             { return nil, nil }

func newWizard(replies ...string) (*Wizard, *store.Memory, *fakeSurface, *datastructs.Actor) {
	st := store.NewMemory()
	mgr := sessions.NewManager()
	admin := &datastructs.Actor{UserID: "admin", Username: "boss", Admin: true}
	sfc := &fakeSurface{
		mgr:      mgr,
		actor:    admin,
		channel:  "ops",
		replies:  replies,
		channels: make(map[string]bool),
		groups:   make(map[string]bool),
	}
	w := New(st, sfc, mgr)
	w.ReplyTimeout = time.Second
	w.ConfirmTimeout = time.Second
	return w, st, sfc, admin
}

func TestNonAdminRejected(t *testing.T) {
	w, _, _, _ := newWizard()
	mortal := &datastructs.Actor{UserID: "u1"}
	if err := w.EditMainMessage(mortal, "ops"); !errors.Is(err, authz.ErrPermissionDenied) {
		t.Errorf("err = %v, want ErrPermissionDenied", err)
	}
	if _, err := w.AddSection(mortal, "ops"); !errors.Is(err, authz.ErrPermissionDenied) {
		t.Errorf("err = %v, want ErrPermissionDenied", err)
	}
}

func TestTimeoutCancels(t *testing.T) {
	w, st, _, admin := newWizard() // no scripted replies
	w.ReplyTimeout = 10 * time.Millisecond

	_, err := w.AddSection(admin, "ops")
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	ids, _ := st.ListSectionIDs()
	if len(ids) != 0 {
		t.Error("cancelled flow created a section")
	}
}

func TestEditMainMessage(t *testing.T) {
	w, st, _, admin := newWizard("Now recruiting:\n{applys}")
	if err := w.EditMainMessage(admin, "ops"); err != nil {
		t.Fatalf("EditMainMessage failed: %v", err)
	}
	reg, _ := st.LoadRegistry()
	if reg.MainMessage != "Now recruiting:\n{applys}" {
		t.Errorf("main message = %q", reg.MainMessage)
	}
}

func TestAddSection(t *testing.T) {
	w, st, _, admin := newWizard("Helper Team")
	sec, err := w.AddSection(admin, "ops")
	if err != nil {
		t.Fatalf("AddSection failed: %v", err)
	}
	if sec.ID != "Helper Team" || !sec.Open || len(sec.Questions) != 0 {
		t.Errorf("new section = %+v", sec)
	}
	got, _ := st.LoadSection("Helper Team")
	if got == nil {
		t.Fatal("section not persisted")
	}
}

func TestAddSectionSanitizesID(t *testing.T) {
	w, _, _, admin := newWizard(`he/lp:er?`)
	sec, err := w.AddSection(admin, "ops")
	if err != nil {
		t.Fatalf("AddSection failed: %v", err)
	}
	if sec.ID != "helper" {
		t.Errorf("id = %q, want %q", sec.ID, "helper")
	}
}

func TestAddSectionDuplicate(t *testing.T) {
	w, st, _, admin := newWizard("helper")
	if err := st.SaveSection(datastructs.NewSection("helper")); err != nil {
		t.Fatalf("SaveSection failed: %v", err)
	}
	if _, err := w.AddSection(admin, "ops"); !errors.Is(err, ErrSectionExists) {
		t.Errorf("err = %v, want ErrSectionExists", err)
	}
}

func TestToggleSection(t *testing.T) {
	w, _, _, admin := newWizard()
	if err := w.Store.SaveSection(datastructs.NewSection("helper")); err != nil {
		t.Fatalf("SaveSection failed: %v", err)
	}
	open, err := w.ToggleSection(admin, "helper")
	if err != nil || open {
		t.Fatalf("first toggle = %v, %v; want closed", open, err)
	}
	open, err = w.ToggleSection(admin, "helper")
	if err != nil || !open {
		t.Fatalf("second toggle = %v, %v; want open", open, err)
	}
	if _, err := w.ToggleSection(admin, "ghost"); !errors.Is(err, ErrSectionNotFound) {
		t.Errorf("err = %v, want ErrSectionNotFound", err)
	}
}

func TestQuestionFlows(t *testing.T) {
	w, st, _, admin := newWizard("What is your timezone?")
	if err := st.SaveSection(datastructs.NewSection("helper")); err != nil {
		t.Fatalf("SaveSection failed: %v", err)
	}
	if err := w.AddQuestion(admin, "ops", "helper"); err != nil {
		t.Fatalf("AddQuestion failed: %v", err)
	}

	sfc := w.Surface.(*fakeSurface)
	sfc.replies = []string{"1", "How old are you?"}
	if err := w.EditQuestion(admin, "ops", "helper"); err != nil {
		t.Fatalf("EditQuestion failed: %v", err)
	}
	sec, _ := st.LoadSection("helper")
	if !reflect.DeepEqual(sec.Questions, []string{"How old are you?"}) {
		t.Errorf("questions = %v", sec.Questions)
	}

	sfc.replies = []string{"1"}
	if err := w.RemoveQuestion(admin, "ops", "helper"); err != nil {
		t.Fatalf("RemoveQuestion failed: %v", err)
	}
	sec, _ = st.LoadSection("helper")
	if len(sec.Questions) != 0 {
		t.Errorf("questions = %v, want empty", sec.Questions)
	}
}

func TestAddQuestionLimit(t *testing.T) {
	w, st, _, admin := newWizard("one too many")
	sec := datastructs.NewSection("helper")
	for i := 0; i < datastructs.MaxQuestions; i++ {
		sec.Questions = append(sec.Questions, "q")
	}
	if err := st.SaveSection(sec); err != nil {
		t.Fatalf("SaveSection failed: %v", err)
	}
	if err := w.AddQuestion(admin, "ops", "helper"); !errors.Is(err, ErrQuestionLimit) {
		t.Fatalf("err = %v, want ErrQuestionLimit", err)
	}
	got, _ := st.LoadSection("helper")
	if len(got.Questions) != datastructs.MaxQuestions {
		t.Error("question was added past the cap")
	}

	// removing one frees exactly one slot
	sfc := w.Surface.(*fakeSurface)
	sfc.replies = []string{"1"}
	if err := w.RemoveQuestion(admin, "ops", "helper"); err != nil {
		t.Fatalf("RemoveQuestion failed: %v", err)
	}
	sfc.replies = []string{"fits again"}
	if err := w.AddQuestion(admin, "ops", "helper"); err != nil {
		t.Fatalf("AddQuestion after remove failed: %v", err)
	}
	sfc.replies = []string{"overflow"}
	if err := w.AddQuestion(admin, "ops", "helper"); !errors.Is(err, ErrQuestionLimit) {
		t.Errorf("err = %v, want ErrQuestionLimit at the cap again", err)
	}
}

func TestRemoveQuestionBadIndex(t *testing.T) {
	w, st, _, admin := newWizard("7")
	sec := datastructs.NewSection("helper")
	sec.Questions = []string{"only one"}
	if err := st.SaveSection(sec); err != nil {
		t.Fatalf("SaveSection failed: %v", err)
	}
	if err := w.RemoveQuestion(admin, "ops", "helper"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

func TestEditChannel(t *testing.T) {
	w, st, sfc, admin := newWizard("<#123>")
	sfc.channels["123"] = true
	if err := st.SaveSection(datastructs.NewSection("helper")); err != nil {
		t.Fatalf("SaveSection failed: %v", err)
	}
	if err := w.EditChannel(admin, "ops", "helper"); err != nil {
		t.Fatalf("EditChannel failed: %v", err)
	}
	sec, _ := st.LoadSection("helper")
	if sec.ChannelID != "123" {
		t.Errorf("channel = %q, want 123", sec.ChannelID)
	}

	sfc.replies = []string{"<#999>"}
	if err := w.EditChannel(admin, "ops", "helper"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("unknown channel err = %v, want ErrInvalidInput", err)
	}
}

func TestGroupFlows(t *testing.T) {
	w, st, sfc, admin := newWizard("<@&55>")
	sfc.groups["55"] = true
	if err := st.SaveSection(datastructs.NewSection("helper")); err != nil {
		t.Fatalf("SaveSection failed: %v", err)
	}

	if err := w.AddGroup(admin, "ops", "helper", ReviewerGroups); err != nil {
		t.Fatalf("AddGroup failed: %v", err)
	}
	// adding the same group twice keeps a single entry
	sfc.replies = []string{"<@&55>"}
	if err := w.AddGroup(admin, "ops", "helper", ReviewerGroups); err != nil {
		t.Fatalf("second AddGroup failed: %v", err)
	}
	sec, _ := st.LoadSection("helper")
	if !reflect.DeepEqual(sec.ReviewerGroups, []string{"55"}) {
		t.Errorf("reviewer groups = %v", sec.ReviewerGroups)
	}

	sfc.replies = []string{"<@&66>"}
	if err := w.AddGroup(admin, "ops", "helper", ApprovedGroups); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("unknown role err = %v, want ErrInvalidInput", err)
	}

	sfc.replies = []string{"55"}
	if err := w.RemoveGroup(admin, "ops", "helper", ReviewerGroups); err != nil {
		t.Fatalf("RemoveGroup failed: %v", err)
	}
	sec, _ = st.LoadSection("helper")
	if len(sec.ReviewerGroups) != 0 {
		t.Errorf("reviewer groups = %v, want empty", sec.ReviewerGroups)
	}
}

func TestDeleteSection(t *testing.T) {
	w, st, sfc, admin := newWizard("nope")
	if err := st.SaveSection(datastructs.NewSection("helper")); err != nil {
		t.Fatalf("SaveSection failed: %v", err)
	}

	if err := w.DeleteSection(admin, "ops", "helper"); !errors.Is(err, ErrCancelled) {
		t.Fatalf("wrong confirmation err = %v, want ErrCancelled", err)
	}
	if sec, _ := st.LoadSection("helper"); sec == nil {
		t.Fatal("section deleted despite wrong confirmation")
	}

	sfc.replies = []string{DeleteConfirmation}
	if err := w.DeleteSection(admin, "ops", "helper"); err != nil {
		t.Fatalf("DeleteSection failed: %v", err)
	}
	if sec, _ := st.LoadSection("helper"); sec != nil {
		t.Error("section still present after confirmed delete")
	}
}
