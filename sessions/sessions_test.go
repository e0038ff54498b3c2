package sessions

import (
	"testing"
	"time"
)

func TestExpectAndResolve(t *testing.T) {
	m := NewManager()
	sess, err := m.Expect("u1", "c1")
	if err != nil {
		t.Fatalf("Expect failed: %v", err)
	}

	if !m.HandleMessage("u1", "c1", "hello") {
		t.Fatal("matching message was not consumed")
	}
	reply, ok := sess.Wait(time.Second)
	if !ok {
		t.Fatal("Wait timed out with a reply already delivered")
	}
	if reply != "hello" {
		t.Errorf("reply = %q, want %q", reply, "hello")
	}
}

func TestHandleMessageIgnoresStrangers(t *testing.T) {
	m := NewManager()
	if _, err := m.Expect("u1", "c1"); err != nil {
		t.Fatalf("Expect failed: %v", err)
	}
	if m.HandleMessage("u2", "c1", "x") {
		t.Error("message from another user was consumed")
	}
	if m.HandleMessage("u1", "c2", "x") {
		t.Error("message in another channel was consumed")
	}
}

func TestSingleConsumption(t *testing.T) {
	m := NewManager()
	if _, err := m.Expect("u1", "c1"); err != nil {
		t.Fatalf("Expect failed: %v", err)
	}
	if !m.HandleMessage("u1", "c1", "first") {
		t.Fatal("first message was not consumed")
	}
	if m.HandleMessage("u1", "c1", "second") {
		t.Error("second message was consumed by a resolved session")
	}
}

func TestDuplicateExpect(t *testing.T) {
	m := NewManager()
	sess, err := m.Expect("u1", "c1")
	if err != nil {
		t.Fatalf("Expect failed: %v", err)
	}
	if _, err := m.Expect("u1", "c1"); err != ErrSessionActive {
		t.Errorf("duplicate Expect error = %v, want ErrSessionActive", err)
	}
	// same user in another channel is a different exchange
	if _, err := m.Expect("u1", "c2"); err != nil {
		t.Errorf("Expect in another channel failed: %v", err)
	}

	sess.Cancel()
	if _, err := m.Expect("u1", "c1"); err != nil {
		t.Errorf("Expect after Cancel failed: %v", err)
	}
}

func TestWaitTimeout(t *testing.T) {
	m := NewManager()
	sess, err := m.Expect("u1", "c1")
	if err != nil {
		t.Fatalf("Expect failed: %v", err)
	}
	if _, ok := sess.Wait(10 * time.Millisecond); ok {
		t.Fatal("Wait reported a reply that was never sent")
	}
	// the timed out session must not swallow later messages
	if m.HandleMessage("u1", "c1", "late") {
		t.Error("late message was consumed after timeout")
	}
}
