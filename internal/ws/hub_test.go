package ws

import (
	"context"
	"testing"
)

func TestHubJoinAndLeaveGroup(t *testing.T) {
	hub := NewHub(nil)
	c := NewClient(nil, ConnInfo{ConnID: "a"}, 4)

	hub.Join("conversation_abc", c)
	if hub.GroupSize("conversation_abc") != 1 {
		t.Fatalf("expected group to be created")
	}

	hub.Leave("conversation_abc", c)
	if len(hub.groups) != 0 {
		t.Fatalf("expected empty group to be removed")
	}
}

func TestHubDeliversToEveryMember(t *testing.T) {
	hub := NewHub(nil)
	a := NewClient(nil, ConnInfo{ConnID: "a"}, 4)
	b := NewClient(nil, ConnInfo{ConnID: "b"}, 4)
	other := NewClient(nil, ConnInfo{ConnID: "c"}, 4)
	hub.Join("inbox_5", a)
	hub.Join("inbox_5", b)
	hub.Join("inbox_9", other)

	if err := hub.Publish(context.Background(), "inbox_5", []byte(`{"x":1}`)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	for _, c := range []*Client{a, b} {
		select {
		case got := <-c.send:
			if string(got) != `{"x":1}` {
				t.Fatalf("unexpected payload %s", got)
			}
		default:
			t.Fatalf("client %s got nothing", c.Info.ConnID)
		}
	}
	if len(other.send) != 0 {
		t.Fatalf("payload leaked to another group")
	}
}

func TestHubDropsForFullOrClosedClient(t *testing.T) {
	hub := NewHub(nil)
	slow := NewClient(nil, ConnInfo{ConnID: "slow"}, 1)
	closed := NewClient(nil, ConnInfo{ConnID: "closed"}, 1)
	closed.Close()
	closed.Close()
	hub.Join("conversation_abc", slow)
	hub.Join("conversation_abc", closed)

	if n := hub.Deliver("conversation_abc", []byte("1")); n != 1 {
		t.Fatalf("expected 1 delivery, got %d", n)
	}
	if n := hub.Deliver("conversation_abc", []byte("2")); n != 0 {
		t.Fatalf("expected full queue to drop, got %d", n)
	}
	if got := hub.Groups(); got["conversation_abc"] != 2 {
		t.Fatalf("unexpected groups %v", got)
	}
}

func TestHubPublishToUnknownGroup(t *testing.T) {
	hub := NewHub(nil)
	if n := hub.Deliver("inbox_404", []byte("x")); n != 0 {
		t.Fatalf("expected no delivery, got %d", n)
	}
}
