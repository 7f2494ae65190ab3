package realtime

import (
	"bytes"
	"encoding/json"
	"testing"
)

func testConn(orgID string) (*Conn, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewConn(orgID, json.NewEncoder(&buf)), &buf
}

func TestRegistryAddRemove(t *testing.T) {
	r := NewRegistry()
	c, _ := testConn("org-1")

	r.Add("org-1", c)
	r.Add(ConversationTopic("conv-1"), c)

	if got := r.ConnectedClients("org-1"); got != 1 {
		t.Fatalf("ConnectedClients(org-1) = %d, want 1", got)
	}
	if got := r.Subscriptions(); got != 2 {
		t.Fatalf("Subscriptions() = %d, want 2", got)
	}

	r.Remove(ConversationTopic("conv-1"), c)
	if got := r.ConnectedClients(ConversationTopic("conv-1")); got != 0 {
		t.Fatalf("conversation topic still has %d members after Remove", got)
	}
	if got := r.Subscriptions(); got != 1 {
		t.Fatalf("Subscriptions() = %d after Remove, want 1", got)
	}
}

func TestRegistryDropClearsAllTopics(t *testing.T) {
	r := NewRegistry()
	c, _ := testConn("org-1")
	other, _ := testConn("org-1")

	r.Add("org-1", c)
	r.Add("org-1", other)
	r.Add(ConversationTopic("conv-1"), c)
	r.Add(CampaignTopic("camp-1"), c)

	r.Drop(c)

	if got := r.ConnectedClients("org-1"); got != 1 {
		t.Errorf("ConnectedClients(org-1) = %d after Drop, want 1", got)
	}
	for _, topic := range []string{ConversationTopic("conv-1"), CampaignTopic("camp-1")} {
		if got := r.ConnectedClients(topic); got != 0 {
			t.Errorf("ConnectedClients(%s) = %d after Drop, want 0", topic, got)
		}
	}
	if got := r.Subscriptions(); got != 1 {
		t.Errorf("Subscriptions() = %d after Drop, want 1", got)
	}
}

func TestRegistryMembersOfSnapshot(t *testing.T) {
	r := NewRegistry()
	if members := r.MembersOf("org-1"); members != nil {
		t.Fatalf("MembersOf on empty topic = %v, want nil", members)
	}

	c1, _ := testConn("org-1")
	c2, _ := testConn("org-1")
	r.Add("org-1", c1)
	r.Add("org-1", c2)

	members := r.MembersOf("org-1")
	if len(members) != 2 {
		t.Fatalf("MembersOf returned %d members, want 2", len(members))
	}

	// The snapshot must stay valid while the registry mutates
	r.Drop(c1)
	r.Drop(c2)
	if len(members) != 2 {
		t.Fatalf("snapshot shrank to %d after Drop", len(members))
	}
}

func TestRegistryDuplicateAddIsIdempotent(t *testing.T) {
	r := NewRegistry()
	c, _ := testConn("org-1")

	r.Add("org-1", c)
	r.Add("org-1", c)

	if got := r.ConnectedClients("org-1"); got != 1 {
		t.Fatalf("ConnectedClients = %d after duplicate Add, want 1", got)
	}
	if got := r.Subscriptions(); got != 1 {
		t.Fatalf("Subscriptions = %d after duplicate Add, want 1", got)
	}
}
