package repository

import (
	"testing"
	"time"

	"github.com/leadwire/leadwire/internal/db"
	"github.com/leadwire/leadwire/internal/models"
)

func seedLead(t *testing.T, d *db.DB, orgID, email string) *models.Lead {
	t.Helper()
	lead := &models.Lead{OrganizationID: orgID, Email: email}
	if err := NewLeadRepository(d.DB).Create(lead); err != nil {
		t.Fatalf("failed to seed lead: %v", err)
	}
	return lead
}

func TestConversationFindActive(t *testing.T) {
	d := setupTestDB(t)
	orgID := createTestOrg(t, d, "conv-org")
	repo := NewConversationRepository(d.DB)
	lead := seedLead(t, d, orgID, "conv@example.com")

	got, err := repo.FindActive(lead.ID, models.ChannelWhatsApp)
	if err != nil {
		t.Fatalf("FindActive failed: %v", err)
	}
	if got != nil {
		t.Fatal("expected no active conversation yet")
	}

	c := &models.Conversation{LeadID: lead.ID, Channel: models.ChannelWhatsApp}
	if err := repo.Create(c); err != nil {
		t.Fatalf("failed to create conversation: %v", err)
	}

	got, err = repo.FindActive(lead.ID, models.ChannelWhatsApp)
	if err != nil {
		t.Fatalf("FindActive failed: %v", err)
	}
	if got == nil || got.ID != c.ID {
		t.Errorf("expected active conversation %s, got %+v", c.ID, got)
	}

	// A different channel has no active conversation
	got, err = repo.FindActive(lead.ID, models.ChannelEmail)
	if err != nil {
		t.Fatalf("FindActive failed: %v", err)
	}
	if got != nil {
		t.Error("active conversation leaked across channels")
	}

	// Closing frees the (lead, channel) slot
	if err := repo.Close(c.ID); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	got, err = repo.FindActive(lead.ID, models.ChannelWhatsApp)
	if err != nil {
		t.Fatalf("FindActive failed: %v", err)
	}
	if got != nil {
		t.Error("closed conversation still reported active")
	}
}

func TestConversationRecordMessage(t *testing.T) {
	d := setupTestDB(t)
	orgID := createTestOrg(t, d, "msg-org")
	repo := NewConversationRepository(d.DB)
	messages := NewMessageRepository(d.DB)
	lead := seedLead(t, d, orgID, "msg@example.com")

	c := &models.Conversation{LeadID: lead.ID, Channel: models.ChannelEmail}
	if err := repo.Create(c); err != nil {
		t.Fatalf("failed to create conversation: %v", err)
	}

	now := time.Now()
	for i, dir := range []models.MessageDirection{models.DirectionOutbound, models.DirectionInbound} {
		m := &models.Message{
			ConversationID: c.ID,
			Direction:      dir,
			Content:        "hello",
			Timestamp:      now.Add(time.Duration(i) * time.Minute),
		}
		if err := messages.Create(m); err != nil {
			t.Fatalf("failed to create message: %v", err)
		}
		if err := repo.RecordMessage(c.ID, m.Timestamp); err != nil {
			t.Fatalf("RecordMessage failed: %v", err)
		}
	}

	got, err := repo.GetByID(c.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.MessageCount != 2 {
		t.Errorf("expected message count 2, got %d", got.MessageCount)
	}
	if got.LastMessageAt == nil {
		t.Fatal("expected last_message_at to be set")
	}

	list, err := messages.ListByConversation(c.ID)
	if err != nil {
		t.Fatalf("ListByConversation failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(list))
	}
	if list[0].Direction != models.DirectionOutbound {
		t.Error("messages not ordered oldest first")
	}
}

func TestConversationResponseTimesByChannel(t *testing.T) {
	d := setupTestDB(t)
	orgID := createTestOrg(t, d, "rt-org")
	repo := NewConversationRepository(d.DB)
	messages := NewMessageRepository(d.DB)
	lead := seedLead(t, d, orgID, "rt@example.com")

	c := &models.Conversation{LeadID: lead.ID, Channel: models.ChannelWhatsApp}
	if err := repo.Create(c); err != nil {
		t.Fatalf("failed to create conversation: %v", err)
	}

	// Outbound at t0; replies after 10 and 20 minutes, each preceded by an
	// outbound. Expected average gap: 15 minutes.
	t0 := time.Now().Add(-time.Hour).Truncate(time.Second)
	script := []struct {
		dir    models.MessageDirection
		offset time.Duration
	}{
		{models.DirectionOutbound, 0},
		{models.DirectionInbound, 10 * time.Minute},
		{models.DirectionOutbound, 12 * time.Minute},
		{models.DirectionInbound, 32 * time.Minute},
	}
	for i, s := range script {
		m := &models.Message{
			ConversationID: c.ID,
			Direction:      s.dir,
			Content:        "m",
			Timestamp:      t0.Add(s.offset),
		}
		if err := messages.Create(m); err != nil {
			t.Fatalf("failed to create message %d: %v", i, err)
		}
	}

	times, err := repo.ResponseTimesByChannel(orgID, nil, nil)
	if err != nil {
		t.Fatalf("ResponseTimesByChannel failed: %v", err)
	}
	got, ok := times["whatsapp"]
	if !ok {
		t.Fatalf("expected whatsapp entry, got %v", times)
	}
	if got < 14.9 || got > 15.1 {
		t.Errorf("expected ~15 minute average, got %v", got)
	}
}

func TestConversationStats(t *testing.T) {
	d := setupTestDB(t)
	orgID := createTestOrg(t, d, "stats-org")
	repo := NewConversationRepository(d.DB)
	leadA := seedLead(t, d, orgID, "stats-a@example.com")
	leadB := seedLead(t, d, orgID, "stats-b@example.com")

	seed := []struct {
		leadID  string
		channel models.ConversationChannel
	}{
		{leadA.ID, models.ChannelWhatsApp},
		{leadB.ID, models.ChannelWhatsApp},
		{leadA.ID, models.ChannelEmail},
	}
	ids := make([]string, 0, len(seed))
	for _, s := range seed {
		c := &models.Conversation{LeadID: s.leadID, Channel: s.channel}
		if err := repo.Create(c); err != nil {
			t.Fatalf("failed to create conversation: %v", err)
		}
		ids = append(ids, c.ID)
	}
	if err := repo.Close(ids[0]); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	stats, err := repo.Stats(orgID, nil, nil)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 3 || stats.Active != 2 || stats.Closed != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.ChannelDistribution["whatsapp"] != 2 || stats.ChannelDistribution["email"] != 1 {
		t.Errorf("unexpected channel distribution: %v", stats.ChannelDistribution)
	}

	n, err := repo.CountActive(orgID)
	if err != nil {
		t.Fatalf("CountActive failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 active conversations, got %d", n)
	}
}
