package lifecycle

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/leadwire/leadwire/internal/db"
	"github.com/leadwire/leadwire/internal/errs"
	"github.com/leadwire/leadwire/internal/models"
	"github.com/leadwire/leadwire/internal/repository"
)

type fixture struct {
	db        *db.DB
	orgID     string
	manager   *Manager
	leads     *repository.LeadRepository
	campaigns *repository.CampaignRepository
	pairs     *repository.CampaignLeadRepository
}

func setup(t *testing.T) *fixture {
	t.Helper()

	d, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	d.SetMaxOpenConns(1)
	if err := d.Migrate(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	org := &models.Organization{Name: "Test", Slug: "test"}
	if err := repository.NewOrganizationRepository(d.DB).Create(org); err != nil {
		t.Fatalf("failed to create organization: %v", err)
	}

	leads := repository.NewLeadRepository(d.DB)
	campaigns := repository.NewCampaignRepository(d.DB)
	pairs := repository.NewCampaignLeadRepository(d.DB)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &fixture{
		db:        d,
		orgID:     org.ID,
		manager:   New(campaigns, pairs, leads, logger),
		leads:     leads,
		campaigns: campaigns,
		pairs:     pairs,
	}
}

func (f *fixture) campaign(t *testing.T) *models.Campaign {
	t.Helper()
	c := &models.Campaign{OrganizationID: f.orgID, Name: "c", Type: models.CampaignTypeEmail}
	if err := f.campaigns.Create(c); err != nil {
		t.Fatalf("failed to create campaign: %v", err)
	}
	return c
}

func (f *fixture) lead(t *testing.T, email string) *models.Lead {
	t.Helper()
	l := &models.Lead{OrganizationID: f.orgID, Email: email}
	if err := f.leads.Create(l); err != nil {
		t.Fatalf("failed to create lead: %v", err)
	}
	return l
}

func TestStartRequiresDraft(t *testing.T) {
	f := setup(t)
	c := f.campaign(t)

	started, err := f.manager.Start(f.orgID, c.ID, nil, nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if started.Status != models.CampaignStatusActive {
		t.Errorf("expected active, got %s", started.Status)
	}
	if started.StartedAt == nil {
		t.Error("expected started_at to be stamped")
	}

	if _, err := f.manager.Start(f.orgID, c.ID, nil, nil); !errors.Is(err, errs.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition starting an active campaign, got %v", err)
	}
}

func TestStartMergesSettings(t *testing.T) {
	f := setup(t)
	c := &models.Campaign{
		OrganizationID: f.orgID,
		Name:           "c",
		Type:           models.CampaignTypeEmail,
		Settings:       models.CampaignSettings{DailyLimit: 50, Timezone: "UTC", FollowUpDelay: 24},
	}
	if err := f.campaigns.Create(c); err != nil {
		t.Fatalf("failed to create campaign: %v", err)
	}

	started, err := f.manager.Start(f.orgID, c.ID, &models.CampaignSettings{DailyLimit: 10}, nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if started.Settings.DailyLimit != 10 {
		t.Errorf("expected override daily limit 10, got %d", started.Settings.DailyLimit)
	}
	if started.Settings.Timezone != "UTC" || started.Settings.FollowUpDelay != 24 {
		t.Errorf("stored settings lost in merge: %+v", started.Settings)
	}
}

func TestPauseResumeComplete(t *testing.T) {
	f := setup(t)
	c := f.campaign(t)

	// Pausing a draft is illegal
	if _, err := f.manager.Pause(f.orgID, c.ID); !errors.Is(err, errs.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition pausing a draft, got %v", err)
	}

	if _, err := f.manager.Start(f.orgID, c.ID, nil, nil); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	paused, err := f.manager.Pause(f.orgID, c.ID)
	if err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	if paused.Status != models.CampaignStatusPaused {
		t.Errorf("expected paused, got %s", paused.Status)
	}

	// Completing from paused is illegal; resume first
	if _, err := f.manager.Complete(f.orgID, c.ID); !errors.Is(err, errs.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition completing a paused campaign, got %v", err)
	}
	if _, err := f.manager.Resume(f.orgID, c.ID); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}

	done, err := f.manager.Complete(f.orgID, c.ID)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if done.Status != models.CampaignStatusCompleted {
		t.Errorf("expected completed, got %s", done.Status)
	}
	if done.CompletedAt == nil {
		t.Error("expected completed_at to be stamped")
	}

	archived, err := f.manager.Archive(f.orgID, c.ID)
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if archived.Status != models.CampaignStatusArchived {
		t.Errorf("expected archived, got %s", archived.Status)
	}
}

func TestEnrollIdempotentAndRefreshesCounters(t *testing.T) {
	f := setup(t)
	c := f.campaign(t)
	l1 := f.lead(t, "one@example.com")
	l2 := f.lead(t, "two@example.com")

	if err := f.manager.Enroll(f.orgID, c.ID, []string{l1.ID, l2.ID}); err != nil {
		t.Fatalf("Enroll failed: %v", err)
	}
	// Overlapping batch
	if err := f.manager.Enroll(f.orgID, c.ID, []string{l2.ID}); err != nil {
		t.Fatalf("second Enroll failed: %v", err)
	}

	got, err := f.campaigns.GetByID(f.orgID, c.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.TotalLeads != 2 {
		t.Errorf("expected 2 total leads after overlapping enrollments, got %d", got.TotalLeads)
	}

	if err := f.manager.Enroll(f.orgID, c.ID, []string{"missing"}); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("expected ErrNotFound enrolling unknown lead, got %v", err)
	}
}

func TestImportToCampaignMergesByEmail(t *testing.T) {
	f := setup(t)
	c := f.campaign(t)
	existing := f.lead(t, "known@example.com")

	records := []models.LeadRecord{
		{Email: "known@example.com", Phone: "+15550001"},
		{Email: "fresh@example.com", FirstName: "Fresh"},
		{Email: "FRESH@example.com", LastName: "Doe"}, // same lead, different case
		{Email: "not-an-email"},
	}
	result, err := f.manager.ImportToCampaign(f.orgID, c.ID, records)
	if err != nil {
		t.Fatalf("ImportToCampaign failed: %v", err)
	}
	if result.Created != 1 {
		t.Errorf("expected 1 created lead, got %d", result.Created)
	}
	if len(result.Errors) != 1 {
		t.Errorf("expected 1 record error, got %v", result.Errors)
	}

	// The existing lead was merged, not duplicated
	merged, err := f.leads.GetByID(f.orgID, existing.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if merged.Phone != "+15550001" {
		t.Errorf("expected merged phone, got %q", merged.Phone)
	}

	// In-batch duplicate resolved to one lead with both names
	fresh, err := f.leads.GetByEmail(f.orgID, "fresh@example.com")
	if err != nil || fresh == nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if fresh.FirstName != "Fresh" || fresh.LastName != "Doe" {
		t.Errorf("in-batch duplicate not merged: %+v", fresh)
	}

	got, err := f.campaigns.GetByID(f.orgID, c.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.TotalLeads != 2 {
		t.Errorf("expected 2 enrolled leads, got %d", got.TotalLeads)
	}
}

func TestImportLeadsCounts(t *testing.T) {
	f := setup(t)
	f.lead(t, "old@example.com")

	result, err := f.manager.ImportLeads(f.orgID, []models.LeadRecord{
		{Email: "old@example.com", FirstName: "Old"},
		{Email: "new@example.com"},
	})
	if err != nil {
		t.Fatalf("ImportLeads failed: %v", err)
	}
	if result.Created != 1 || result.Updated != 1 {
		t.Errorf("expected 1 created and 1 updated, got %+v", result)
	}
}

func TestMarkConvertedAdvancesCampaignRows(t *testing.T) {
	f := setup(t)
	c := f.campaign(t)
	l := f.lead(t, "convert@example.com")

	if _, err := f.manager.Start(f.orgID, c.ID, nil, []string{l.ID}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	lead, err := f.manager.MarkConverted(f.orgID, l.ID)
	if err != nil {
		t.Fatalf("MarkConverted failed: %v", err)
	}
	if lead.Status != models.LeadStatusConverted {
		t.Errorf("expected converted lead, got %s", lead.Status)
	}
	if lead.ConvertedAt == nil {
		t.Error("expected converted_at to be stamped")
	}

	cl, err := f.pairs.GetByPair(c.ID, l.ID)
	if err != nil || cl == nil {
		t.Fatalf("GetByPair failed: %v", err)
	}
	if cl.Status != models.CampaignLeadStatusConverted {
		t.Errorf("expected converted campaign row, got %s", cl.Status)
	}
}
