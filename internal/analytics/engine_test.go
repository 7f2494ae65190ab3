package analytics

import (
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/leadwire/leadwire/internal/db"
	"github.com/leadwire/leadwire/internal/models"
	"github.com/leadwire/leadwire/internal/repository"
)

type fixture struct {
	orgID         string
	engine        *Engine
	leads         *repository.LeadRepository
	campaigns     *repository.CampaignRepository
	conversations *repository.ConversationRepository
	agents        *repository.AgentRepository
	messages      *repository.MessageRepository
	pairs         *repository.CampaignLeadRepository
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
	conversations := repository.NewConversationRepository(d.DB)
	agents := repository.NewAgentRepository(d.DB)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &fixture{
		orgID:         org.ID,
		engine:        New(leads, campaigns, conversations, agents, logger),
		leads:         leads,
		campaigns:     campaigns,
		conversations: conversations,
		agents:        agents,
		messages:      repository.NewMessageRepository(d.DB),
		pairs:         repository.NewCampaignLeadRepository(d.DB),
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestLeadFunnelRates(t *testing.T) {
	f := setup(t)

	// 10 leads, 4 past first contact, 2 with responses, 1 qualified,
	// 1 converted
	seed := []models.Lead{
		{Email: "n1@x.com"}, {Email: "n2@x.com"}, {Email: "n3@x.com"},
		{Email: "n4@x.com"}, {Email: "n5@x.com"}, {Email: "n6@x.com"},
		{Email: "c1@x.com", Status: models.LeadStatusContacted},
		{Email: "c2@x.com", Status: models.LeadStatusContacted},
		{Email: "q1@x.com", Status: models.LeadStatusQualified, ResponseCount: 1},
		{Email: "v1@x.com", Status: models.LeadStatusConverted, ResponseCount: 2},
	}
	for i := range seed {
		seed[i].OrganizationID = f.orgID
		if err := f.leads.Create(&seed[i]); err != nil {
			t.Fatalf("failed to seed lead %d: %v", i, err)
		}
	}

	funnel, err := f.engine.LeadFunnel(f.orgID, Window{})
	if err != nil {
		t.Fatalf("LeadFunnel failed: %v", err)
	}

	if funnel.Total != 10 || funnel.Contacted != 4 || funnel.Engaged != 2 ||
		funnel.Qualified != 1 || funnel.Converted != 1 {
		t.Fatalf("funnel counts mismatch: %+v", funnel)
	}
	if !almostEqual(funnel.ContactRate, 0.4) {
		t.Errorf("expected contact rate 0.4, got %v", funnel.ContactRate)
	}
	if !almostEqual(funnel.EngagementRate, 0.5) {
		t.Errorf("expected engagement rate 0.5, got %v", funnel.EngagementRate)
	}
	if !almostEqual(funnel.QualificationRate, 0.5) {
		t.Errorf("expected qualification rate 0.5, got %v", funnel.QualificationRate)
	}
	if !almostEqual(funnel.ConversionRate, 1) {
		t.Errorf("expected conversion rate 1, got %v", funnel.ConversionRate)
	}
	if !almostEqual(funnel.OverallConversion, 0.1) {
		t.Errorf("expected overall conversion 0.1, got %v", funnel.OverallConversion)
	}
}

func TestLeadFunnelEmptyOrganization(t *testing.T) {
	f := setup(t)

	funnel, err := f.engine.LeadFunnel(f.orgID, Window{})
	if err != nil {
		t.Fatalf("LeadFunnel failed: %v", err)
	}
	if funnel.Total != 0 {
		t.Fatalf("expected empty funnel, got %+v", funnel)
	}
	// Every rate is 0, never NaN
	for name, rate := range map[string]float64{
		"contact":       funnel.ContactRate,
		"engagement":    funnel.EngagementRate,
		"qualification": funnel.QualificationRate,
		"conversion":    funnel.ConversionRate,
		"overall":       funnel.OverallConversion,
	} {
		if rate != 0 {
			t.Errorf("expected %s rate 0 on empty funnel, got %v", name, rate)
		}
	}
}

func TestCampaignPerformanceRates(t *testing.T) {
	f := setup(t)
	pairs := f.pairs

	c := &models.Campaign{OrganizationID: f.orgID, Name: "perf", Type: models.CampaignTypeEmail}
	if err := f.campaigns.Create(c); err != nil {
		t.Fatalf("failed to create campaign: %v", err)
	}

	now := time.Now()
	for i, spec := range []struct {
		email   string
		inbound bool
	}{
		{"p1@x.com", true},
		{"p2@x.com", true},
		{"p3@x.com", false},
		{"p4@x.com", false},
	} {
		lead := &models.Lead{OrganizationID: f.orgID, Email: spec.email}
		if err := f.leads.Create(lead); err != nil {
			t.Fatalf("failed to seed lead %d: %v", i, err)
		}
		if _, err := pairs.Enroll(c.ID, lead.ID); err != nil {
			t.Fatalf("Enroll failed: %v", err)
		}
		cl, _ := pairs.GetByPair(c.ID, lead.ID)
		if err := pairs.RecordOutbound(cl.ID, now); err != nil {
			t.Fatalf("RecordOutbound failed: %v", err)
		}
		if spec.inbound {
			if err := pairs.RecordInbound(cl.ID, now.Add(30*time.Minute)); err != nil {
				t.Fatalf("RecordInbound failed: %v", err)
			}
		}
	}

	perf, err := f.engine.CampaignPerformance(f.orgID)
	if err != nil {
		t.Fatalf("CampaignPerformance failed: %v", err)
	}
	if len(perf) != 1 {
		t.Fatalf("expected 1 campaign, got %d", len(perf))
	}
	p := perf[0]
	if p.Leads != 4 || p.Contacted != 4 || p.Responded != 2 {
		t.Errorf("unexpected counts: %+v", p)
	}
	if p.ResponseRate != 50 {
		t.Errorf("expected response rate 50, got %v", p.ResponseRate)
	}
	if p.AvgResponseTimeMinutes != 30 {
		t.Errorf("expected 30 minute average response, got %v", p.AvgResponseTimeMinutes)
	}
}

func TestDashboardOverview(t *testing.T) {
	f := setup(t)

	for i, l := range []models.Lead{
		{Email: "d1@x.com", Status: models.LeadStatusEngaged, ResponseCount: 1},
		{Email: "d2@x.com"},
		{Email: "d3@x.com", Status: models.LeadStatusContested},
		{Email: "d4@x.com"},
	} {
		l.OrganizationID = f.orgID
		if err := f.leads.Create(&l); err != nil {
			t.Fatalf("failed to seed lead %d: %v", i, err)
		}
	}

	c := &models.Campaign{OrganizationID: f.orgID, Name: "c", Type: models.CampaignTypeEmail, Status: models.CampaignStatusActive}
	if err := f.campaigns.Create(c); err != nil {
		t.Fatalf("failed to create campaign: %v", err)
	}

	agent := &models.Agent{OrganizationID: f.orgID, Name: "wa-bot", Type: models.AgentTypeWhatsApp}
	if err := f.agents.Create(agent); err != nil {
		t.Fatalf("failed to create agent: %v", err)
	}

	overview, err := f.engine.DashboardOverview(f.orgID)
	if err != nil {
		t.Fatalf("DashboardOverview failed: %v", err)
	}
	if overview.TotalLeads != 4 {
		t.Errorf("expected 4 leads, got %d", overview.TotalLeads)
	}
	if overview.ActiveCampaigns != 1 {
		t.Errorf("expected 1 active campaign, got %d", overview.ActiveCampaigns)
	}
	if overview.LeadsContested != 1 {
		t.Errorf("expected 1 contested lead, got %d", overview.LeadsContested)
	}
	if overview.ResponseRate != 25 {
		t.Errorf("expected response rate 25, got %d", overview.ResponseRate)
	}
	if len(overview.Agents) != 1 || !overview.Agents[0].Online {
		t.Errorf("unexpected agents in overview: %+v", overview.Agents)
	}
}

func TestPerformanceReportWindow(t *testing.T) {
	f := setup(t)

	if err := f.leads.Create(&models.Lead{OrganizationID: f.orgID, Email: "w@x.com"}); err != nil {
		t.Fatalf("failed to seed lead: %v", err)
	}

	report, err := f.engine.PerformanceReport(f.orgID, "24h")
	if err != nil {
		t.Fatalf("PerformanceReport failed: %v", err)
	}
	if report.Period != "24h" {
		t.Errorf("expected period 24h, got %s", report.Period)
	}
	if report.Leads == nil || report.Leads.Total != 1 {
		t.Errorf("expected 1 lead inside the window, got %+v", report.Leads)
	}
	if report.Conversations == nil {
		t.Error("expected conversation analytics in report")
	}
}
