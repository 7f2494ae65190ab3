package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/leadwire/leadwire/internal/analytics"
	"github.com/leadwire/leadwire/internal/config"
	"github.com/leadwire/leadwire/internal/db"
	"github.com/leadwire/leadwire/internal/lifecycle"
	"github.com/leadwire/leadwire/internal/models"
	"github.com/leadwire/leadwire/internal/realtime"
	"github.com/leadwire/leadwire/internal/repository"
)

type apiFixture struct {
	server *Server
	srv    *httptest.Server
	orgID  string
	token  string

	leads     *repository.LeadRepository
	campaigns *repository.CampaignRepository
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	d, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	// In-memory SQLite is per-connection; the pool must not open a second one
	d.SetMaxOpenConns(1)
	if err := d.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	org := &models.Organization{Name: "Acme", Slug: "acme"}
	if err := repository.NewOrganizationRepository(d.DB).Create(org); err != nil {
		t.Fatalf("failed to create organization: %v", err)
	}

	tokens := repository.NewTokenRepository(d.DB)
	raw := "lw_" + strings.Repeat("x", 32)
	if err := tokens.Create(&models.Token{
		OrganizationID: org.ID,
		Name:           "api-test",
		TokenHash:      repository.HashToken(raw),
		TokenPrefix:    raw[:8],
	}); err != nil {
		t.Fatalf("failed to create token: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	leads := repository.NewLeadRepository(d.DB)
	campaigns := repository.NewCampaignRepository(d.DB)
	campaignLeads := repository.NewCampaignLeadRepository(d.DB)
	conversations := repository.NewConversationRepository(d.DB)
	messages := repository.NewMessageRepository(d.DB)
	agents := repository.NewAgentRepository(d.DB)

	engine := analytics.New(leads, campaigns, conversations, agents, logger)
	manager := lifecycle.New(campaigns, campaignLeads, leads, logger)
	registry := realtime.NewRegistry()
	gateway := realtime.NewGateway(registry, tokens, conversations, nil, logger)
	orch := realtime.NewOrchestrator(gateway, engine, conversations, messages, leads, campaignLeads, agents, nil, logger)

	server := NewServer(config.Default(), Deps{
		Tokens:        tokens,
		Leads:         leads,
		Campaigns:     campaigns,
		Conversations: conversations,
		Messages:      messages,
		Agents:        agents,
		Lifecycle:     manager,
		Analytics:     engine,
		Orchestrator:  orch,
		Gateway:       gateway,
	}, logger)

	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)

	return &apiFixture{
		server:    server,
		srv:       srv,
		orgID:     org.ID,
		token:     raw,
		leads:     leads,
		campaigns: campaigns,
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		buf = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, buf)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+f.token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}

func TestHealthNoAuth(t *testing.T) {
	f := newAPIFixture(t)

	resp, err := http.Get(f.srv.URL + "/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	health := decodeBody[HealthResponse](t, resp)
	if health.Status != "ok" {
		t.Errorf("Status = %s, want ok", health.Status)
	}
}

func TestAuthRequired(t *testing.T) {
	f := newAPIFixture(t)

	for name, header := range map[string]string{
		"missing": "",
		"bogus":   "Bearer not-a-token",
	} {
		req, _ := http.NewRequest(http.MethodGet, f.srv.URL+"/api/v1/leads", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s: request failed: %v", name, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", name, resp.StatusCode)
		}
	}
}

func TestLeadCreateAndConflict(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodPost, "/api/v1/leads", LeadRequest{Email: "a@example.com", FirstName: "Ada"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	lead := decodeBody[models.Lead](t, resp)
	if lead.ID == "" || lead.Status != models.LeadStatusNew {
		t.Fatalf("unexpected lead: %+v", lead)
	}

	resp = f.do(t, http.MethodPost, "/api/v1/leads", LeadRequest{Email: "a@example.com"})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", resp.StatusCode)
	}

	resp = f.do(t, http.MethodPost, "/api/v1/leads", LeadRequest{FirstName: "NoEmail"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("missing email status = %d, want 422", resp.StatusCode)
	}
}

func TestLeadListPagination(t *testing.T) {
	f := newAPIFixture(t)

	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		resp := f.do(t, http.MethodPost, "/api/v1/leads", LeadRequest{Email: email})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create %s status = %d", email, resp.StatusCode)
		}
	}

	resp := f.do(t, http.MethodGet, "/api/v1/leads?take=2", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	page := decodeBody[struct {
		Items []models.Lead `json:"items"`
		Total int           `json:"total"`
	}](t, resp)
	if len(page.Items) != 2 || page.Total != 3 {
		t.Errorf("page = %d items / total %d, want 2/3", len(page.Items), page.Total)
	}
}

func TestLeadGetUnknown(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodGet, "/api/v1/leads/no-such-id", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestCampaignLifecycleOverHTTP(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodPost, "/api/v1/leads", LeadRequest{Email: "a@example.com"})
	lead := decodeBody[models.Lead](t, resp)

	resp = f.do(t, http.MethodPost, "/api/v1/campaigns", CampaignRequest{Name: "Launch"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("campaign create status = %d", resp.StatusCode)
	}
	campaign := decodeBody[models.Campaign](t, resp)
	if campaign.Status != models.CampaignStatusDraft {
		t.Fatalf("new campaign status = %s, want draft", campaign.Status)
	}

	// Pausing a draft is an illegal transition
	resp = f.do(t, http.MethodPost, "/api/v1/campaigns/"+campaign.ID+"/pause", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("pause draft status = %d, want 409", resp.StatusCode)
	}

	resp = f.do(t, http.MethodPost, "/api/v1/campaigns/"+campaign.ID+"/start", StartRequest{LeadIDs: []string{lead.ID}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start status = %d", resp.StatusCode)
	}
	started := decodeBody[models.Campaign](t, resp)
	if started.Status != models.CampaignStatusActive {
		t.Errorf("started status = %s, want active", started.Status)
	}
	if started.TotalLeads != 1 {
		t.Errorf("TotalLeads = %d, want 1", started.TotalLeads)
	}

	resp = f.do(t, http.MethodPost, "/api/v1/campaigns/"+campaign.ID+"/complete", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("complete status = %d", resp.StatusCode)
	}
}

func TestConversationMessageFlow(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodPost, "/api/v1/leads", LeadRequest{Email: "a@example.com"})
	lead := decodeBody[models.Lead](t, resp)

	resp = f.do(t, http.MethodPost, "/api/v1/conversations/find-or-create",
		FindOrCreateRequest{LeadID: lead.ID, Channel: models.ChannelWhatsApp})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("find-or-create status = %d", resp.StatusCode)
	}
	conv := decodeBody[models.Conversation](t, resp)

	resp = f.do(t, http.MethodPost, "/api/v1/conversations/"+conv.ID+"/messages",
		MessageRequest{Direction: models.DirectionOutbound, Content: "hello"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("message status = %d", resp.StatusCode)
	}

	// Empty content is a validation failure
	resp = f.do(t, http.MethodPost, "/api/v1/conversations/"+conv.ID+"/messages",
		MessageRequest{Direction: models.DirectionOutbound})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("empty content status = %d, want 422", resp.StatusCode)
	}

	resp = f.do(t, http.MethodGet, "/api/v1/conversations/"+conv.ID+"/messages", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("message list status = %d", resp.StatusCode)
	}
	msgs := decodeBody[struct {
		Items []models.Message `json:"items"`
		Total int              `json:"total"`
	}](t, resp)
	if msgs.Total != 1 {
		t.Errorf("Total = %d, want 1", msgs.Total)
	}

	resp = f.do(t, http.MethodPost, "/api/v1/conversations/"+conv.ID+"/close", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("close status = %d, want 204", resp.StatusCode)
	}
}

func TestAnalyticsEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	for _, path := range []string{
		"/api/v1/analytics/dashboard",
		"/api/v1/analytics/funnel?period=30d",
		"/api/v1/analytics/leads",
		"/api/v1/analytics/conversations?period=7d",
		"/api/v1/analytics/report?period=90d",
		"/api/v1/leads/stats",
		"/api/v1/campaigns/performance",
		"/api/v1/agents/performance",
	} {
		resp := f.do(t, http.MethodGet, path, nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestAgentStatusPatch(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodPost, "/api/v1/agents", AgentRequest{Name: "wa-bot", Type: models.AgentTypeWhatsApp})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("agent create status = %d", resp.StatusCode)
	}
	agent := decodeBody[models.Agent](t, resp)

	resp = f.do(t, http.MethodPatch, "/api/v1/agents/"+agent.ID+"/status", AgentStatusRequest{Status: models.AgentStatusOnline})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status patch = %d", resp.StatusCode)
	}
	updated := decodeBody[models.Agent](t, resp)
	if updated.Status != models.AgentStatusOnline {
		t.Errorf("Status = %s, want online", updated.Status)
	}

	resp = f.do(t, http.MethodPatch, "/api/v1/agents/"+agent.ID+"/status", AgentStatusRequest{Status: "asleep"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("bad status patch = %d, want 422", resp.StatusCode)
	}
}

func TestImportEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodPost, "/api/v1/leads/import", ImportRequest{Records: []models.LeadRecord{
		{Email: "a@example.com", FirstName: "Ada"},
		{Email: "not-an-email"},
	}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("import status = %d", resp.StatusCode)
	}
	result := decodeBody[models.ImportResult](t, resp)
	if result.Created != 1 {
		t.Errorf("Created = %d, want 1", result.Created)
	}
	if len(result.Errors) != 1 {
		t.Errorf("Errors = %v, want one entry", result.Errors)
	}
}
