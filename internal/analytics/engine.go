// Package analytics derives funnels, rates and distributions from current
// entity state. All queries are read-only snapshots; no rate is ever
// undefined — zero denominators yield zero.
package analytics

import (
	"log/slog"
	"math"
	"time"

	"github.com/leadwire/leadwire/internal/models"
	"github.com/leadwire/leadwire/internal/repository"
)

// Window restricts an aggregation to creation timestamps in [Start, End)
type Window struct {
	Start *time.Time
	End   *time.Time
}

// WindowFromPeriod maps a period token (24h, 7d, 30d, 90d) to a window ending
// now. Unknown tokens default to 7d.
func WindowFromPeriod(period string) Window {
	end := time.Now()
	var start time.Time
	switch period {
	case "24h":
		start = end.AddDate(0, 0, -1)
	case "30d":
		start = end.AddDate(0, 0, -30)
	case "90d":
		start = end.AddDate(0, 0, -90)
	default:
		start = end.AddDate(0, 0, -7)
	}
	return Window{Start: &start, End: &end}
}

// Engine computes aggregate views for one organization at a time
type Engine struct {
	leads         *repository.LeadRepository
	campaigns     *repository.CampaignRepository
	conversations *repository.ConversationRepository
	agents        *repository.AgentRepository
	logger        *slog.Logger
}

// New creates an aggregation engine
func New(leads *repository.LeadRepository, campaigns *repository.CampaignRepository,
	conversations *repository.ConversationRepository, agents *repository.AgentRepository,
	logger *slog.Logger) *Engine {
	return &Engine{
		leads:         leads,
		campaigns:     campaigns,
		conversations: conversations,
		agents:        agents,
		logger:        logger.With("component", "analytics"),
	}
}

// ratio returns n/d as a fraction, or 0 when d is 0
func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

// round2 rounds to two decimal places
func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// LeadFunnel is the conversion funnel over an organization's leads
type LeadFunnel struct {
	Total     int `json:"total"`
	Contacted int `json:"contacted"`
	Engaged   int `json:"engaged"`
	Qualified int `json:"qualified"`
	Converted int `json:"converted"`

	ContactRate       float64 `json:"contact_rate"`
	EngagementRate    float64 `json:"engagement_rate"`
	QualificationRate float64 `json:"qualification_rate"`
	ConversionRate    float64 `json:"conversion_rate"`
	OverallConversion float64 `json:"overall_conversion"`
}

// LeadFunnel computes funnel counts and rates, optionally windowed
func (e *Engine) LeadFunnel(orgID string, w Window) (*LeadFunnel, error) {
	fc, err := e.leads.FunnelCounts(orgID, w.Start, w.End)
	if err != nil {
		return nil, err
	}

	return &LeadFunnel{
		Total:     fc.Total,
		Contacted: fc.Contacted,
		Engaged:   fc.Engaged,
		Qualified: fc.Qualified,
		Converted: fc.Converted,

		ContactRate:       ratio(fc.Contacted, fc.Total),
		EngagementRate:    ratio(fc.Engaged, fc.Contacted),
		QualificationRate: ratio(fc.Qualified, fc.Engaged),
		ConversionRate:    ratio(fc.Converted, fc.Qualified),
		OverallConversion: ratio(fc.Converted, fc.Total),
	}, nil
}

// CampaignPerformance is one campaign's aggregate outcome
type CampaignPerformance struct {
	ID                     string                `json:"id"`
	Name                   string                `json:"name"`
	Type                   models.CampaignType   `json:"type"`
	Status                 models.CampaignStatus `json:"status"`
	Leads                  int                   `json:"leads"`
	Contacted              int                   `json:"contacted"`
	Responded              int                   `json:"responded"`
	Converted              int                   `json:"converted"`
	ResponseRate           float64               `json:"response_rate"`
	ConversionRate         float64               `json:"conversion_rate"`
	AvgResponseTimeMinutes float64               `json:"avg_response_time_minutes"`
}

// CampaignPerformance aggregates every campaign in the organization
func (e *Engine) CampaignPerformance(orgID string) ([]CampaignPerformance, error) {
	rows, err := e.campaigns.PerformanceRows(orgID)
	if err != nil {
		return nil, err
	}

	perf := make([]CampaignPerformance, 0, len(rows))
	for _, row := range rows {
		perf = append(perf, CampaignPerformance{
			ID:                     row.ID,
			Name:                   row.Name,
			Type:                   row.Type,
			Status:                 row.Status,
			Leads:                  row.Leads,
			Contacted:              row.Contacted,
			Responded:              row.Responded,
			Converted:              row.Converted,
			ResponseRate:           math.Round(ratio(row.Responded, row.Leads) * 100),
			ConversionRate:         math.Round(ratio(row.Converted, row.Responded) * 100),
			AvgResponseTimeMinutes: math.Round(row.AvgResponseMinutes),
		})
	}
	return perf, nil
}

// ConversationAnalytics summarizes conversation activity
type ConversationAnalytics struct {
	TotalConversations  int                `json:"total_conversations"`
	ActiveConversations int                `json:"active_conversations"`
	ChannelDistribution map[string]int     `json:"channel_distribution"`
	AvgMessages         float64            `json:"avg_messages_per_conversation"`
	ResponseTimes       map[string]float64 `json:"average_response_times"` // minutes, keyed by channel plus "overall"
	ResolutionRate      float64            `json:"resolution_rate"`        // closed / total * 100
}

// ConversationAnalytics computes channel distribution, message averages,
// derived response times and resolution rate, optionally windowed
func (e *Engine) ConversationAnalytics(orgID string, w Window) (*ConversationAnalytics, error) {
	stats, err := e.conversations.Stats(orgID, w.Start, w.End)
	if err != nil {
		return nil, err
	}

	times, err := e.conversations.ResponseTimesByChannel(orgID, w.Start, w.End)
	if err != nil {
		return nil, err
	}

	overall := 0.0
	if len(times) > 0 {
		for _, t := range times {
			overall += t
		}
		overall /= float64(len(times))
	}
	rounded := map[string]float64{}
	for channel, t := range times {
		rounded[channel] = round2(t)
	}
	rounded["overall"] = round2(overall)

	return &ConversationAnalytics{
		TotalConversations:  stats.Total,
		ActiveConversations: stats.Active,
		ChannelDistribution: stats.ChannelDistribution,
		AvgMessages:         round2(stats.AvgMessages),
		ResponseTimes:       rounded,
		ResolutionRate:      round2(ratio(stats.Closed, stats.Total) * 100),
	}, nil
}

// LeadAnalytics summarizes lead acquisition and status spread
type LeadAnalytics struct {
	Total              int                     `json:"total"`
	StatusDistribution map[string]int          `json:"status_distribution"`
	SourceDistribution map[string]int          `json:"source_distribution"`
	DailyAcquisition   []repository.DailyCount `json:"daily_acquisition"`
	AvgResponseCount   float64                 `json:"average_response_count"`
	ConversionRate     float64                 `json:"conversion_rate"` // percent
}

// LeadAnalytics computes lead distributions, optionally windowed
func (e *Engine) LeadAnalytics(orgID string, w Window) (*LeadAnalytics, error) {
	fc, err := e.leads.FunnelCounts(orgID, w.Start, w.End)
	if err != nil {
		return nil, err
	}
	statuses, err := e.leads.StatusDistribution(orgID, w.Start, w.End)
	if err != nil {
		return nil, err
	}
	sources, err := e.leads.SourceDistribution(orgID, w.Start, w.End)
	if err != nil {
		return nil, err
	}
	daily, err := e.leads.DailyAcquisition(orgID, w.Start, w.End)
	if err != nil {
		return nil, err
	}
	avgResponses, err := e.leads.AverageResponseCount(orgID, w.Start, w.End)
	if err != nil {
		return nil, err
	}

	return &LeadAnalytics{
		Total:              fc.Total,
		StatusDistribution: statuses,
		SourceDistribution: sources,
		DailyAcquisition:   daily,
		AvgResponseCount:   round2(avgResponses),
		ConversionRate:     round2(ratio(fc.Converted, fc.Total) * 100),
	}, nil
}

// AgentSummary is the per-agent slice of the dashboard
type AgentSummary struct {
	ID                  string             `json:"id"`
	Name                string             `json:"name"`
	Type                models.AgentType   `json:"type"`
	Status              models.AgentStatus `json:"status"`
	ActiveConversations int                `json:"active_conversations"`
	Online              bool               `json:"online"`
}

// DashboardOverview is the snapshot pushed on every dashboard-affecting
// mutation
type DashboardOverview struct {
	TotalLeads          int            `json:"total_leads"`
	ActiveCampaigns     int            `json:"active_campaigns"`
	ActiveConversations int            `json:"active_conversations"`
	LeadsContested      int            `json:"leads_contested"`
	ConvertedLast30d    int            `json:"converted_last_30d"`
	ResponseRate        int            `json:"response_rate"` // percent, rounded
	Agents              []AgentSummary `json:"agents"`
}

// DashboardOverview bundles the organization's live operational counts.
// Every count is read independently, so the snapshot is consistent even if
// slightly stale under concurrent mutation.
func (e *Engine) DashboardOverview(orgID string) (*DashboardOverview, error) {
	fc, err := e.leads.FunnelCounts(orgID, nil, nil)
	if err != nil {
		return nil, err
	}
	activeCampaigns, err := e.campaigns.CountActive(orgID)
	if err != nil {
		return nil, err
	}
	activeConversations, err := e.conversations.CountActive(orgID)
	if err != nil {
		return nil, err
	}
	contested, err := e.leads.CountByStatus(orgID, models.LeadStatusContested)
	if err != nil {
		return nil, err
	}
	converted30d, err := e.leads.CountConvertedSince(orgID, time.Now().AddDate(0, 0, -30))
	if err != nil {
		return nil, err
	}
	agents, err := e.agents.ListByOrg(orgID)
	if err != nil {
		return nil, err
	}

	summaries := make([]AgentSummary, 0, len(agents))
	for _, a := range agents {
		summaries = append(summaries, AgentSummary{
			ID:                  a.ID,
			Name:                a.Name,
			Type:                a.Type,
			Status:              a.Status,
			ActiveConversations: a.ActiveConversations,
			Online:              a.Online(),
		})
	}

	return &DashboardOverview{
		TotalLeads:          fc.Total,
		ActiveCampaigns:     activeCampaigns,
		ActiveConversations: activeConversations,
		LeadsContested:      contested,
		ConvertedLast30d:    converted30d,
		ResponseRate:        int(math.Round(ratio(fc.Engaged, fc.Total) * 100)),
		Agents:              summaries,
	}, nil
}

// AgentPerformance aggregates conversation workload per agent
func (e *Engine) AgentPerformance(orgID string) ([]repository.AgentPerformanceRow, error) {
	return e.agents.PerformanceRows(orgID)
}

// PerformanceReport bundles the windowed views for a reporting period
type PerformanceReport struct {
	Period        string                           `json:"period"`
	Leads         *LeadAnalytics                   `json:"leads"`
	Conversations *ConversationAnalytics           `json:"conversations"`
	Campaigns     []CampaignPerformance            `json:"campaigns"`
	Agents        []repository.AgentPerformanceRow `json:"agents"`
}

// PerformanceReport computes the full windowed report for a period token
func (e *Engine) PerformanceReport(orgID, period string) (*PerformanceReport, error) {
	w := WindowFromPeriod(period)

	leads, err := e.LeadAnalytics(orgID, w)
	if err != nil {
		return nil, err
	}
	conversations, err := e.ConversationAnalytics(orgID, w)
	if err != nil {
		return nil, err
	}
	campaigns, err := e.CampaignPerformance(orgID)
	if err != nil {
		return nil, err
	}
	agents, err := e.AgentPerformance(orgID)
	if err != nil {
		return nil, err
	}

	return &PerformanceReport{
		Period:        period,
		Leads:         leads,
		Conversations: conversations,
		Campaigns:     campaigns,
		Agents:        agents,
	}, nil
}
