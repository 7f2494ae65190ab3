package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/net/websocket"

	"github.com/leadwire/leadwire/internal/activity"
	"github.com/leadwire/leadwire/internal/metrics"
	"github.com/leadwire/leadwire/internal/repository"
)

type orgIDContextKey struct{}

const recentActivityLimit = 20

// authenticator verifies a raw bearer credential and resolves its organization
type authenticator interface {
	Authenticate(raw string) (string, error)
}

// clientFrame is one inbound control frame
type clientFrame struct {
	Event string `json:"event"`
	ID    string `json:"id"`
}

// Gateway upgrades authenticated clients to websocket connections, keeps the
// topic registry current and multicasts events to topic members.
type Gateway struct {
	registry      *Registry
	tokens        authenticator
	conversations *repository.ConversationRepository
	journal       *activity.Journal
	logger        *slog.Logger
}

// NewGateway creates a gateway. journal may be nil; the initial activity
// snapshot is skipped then.
func NewGateway(registry *Registry, tokens authenticator, conversations *repository.ConversationRepository,
	journal *activity.Journal, logger *slog.Logger) *Gateway {
	return &Gateway{
		registry:      registry,
		tokens:        tokens,
		conversations: conversations,
		journal:       journal,
		logger:        logger.With("component", "gateway"),
	}
}

// Registry exposes the topic registry backing this gateway
func (g *Gateway) Registry() *Registry {
	return g.registry
}

// Handler authenticates the bearer credential and upgrades to websocket.
// A failed credential is rejected before the upgrade; no frame is sent.
func (g *Gateway) Handler() http.Handler {
	wsHandler := websocket.Handler(g.serveConn)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		raw := bearerFromRequest(r)
		if raw == "" {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		orgID, err := g.tokens.Authenticate(raw)
		if err != nil {
			g.logger.Warn("websocket auth rejected", "remote_addr", r.RemoteAddr, "error", err)
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), orgIDContextKey{}, orgID)
		wsHandler.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerFromRequest reads the credential from the Authorization header or,
// for browser clients that cannot set headers on websocket dials, the token
// query parameter.
func bearerFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if strings.HasPrefix(h, "Bearer ") {
			return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

func (g *Gateway) serveConn(ws *websocket.Conn) {
	defer func() {
		_ = ws.Close()
	}()

	orgID, _ := ws.Request().Context().Value(orgIDContextKey{}).(string)
	if orgID == "" {
		return
	}

	conn := NewConn(orgID, json.NewEncoder(ws))
	metrics.ConnOpened()
	g.registry.Add(orgID, conn)
	defer func() {
		g.registry.Drop(conn)
		metrics.ConnClosed()
		metrics.SetSubscriptions(g.registry.Subscriptions())
		g.logger.Info("client disconnected", "conn_id", conn.ID, "org_id", orgID)
	}()

	metrics.SetSubscriptions(g.registry.Subscriptions())
	g.logger.Info("client connected", "conn_id", conn.ID, "org_id", orgID)

	g.sendSnapshot(conn)

	decoder := json.NewDecoder(ws)
	for {
		var frame clientFrame
		if err := decoder.Decode(&frame); err != nil {
			if !errors.Is(err, io.EOF) {
				g.logger.Debug("dropping connection on bad frame", "conn_id", conn.ID, "error", err)
			}
			return
		}

		switch frame.Event {
		case "conversation:subscribe":
			g.registry.Add(ConversationTopic(frame.ID), conn)
		case "conversation:unsubscribe":
			g.registry.Remove(ConversationTopic(frame.ID), conn)
		case "campaign:subscribe":
			g.registry.Add(CampaignTopic(frame.ID), conn)
		case "campaign:unsubscribe":
			g.registry.Remove(CampaignTopic(frame.ID), conn)
		default:
			g.logger.Debug("ignoring unknown frame", "conn_id", conn.ID, "event", frame.Event)
		}
		metrics.SetSubscriptions(g.registry.Subscriptions())
	}
}

// sendSnapshot pushes the initial state a freshly connected client renders
// before any live event arrives
func (g *Gateway) sendSnapshot(conn *Conn) {
	count, err := g.conversations.CountActive(conn.OrgID)
	if err != nil {
		g.logger.Error("failed to count active conversations", "org_id", conn.OrgID, "error", err)
	} else {
		_ = conn.send(Frame{Event: "conversations:active-count", Data: map[string]int{"count": count}})
	}

	if g.journal == nil {
		return
	}
	recent, err := g.journal.Recent(conn.OrgID, recentActivityLimit)
	if err != nil {
		g.logger.Error("failed to read recent activity", "org_id", conn.OrgID, "error", err)
		return
	}
	_ = conn.send(Frame{Event: "activities:recent", Data: recent})
}

// Multicast pushes an event to every member of a topic. Delivery is
// at-most-once: a write error on one connection drops that frame and the
// remaining members still receive theirs.
func (g *Gateway) Multicast(topic, event string, payload any) {
	members := g.registry.MembersOf(topic)
	if len(members) == 0 {
		return
	}

	metrics.IncMulticast(event)
	frame := Frame{Event: event, Data: payload}
	for _, member := range members {
		if err := member.send(frame); err != nil {
			metrics.IncMulticastDrop()
		}
	}
}
