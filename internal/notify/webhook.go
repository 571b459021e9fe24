package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-arena/internal/game"
	"github.com/park285/cheese-arena/internal/match"
	"github.com/park285/cheese-arena/internal/obslog"
)

// MatchFinishedEvent is the webhook body for a finished match.
type MatchFinishedEvent struct {
	Type     string          `json:"type"`
	MatchID  string          `json:"match_id"`
	Variant  game.Variant    `json:"variant"`
	Status   game.Status     `json:"status"`
	Result   string          `json:"result"`
	WinnerID string          `json:"winner_id,omitempty"`
	Winner   game.Color      `json:"winner,omitempty"`
	Details  string          `json:"details,omitempty"`
	Players  [2]match.Player `json:"players"`
	EndedAt  time.Time       `json:"ended_at"`
}

const EventMatchFinished = "match.finished"

// Webhook implements match.Notifier on top of Client.
type Webhook struct {
	client *Client
}

func NewWebhook(c *Client) *Webhook { return &Webhook{client: c} }

func (w *Webhook) MatchFinished(ctx context.Context, m *match.Match) error {
	if w == nil || w.client == nil || m == nil {
		return nil
	}
	ev := MatchFinishedEvent{
		Type:     EventMatchFinished,
		MatchID:  m.ID,
		Variant:  m.Variant,
		Status:   m.Outcome.Status,
		Result:   match.ResultToken(m.Variant, m.Outcome),
		WinnerID: m.Winner,
		Winner:   m.Outcome.Winner,
		Details:  m.Outcome.Details,
		Players:  m.Players,
		EndedAt:  m.UpdatedAt.UTC(),
	}
	if err := w.client.PostJSON(ctx, ev); err != nil {
		return err
	}
	obslog.L().Debug("notify_sent", zap.String("match_id", m.ID), zap.String("status", string(ev.Status)))
	return nil
}
