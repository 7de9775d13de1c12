package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/events"
	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/match"
	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/models"
)

// MatchCommander is the engine surface the gateway drives.
type MatchCommander interface {
	Get(matchID string) (*models.LiveMatch, bool)
	FlipCoin(ctx context.Context, matchID string, force *models.CoinFace) match.Outcome
	DecideFirst(ctx context.Context, matchID string, deciderID, firstTeamID models.TeamID) match.Outcome
	SubmitAnswer(ctx context.Context, matchID string, teamID models.TeamID, questionInstanceID string, answerIndex int) match.Outcome
	Pause(ctx context.Context, matchID string) match.Outcome
	Resume(ctx context.Context, matchID string) match.Outcome
	Reset(ctx context.Context, matchID string) match.Outcome
}

// Command is the client-to-server message on a match socket.
type Command struct {
	Action             string           `json:"action"`
	Force              *models.CoinFace `json:"force,omitempty"`
	DeciderID          models.TeamID    `json:"decider_id,omitempty"`
	FirstTeamID        models.TeamID    `json:"first_team_id,omitempty"`
	TeamID             models.TeamID    `json:"team_id,omitempty"`
	QuestionInstanceID string           `json:"question_instance_id,omitempty"`
	AnswerIndex        int              `json:"answer_index"`
}

// Ack is the per-command acknowledgement sent back to the issuing client.
// State changes themselves arrive through the broadcast topic.
type Ack struct {
	Type     string             `json:"type"`
	Action   string             `json:"action"`
	Accepted bool               `json:"accepted"`
	Reason   match.RejectReason `json:"reason,omitempty"`
	Correct  bool               `json:"correct,omitempty"`
}

// CommandRouter parses and dispatches client commands.
type CommandRouter struct {
	engine MatchCommander
	logger zerolog.Logger
}

// NewCommandRouter builds the router.
func NewCommandRouter(engine MatchCommander, logger zerolog.Logger) *CommandRouter {
	return &CommandRouter{
		engine: engine,
		logger: logger.With().Str("component", "gateway-commands").Logger(),
	}
}

// Handle dispatches one raw client message and acknowledges it on the same
// connection. Messages on tournament sockets are ignored; those feeds are
// read-only.
func (r *CommandRouter) Handle(c *Connection, payload []byte) {
	if c.MatchID == "" {
		return
	}

	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		r.logger.Debug().
			Err(err).
			Str("connection_id", c.ID).
			Msg("unparseable client command")
		r.ack(c, Ack{Type: "Ack", Action: "unknown", Reason: "bad-command"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out match.Outcome
	switch cmd.Action {
	case "flip_coin":
		out = r.engine.FlipCoin(ctx, c.MatchID, cmd.Force)
	case "decide_first":
		out = r.engine.DecideFirst(ctx, c.MatchID, cmd.DeciderID, cmd.FirstTeamID)
	case "submit_answer":
		out = r.engine.SubmitAnswer(ctx, c.MatchID, cmd.TeamID, cmd.QuestionInstanceID, cmd.AnswerIndex)
	case "pause":
		out = r.engine.Pause(ctx, c.MatchID)
	case "resume":
		out = r.engine.Resume(ctx, c.MatchID)
	case "reset":
		out = r.engine.Reset(ctx, c.MatchID)
	case "state":
		r.sendSnapshot(c)
		return
	default:
		r.ack(c, Ack{Type: "Ack", Action: cmd.Action, Reason: "bad-command"})
		return
	}
	r.ack(c, Ack{
		Type:     "Ack",
		Action:   cmd.Action,
		Accepted: out.Accepted,
		Reason:   out.Reason,
		Correct:  out.Correct,
	})
}

// sendSnapshot pushes the current match state to one client, used on join
// and on explicit request.
func (r *CommandRouter) sendSnapshot(c *Connection) {
	m, ok := r.engine.Get(c.MatchID)
	if !ok {
		r.ack(c, Ack{Type: "Ack", Action: "state", Reason: match.RejectUnknownMatch})
		return
	}
	now := time.Now()
	env, err := events.NewEnvelope(events.MatchTopic(c.MatchID), events.EventMatchState, now, events.SnapshotMatch(m, now))
	if err != nil {
		r.logger.Error().Err(err).Str("match_id", c.MatchID).Msg("snapshot envelope failed")
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	c.manager.SendTo(c, data)
}

func (r *CommandRouter) ack(c *Connection, ack Ack) {
	data, err := json.Marshal(ack)
	if err != nil {
		return
	}
	c.manager.SendTo(c, data)
}
