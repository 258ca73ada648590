// Package webhook delivers best-effort event callbacks to agent operators.
// Payload field names are a published contract for third-party consumers;
// do not rename them.
package webhook

import (
	"time"

	"github.com/lowfell/questworld/server/model"
)

// Event type discriminators.
const (
	TypeCycleComplete = "cycle_complete"
	TypePartyFormed   = "party_formed"
	TypePartyTimeout  = "party_timeout"
)

// PartyTimeoutMessage is the fixed operator-facing text of a timeout event.
const PartyTimeoutMessage = "Party failed to form. You may take a new action."

// AgentState is the post-resolution snapshot sent with cycle_complete.
type AgentState struct {
	Level              int    `json:"level"`
	XP                 int64  `json:"xp"`
	XPToNext           int64  `json:"xp_to_next"`
	Gold               int64  `json:"gold"`
	Location           string `json:"location"`
	UnspentSkillPoints int    `json:"unspent_skill_points"`
}

// AvailableActions tells the operator what the agent can do next.
type AvailableActions struct {
	QuestsAvailable    int  `json:"quests_available"`
	CanAllocateSkills  bool `json:"can_allocate_skills"`
	CanManageEquipment bool `json:"can_manage_equipment"`
}

// CycleComplete is sent when a quest run resolves for an agent.
type CycleComplete struct {
	Type             string                   `json:"type"`
	Agent            string                   `json:"agent"`
	Timestamp        time.Time                `json:"timestamp"`
	QuestResult      model.QuestResultSummary `json:"quest_result"`
	AgentState       AgentState               `json:"agent_state"`
	AvailableActions AvailableActions         `json:"available_actions"`
}

// PartyFormed is sent to each member when a party fills.
type PartyFormed struct {
	Type          string    `json:"type"`
	Agent         string    `json:"agent"`
	QuestName     string    `json:"quest_name"`
	PartyMembers  []string  `json:"party_members"`
	DepartureTime time.Time `json:"departure_time"`
}

// PartyTimeout is sent to each queued member when formation times out.
type PartyTimeout struct {
	Type        string  `json:"type"`
	Agent       string  `json:"agent"`
	QuestName   string  `json:"quest_name"`
	WaitedHours float64 `json:"waited_hours"`
	Refunded    bool    `json:"refunded"`
	Message     string  `json:"message"`
}
