// Package partyqueue implements the party-formation state machine for
// multi-agent quests: agents accumulate in a waiting queue until it fills
// (formed) or its deadline passes (timed_out).
package partyqueue

import (
	"strings"
	"time"

	"github.com/lowfell/questworld/server/game/engineerr"
	"github.com/lowfell/questworld/server/model"
)

// EventType marks a terminal queue transition.
type EventType string

const (
	EventFormed   EventType = "formed"
	EventTimedOut EventType = "timed_out"
)

// Event is emitted when a queue leaves the waiting state.
type Event struct {
	Type     EventType
	QuestID  string
	AgentIDs []string // formed: the party; timed_out: the refunded agents
}

// ValidateSkills checks a skill selection: exactly 3 distinct known names.
func ValidateSkills(skills []string) error {
	if len(skills) != model.ChosenSkillCount {
		return engineerr.Validation(engineerr.CodeInvalidSkills,
			"need exactly %d skills, got %d", model.ChosenSkillCount, len(skills))
	}
	seen := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		if !model.IsSkillName(s) {
			return engineerr.Validation(engineerr.CodeInvalidSkills, "unknown skill %q", s)
		}
		if _, dup := seen[s]; dup {
			return engineerr.Validation(engineerr.CodeDuplicateSkills, "skill %q chosen twice", s)
		}
		seen[s] = struct{}{}
	}
	return nil
}

// Join appends a participant to a waiting queue, stamping the expiry deadline
// on the first join only. Filling the queue transitions it to formed
// immediately; no separate tick is required.
func Join(q *model.PartyQueue, partySize int, timeout time.Duration, p model.QueueParticipant) (*Event, error) {
	if q.Status != model.QueueStatusWaiting {
		return nil, engineerr.Conflict(engineerr.CodeQueueNotWaiting,
			"queue for quest %s is %s", q.QuestID, q.Status)
	}
	if err := ValidateSkills(p.Skills); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.Action) == "" {
		return nil, engineerr.Validation(engineerr.CodeEmptyAction, "action text is required")
	}

	list, err := q.ParticipantList()
	if err != nil {
		return nil, err
	}
	for _, existing := range list {
		if existing.AgentID == p.AgentID {
			return nil, engineerr.Conflict(engineerr.CodeAlreadyJoined,
				"agent %s already queued for quest %s", p.AgentID, q.QuestID)
		}
	}
	if len(list) >= partySize {
		// Invariant guard: a full queue should already be formed.
		return nil, engineerr.Conflict(engineerr.CodeQueueNotWaiting,
			"queue for quest %s is already full", q.QuestID)
	}

	if q.ExpiresAt == nil {
		// The first joiner fixes the deadline; later joins never move it.
		deadline := p.JoinedAt.Add(timeout)
		q.ExpiresAt = &deadline
	}

	list = append(list, p)
	if err := q.SetParticipantList(list); err != nil {
		return nil, err
	}

	if len(list) == partySize {
		q.Status = model.QueueStatusFormed
		return &Event{Type: EventFormed, QuestID: q.QuestID, AgentIDs: agentIDs(list)}, nil
	}
	return nil, nil
}

// Tick checks a queue against the clock. Before expiry it is a no-op. Past
// expiry a full queue still forms (completion wins the race with a pending
// join); an incomplete one times out, refunding all queued agents.
func Tick(q *model.PartyQueue, now time.Time, partySize int) (*Event, error) {
	if q.Status != model.QueueStatusWaiting {
		return nil, nil
	}
	if q.ExpiresAt == nil || !now.After(*q.ExpiresAt) {
		return nil, nil
	}

	list, err := q.ParticipantList()
	if err != nil {
		return nil, err
	}
	if len(list) >= partySize {
		q.Status = model.QueueStatusFormed
		return &Event{Type: EventFormed, QuestID: q.QuestID, AgentIDs: agentIDs(list)}, nil
	}
	q.Status = model.QueueStatusTimedOut
	return &Event{Type: EventTimedOut, QuestID: q.QuestID, AgentIDs: agentIDs(list)}, nil
}

// Reset returns a terminal queue to a fresh empty waiting state for the next
// formation attempt.
func Reset(q *model.PartyQueue) {
	q.Status = model.QueueStatusWaiting
	q.ExpiresAt = nil
	q.Participants = nil
}

func agentIDs(list []model.QueueParticipant) []string {
	ids := make([]string, len(list))
	for i, p := range list {
		ids[i] = p.AgentID
	}
	return ids
}
