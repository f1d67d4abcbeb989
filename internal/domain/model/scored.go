package model

import "time"

// Verdict is the categorical outcome derived from a score.
type Verdict string

// Verdicts in ascending severity.
const (
	VerdictClear      Verdict = "CLEAR"
	VerdictSuspicious Verdict = "SUSPICIOUS"
	VerdictAnomaly    Verdict = "ANOMALY"
)

// ScoredEvent is the append-only audit record written once per event.
type ScoredEvent struct {
	ID         string            `json:"id" bson:"_id"`
	Event      RawEvent          `json:"event" bson:"event"`
	Reputation ReputationProfile `json:"ipRisk" bson:"ipRisk"`
	Score      int               `json:"score" bson:"score"`
	Reasons    []string          `json:"reasons" bson:"reasons"`
	Verdict    Verdict           `json:"verdict" bson:"verdict"`
	CreatedAt  time.Time         `json:"createdAt" bson:"createdAt"`
}

// QueueMessage is the projection handed to the alert worker.
type QueueMessage struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	Verdict   Verdict   `json:"verdict"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"createdAt"`
	Event     RawEvent  `json:"event"`
}

// Message projects a scored event onto its queue message.
func (s *ScoredEvent) Message() QueueMessage {
	return QueueMessage{
		ID:        s.ID,
		Subject:   s.Event.Wallet,
		Verdict:   s.Verdict,
		Score:     s.Score,
		CreatedAt: s.CreatedAt,
		Event:     s.Event,
	}
}

// VerdictSummary counts verdicts over a listing.
type VerdictSummary struct {
	Anomaly    int `json:"ANOMALY"`
	Suspicious int `json:"SUSPICIOUS"`
	Clear      int `json:"CLEAR"`
}

// Summarize tallies verdicts of events.
func Summarize(events []ScoredEvent) VerdictSummary {
	var s VerdictSummary
	for i := range events {
		switch events[i].Verdict {
		case VerdictAnomaly:
			s.Anomaly++
		case VerdictSuspicious:
			s.Suspicious++
		case VerdictClear:
			s.Clear++
		}
	}
	return s
}
