// Package sideeffect carries post-commit work (mails, PDF archiving) out of
// the request path. Delivery is attempted at most once; failures are logged
// and counted, never reported to the caller that committed the change.
package sideeffect

import (
	"time"

	"cpcaisse/internal/declaration/models"
)

// Kind names a side effect.
type Kind string

const (
	KindDeclarationCreated   Kind = "DECLARATION_CREEE"
	KindSeverityFourAlert    Kind = "ALERTE_N4"
	KindRecurrenceAlert      Kind = "ALERTE_RECIDIVE"
	KindDeclarationValidated Kind = "DECLARATION_VALIDEE"
)

// Kafka topics, one per kind.
const (
	TopicDeclarationCreated   = "cp.declarations.created"
	TopicSeverityFourAlert    = "cp.alerts.level4"
	TopicRecurrenceAlert      = "cp.alerts.recurrence"
	TopicDeclarationValidated = "cp.declarations.validated"
)

var topicByKind = map[Kind]string{
	KindDeclarationCreated:   TopicDeclarationCreated,
	KindSeverityFourAlert:    TopicSeverityFourAlert,
	KindRecurrenceAlert:      TopicRecurrenceAlert,
	KindDeclarationValidated: TopicDeclarationValidated,
}

// Topic returns the Kafka topic the kind is published on.
func (k Kind) Topic() string {
	return topicByKind[k]
}

// KindForTopic is the inverse of Kind.Topic.
func KindForTopic(topic string) (Kind, bool) {
	for k, t := range topicByKind {
		if t == topic {
			return k, true
		}
	}
	return "", false
}

// Topics lists every side-effect topic.
func Topics() []string {
	return []string{
		TopicDeclarationCreated,
		TopicSeverityFourAlert,
		TopicRecurrenceAlert,
		TopicDeclarationValidated,
	}
}

// Event is a committed fact handed to side-effect handlers. Declaration is a
// snapshot taken at commit time.
type Event struct {
	Kind        Kind                `json:"kind"`
	Declaration *models.Declaration `json:"declaration"`
	Recipients  models.Recipients   `json:"recipients"`
	OccurredAt  time.Time           `json:"occurred_at"`
	RequestID   string              `json:"request_id,omitempty"`
}

// NewEvent snapshots decl so later store writes cannot change what handlers see.
func NewEvent(kind Kind, decl *models.Declaration, recipients models.Recipients, at time.Time, requestID string) Event {
	return Event{
		Kind:        kind,
		Declaration: decl.Clone(),
		Recipients:  recipients,
		OccurredAt:  at,
		RequestID:   requestID,
	}
}

// Key is the partition key: events of one declaration stay ordered.
func (e Event) Key() string {
	if e.Declaration == nil {
		return ""
	}
	return e.Declaration.ID.String()
}
