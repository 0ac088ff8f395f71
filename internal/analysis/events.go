package analysis

import (
	"context"

	"github.com/google/uuid"

	"ramstk/pkg/domain"
)

// Topic names a notification produced by the manager.
type Topic string

// Fixed topics.
const (
	TopicRPNCalculated          Topic = "rpn_calculated"
	TopicMechanismRPNCalculated Topic = "mechanism_rpn_calculated"
	TopicCriticalityCalculated  Topic = "criticality_calculated"
	TopicAttributeSet           Topic = "attribute_set"
)

// TreeRetrievedTopic is published after every rebuild, e.g. "fmea_tree_retrieved".
func TreeRetrievedTopic(h domain.Hierarchy) Topic {
	return Topic(h.String() + "_tree_retrieved")
}

// InsertedTopic is published after a node is attached, e.g. "cause_inserted".
func InsertedTopic(l domain.Level) Topic { return Topic(l.String() + "_inserted") }

// DeletedTopic is published after a subtree is removed.
func DeletedTopic(l domain.Level) Topic { return Topic(l.String() + "_deleted") }

// UpdatedTopic is published after a record is persisted.
func UpdatedTopic(h domain.Hierarchy) Topic { return Topic(h.String() + "_updated") }

// FailInsertTopic carries insert failures at one level.
func FailInsertTopic(l domain.Level) Topic { return Topic("fail_insert_" + l.String()) }

// FailDeleteTopic carries delete failures within a hierarchy.
func FailDeleteTopic(h domain.Hierarchy) Topic { return Topic("fail_delete_" + h.String()) }

// FailUpdateTopic carries persistence failures within a hierarchy.
func FailUpdateTopic(h domain.Hierarchy) Topic { return Topic("fail_update_" + h.String()) }

// Event is a single notification. Only the fields relevant to Topic are set.
type Event struct {
	ID        uuid.UUID
	Topic     Topic
	Hierarchy domain.Hierarchy
	Scope     domain.Scope
	// NodeID is the rendered composite identifier the event concerns.
	NodeID          string
	Tree            *Tree
	ItemCriticality map[string]float64
	Attribute       string
	Value           any
	Err             error
}

// Publisher receives manager notifications.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, ev Event)

func (f PublisherFunc) Publish(ctx context.Context, ev Event) { f(ctx, ev) }

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, Event) {}
