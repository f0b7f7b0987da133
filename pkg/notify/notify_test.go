package notify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Steel-tech/fabtrack/pkg/models"
	"github.com/Steel-tech/fabtrack/pkg/notify"
)

func TestBroker(t *testing.T) {
	created := func(id int64) models.Event {
		return models.Event{
			Kind:            models.WorkflowCreatedEvent,
			WorkflowCreated: &models.WorkflowCreated{WorkflowID: id, PieceMark: "B-101"},
		}
	}

	t.Run("FanOut", func(t *testing.T) {
		broker := notify.NewBroker(4)
		sub1 := broker.Subscribe()
		defer sub1.Unsubscribe()
		sub2 := broker.Subscribe()
		defer sub2.Unsubscribe()

		broker.Publish(created(1))

		for _, sub := range []*notify.Subscription{sub1, sub2} {
			event := <-sub.C
			assert.Equal(t, models.WorkflowCreatedEvent, event.Kind)
			assert.Equal(t, int64(1), event.WorkflowCreated.WorkflowID)
			assert.Nil(t, event.StageTransitioned)
			assert.Nil(t, event.StatusChanged)
		}
	})

	t.Run("UnsubscribeClosesChannel", func(t *testing.T) {
		broker := notify.NewBroker(4)
		sub := broker.Subscribe()

		sub.Unsubscribe()
		_, open := <-sub.C
		assert.False(t, open)

		// Safe to call twice, and later publishes don't panic.
		sub.Unsubscribe()
		broker.Publish(created(2))
	})

	t.Run("SlowSubscriberDropsEvents", func(t *testing.T) {
		broker := notify.NewBroker(2)
		sub := broker.Subscribe()
		defer sub.Unsubscribe()

		for i := int64(1); i <= 5; i++ {
			broker.Publish(created(i))
		}

		// Only the first two fit the buffer; the rest were dropped
		// rather than blocking the publisher.
		assert.Equal(t, int64(1), (<-sub.C).WorkflowCreated.WorkflowID)
		assert.Equal(t, int64(2), (<-sub.C).WorkflowCreated.WorkflowID)
		select {
		case event := <-sub.C:
			t.Fatalf("expected no buffered events, got %+v", event)
		default:
		}
	})

	t.Run("UnsubscribedReceivesNothing", func(t *testing.T) {
		broker := notify.NewBroker(4)
		sub := broker.Subscribe()
		keep := broker.Subscribe()
		defer keep.Unsubscribe()
		sub.Unsubscribe()

		broker.Publish(created(3))

		assert.Equal(t, int64(3), (<-keep.C).WorkflowCreated.WorkflowID)
	})
}
