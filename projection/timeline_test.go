package projection

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"chatorbit/domain"
	"chatorbit/domain/event"
)

func delivered(sender, content string) event.MessageDelivered {
	return event.MessageDelivered{
		Message: domain.Message{
			ID:      uuid.New(),
			Sender:  sender,
			Content: content,
			SentAt:  time.Now().UTC(),
		},
	}
}

func TestTimeline_Consume_MessageDelivered(t *testing.T) {
	timeline := NewTimeline(10)
	ctx := context.Background()

	evt1 := delivered("alice", "Hello Bob")
	evt2 := delivered("carol", "Hi Bob")

	require.NoError(t, timeline.Consume(ctx, evt1))
	require.NoError(t, timeline.Consume(ctx, evt2))

	require.Len(t, timeline.Messages, 2)
	require.Equal(t, "alice", timeline.Messages[0].Sender)
	require.Equal(t, "carol", timeline.Messages[1].Sender)
}

func TestTimeline_Deduplicates_By_ID(t *testing.T) {
	timeline := NewTimeline(10)
	ctx := context.Background()

	evt := delivered("alice", "Hello Bob")
	require.NoError(t, timeline.Consume(ctx, evt))
	require.NoError(t, timeline.Consume(ctx, evt))

	require.Len(t, timeline.Recent(), 1)
}

func TestTimeline_Evicts_Oldest_Beyond_Limit(t *testing.T) {
	timeline := NewTimeline(2)
	ctx := context.Background()

	require.NoError(t, timeline.Consume(ctx, delivered("alice", "one")))
	require.NoError(t, timeline.Consume(ctx, delivered("alice", "two")))
	require.NoError(t, timeline.Consume(ctx, delivered("alice", "three")))

	recent := timeline.Recent()
	require.Len(t, recent, 2)
	require.Equal(t, "two", recent[0].Content)
	require.Equal(t, "three", recent[1].Content)
}

func TestTimeline_Ignores_Other_Events(t *testing.T) {
	timeline := NewTimeline(10)

	require.NoError(t, timeline.Consume(context.Background(), event.PresenceChanged{UID: "alice", Online: true}))
	require.Empty(t, timeline.Recent())
}
