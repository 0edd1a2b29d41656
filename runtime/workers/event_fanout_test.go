package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"chatorbit/contract"
	"chatorbit/domain"
	"chatorbit/domain/event"
	"chatorbit/mocks"
)

func TestEventFanout_Targeted(t *testing.T) {
	log := slog.Default()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIPresence(ctrl)
	liveSink := mocks.NewMockEventSink(ctrl)
	permanentSink := mocks.NewMockEventSink(ctrl)

	fanout := NewEventFanout(log, mockRegistry, nil, nil, time.Second).Add(permanentSink)

	evt := event.MessageDelivered{Message: domain.Message{Content: "hi"}, To: []string{"bob"}}

	// Given bob has a live sink
	mockRegistry.EXPECT().SinkFor("bob").Return(contract.EventSink(liveSink), true).Times(1)
	// Then both the live and the permanent sink consume the event
	liveSink.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)
	permanentSink.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)

	fanout.Fanout(context.Background(), evt)
}

func TestEventFanout_Broadcast(t *testing.T) {
	log := slog.Default()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIPresence(ctrl)
	sink1 := mocks.NewMockEventSink(ctrl)
	sink2 := mocks.NewMockEventSink(ctrl)

	fanout := NewEventFanout(log, mockRegistry, nil, nil, time.Second)

	// Given a nil recipient list means every live connection
	evt := event.PresenceChanged{UID: "alice", Online: true}
	mockRegistry.EXPECT().Sinks().Return([]contract.EventSink{sink1, sink2}).Times(1)
	sink1.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)
	sink2.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)

	fanout.Fanout(context.Background(), evt)
}

func TestEventFanout_Skips_Offline_Recipient(t *testing.T) {
	log := slog.Default()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIPresence(ctrl)
	permanentSink := mocks.NewMockEventSink(ctrl)

	fanout := NewEventFanout(log, mockRegistry, nil, nil, time.Second).Add(permanentSink)

	evt := event.MessageDelivered{Message: domain.Message{Content: "hi"}, To: []string{"ghost"}}

	// Given the recipient has no live sink
	mockRegistry.EXPECT().SinkFor("ghost").Return(nil, false).Times(1)
	// Then only the permanent sink is consulted
	permanentSink.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)

	fanout.Fanout(context.Background(), evt)
}

func TestEventFanout_SinkTimeout(t *testing.T) {
	req := require.New(t)
	log := slog.Default()
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRegistry := mocks.NewMockIPresence(ctrl)
	slowSink := mocks.NewMockEventSink(ctrl)

	sinkTimeout := 20 * time.Millisecond
	fanout := NewEventFanout(log, mockRegistry, nil, nil, sinkTimeout)

	evt := event.MessageDelivered{Message: domain.Message{Content: "hi"}, To: []string{"bob"}}
	mockRegistry.EXPECT().SinkFor("bob").Return(contract.EventSink(slowSink), true).Times(1)

	// Given a sink that never accepts until its context dies
	slowSink.EXPECT().Consume(gomock.Any(), evt).
		DoAndReturn(func(ctx context.Context, e event.DomainEvent) error {
			<-ctx.Done()
			return ctx.Err()
		}).
		Times(1)

	start := time.Now()
	fanout.Fanout(context.Background(), evt)

	// Then the fan-out unblocked on the timeout, not on the sink
	req.Less(time.Since(start), 500*time.Millisecond)
}
