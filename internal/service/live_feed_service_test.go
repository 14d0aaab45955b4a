package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/handout-api/internal/dto"
)

func TestLiveFeedDeliversLocallyPerCourse(t *testing.T) {
	feed := NewLiveFeedService(nil, "", nil, nopLogger())

	python, cancelPython := feed.Subscribe("Programming 101")
	defer cancelPython()
	art, cancelArt := feed.Subscribe("Art 100")
	defer cancelArt()

	feed.Publish(context.Background(), dto.TelemetryEvent{Course: "Programming 101", Telemetry: dto.TelemetryResponse{ID: 7}})

	select {
	case event := <-python:
		require.Equal(t, uint(7), event.Telemetry.ID)
	case <-time.After(time.Second):
		t.Fatal("expected event for subscribed course")
	}

	select {
	case event := <-art:
		t.Fatalf("unexpected event %+v", event)
	default:
	}
}

func TestLiveFeedCleanupClosesChannelOnce(t *testing.T) {
	feed := NewLiveFeedService(nil, "", nil, nopLogger())

	events, cancel := feed.Subscribe("Programming 101")
	cancel()
	cancel()

	_, open := <-events
	require.False(t, open)

	feed.Publish(context.Background(), dto.TelemetryEvent{Course: "Programming 101"})
}

func TestLiveFeedFansOutAcrossNodesThroughRedis(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	nodeA := NewLiveFeedService(redis.NewClient(&redis.Options{Addr: mini.Addr()}), "handout", nil, nopLogger())
	nodeB := NewLiveFeedService(redis.NewClient(&redis.Options{Addr: mini.Addr()}), "handout", nil, nopLogger())
	nodeA.Start(ctx)
	nodeB.Start(ctx)

	require.Eventually(t, func() bool {
		return mini.PubSubNumSub("handout:telemetry")["handout:telemetry"] == 2
	}, 2*time.Second, 10*time.Millisecond)

	local, cancelLocal := nodeA.Subscribe("Programming 101")
	defer cancelLocal()
	remote, cancelRemote := nodeB.Subscribe("Programming 101")
	defer cancelRemote()

	nodeA.Publish(ctx, dto.TelemetryEvent{Course: "Programming 101", Telemetry: dto.TelemetryResponse{ID: 11, Author: "ana"}})

	select {
	case event := <-remote:
		require.Equal(t, uint(11), event.Telemetry.ID)
		require.Equal(t, "ana", event.Telemetry.Author)
	case <-time.After(2 * time.Second):
		t.Fatal("expected event on the other node")
	}

	select {
	case event := <-local:
		require.Equal(t, uint(11), event.Telemetry.ID)
	case <-time.After(time.Second):
		t.Fatal("expected local delivery")
	}

	select {
	case event := <-local:
		t.Fatalf("event echoed back to its origin: %+v", event)
	case <-time.After(100 * time.Millisecond):
	}
}
