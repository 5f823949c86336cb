package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/quillsocial/quill"
)

// SignalService fans notice events out over redis pub/sub so websocket
// sessions on any web node see them.
type SignalService struct {
	rdb *redis.Client
}

func NewSignalService(redisClient *redis.Client) *SignalService {
	return &SignalService{
		rdb: redisClient,
	}
}

func (s *SignalService) Publish(ctx context.Context, event quill.NoticeEvent) error {

	jsonstr, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = s.rdb.Publish(ctx, quill.RealtimeChannel, jsonstr).Err()
	if err != nil {
		return err
	}

	return nil
}

// Realtime forwards published notice events to output until ctx is done.
func (s *SignalService) Realtime(ctx context.Context, output chan<- quill.NoticeEvent) {
	sub := s.rdb.Subscribe(ctx, quill.RealtimeChannel)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			var event quill.NoticeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.ErrorContext(ctx, "malformed realtime event",
					slog.String("error", err.Error()),
					slog.String("module", "signal"),
				)
				continue
			}
			output <- event
		}
	}
}
