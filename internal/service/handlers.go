package service

import (
	"context"
	"encoding/json"

	"github.com/quillsocial/quill"
	"github.com/quillsocial/quill/internal/queue"
)

// TransportSignal is the queue transport realtime fan-out work rides on.
const TransportSignal = "signal"

// NewSignalHandler adapts SignalService into the queue handler for the
// signal transport. A body that is not a notice event is a handler failure,
// not a poison frame; the envelope already decoded upstream.
func NewSignalHandler(signal *SignalService) queue.Handler {
	return queue.HandlerFunc(func(ctx context.Context, body []byte) error {
		var event quill.NoticeEvent
		if err := json.Unmarshal(body, &event); err != nil {
			return err
		}
		return signal.Publish(ctx, event)
	})
}
