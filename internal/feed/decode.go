package feed

import (
	"encoding/json"
	"fmt"

	"github.com/mquinn/livelot/internal/channel"
)

// decodeEvent parses a change-feed envelope. The feed tags events with
// their concern; events missing the tag inherit the subscription's.
func decodeEvent(data []byte, fallback channel.Concern) (channel.ChangeEvent, error) {
	var ev channel.ChangeEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return channel.ChangeEvent{}, fmt.Errorf("decode feed event: %w", err)
	}
	if ev.Type == "" {
		return channel.ChangeEvent{}, fmt.Errorf("feed event missing eventType")
	}
	if ev.Concern == "" {
		ev.Concern = fallback
	}
	return ev, nil
}
