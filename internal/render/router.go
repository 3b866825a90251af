package render

import (
	"fmt"

	"github.com/storyloom/storyloom/internal/schema"
)

// Apply merges slot updates into the state in list order. Each
// non-transcript update overwrites exactly one slot's last-written value,
// so re-applying the same update is idempotent and updates to different
// slots commute; transcript updates append to the current turn's agent
// text in arrival order.
//
// A scene index outside [0, maxScenes) yields a SlotOutOfRange failure for
// that update only; the remaining updates in the batch still apply.
func Apply(state *State, updates []schema.SlotUpdate) []schema.Failure {
	var failures []schema.Failure

	for _, u := range updates {
		switch u.Slot.Kind {
		case schema.SlotTranscript:
			state.appendFragment(u.Value)
		case schema.SlotStory:
			state.story = u.Value
		case schema.SlotImage:
			if u.Slot.Index < 0 || u.Slot.Index >= state.maxScenes {
				failures = append(failures, outOfRange(u.Slot, state.maxScenes))
				continue
			}
			state.images[u.Slot.Index] = u.Value
		case schema.SlotCaption:
			if u.Slot.Index < 0 || u.Slot.Index >= state.maxScenes {
				failures = append(failures, outOfRange(u.Slot, state.maxScenes))
				continue
			}
			state.captions[u.Slot.Index] = u.Value
		default:
			failures = append(failures, schema.Failure{
				Kind:   schema.FailureSlotOutOfRange,
				Reason: fmt.Sprintf("unknown slot kind %q", u.Slot.Kind),
			})
		}
	}

	return failures
}

func outOfRange(slot schema.SlotID, maxScenes int) schema.Failure {
	return schema.Failure{
		Kind:   schema.FailureSlotOutOfRange,
		Reason: fmt.Sprintf("slot %s outside the configured %d scenes", slot, maxScenes),
	}
}
