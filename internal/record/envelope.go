package record

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownKind reports an envelope whose kind is not one of the four
// record kinds.
var ErrUnknownKind = errors.New("unknown record kind")

// Decode parses one JSON envelope of the form {"kind": "story", ...}
// into its typed record.
func Decode(data []byte) (Record, error) {
	var env struct {
		Kind Kind `json:"kind"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode record envelope: %w", err)
	}
	switch env.Kind {
	case KindStory:
		var r Story
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("decode story record: %w", err)
		}
		return r, nil
	case KindChapter:
		var r Chapter
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("decode chapter record: %w", err)
		}
		return r, nil
	case KindUser:
		var r User
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("decode user record: %w", err)
		}
		return r, nil
	case KindReview:
		var r Review
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("decode review record: %w", err)
		}
		return r, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Kind)
	}
}
