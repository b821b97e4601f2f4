package counter

import (
	"encoding/json"

	"icmd-go/errcode"
)

// decode accepts a control payload as T, *T, nil (zero T), raw JSON bytes,
// or a generic map as produced by a JSON bridge.
func decode[T any](payload any, out *T) error {
	switch p := payload.(type) {
	case nil:
		var zero T
		*out = zero
		return nil
	case T:
		*out = p
		return nil
	case *T:
		if p == nil {
			return errcode.InvalidPayload
		}
		*out = *p
		return nil
	case []byte:
		return unmarshal(p, out)
	case json.RawMessage:
		return unmarshal(p, out)
	case string:
		return unmarshal([]byte(p), out)
	case map[string]any:
		b, err := json.Marshal(p)
		if err != nil {
			return errcode.InvalidPayload
		}
		return unmarshal(b, out)
	}
	return errcode.InvalidPayload
}

func unmarshal[T any](b []byte, out *T) error {
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return &errcode.E{C: errcode.InvalidPayload, Msg: err.Error(), Err: err}
	}
	*out = v
	return nil
}
