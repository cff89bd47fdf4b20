package broker

import "encoding/json"

// decodeFrame parses an inbound text frame. It returns any json.Unmarshal failure: a
// JSON syntax error, or a field whose JSON type does not fit inboundFrame (such as a
// non-boolean "accepted"). An unrecognized "type" value is not a decode failure; it is
// left to the router, which silently ignores it per the forward-compatibility rule.
func decodeFrame(data []byte) (*inboundFrame, error) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, err
	}
	return &frame, nil
}

// encodeMessage serializes an outbound message. Payload fields are carried as
// json.RawMessage end to end so relayed values are never re-encoded.
func encodeMessage(v any) ([]byte, error) {
	return json.Marshal(v)
}
