package api

import (
	"bytes"
	"encoding/json"
)

// envelope is the wire shape of every platform response. The field names are
// a protocol detail owned by the remote service; data may be absent entirely.
type envelope struct {
	ResultCode int    `json:"result_code"`
	ResultText string `json:"result_text"`
	Notes      string `json:"notes"`
	Data       struct {
		Payload json.RawMessage `json:"payload"`
	} `json:"data"`
}

// decodeResponse turns raw response bytes into a Status. It is pure: cache
// writes and credential handling happen strictly outside this function.
//
// When many is set the payload is decoded as an ordered sequence, preserving
// server order; otherwise as a single entity. Each decoded entity starts as a
// shallow copy of the seed. A malformed body or a shape mismatch yields a
// local-error Status with no payload; decoding never panics or returns an
// error to the caller.
func decodeResponse[T any, PT entityPtr[T]](seed PT, many bool, httpStatus int, body []byte) *Status[T] {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		st := localStatus[T](httpStatus, "empty response body")
		st.Description = descUndecodable
		return st
	}

	env := new(envelope)
	if err := json.Unmarshal(body, env); err != nil {
		st := localStatus[T](httpStatus, err.Error())
		st.Description = descUndecodable
		return st
	}

	st := &Status[T]{
		Code:        env.ResultCode,
		Description: env.ResultText,
		Notes:       env.Notes,
		HttpStatus:  httpStatus,
	}

	raw := bytes.TrimSpace(env.Data.Payload)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return st
	}

	if many {
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			st := localStatus[T](httpStatus, err.Error())
			st.Description = descUndecodable
			return st
		}
		items := make([]*T, 0, len(elems))
		for _, elem := range elems {
			item := cloneSeed[T, PT](seed)
			if err := json.Unmarshal(elem, item); err != nil {
				st := localStatus[T](httpStatus, err.Error())
				st.Description = descUndecodable
				return st
			}
			items = append(items, (*T)(item))
		}
		st.Payload = manyPayload(items)
		return st
	}

	item := cloneSeed[T, PT](seed)
	if err := json.Unmarshal(raw, item); err != nil {
		st := localStatus[T](httpStatus, err.Error())
		st.Description = descUndecodable
		return st
	}
	st.Payload = onePayload((*T)(item))
	return st
}
