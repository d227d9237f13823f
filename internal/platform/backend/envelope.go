package backend

import (
	"bytes"
	"encoding/json"
)

// ListPayload finds the array in a list response, which the backend sends
// either bare or under a single wrapper key. An object without any array
// yields an empty list.
func ListPayload(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] == '[' {
		return trimmed
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return trimmed
	}
	for _, v := range obj {
		if v = bytes.TrimSpace(v); len(v) > 0 && v[0] == '[' {
			return v
		}
	}
	return json.RawMessage("[]")
}

// RecordPayload finds the record in a single-item response: either the body
// itself or the first nested object carrying an "_id".
func RecordPayload(body []byte) json.RawMessage {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return body
	}
	if _, ok := obj["_id"]; ok {
		return body
	}
	for _, v := range obj {
		var inner map[string]json.RawMessage
		if json.Unmarshal(v, &inner) == nil {
			if _, ok := inner["_id"]; ok {
				return v
			}
		}
	}
	return body
}

// DecodeList decodes a possibly wrapped list response into target.
func (r *Response) DecodeList(target any) error {
	return json.Unmarshal(ListPayload(r.Body), target)
}

// DecodeRecord decodes a possibly wrapped single-record response into target.
func (r *Response) DecodeRecord(target any) error {
	return json.Unmarshal(RecordPayload(r.Body), target)
}
