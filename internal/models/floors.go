package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// FloorList holds floor identifiers as text so "2", 2 and 2.0 compare equal.
// An empty list means every floor.
type FloorList []string

var ErrFloorEncoding = errors.New("unrecognised floor assignment encoding")

// DecodeFloors accepts a JSON array, a JSON string wrapping an encoded array, or a
// single bare number or string. On failure it returns the trimmed raw text as the
// only entry alongside the error, so the caller keeps something to match against.
func DecodeFloors(raw []byte) (FloorList, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return FloorList{}, nil
	}

	floors, err := decodeFloorValue(trimmed, 0)
	if err != nil {
		return FloorList{strings.TrimSpace(string(trimmed))}, fmt.Errorf("%w: %v", ErrFloorEncoding, err)
	}
	return floors, nil
}

func decodeFloorValue(raw []byte, depth int) (FloorList, error) {
	if depth > 2 {
		return nil, errors.New("too many nested encodings")
	}

	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}

	switch val := v.(type) {
	case []interface{}:
		out := make(FloorList, 0, len(val))
		for _, item := range val {
			token, err := floorToken(item)
			if err != nil {
				return nil, err
			}
			out = append(out, token)
		}
		return out, nil
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return FloorList{}, nil
		}
		if strings.HasPrefix(s, "[") {
			return decodeFloorValue([]byte(s), depth+1)
		}
		return FloorList{s}, nil
	case json.Number:
		return FloorList{val.String()}, nil
	case nil:
		return FloorList{}, nil
	default:
		return nil, fmt.Errorf("unexpected %T", v)
	}
}

func floorToken(item interface{}) (string, error) {
	switch val := item.(type) {
	case json.Number:
		return val.String(), nil
	case string:
		return strings.TrimSpace(val), nil
	default:
		return "", fmt.Errorf("unexpected floor entry %T", item)
	}
}

// Contains reports whether floor is assigned, comparing numerically when the entry
// parses as a number.
func (f FloorList) Contains(floor int) bool {
	want := float64(floor)
	text := strconv.Itoa(floor)
	for _, entry := range f {
		if n, err := strconv.ParseFloat(strings.TrimSpace(entry), 64); err == nil {
			if n == want {
				return true
			}
			continue
		}
		if strings.TrimSpace(entry) == text {
			return true
		}
	}
	return false
}

// MarshalJSON writes numeric entries as numbers.
func (f FloorList) MarshalJSON() ([]byte, error) {
	out := make([]interface{}, 0, len(f))
	for _, entry := range f {
		if _, err := strconv.ParseFloat(entry, 64); err == nil {
			out = append(out, json.Number(entry))
			continue
		}
		out = append(out, entry)
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts every encoding DecodeFloors does.
func (f *FloorList) UnmarshalJSON(data []byte) error {
	floors, err := DecodeFloors(data)
	if err != nil {
		return err
	}
	*f = floors
	return nil
}

// Encode renders the list as a native JSON array for storage.
func (f FloorList) Encode() []byte {
	raw, _ := f.MarshalJSON()
	return raw
}
