// Package lineproto parses and serializes the ingest wire format:
//
//	<measurement>[,<tag>=<v>[,<tag>=<v>]...] <field>=<v>[,<field>=<v>]... [<timestamp>]
//
// This mirrors the shape of influx-style line protocol, grounded on the
// original source's save_data()/parse_influx_data() functions but rewritten
// as a reusable Record type with explicit parse/serialize contracts.
package lineproto

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedLine is returned when a line has fewer than the two
// whitespace-separated tokens the grammar requires.
var ErrMalformedLine = errors.New("malformed line: need at least measurement+tags and fields tokens")

// Record is the parsed shape of one ingested line.
type Record struct {
	Measurement string            `json:"measurement"`
	Tags        map[string]string `json:"tags"`
	Fields      map[string]string `json:"fields"`
	Timestamp   int64             `json:"timestamp"`
}

// Parse converts a single line-protocol line into a Record. Fields without an
// '=' are ignored on both the tag set and the field set. A missing timestamp
// token is filled in with the current wall-clock time in nanoseconds.
func Parse(line string) (*Record, error) {
	tokens := strings.Fields(line)
	if len(tokens) < 2 {
		return nil, ErrMalformedLine
	}

	measurementAndTags := strings.Split(tokens[0], ",")
	measurement := measurementAndTags[0]
	if measurement == "" {
		return nil, ErrMalformedLine
	}

	tags := make(map[string]string)
	for _, seg := range measurementAndTags[1:] {
		k, v, ok := splitKV(seg)
		if ok {
			tags[k] = v
		}
	}

	fields := make(map[string]string)
	for _, seg := range strings.Split(tokens[1], ",") {
		k, v, ok := splitKV(seg)
		if ok {
			fields[k] = v
		}
	}

	timestamp := time.Now().UnixNano()
	if len(tokens) > 2 {
		if ts, err := strconv.ParseInt(tokens[2], 10, 64); err == nil {
			timestamp = ts
		}
	}

	return &Record{
		Measurement: measurement,
		Tags:        tags,
		Fields:      fields,
		Timestamp:   timestamp,
	}, nil
}

// Serialize renders the record as the JSON document the storage engine
// persists as the value half of a key→value pair.
func (r *Record) Serialize() ([]byte, error) {
	return json.Marshal(r)
}

// Deserialize is the inverse of Serialize.
func Deserialize(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	if r.Tags == nil {
		r.Tags = make(map[string]string)
	}
	if r.Fields == nil {
		r.Fields = make(map[string]string)
	}
	return &r, nil
}

// Key builds the storage key for this record: "measurement:timestamp".
func (r *Record) Key() string {
	return r.Measurement + ":" + strconv.FormatInt(r.Timestamp, 10)
}

func splitKV(seg string) (string, string, bool) {
	idx := strings.IndexByte(seg, '=')
	if idx < 0 {
		return "", "", false
	}
	return seg[:idx], seg[idx+1:], true
}
