package protocol

import "strings"

// fieldDelim separates fields within a frame body. recordSep further
// separates items inside a bulk field (the sender/message lists carried by a
// full-queue UPDATE_MESSAGE_STATE replacement).
const (
	fieldDelim = "\x1f"
	recordSep  = "\r"
)

// EncodeArgs joins values, in the order schemas[op] names them, into a body.
// It panics if values is missing a field the schema requires — that is a
// programming error in the caller, not a runtime condition.
func EncodeArgs(op Op, values map[string]string) []byte {
	fields, ok := schemas[op]
	if !ok || len(fields) == 0 {
		return nil
	}
	parts := make([]string, len(fields))
	for i, name := range fields {
		v, present := values[name]
		if !present {
			panic("protocol: EncodeArgs: missing field " + name + " for " + op.String())
		}
		parts[i] = v
	}
	return []byte(strings.Join(parts, fieldDelim))
}

// DecodeArgs splits body into the named fields schemas[op] declares. It
// returns a ProtocolError if the number of fields does not match the
// schema — the caller should treat that like any other malformed frame.
func DecodeArgs(op Op, body []byte) (map[string]string, error) {
	fields, ok := schemas[op]
	if !ok || len(fields) == 0 {
		return map[string]string{}, nil
	}
	parts := strings.Split(string(body), fieldDelim)
	if len(parts) != len(fields) {
		return nil, &ProtocolError{Op: op, Msg: "field count mismatch"}
	}
	out := make(map[string]string, len(fields))
	for i, name := range fields {
		out[name] = parts[i]
	}
	return out, nil
}

// JoinRecords concatenates items with the intra-field record separator, used
// for the sender/message lists of a full undelivered-queue replacement.
func JoinRecords(items []string) string {
	return strings.Join(items, recordSep)
}

// SplitRecords is the inverse of JoinRecords. An empty input yields an empty
// (not one-element) slice.
func SplitRecords(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, recordSep)
}
