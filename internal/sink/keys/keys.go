// Package keys builds the storage keys and message keys used by the
// fragment sinks.
package keys

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

const (
	fragmentPrefix = "frag:"
	locationPrefix = "loc:"
)

// Fragment is the key of one tile fragment: frag:<list>:<location>:<tile>.
func Fragment(listID, locationID int64, tileID int) string {
	b := make([]byte, 0, 48)
	b = append(b, fragmentPrefix...)
	b = strconv.AppendInt(b, listID, 10)
	b = append(b, ':')
	b = strconv.AppendInt(b, locationID, 10)
	b = append(b, ':')
	b = strconv.AppendInt(b, int64(tileID), 10)
	return string(b)
}

// Location is the key of the set holding a location's tile ids.
func Location(listID, locationID int64) string {
	b := make([]byte, 0, 40)
	b = append(b, locationPrefix...)
	b = strconv.AppendInt(b, listID, 10)
	b = append(b, ':')
	b = strconv.AppendInt(b, locationID, 10)
	return string(b)
}

// Message is the Kafka message key; all fragments of a location share it so
// they land on one partition.
func Message(locationID int64) string {
	return strconv.FormatInt(locationID, 10)
}

func Digest(payload []byte) uint64 {
	return xxhash.Sum64(payload)
}
