package notify

import (
	"encoding/binary"
	"strings"
)

// headerSize is the fixed size of one raw event header on the wire:
// wd (int32), mask, cookie, and name length (uint32 each).
const headerSize = 16

// Decode parses the first n bytes of buf into events, in arrival order.
//
// Each record is a fixed header followed by an optional NUL-padded name whose
// length the header declares. Decoding stops as soon as fewer than one full
// header remains, so a header split across read boundaries is never
// interpreted. A record whose declared name does not fit within n is dropped
// (counted in dropped) and the cursor still advances past its declared span.
//
// Decode is a single pass over a single buffer fill and carries no state
// between calls: a record split exactly at a fill boundary is lost, not
// reassembled.
func Decode(buf []byte, n int) (events []Event, dropped int) {
	if n > len(buf) {
		n = len(buf)
	}

	for idx := 0; idx+headerSize <= n; {
		wd := int32(binary.NativeEndian.Uint32(buf[idx:]))
		mask := binary.NativeEndian.Uint32(buf[idx+4:])
		cookie := binary.NativeEndian.Uint32(buf[idx+8:])
		nameLen := int(binary.NativeEndian.Uint32(buf[idx+12:]))

		span := headerSize + nameLen
		if idx+span > n {
			// Name payload arrived split; drop the record but keep the
			// cursor honest.
			dropped++
			idx += span
			continue
		}

		var name string
		if nameLen > 0 {
			name = strings.TrimRight(string(buf[idx+headerSize:idx+span]), "\x00")
		}

		events = append(events, Event{Wd: wd, Mask: mask, Cookie: cookie, Name: name})
		idx += span
	}

	return events, dropped
}
