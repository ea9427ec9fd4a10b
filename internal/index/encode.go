package index

import (
	"encoding/binary"
	"math"
	"time"
)

// key = invTime(8) + 0x00 + slug, so a forward cursor walks newest first.
// Posts without a date sort last.
func makeTimeSlugKey(t time.Time, slug string) []byte {
	n := int64(math.MinInt64)
	if !t.IsZero() {
		n = t.UnixNano()
	}
	// flip the sign bit so the unsigned order follows the signed one
	invTime := ^(uint64(n) ^ 1<<63)

	buf := make([]byte, 8, 8+1+len(slug))
	binary.BigEndian.PutUint64(buf, invTime)
	buf = append(buf, 0x00)
	buf = append(buf, slug...)
	return buf
}

func slugFromTimeSlugKey(k []byte) string {
	if len(k) < 8+2 || k[8] != 0x00 {
		return ""
	}
	return string(k[9:])
}
