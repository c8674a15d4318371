package session

import (
	"regexp"
	"strconv"
)

// The order comment is the only place an upstream ticket is tied to an
// external id. The encoding is a fixed wire contract: "#" followed by the
// decimal digits of the id, nothing else.
var commentPattern = regexp.MustCompile(`^#(\d+)$`)

// EncodeComment renders the comment that tags an order with externalID.
func EncodeComment(externalID int64) string {
	return "#" + strconv.FormatInt(externalID, 10)
}

// DecodeComment extracts the external id from an order comment. It reports
// false for comments not written by EncodeComment, e.g. manual orders.
func DecodeComment(comment string) (int64, bool) {
	m := commentPattern.FindStringSubmatch(comment)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
