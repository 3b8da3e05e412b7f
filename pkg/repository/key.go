package repository

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/webflow/pkg/domain"
)

// CompositeKey identifies one snapshot of one conversation.
type CompositeKey struct {
	ConversationID string
	SnapshotID     int
}

// String renders the key as "e<conversation>s<snapshot>".
func (k CompositeKey) String() string {
	return "e" + k.ConversationID + "s" + strconv.Itoa(k.SnapshotID)
}

// ParseFlowExecutionKey is the inverse of CompositeKey.String. The snapshot id
// follows the last "s", so conversation ids may contain the letter.
func ParseFlowExecutionKey(s string) (CompositeKey, error) {
	if !strings.HasPrefix(s, "e") {
		return CompositeKey{}, fmt.Errorf("%w: %q", domain.ErrBadKeyFormat, s)
	}
	i := strings.LastIndex(s, "s")
	if i <= 1 || i == len(s)-1 {
		return CompositeKey{}, fmt.Errorf("%w: %q", domain.ErrBadKeyFormat, s)
	}
	digits := s[i+1:]
	if len(digits) > 1 && digits[0] == '0' {
		return CompositeKey{}, fmt.Errorf("%w: %q", domain.ErrBadKeyFormat, s)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return CompositeKey{}, fmt.Errorf("%w: %q", domain.ErrBadKeyFormat, s)
		}
	}
	id, err := strconv.Atoi(digits)
	if err != nil {
		return CompositeKey{}, fmt.Errorf("%w: %q", domain.ErrBadKeyFormat, s)
	}
	return CompositeKey{ConversationID: s[1:i], SnapshotID: id}, nil
}
