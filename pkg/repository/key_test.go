package repository_test

import (
	"testing"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompositeKey_RoundTrip(t *testing.T) {
	for _, k := range []repository.CompositeKey{
		{ConversationID: "abc", SnapshotID: 1},
		{ConversationID: "9f1c-s-2s", SnapshotID: 42},
		{ConversationID: "s", SnapshotID: 0},
	} {
		parsed, err := repository.ParseFlowExecutionKey(k.String())
		require.NoError(t, err, k.String())
		assert.Equal(t, k, parsed)
	}
	assert.Equal(t, "eabcs7", repository.CompositeKey{ConversationID: "abc", SnapshotID: 7}.String())
}

func TestParseFlowExecutionKey_BadFormat(t *testing.T) {
	for _, s := range []string{"", "abc", "es1", "eabc", "eabcs", "eabcsx", "eabcs-1", "xabcs1", "eabcs007", "eabcs00"} {
		_, err := repository.ParseFlowExecutionKey(s)
		assert.ErrorIs(t, err, domain.ErrBadKeyFormat, s)
	}
}

func TestParseFlowExecutionKey_ExactInverse(t *testing.T) {
	for _, s := range []string{"eabcs0", "eabcs7", "eabcs10", "e9f1c-s-2ss42"} {
		k, err := repository.ParseFlowExecutionKey(s)
		require.NoError(t, err, s)
		assert.Equal(t, s, k.String())
	}
}
