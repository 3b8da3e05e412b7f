package repository

import (
	"testing"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type account struct {
	Owner   string
	Balance int
}

func TestCodec_NestedValues(t *testing.T) {
	Register(&account{})
	in := domain.Attributes{
		"nested":  domain.Attributes{"list": []any{"a", 1}},
		"account": &account{Owner: "ada", Balance: 10},
		"errors":  map[string]string{"email": "required"},
	}

	for _, c := range []Codec{{}, {Compress: true}} {
		data, err := c.Encode(in)
		require.NoError(t, err)

		// Decoding detects compression regardless of the codec setting.
		var out domain.Attributes
		require.NoError(t, Codec{}.Decode(data, &out))
		assert.Equal(t, in, out)
	}
}

func TestCodec_DecodeGarbage(t *testing.T) {
	var out domain.Attributes
	assert.Error(t, Codec{}.Decode([]byte("not gob"), &out))
	assert.Error(t, Codec{}.Decode([]byte{0x1f, 0x8b, 0x00}, &out))
}
