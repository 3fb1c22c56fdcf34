package natsadapter_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oceanclean/oceanclean/internal/adapters/docstore"
	natsadapter "github.com/oceanclean/oceanclean/internal/adapters/nats"
)

func TestChangeCodec(t *testing.T) {
	c := docstore.Change{
		Path:   "maps/1/areas",
		Op:     docstore.OpDelete,
		At:     time.UnixMilli(1718000000123),
		Origin: "node-a",
	}
	data, err := natsadapter.EncodeChange(c)
	require.NoError(t, err)

	got, err := natsadapter.DecodeChange(data)
	require.NoError(t, err)
	assert.Equal(t, c.Path, got.Path)
	assert.Equal(t, c.Op, got.Op)
	assert.Equal(t, c.Origin, got.Origin)
	assert.True(t, c.At.Equal(got.At))
}

func TestDecodeChange_Malformed(t *testing.T) {
	_, err := natsadapter.DecodeChange([]byte{0xff, 0xff, 0xff})
	assert.Error(t, err)

	s, err := structpb.NewStruct(map[string]any{"op": "set"})
	require.NoError(t, err)
	data, err := proto.Marshal(s)
	require.NoError(t, err)
	_, err = natsadapter.DecodeChange(data)
	assert.ErrorContains(t, err, "without path")
}
