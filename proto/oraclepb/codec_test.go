package oraclepb

import (
	"testing"

	testifyassert "github.com/stretchr/testify/assert"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestCodec_WireFormat(t *testing.T) {
	assert := testifyassert.New(t)

	b, err := Codec{}.Marshal(&FetchRequest{Namespace: "a", Count: 3})
	assert.NoError(err)
	assert.Equal([]byte{0x0a, 0x01, 'a', 0x10, 0x03}, b)

	b, err = Codec{}.Marshal(&FetchRequest{})
	assert.NoError(err)
	assert.Empty(b)

	b, err = Codec{}.Marshal(&FastForwardResponse{Err: &Error{Code: 302, Msg: "x"}})
	assert.NoError(err)
	assert.Equal([]byte{0x0a, 0x06, 0x08, 0xae, 0x02, 0x12, 0x01, 'x'}, b)

	_, err = Codec{}.Marshal("not a message")
	assert.Error(err)
}

func TestCodec_Unmarshal(t *testing.T) {
	assert := testifyassert.New(t)

	in := &FetchResponse{Lower: 1, Upper: 1 << 40, Err: &Error{Code: -1, Msg: "boom"}}
	b, err := Codec{}.Marshal(in)
	if !assert.NoError(err) {
		return
	}
	out := &FetchResponse{Lower: 7}
	assert.NoError(Codec{}.Unmarshal(b, out))
	assert.Equal(in, out)

	// An empty error message still marks the response as failed.
	b, _ = Codec{}.Marshal(&InvalidateResponse{Err: &Error{}})
	resp := &InvalidateResponse{}
	assert.NoError(Codec{}.Unmarshal(b, resp))
	assert.NotNil(resp.Err)

	// Unknown fields are skipped.
	b = protowire.AppendTag(nil, 9, protowire.BytesType)
	b = protowire.AppendString(b, "future")
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, "ns")
	req := &InvalidateRequest{}
	assert.NoError(Codec{}.Unmarshal(b, req))
	assert.Equal("ns", req.Namespace)

	assert.Error(Codec{}.Unmarshal([]byte{0x0a, 0x05, 'a'}, &FetchRequest{}))
}
