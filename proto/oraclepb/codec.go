package oraclepb

import (
	"fmt"

	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/encoding/protowire"
)

// CodecName is the gRPC content subtype of the oracle service. Payloads are
// protobuf encoded, following oracle.proto:
//
//	message Error               { int32 code = 1; string msg = 2; }
//	message FetchRequest        { string namespace = 1; int64 count = 2; }
//	message FetchResponse       { int64 lower = 1; int64 upper = 2; Error err = 3; }
//	message FastForwardRequest  { string namespace = 1; int64 timestamp = 2; }
//	message FastForwardResponse { Error err = 1; }
//	message InvalidateRequest   { string namespace = 1; }
//	message InvalidateResponse  { Error err = 1; }
const CodecName = "oraclepb"

func init() {
	encoding.RegisterCodec(Codec{})
}

type message interface {
	marshal(b []byte) []byte
	unmarshal(b []byte) error
}

type Codec struct{}

func (Codec) Marshal(v interface{}) ([]byte, error) {
	m, ok := v.(message)
	if !ok {
		return nil, fmt.Errorf("oraclepb: can't marshal %T", v)
	}
	return m.marshal(nil), nil
}

func (Codec) Unmarshal(data []byte, v interface{}) error {
	m, ok := v.(message)
	if !ok {
		return fmt.Errorf("oraclepb: can't unmarshal into %T", v)
	}
	return m.unmarshal(data)
}

func (Codec) Name() string {
	return CodecName
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendInt64(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendError(b []byte, num protowire.Number, e *Error) []byte {
	if e == nil {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, e.marshal(nil))
}

// fieldFunc consumes the value of a known field and returns its length, or
// returns ok == false to have the field skipped.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (n int, ok bool, err error)

func consumeFields(b []byte, f fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		n, ok, err := f(num, typ, b)
		if err != nil {
			return err
		}
		if !ok {
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
	}
	return nil
}

func consumeString(b []byte, dst *string) (int, bool, error) {
	s, n := protowire.ConsumeString(b)
	if n >= 0 {
		*dst = s
	}
	return n, true, nil
}

func consumeInt64(b []byte, dst *int64) (int, bool, error) {
	v, n := protowire.ConsumeVarint(b)
	if n >= 0 {
		*dst = int64(v)
	}
	return n, true, nil
}

func consumeError(b []byte, dst **Error) (int, bool, error) {
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n, true, nil
	}
	e := &Error{}
	if err := e.unmarshal(v); err != nil {
		return 0, true, err
	}
	*dst = e
	return n, true, nil
}

func (x *Error) marshal(b []byte) []byte {
	if x.Code != 0 {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(x.Code)))
	}
	return appendString(b, 2, x.Msg)
}

func (x *Error) unmarshal(b []byte) error {
	*x = Error{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			var code int64
			n, ok, err := consumeInt64(b, &code)
			x.Code = int32(code)
			return n, ok, err
		case num == 2 && typ == protowire.BytesType:
			return consumeString(b, &x.Msg)
		}
		return 0, false, nil
	})
}

func (x *FetchRequest) marshal(b []byte) []byte {
	b = appendString(b, 1, x.Namespace)
	return appendInt64(b, 2, x.Count)
}

func (x *FetchRequest) unmarshal(b []byte) error {
	*x = FetchRequest{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			return consumeString(b, &x.Namespace)
		case num == 2 && typ == protowire.VarintType:
			return consumeInt64(b, &x.Count)
		}
		return 0, false, nil
	})
}

func (x *FetchResponse) marshal(b []byte) []byte {
	b = appendInt64(b, 1, x.Lower)
	b = appendInt64(b, 2, x.Upper)
	return appendError(b, 3, x.Err)
}

func (x *FetchResponse) unmarshal(b []byte) error {
	*x = FetchResponse{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool, error) {
		switch {
		case num == 1 && typ == protowire.VarintType:
			return consumeInt64(b, &x.Lower)
		case num == 2 && typ == protowire.VarintType:
			return consumeInt64(b, &x.Upper)
		case num == 3 && typ == protowire.BytesType:
			return consumeError(b, &x.Err)
		}
		return 0, false, nil
	})
}

func (x *FastForwardRequest) marshal(b []byte) []byte {
	b = appendString(b, 1, x.Namespace)
	return appendInt64(b, 2, x.Timestamp)
}

func (x *FastForwardRequest) unmarshal(b []byte) error {
	*x = FastForwardRequest{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			return consumeString(b, &x.Namespace)
		case num == 2 && typ == protowire.VarintType:
			return consumeInt64(b, &x.Timestamp)
		}
		return 0, false, nil
	})
}

func (x *FastForwardResponse) marshal(b []byte) []byte {
	return appendError(b, 1, x.Err)
}

func (x *FastForwardResponse) unmarshal(b []byte) error {
	*x = FastForwardResponse{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool, error) {
		if num == 1 && typ == protowire.BytesType {
			return consumeError(b, &x.Err)
		}
		return 0, false, nil
	})
}

func (x *InvalidateRequest) marshal(b []byte) []byte {
	return appendString(b, 1, x.Namespace)
}

func (x *InvalidateRequest) unmarshal(b []byte) error {
	*x = InvalidateRequest{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool, error) {
		if num == 1 && typ == protowire.BytesType {
			return consumeString(b, &x.Namespace)
		}
		return 0, false, nil
	})
}

func (x *InvalidateResponse) marshal(b []byte) []byte {
	return appendError(b, 1, x.Err)
}

func (x *InvalidateResponse) unmarshal(b []byte) error {
	*x = InvalidateResponse{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool, error) {
		if num == 1 && typ == protowire.BytesType {
			return consumeError(b, &x.Err)
		}
		return 0, false, nil
	})
}
