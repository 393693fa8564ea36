// Package oraclepb defines the wire messages and the gRPC service of the
// timestamp oracle. Messages are protobuf encoded by Codec.
package oraclepb

import "fmt"

type Error struct {
	Code int32  `protobuf:"varint,1,opt,name=code,proto3" json:"code,omitempty"`
	Msg  string `protobuf:"bytes,2,opt,name=msg,proto3" json:"msg,omitempty"`
}

func (x *Error) Error() string {
	return fmt.Sprintf("%s, code: %d", x.Msg, x.Code)
}

type FetchRequest struct {
	Namespace string `protobuf:"bytes,1,opt,name=namespace,proto3" json:"namespace,omitempty"`
	Count     int64  `protobuf:"varint,2,opt,name=count,proto3" json:"count,omitempty"`
}

type FetchResponse struct {
	Lower int64  `protobuf:"varint,1,opt,name=lower,proto3" json:"lower,omitempty"`
	Upper int64  `protobuf:"varint,2,opt,name=upper,proto3" json:"upper,omitempty"`
	Err   *Error `protobuf:"bytes,3,opt,name=err,proto3" json:"err,omitempty"`
}

type FastForwardRequest struct {
	Namespace string `protobuf:"bytes,1,opt,name=namespace,proto3" json:"namespace,omitempty"`
	Timestamp int64  `protobuf:"varint,2,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
}

type FastForwardResponse struct {
	Err *Error `protobuf:"bytes,1,opt,name=err,proto3" json:"err,omitempty"`
}

type InvalidateRequest struct {
	Namespace string `protobuf:"bytes,1,opt,name=namespace,proto3" json:"namespace,omitempty"`
}

type InvalidateResponse struct {
	Err *Error `protobuf:"bytes,1,opt,name=err,proto3" json:"err,omitempty"`
}
