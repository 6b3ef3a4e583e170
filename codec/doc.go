// Package codec serializes inference results for the wire.
//
// A payload is a protobuf message:
//
//	message Array   { repeated int64 shape = 1; repeated double data = 2; }
//	message Payload { bytes frame = 1; map<string, Array> preds = 2; }
//
// The frame is JPEG encoded. Messages are written with protowire so no
// generated code is needed, and any protobuf runtime can read them.
package codec
