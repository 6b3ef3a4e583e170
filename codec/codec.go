package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/kbukum/edgecam/errors"
	"github.com/kbukum/edgecam/inference"
)

// DefaultQuality is the JPEG quality used when none is configured.
const DefaultQuality = 80

const (
	fieldFrame protowire.Number = 1
	fieldPreds protowire.Number = 2

	fieldEntryKey   protowire.Number = 1
	fieldEntryValue protowire.Number = 2

	fieldShape protowire.Number = 1
	fieldData  protowire.Number = 2
)

// Payload is a decoded message. Frame holds the JPEG bytes.
type Payload struct {
	Frame       []byte
	Predictions inference.PredictionSet
}

// Image decodes the JPEG frame.
func (p Payload) Image() (image.Image, error) {
	if len(p.Frame) == 0 {
		return nil, errors.EncodeFailed("jpeg", fmt.Errorf("payload has no frame"))
	}
	img, err := jpeg.Decode(bytes.NewReader(p.Frame))
	if err != nil {
		return nil, errors.EncodeFailed("jpeg", err)
	}
	return img, nil
}

// EncodeJPEG encodes img at quality, 1 to 100. Out of range values use
// DefaultQuality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if img == nil {
		return nil, errors.EncodeFailed("jpeg", fmt.Errorf("no image"))
	}
	if quality < 1 || quality > 100 {
		quality = DefaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, errors.EncodeFailed("jpeg", err)
	}
	return buf.Bytes(), nil
}

// Encode serializes a result with its frame JPEG encoded at quality.
func Encode(res inference.Result, quality int) ([]byte, error) {
	frame, err := EncodeJPEG(res.Frame.Image, quality)
	if err != nil {
		return nil, err
	}
	return Marshal(Payload{Frame: frame, Predictions: res.Predictions}), nil
}

// Marshal writes p in wire format. Predictions are written in name order
// so equal payloads encode to equal bytes.
func Marshal(p Payload) []byte {
	var b []byte
	if len(p.Frame) > 0 {
		b = protowire.AppendTag(b, fieldFrame, protowire.BytesType)
		b = protowire.AppendBytes(b, p.Frame)
	}
	for _, name := range p.Predictions.Names() {
		var entry []byte
		entry = protowire.AppendTag(entry, fieldEntryKey, protowire.BytesType)
		entry = protowire.AppendString(entry, name)
		entry = protowire.AppendTag(entry, fieldEntryValue, protowire.BytesType)
		entry = protowire.AppendBytes(entry, marshalArray(p.Predictions[name]))

		b = protowire.AppendTag(b, fieldPreds, protowire.BytesType)
		b = protowire.AppendBytes(b, entry)
	}
	return b
}

func marshalArray(a inference.Array) []byte {
	var b []byte
	if len(a.Shape) > 0 {
		var packed []byte
		for _, d := range a.Shape {
			packed = protowire.AppendVarint(packed, uint64(d))
		}
		b = protowire.AppendTag(b, fieldShape, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}
	if len(a.Data) > 0 {
		packed := make([]byte, 0, 8*len(a.Data))
		for _, v := range a.Data {
			packed = protowire.AppendFixed64(packed, math.Float64bits(v))
		}
		b = protowire.AppendTag(b, fieldData, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}
	return b
}

// Decode parses a payload. Unknown fields are skipped.
func Decode(b []byte) (Payload, error) {
	p := Payload{Predictions: inference.PredictionSet{}}
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		switch {
		case num == fieldFrame && typ == protowire.BytesType:
			p.Frame = append([]byte(nil), v...)
		case num == fieldPreds && typ == protowire.BytesType:
			name, arr, err := decodeEntry(v)
			if err != nil {
				return err
			}
			p.Predictions[name] = arr
		}
		return nil
	})
	if err != nil {
		return Payload{}, errors.EncodeFailed("payload", err)
	}
	return p, nil
}

func decodeEntry(b []byte) (string, inference.Array, error) {
	var name string
	var arr inference.Array
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		switch {
		case num == fieldEntryKey && typ == protowire.BytesType:
			name = string(v)
		case num == fieldEntryValue && typ == protowire.BytesType:
			var err error
			arr, err = decodeArray(v)
			return err
		}
		return nil
	})
	if arr.Data == nil {
		arr.Data = []float64{}
	}
	return name, arr, err
}

func decodeArray(b []byte) (inference.Array, error) {
	var a inference.Array
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		switch {
		case num == fieldShape && typ == protowire.BytesType:
			for len(v) > 0 {
				d, n := protowire.ConsumeVarint(v)
				if n < 0 {
					return protowire.ParseError(n)
				}
				a.Shape = append(a.Shape, int64(d))
				v = v[n:]
			}
		case num == fieldShape && typ == protowire.VarintType:
			d, _ := protowire.ConsumeVarint(v)
			a.Shape = append(a.Shape, int64(d))
		case num == fieldData && typ == protowire.BytesType:
			for len(v) > 0 {
				bits, n := protowire.ConsumeFixed64(v)
				if n < 0 {
					return protowire.ParseError(n)
				}
				a.Data = append(a.Data, math.Float64frombits(bits))
				v = v[n:]
			}
		case num == fieldData && typ == protowire.Fixed64Type:
			bits, _ := protowire.ConsumeFixed64(v)
			a.Data = append(a.Data, math.Float64frombits(bits))
		}
		return nil
	})
	if err != nil {
		return a, err
	}
	if _, err := inference.NewArray(a.Shape, a.Data); err != nil && len(a.Shape) > 0 {
		return a, err
	}
	return a, nil
}

// walk calls fn for each field of one message level. For varint and fixed
// fields v holds the raw encoded value.
func walk(b []byte, fn func(protowire.Number, protowire.Type, []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		m := protowire.ConsumeFieldValue(num, typ, b)
		if m < 0 {
			return protowire.ParseError(m)
		}
		v := b[:m]
		if typ == protowire.BytesType {
			var k int
			v, k = protowire.ConsumeBytes(b)
			if k < 0 {
				return protowire.ParseError(k)
			}
		}
		if err := fn(num, typ, v); err != nil {
			return err
		}
		b = b[m:]
	}
	return nil
}
