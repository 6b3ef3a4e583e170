package codec

import (
	"bytes"
	"image"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/kbukum/edgecam/capture"
	"github.com/kbukum/edgecam/errors"
	"github.com/kbukum/edgecam/inference"
)

func sampleResult() inference.Result {
	img := image.NewGray(image.Rect(0, 0, 16, 8))
	for i := range img.Pix {
		img.Pix[i] = uint8(i)
	}
	return inference.Result{
		Frame: capture.Frame{Seq: 7, Image: img},
		Predictions: inference.PredictionSet{
			"motion": inference.Vector(0.25, 12.5, 3.75),
			"boxes":  {Shape: []int64{2, 4}, Data: []float64{0, 0, 8, 8, 4, 2, 16, 8}},
		},
	}
}

func TestEncodeDecode(t *testing.T) {
	blob, err := Encode(sampleResult(), 90)
	if err != nil {
		t.Fatal(err)
	}
	p, err := Decode(blob)
	if err != nil {
		t.Fatal(err)
	}

	img, err := p.Image()
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 8 {
		t.Errorf("unexpected frame bounds %v", img.Bounds())
	}

	boxes := p.Predictions["boxes"]
	if len(boxes.Shape) != 2 || boxes.Shape[0] != 2 || boxes.Shape[1] != 4 {
		t.Errorf("unexpected boxes shape %v", boxes.Shape)
	}
	if len(boxes.Data) != 8 || boxes.Data[6] != 16 {
		t.Errorf("unexpected boxes data %v", boxes.Data)
	}
	if got := p.Predictions["motion"].Data; len(got) != 3 || got[1] != 12.5 {
		t.Errorf("unexpected motion %v", got)
	}
}

func TestMarshal_Deterministic(t *testing.T) {
	p := Payload{Frame: []byte{0xff, 0xd8}, Predictions: sampleResult().Predictions}
	if !bytes.Equal(Marshal(p), Marshal(p)) {
		t.Error("expected identical encodings")
	}
}

func TestMarshal_WireLayout(t *testing.T) {
	blob := Marshal(Payload{Frame: []byte("jpg"), Predictions: inference.PredictionSet{"a": inference.Vector(1)}})

	num, typ, n := protowire.ConsumeTag(blob)
	if num != 1 || typ != protowire.BytesType {
		t.Fatalf("expected frame as field 1 bytes, got %d/%d", num, typ)
	}
	frame, m := protowire.ConsumeBytes(blob[n:])
	if string(frame) != "jpg" {
		t.Errorf("expected frame bytes, got %q", frame)
	}
	num, typ, _ = protowire.ConsumeTag(blob[n+m:])
	if num != 2 || typ != protowire.BytesType {
		t.Errorf("expected preds as field 2 bytes, got %d/%d", num, typ)
	}
}

func TestDecode_EmptyPredictions(t *testing.T) {
	blob := Marshal(Payload{Predictions: inference.PredictionSet{
		"boxes": {Shape: []int64{0, 4}, Data: []float64{}},
	}})
	p, err := Decode(blob)
	if err != nil {
		t.Fatal(err)
	}
	boxes, ok := p.Predictions["boxes"]
	if !ok || boxes.Rows() != 0 || boxes.Data == nil {
		t.Errorf("expected empty 0x4 boxes, got %+v", boxes)
	}
	if _, err := p.Image(); !errors.IsCode(err, errors.ErrCodeEncodeFailed) {
		t.Errorf("expected ENCODE_FAILED for missing frame, got %v", err)
	}
}

func TestDecode_Malformed(t *testing.T) {
	blob, _ := Encode(sampleResult(), 0)
	if _, err := Decode(blob[:len(blob)-3]); !errors.IsCode(err, errors.ErrCodeEncodeFailed) {
		t.Errorf("expected ENCODE_FAILED for truncated payload, got %v", err)
	}
	bad := Marshal(Payload{Predictions: inference.PredictionSet{"x": {Shape: []int64{3}, Data: []float64{1}}}})
	if _, err := Decode(bad); err == nil {
		t.Error("expected shape mismatch error")
	}
}

func TestEncode_NoImage(t *testing.T) {
	if _, err := Encode(inference.Result{}, 80); !errors.IsCode(err, errors.ErrCodeEncodeFailed) {
		t.Errorf("expected ENCODE_FAILED, got %v", err)
	}
}
