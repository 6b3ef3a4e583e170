// Package capture provides the frame sources that feed the first stage of
// an edgecam pipeline.
//
// A FrameSource is the narrow contract to a camera, file or stream. Reader
// adapts one to pipeline.Source and pipeline.Resource so a Stage can own
// it:
//
//	gen := capture.NewGenerator(capture.GeneratorConfig{Width: 320, Height: 240, FPS: 15})
//	reader := capture.NewReader(gen, "synthetic")
//	grab := pipeline.NewStage[capture.Frame, capture.Frame]("capture", reader, frames,
//		pipeline.WithResources(reader))
//
// Generator renders a moving test pattern at a fixed rate. Snapshot polls a
// camera's JPEG snapshot URL over HTTP.
package capture
