// Package inference runs models over captured frames.
//
// A Model maps one frame to a PredictionSet of named n-dimensional arrays.
// Detector turns a Model into a pipeline transform that runs the model only
// on every step-th frame and reuses the last predictions in between, so a
// slow model does not stall the frame rate. MotionModel is a frame
// differencing detector that needs no external runtime.
package inference
