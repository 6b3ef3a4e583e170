// Package errors provides the coded error type shared by every edgecam
// package. An AppError carries a machine code, an HTTP status and whether
// the failure is worth retrying; errors.Is matches AppErrors by code.
//
// Buffer and stage preconditions fail synchronously with INVALID_CAPACITY,
// INVALID_TIMEOUT, ALREADY_RUNNING or NOT_RUNNING. Stage loops end on
// READ_FAILED, INFERENCE_FAILED or ENCODE_FAILED and report them through
// events and health instead.
package errors
