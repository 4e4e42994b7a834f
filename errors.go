package serdes

import "fmt"

// CloneError is returned by Encoder.WriteValue when a value cannot be
// represented: an opaque callable, or a composite the host-object
// delegate refused.
type CloneError struct {
	msg string
}

func (e *CloneError) Error() string { return e.msg }

func newCloneError(format string, args ...interface{}) *CloneError {
	return &CloneError{msg: fmt.Sprintf(format, args...)}
}

// newCannotCloneError reports a value that could not be represented, using
// the wire format's own message template.
func newCannotCloneError(v interface{}) *CloneError {
	return newCloneError("%v could not be cloned", v)
}

// newUnknownHostObjectError reports a non-primitive value for which no
// host-object delegate was registered.
func newUnknownHostObjectError(classTag string) *CloneError {
	return newCloneError("Unknown host object type: %s", classTag)
}

// DeserializationError is returned by Decoder.ReadHeader and
// Decoder.ReadValue when the byte stream is malformed: truncated, a
// composite's declared count doesn't match what follows, the header names
// an unsupported version, an unknown tag appears where no legacy fallback
// applies, or a transfer id has no registered handle.
//
// After a DeserializationError, the Decoder's cursor is left at an
// unspecified position; callers must not reuse the Decoder.
type DeserializationError struct {
	msg string
}

func (e *DeserializationError) Error() string { return "serdes: unable to deserialize: " + e.msg }

func newDeserializationError(format string, args ...interface{}) *DeserializationError {
	return &DeserializationError{msg: fmt.Sprintf(format, args...)}
}

// newNoHostObjectDelegateError reports that the stream contains a
// HostObject tag, or an unknown tag under the legacy-tag fallback, but no
// DecoderDelegate was registered to read it.
func newNoHostObjectDelegateError(context string) *DeserializationError {
	return newDeserializationError("no host-object delegate registered: %s", context)
}
