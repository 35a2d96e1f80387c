package errors_test

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/partsync/pkg/errors"
)

// Example demonstrates basic error creation with details.
func Example() {
	err := errors.New(errors.ErrorTypeContract, "state update for unknown partition").
		WithDetail("partition_key", `{"account_id":"42"}`).
		WithDetail("stream", "campaigns")

	fmt.Println(err.Error())

	// Output:
	// contract: state update for unknown partition
}

// ExampleWrap shows how to wrap existing errors with context.
func ExampleWrap() {
	err := errors.Wrap(io.ErrUnexpectedEOF, errors.ErrorTypeCheckpoint, "failed to read checkpoint").
		WithDetail("stream", "campaigns")

	if errors.IsType(err, errors.ErrorTypeCheckpoint) {
		fmt.Println("checkpoint error")
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		fmt.Println("caused by unexpected EOF")
	}
	fmt.Println(err.Error())

	// Output:
	// checkpoint error
	// caused by unexpected EOF
	// checkpoint: failed to read checkpoint: unexpected EOF
}

// ExampleIsRetryable demonstrates which categories callers may retry.
func ExampleIsRetryable() {
	connErr := errors.New(errors.ErrorTypeConnection, "connection refused")
	contractErr := errors.New(errors.ErrorTypeContract, "overlapping slice keys")

	fmt.Println(errors.IsRetryable(connErr))
	fmt.Println(errors.IsRetryable(contractErr))
	fmt.Println(errors.IsRetryable(io.EOF))

	// Output:
	// true
	// false
	// false
}

// ExampleNewf demonstrates formatted messages.
func ExampleNewf() {
	err := errors.Newf(errors.ErrorTypeValidation, "stream name %q is invalid", "a/b")
	fmt.Println(err)

	// Output:
	// validation: stream name "a/b" is invalid
}
