package models

import (
	"errors"
	"fmt"
)

// FailureKind classifies one verification failure.
type FailureKind string

const (
	FailEncoding       FailureKind = "EncodingError"
	FailMalformedProof FailureKind = "MalformedProof"
	FailNoAddress      FailureKind = "NoAddressProvided"
	FailInvalidAddress FailureKind = "InvalidAddress"
	FailMixedNetworks  FailureKind = "MixedNetworkAddresses"
	FailChainQuery     FailureKind = "ChainQueryError"
	FailMessage        FailureKind = "MessageMismatch"
	FailNonSpendable   FailureKind = "NonSpendableInput"
	FailInvalidSig     FailureKind = "InvalidSignature"
)

// VerificationError is a classified verification failure. Indexed kinds
// carry the offending input or address position exactly as encountered.
type VerificationError struct {
	Kind    FailureKind
	Index   int
	Indexed bool
	Err     error // underlying cause, may be nil
}

// NewFailure creates a failure of the given kind.
func NewFailure(kind FailureKind) *VerificationError {
	return &VerificationError{Kind: kind}
}

// NewIndexedFailure creates a failure carrying an offending position.
func NewIndexedFailure(kind FailureKind, index int) *VerificationError {
	return &VerificationError{Kind: kind, Index: index, Indexed: true}
}

// WrapFailure creates a failure of the given kind wrapping a cause.
func WrapFailure(kind FailureKind, err error) *VerificationError {
	return &VerificationError{Kind: kind, Err: err}
}

// WrapIndexedFailure creates an indexed failure wrapping a cause.
func WrapIndexedFailure(kind FailureKind, index int, err error) *VerificationError {
	return &VerificationError{Kind: kind, Index: index, Indexed: true, Err: err}
}

// Error renders the failure in the wire form callers see, e.g.
// "NonSpendableInput(1)" or "EncodingError: illegal base64 data...".
func (e *VerificationError) Error() string {
	s := string(e.Kind)
	if e.Indexed {
		s = fmt.Sprintf("%s(%d)", s, e.Index)
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap returns the underlying cause, if any.
func (e *VerificationError) Unwrap() error {
	return e.Err
}

// FailureKindOf extracts the failure kind from an error returned by the
// verification pipeline. The pipeline only produces classified errors;
// anything else reports its raw message.
func FailureKindOf(err error) FailureKind {
	var ve *VerificationError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return FailureKind(err.Error())
}
