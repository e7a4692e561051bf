package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerificationErrorRendering(t *testing.T) {
	assert.Equal(t, "MessageMismatch", NewFailure(FailMessage).Error())
	assert.Equal(t, "NonSpendableInput(1)", NewIndexedFailure(FailNonSpendable, 1).Error())
	assert.Equal(t, "InvalidSignature(3)", NewIndexedFailure(FailInvalidSig, 3).Error())
	assert.Equal(t, "InvalidAddress(0)", NewIndexedFailure(FailInvalidAddress, 0).Error())

	cause := errors.New("illegal base64 data at input byte 0")
	assert.Equal(t,
		"EncodingError: illegal base64 data at input byte 0",
		WrapFailure(FailEncoding, cause).Error())
	assert.Equal(t,
		"ChainQueryError(2): connection refused",
		WrapIndexedFailure(FailChainQuery, 2, errors.New("connection refused")).Error())
}

func TestVerificationErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := WrapFailure(FailChainQuery, cause)
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, NewFailure(FailMessage).Unwrap())
}

func TestFailureKindOf(t *testing.T) {
	assert.Equal(t, FailNonSpendable, FailureKindOf(NewIndexedFailure(FailNonSpendable, 2)))

	// Classified errors survive wrapping.
	wrapped := fmt.Errorf("verification failed: %w", NewFailure(FailMessage))
	assert.Equal(t, FailMessage, FailureKindOf(wrapped))

	// Unclassified errors report their raw message.
	assert.Equal(t, FailureKind("boom"), FailureKindOf(errors.New("boom")))
}
