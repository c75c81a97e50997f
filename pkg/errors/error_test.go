package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestNewError() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.NotNil(err)
	suite.Equal(ErrCodeInvalidParameter, err.Code)
	suite.Equal("invalid parameter", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestNewfError() {
	err := Newf(ErrCodeMalformedBar, "bad bar at index %d", 42)
	suite.NotNil(err)
	suite.Equal(ErrCodeMalformedBar, err.Code)
	suite.Equal("bad bar at index 42", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestWrapError() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeDataNotFound, "data not found", cause)
	suite.NotNil(err)
	suite.Equal(ErrCodeDataNotFound, err.Code)
	suite.Equal("data not found", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestWrapfError() {
	cause := errors.New("underlying error")
	err := Wrapf(ErrCodeStoreWriteFailed, cause, "failed to write trades for run %s", "abc")
	suite.NotNil(err)
	suite.Equal(ErrCodeStoreWriteFailed, err.Code)
	suite.Equal("failed to write trades for run abc", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestErrorString() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.Equal("[200] invalid parameter", err.Error())
}

func (suite *ErrorTestSuite) TestErrorStringWithCause() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeDataNotFound, "data not found", cause)
	suite.Equal("[104] data not found: underlying error", err.Error())
}

func (suite *ErrorTestSuite) TestUnwrap() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeDataNotFound, "data not found", cause)
	suite.Equal(cause, err.Unwrap())
}

func (suite *ErrorTestSuite) TestGetCode() {
	err := New(ErrCodeNonMonotonicTimestamp, "timestamps went backwards")
	suite.Equal(ErrCodeNonMonotonicTimestamp, GetCode(err))
}

func (suite *ErrorTestSuite) TestGetCodeFromWrapped() {
	cause := New(ErrCodeMalformedBar, "bad bar")
	err := fmt.Errorf("outer: %w", cause)
	suite.Equal(ErrCodeMalformedBar, GetCode(err))
}

func (suite *ErrorTestSuite) TestGetCodeNonError() {
	err := errors.New("plain error")
	suite.Equal(ErrCodeUnknown, GetCode(err))
}

func (suite *ErrorTestSuite) TestHasCode() {
	err := New(ErrCodeSignalBeforeEvent, "signal precedes event confirmation")
	suite.True(HasCode(err, ErrCodeSignalBeforeEvent))
	suite.False(HasCode(err, ErrCodeFillBeforeSignal))
}

func (suite *ErrorTestSuite) TestIsCausalityViolation() {
	suite.True(IsCausalityViolation(New(ErrCodeSignalBeforeEvent, "x")))
	suite.True(IsCausalityViolation(New(ErrCodeFillBeforeSignal, "x")))
	suite.True(IsCausalityViolation(New(ErrCodeEventFromFuture, "x")))
	suite.False(IsCausalityViolation(New(ErrCodeMalformedBar, "x")))
	suite.False(IsCausalityViolation(errors.New("plain")))
}

func (suite *ErrorTestSuite) TestInsufficientDataError() {
	err := NewInsufficientDataErrorf(12, 5, "2023-10-25", "session has %d bars, need %d", 5, 12)
	suite.Equal(12, err.Required)
	suite.Equal(5, err.Actual)
	suite.Equal("2023-10-25", err.Scope)
	suite.Equal("session has 5 bars, need 12", err.Error())
	suite.True(IsInsufficientDataError(err))
}

func (suite *ErrorTestSuite) TestInsufficientDataErrorWrapped() {
	inner := NewInsufficientDataError(2, 0, "", "too few bars")
	err := fmt.Errorf("window skipped: %w", inner)
	suite.True(IsInsufficientDataError(err))
	suite.False(IsInsufficientDataError(errors.New("plain")))
}
