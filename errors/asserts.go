package errors

import testifyassert "github.com/stretchr/testify/assert"

var (
	AssertIsErr = func(assert *testifyassert.Assertions, err error, exp *Error) bool {
		return assert.Error(err) && assert.Equal(exp.Code, GetErrorCode(err), "unexpected error: %v", err)
	}
	AssertIsInvalidRequestErr = func(assert *testifyassert.Assertions, err error) bool {
		return AssertIsErr(assert, err, ErrInvalidRequest)
	}
	AssertIsServiceInvalidatedErr = func(assert *testifyassert.Assertions, err error) bool {
		return AssertIsErr(assert, err, ErrServiceInvalidated)
	}
)
