package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestResultPassedAllTestsPass(t *testing.T) {
	r := &RequestResult{
		TestResults: []TestResult{{Passed: true}, {Passed: true}},
	}
	assert.True(t, r.Passed())
}

func TestRequestResultPassedOneFails(t *testing.T) {
	r := &RequestResult{
		TestResults: []TestResult{{Passed: true}, {Passed: false}},
	}
	assert.False(t, r.Passed())
}

func TestRequestResultPassedSkippedAlwaysPasses(t *testing.T) {
	r := &RequestResult{Skipped: true, TestResults: []TestResult{{Passed: false}}}
	assert.True(t, r.Passed())
}

func TestRequestResultPassedErrorWithoutExpectError(t *testing.T) {
	r := &RequestResult{Request: &Request{}, Err: errors.New("boom")}
	assert.False(t, r.Passed())
}

func TestRequestResultPassedErrorWithExpectError(t *testing.T) {
	r := &RequestResult{Request: &Request{ExpectError: true}, Err: errors.New("boom")}
	assert.True(t, r.Passed())
}

func TestResponseBodyStringNilSafe(t *testing.T) {
	var r *Response
	assert.Equal(t, "", r.BodyString())
}
