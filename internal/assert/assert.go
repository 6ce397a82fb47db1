package assert

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/blackcoderx/httprun/internal/model"
)

// Validator invokes a Custom assertion's external validator; it is
// satisfied by internal/script's goja-backed implementation.
type Validator interface {
	Validate(scriptPath string, resp *model.Response, ctx map[string]interface{}) error
}

// Evaluator runs every Test/Assertion in a Request against its Response.
type Evaluator struct {
	Validator Validator
}

// New returns an Evaluator that delegates Custom assertions to v.
func New(v Validator) *Evaluator { return &Evaluator{Validator: v} }

// EvaluateTests runs every Test block and returns one TestResult per
// block, in order.
func (e *Evaluator) EvaluateTests(tests []model.Test, resp *model.Response, ctx map[string]interface{}) []model.TestResult {
	out := make([]model.TestResult, 0, len(tests))
	for _, t := range tests {
		tr := model.TestResult{Name: t.Name, Passed: true}
		for _, a := range t.Assertions {
			ar := e.evaluate(a, resp, ctx)
			tr.Results = append(tr.Results, ar)
			if !ar.Passed {
				tr.Passed = false
			}
		}
		out = append(out, tr)
	}
	return out
}

func (e *Evaluator) evaluate(a model.Assertion, resp *model.Response, ctx map[string]interface{}) model.AssertionResult {
	switch a.Kind {
	case model.AssertStatus:
		return e.evalStatus(a, resp)
	case model.AssertHeader:
		return e.evalHeader(a, resp)
	case model.AssertBody:
		return e.evalBody(a, resp)
	case model.AssertJSONSchema:
		return e.evalSchema(a, resp)
	case model.AssertResponseTime:
		return e.evalResponseTime(a, resp)
	case model.AssertCustom:
		return e.evalCustom(a, resp, ctx)
	default:
		return model.AssertionResult{Kind: a.Kind, Passed: false, Message: "unknown assertion kind"}
	}
}

func (e *Evaluator) evalStatus(a model.Assertion, resp *model.Response) model.AssertionResult {
	res := model.AssertionResult{Kind: model.AssertStatus, Expected: a.Value, Actual: strconv.Itoa(resp.StatusCode)}
	if statusMatches(a.Value, resp.StatusCode) {
		res.Passed = true
		return res
	}
	res.Passed = false
	res.Message = fmt.Sprintf("expected status %s, got %d", a.Value, resp.StatusCode)
	return res
}

// statusMatches accepts an exact code ("200"), a wildcard range
// ("2xx"/"3xx"/"4xx"/"5xx"), or a comma-separated list of either.
func statusMatches(expected string, status int) bool {
	for _, part := range strings.Split(expected, ",") {
		part = strings.TrimSpace(part)
		if len(part) == 3 && strings.HasSuffix(strings.ToLower(part), "xx") {
			if part[0] == byte('0'+status/100) {
				return true
			}
			continue
		}
		if code, err := strconv.Atoi(part); err == nil && code == status {
			return true
		}
	}
	return false
}

func (e *Evaluator) evalHeader(a model.Assertion, resp *model.Response) model.AssertionResult {
	res := model.AssertionResult{Kind: model.AssertHeader, Key: a.Key, Expected: a.Value}
	actual, ok := resp.Headers.Get(a.Key)
	res.Actual = actual
	if !ok {
		res.Passed = false
		res.Message = fmt.Sprintf("header %q not present", a.Key)
		return res
	}

	if strings.HasPrefix(a.Value, "/") && strings.HasSuffix(a.Value, "/") && len(a.Value) >= 2 {
		pattern := a.Value[1 : len(a.Value)-1]
		re, err := regexp.Compile(pattern)
		if err != nil {
			res.Passed = false
			res.Message = fmt.Sprintf("invalid header regex %q: %v", pattern, err)
			return res
		}
		res.Passed = re.MatchString(actual)
	} else {
		res.Passed = actual == a.Value
	}

	if !res.Passed {
		res.Message = fmt.Sprintf("header %q: expected %q, got %q", a.Key, a.Value, actual)
		res.Diff = UnifiedDiff(a.Value, actual)
	}
	return res
}

func (e *Evaluator) evalBody(a model.Assertion, resp *model.Response) model.AssertionResult {
	res := model.AssertionResult{Kind: model.AssertBody, Key: a.Key, Expected: a.Value}

	if resp.Parsed == nil {
		res.Passed = false
		res.Message = "response body is not valid JSON"
		return res
	}

	actual, err := GetJSONPath(resp.Parsed, a.Key)
	if err != nil {
		res.Passed = false
		res.Message = err.Error()
		return res
	}

	expected := parseExpectedLiteral(a.Value)
	actualStr := stringifyValue(actual)
	res.Actual = actualStr

	if deepEqual(actual, expected) {
		res.Passed = true
		return res
	}

	res.Passed = false
	res.Message = fmt.Sprintf("JSONPath %q: expected %v, got %v", a.Key, expected, actual)
	res.Diff = UnifiedDiff(stringifyValue(expected), actualStr)
	return res
}

// parseExpectedLiteral parses an assertion's expected value as JSON
// first (123, true, "x"), falling back to the raw string.
func parseExpectedLiteral(raw string) interface{} {
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

func deepEqual(a, b interface{}) bool {
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(aj) == string(bj)
}

func stringifyValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	}
}

func (e *Evaluator) evalSchema(a model.Assertion, resp *model.Response) model.AssertionResult {
	res := model.AssertionResult{Kind: model.AssertJSONSchema, Expected: a.Value}
	ok, msg, err := ValidateJSONSchema(a.Value, resp.Body)
	if err != nil {
		res.Passed = false
		res.Message = err.Error()
		return res
	}
	res.Passed = ok
	if !ok {
		res.Message = msg
	}
	return res
}

func (e *Evaluator) evalResponseTime(a model.Assertion, resp *model.Response) model.AssertionResult {
	res := model.AssertionResult{Kind: model.AssertResponseTime, Expected: a.Value}
	maxMs, err := strconv.ParseInt(strings.TrimSpace(a.Value), 10, 64)
	if err != nil {
		res.Passed = false
		res.Message = fmt.Sprintf("invalid response-time value %q: %v", a.Value, err)
		return res
	}
	actualMs := resp.Duration / time.Millisecond
	res.Actual = strconv.FormatInt(int64(actualMs), 10)
	if int64(actualMs) <= maxMs {
		res.Passed = true
		return res
	}
	res.Passed = false
	res.Message = fmt.Sprintf("response time %dms exceeded maximum %dms", actualMs, maxMs)
	return res
}

func (e *Evaluator) evalCustom(a model.Assertion, resp *model.Response, ctx map[string]interface{}) model.AssertionResult {
	res := model.AssertionResult{Kind: model.AssertCustom, Key: a.Value}
	if e.Validator == nil {
		res.Passed = false
		res.Message = "no custom validator configured"
		return res
	}
	if err := e.Validator.Validate(a.Value, resp, ctx); err != nil {
		res.Passed = false
		res.Message = err.Error()
		return res
	}
	res.Passed = true
	return res
}
