// Package script implements Script Execution: pre-request and
// response-handler scripts, and the Custom assertion's validator
// contract, all run in a fresh goja VM per invocation with a hard
// timeout.
package script

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dop251/goja"

	"github.com/blackcoderx/httprun/internal/diag"
	"github.com/blackcoderx/httprun/internal/model"
	"github.com/blackcoderx/httprun/internal/scope"
)

// Timeout is the hard execution ceiling enforced via vm.Interrupt,
// a host-runtime sandbox.
const Timeout = 5 * time.Second

// VariableAccessor is the `request.variables` host object: scripts read
// and write through it into the current Request scope.
type VariableAccessor struct {
	Scope *scope.Scope
}

func (v *VariableAccessor) Get(name string) interface{} {
	val, ok := v.Scope.Resolve(name)
	if !ok {
		return goja.Undefined()
	}
	return val.Stringify()
}

func (v *VariableAccessor) Set(name string, value interface{}) {
	v.Scope.SetString(name, fmt.Sprintf("%v", value))
}

// Runner executes scripts and custom validators against a diagnostic log
// (so console.* calls land there instead of stdout).
type Runner struct {
	Log *diag.Log
}

// NewRunner returns a Runner that logs console.* calls to log.
func NewRunner(log *diag.Log) *Runner {
	return &Runner{Log: log}
}

// RunPreRequest executes a pre-request script, giving it read/write
// access to the current request scope via `request.variables`.
func (r *Runner) RunPreRequest(source string, req *model.Request, s *scope.Scope) error {
	vm, err := r.newVM(req, nil, s)
	if err != nil {
		return err
	}
	return r.run(vm, source)
}

// RunResponseHandler executes a response-handler script, additionally
// exposing the `response` host object.
func (r *Runner) RunResponseHandler(source string, req *model.Request, resp *model.Response, s *scope.Scope) error {
	vm, err := r.newVM(req, resp, s)
	if err != nil {
		return err
	}
	return r.run(vm, source)
}

// Validate implements assert.Validator: it loads scriptPath (a file
// reference named by a `_CustomAssert:` assertion line), runs it with
// `request`/`response` host objects, and treats `result.valid` (default
// true) as the pass/fail signal.
func (r *Runner) Validate(scriptPath string, resp *model.Response, ctx map[string]interface{}) error {
	source, err := os.ReadFile(scriptPath)
	if err != nil {
		return fmt.Errorf("reading custom validator %q: %w", scriptPath, err)
	}

	vm := goja.New()
	vm.SetFieldNameMapper(goja.UncapFieldNameMapper())
	if err := r.wireHostObjects(vm, nil, resp, ctx); err != nil {
		return err
	}
	if req, ok := ctx["request"].(*model.Request); ok && req != nil {
		s, _ := ctx["variables"].(*scope.Scope)
		if s == nil {
			s = scope.New(scope.Request)
		}
		reqObj := requestObject(req, s)
		if err := vm.Set("request", reqObj); err != nil {
			return err
		}
		if err := vm.Set("context", map[string]interface{}{"request": reqObj, "variables": reqObj["variables"]}); err != nil {
			return err
		}
	}

	result := map[string]interface{}{"valid": true, "error": ""}
	if err := vm.Set("result", result); err != nil {
		return err
	}

	if err := r.runWithTimeout(vm, string(source)); err != nil {
		return err
	}

	resultVal := vm.Get("result")
	if resultVal == nil || goja.IsUndefined(resultVal) || goja.IsNull(resultVal) {
		return nil
	}
	exported, ok := resultVal.Export().(map[string]interface{})
	if !ok {
		return nil
	}
	if valid, ok := exported["valid"].(bool); ok && !valid {
		if msg, ok := exported["error"].(string); ok && msg != "" {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("custom validator reported failure")
	}
	return nil
}

func (r *Runner) newVM(req *model.Request, resp *model.Response, s *scope.Scope) (*goja.Runtime, error) {
	vm := goja.New()
	vm.SetFieldNameMapper(goja.UncapFieldNameMapper())
	var ctx map[string]interface{}
	if req != nil {
		ctx = map[string]interface{}{"variables": &VariableAccessor{Scope: s}}
	}
	if err := r.wireHostObjects(vm, req, resp, ctx); err != nil {
		return nil, err
	}
	if req != nil {
		if err := vm.Set("request", requestObject(req, s)); err != nil {
			return nil, err
		}
	}
	return vm, nil
}

func requestObject(req *model.Request, s *scope.Scope) map[string]interface{} {
	headers := map[string]interface{}{}
	req.Headers.Each(func(name, value string) { headers[name] = value })

	var body interface{}
	if req.Body != nil {
		body = req.Body.Raw
	}

	return map[string]interface{}{
		"method":    req.Method,
		"url":       req.URL,
		"headers":   headers,
		"body":      body,
		"variables": &VariableAccessor{Scope: s},
	}
}

func responseObject(resp *model.Response) map[string]interface{} {
	if resp == nil {
		return nil
	}
	headers := map[string]interface{}{}
	resp.Headers.Each(func(name, value string) { headers[name] = value })

	var body interface{}
	if resp.Parsed != nil {
		body = resp.Parsed
	} else {
		body = resp.BodyString()
	}

	return map[string]interface{}{
		"status":     resp.StatusCode,
		"statusText": resp.Status,
		"headers":    headers,
		"body":       body,
	}
}

// wireHostObjects installs console/JSON and, when non-nil, response on
// vm. request is handled by the caller since its shape differs slightly
// between pre-request and validator contexts.
func (r *Runner) wireHostObjects(vm *goja.Runtime, req *model.Request, resp *model.Response, extraCtx map[string]interface{}) error {
	console := map[string]interface{}{
		"log":   func(args ...interface{}) { r.logConsole(diag.LevelInfo, args) },
		"warn":  func(args ...interface{}) { r.logConsole(diag.LevelWarn, args) },
		"error": func(args ...interface{}) { r.logConsole(diag.LevelError, args) },
	}
	if err := vm.Set("console", console); err != nil {
		return err
	}

	jsonUtil := map[string]interface{}{
		"stringify": func(v interface{}) string {
			b, err := json.Marshal(v)
			if err != nil {
				return ""
			}
			return string(b)
		},
		"parse": func(s string) interface{} {
			var v interface{}
			if err := json.Unmarshal([]byte(s), &v); err != nil {
				return nil
			}
			return v
		},
	}
	if err := vm.Set("JSON", jsonUtil); err != nil {
		return err
	}

	if resp != nil {
		if err := vm.Set("response", responseObject(resp)); err != nil {
			return err
		}
	}
	if req != nil && extraCtx != nil {
		if err := vm.Set("context", extraCtx); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) logConsole(level diag.Level, args []interface{}) {
	if r.Log == nil {
		return
	}
	msg := fmt.Sprint(args...)
	r.Log.Record(level, "script", msg, nil)
}

func (r *Runner) run(vm *goja.Runtime, source string) error {
	return r.runWithTimeout(vm, source)
}

// runWithTimeout executes source on vm, aborting via vm.Interrupt if it
// exceeds Timeout.
func (r *Runner) runWithTimeout(vm *goja.Runtime, source string) error {
	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	defer cancel()

	type outcome struct {
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		_, err := vm.RunString(source)
		done <- outcome{err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			if jsErr, ok := o.err.(*goja.Exception); ok {
				return fmt.Errorf("%s", jsErr.String())
			}
			return o.err
		}
		return nil
	case <-ctx.Done():
		vm.Interrupt("script execution timeout")
		return fmt.Errorf("script execution timeout (%s limit)", Timeout)
	}
}
