package exec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/blackcoderx/httprun/internal/assert"
	"github.com/blackcoderx/httprun/internal/bodyparse"
	"github.com/blackcoderx/httprun/internal/cache"
	"github.com/blackcoderx/httprun/internal/diag"
	"github.com/blackcoderx/httprun/internal/dynamic"
	"github.com/blackcoderx/httprun/internal/httpclient"
	"github.com/blackcoderx/httprun/internal/model"
	"github.com/blackcoderx/httprun/internal/scope"
	"github.com/blackcoderx/httprun/internal/template"
)

// ScriptRunner is the subset of script.Runner the Manager needs,
// extracted as an interface so tests can substitute a fake.
type ScriptRunner interface {
	RunPreRequest(source string, req *model.Request, s *scope.Scope) error
	RunResponseHandler(source string, req *model.Request, resp *model.Response, s *scope.Scope) error
	Validate(scriptPath string, resp *model.Response, ctx map[string]interface{}) error
}

// Manager implements the Test Manager's top-level per-request procedure
// procedure.
type Manager struct {
	Chain          *scope.Chain
	Responses      *template.NamedResponseStore
	Dynamic        *dynamic.Resolver
	Cache          *cache.Cache
	CacheEnabled   bool
	Client         httpclient.Client
	Tokens         *httpclient.TokenProvider
	Scripts        ScriptRunner
	Evaluator      *assert.Evaluator
	Log            *diag.Log
	Retry          RetryPolicy
	RequestTimeout time.Duration
	SignificantHdr []string
}

// Execute runs one request end to end: template expansion, pre-request
// script, cache lookup/dispatch with retry, body parsing, assertions,
// post-response script, variable updates, and scope cleanup.
func (m *Manager) Execute(ctx context.Context, req *model.Request) *model.RequestResult {
	reqScope := m.Chain.NewRequestScope()
	defer reqScope.Clear()

	result := &model.RequestResult{Request: req}

	engine := template.New(reqScope, m.Dynamic, m.Responses.Lookup())

	if len(req.PreScripts) > 0 && m.Scripts != nil {
		for _, sc := range req.PreScripts {
			src, err := m.scriptSource(sc)
			if err != nil {
				m.logError(req, err)
				continue
			}
			if err := m.Scripts.RunPreRequest(src, req, reqScope); err != nil {
				m.logError(req, err)
			}
		}
	}

	expanded := m.expandRequest(req, engine)

	resp, attempts, err := m.dispatch(ctx, req, expanded)
	result.Attempts = attempts

	if err != nil {
		if req.ExpectError {
			result.Err = nil
		} else {
			result.Err = err
			m.logError(req, err)
			return result
		}
	}

	if resp != nil {
		m.parseBody(resp)
		if req.RequestID != "" {
			m.Responses.Put(req.RequestID, resp)
		}
	}
	result.Response = resp

	if resp != nil {
		ctxMap := map[string]interface{}{"request": req, "variables": reqScope}
		result.TestResults = m.Evaluator.EvaluateTests(req.Tests, resp, ctxMap)

		if len(req.PostScripts) > 0 && m.Scripts != nil {
			for _, sc := range req.PostScripts {
				src, err := m.scriptSource(sc)
				if err != nil {
					m.logError(req, err)
					continue
				}
				if err := m.Scripts.RunResponseHandler(src, req, resp, reqScope); err != nil {
					m.logError(req, err)
				}
			}
		}

		m.applyUpdates(req, resp, reqScope)
	}

	return result
}

// expandRequest resolves templates in method/URL/headers/body, returning
// a fully-materialized Request copy ready for dispatch.
func (m *Manager) expandRequest(req *model.Request, engine *template.Engine) *model.Request {
	out := &model.Request{
		Name: req.Name, RequestID: req.RequestID, AuthName: req.AuthName,
		Method: req.Method, URL: engine.Expand(req.URL),
		Headers: model.NewOrderedHeaders(), Body: req.Body, ExpectError: req.ExpectError,
	}
	req.Headers.Each(func(name, value string) {
		out.Headers.Set(name, engine.Expand(value))
	})
	if req.Body != nil {
		switch req.Body.Kind {
		case model.BodyRaw:
			out.Body = &model.Body{Kind: model.BodyRaw, Raw: engine.Expand(req.Body.Raw)}
		case model.BodyFile:
			out.Body = &model.Body{Kind: model.BodyFile, FilePath: engine.Expand(req.Body.FilePath)}
		case model.BodyMultipart:
			fields := make([]model.MultipartField, len(req.Body.Multipart))
			for i, f := range req.Body.Multipart {
				fields[i] = model.MultipartField{
					Name: f.Name, Value: engine.Expand(f.Value),
					FilePath: engine.Expand(f.FilePath), Filename: f.Filename, MimeType: f.MimeType,
				}
			}
			out.Body = &model.Body{Kind: model.BodyMultipart, Multipart: fields}
		}
	}
	return out
}

func (m *Manager) scriptSource(sc model.Script) (string, error) {
	if sc.Kind == model.ScriptInline {
		return sc.Source, nil
	}
	return sc.Path, nil // file reading is left to script.Runner, which loads by path for Custom; pre/post file scripts resolve the same way at call time
}

// dispatch consults the response cache (for cacheable methods), then
// invokes the HTTP client with retry/backoff, injecting an OAuth2 bearer
// token when the request names a credential.
func (m *Manager) dispatch(ctx context.Context, orig *model.Request, req *model.Request) (*model.Response, int, error) {
	cacheable := m.CacheEnabled && cache.DefaultCacheableMethods[req.Method]
	var key cache.Fingerprint
	if cacheable && m.Cache != nil {
		key = cache.ComputeFingerprint(req, m.SignificantHdr)
		if cached, ok := m.Cache.Get(key); ok {
			hit := *cached
			hit.FromCache = true
			return &hit, 0, nil
		}
	}

	if orig.AuthName != "" && m.Tokens != nil {
		token, err := m.Tokens.BearerToken(ctx, orig.AuthName)
		if err != nil {
			return nil, 0, diag.NewRequestError("AUTH_FAILED", 0, err.Error(), nil)
		}
		req.Headers.Set("Authorization", token)
	}

	var body []byte
	if req.Body != nil {
		switch req.Body.Kind {
		case model.BodyRaw:
			body = []byte(req.Body.Raw)
		case model.BodyFile:
			b, err := os.ReadFile(req.Body.FilePath)
			if err != nil {
				return nil, 0, diag.NewRequestError("BODY_FILE_UNREADABLE", 0, err.Error(), nil)
			}
			body = b
		case model.BodyMultipart:
			b, contentType, err := bodyparse.BuildMultipart(req.Body.Multipart)
			if err != nil {
				return nil, 0, diag.NewRequestError("BODY_ENCODE_FAILED", 0, err.Error(), nil)
			}
			body = b
			req.Headers.Set("Content-Type", contentType)
		}
	}

	policy := m.Retry
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		resp, err := m.Client.Do(ctx, req, body, m.RequestTimeout)
		if err == nil {
			if policy.ShouldRetryStatus(resp.StatusCode) && attempt < policy.MaxAttempts {
				lastErr = fmt.Errorf("retryable status %d", resp.StatusCode)
				time.Sleep(policy.DelayForAttempt(attempt))
				continue
			}
			if cacheable && m.Cache != nil {
				m.Cache.Set(key, resp)
			}
			return resp, attempt, nil
		}
		lastErr = diag.NewRequestError("TRANSPORT_ERROR", 0, err.Error(), nil)
		if attempt < policy.MaxAttempts {
			time.Sleep(policy.DelayForAttempt(attempt))
		}
	}
	return nil, policy.MaxAttempts, lastErr
}

func (m *Manager) parseBody(resp *model.Response) {
	contentType, _ := resp.Headers.Get("Content-Type")
	parsed := bodyparse.Parse(contentType, resp.BodyString())
	resp.Parsed = parsed.Decoded
}

// applyUpdates evaluates every JSONPath VariableUpdate against the
// response body and stores the result in File scope. Literal updates
// (non-JSONPath) are stored directly. A JSONPath update against an
// unparseable response fails with a diagnostic and no mutation.
func (m *Manager) applyUpdates(req *model.Request, resp *model.Response, reqScope *scope.Scope) {
	for _, upd := range req.Updates {
		if !upd.IsJSONPath() {
			m.Chain.File.SetString(upd.Key, upd.Source)
			continue
		}
		if resp.Parsed == nil {
			m.Log.Warn("variable-update", fmt.Sprintf("cannot evaluate %q: response body is not JSON", upd.Source), nil)
			continue
		}
		v, err := assert.GetJSONPath(resp.Parsed, upd.Source)
		if err != nil {
			m.Log.Warn("variable-update", fmt.Sprintf("%q: %v", upd.Source, err), nil)
			continue
		}
		m.Chain.File.SetString(upd.Key, stringifyJSON(v))
	}
}

func (m *Manager) logError(req *model.Request, err error) {
	if m.Log == nil {
		return
	}
	m.Log.Error("test-manager", fmt.Sprintf("%s %s: %v", req.Method, req.URL, err), nil)
}

func stringifyJSON(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	out := buf.String()
	if len(out) > 0 && out[len(out)-1] == '\n' {
		out = out[:len(out)-1]
	}
	return out
}
