package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/blackcoderx/httprun/internal/assert"
	"github.com/blackcoderx/httprun/internal/cache"
	"github.com/blackcoderx/httprun/internal/config"
	"github.com/blackcoderx/httprun/internal/diag"
	"github.com/blackcoderx/httprun/internal/dynamic"
	"github.com/blackcoderx/httprun/internal/exec"
	"github.com/blackcoderx/httprun/internal/httpclient"
	"github.com/blackcoderx/httprun/internal/httpfile"
	"github.com/blackcoderx/httprun/internal/importer/openapi"
	"github.com/blackcoderx/httprun/internal/importer/postman"
	"github.com/blackcoderx/httprun/internal/model"
	"github.com/blackcoderx/httprun/internal/report"
	"github.com/blackcoderx/httprun/internal/scope"
	"github.com/blackcoderx/httprun/internal/script"
	"github.com/blackcoderx/httprun/internal/template"
)

// Exit codes: 0 all tests passed, 1 one or more tests/assertions
// failed, 2 parse/config error, 3 a request's transport failed without
// ExpectError.
const (
	exitOK           = 0
	exitTestFailure  = 1
	exitConfigError  = 2
	exitRequestError = 3
)

var (
	cfgFile        string
	envName        string
	verbose        bool
	parallel       bool
	maxConcurrency int
	timeoutMS      int
	noCache        bool
	bail           bool
	vars           []string
	importPostman  string
	importOpenAPI  string
	dryRun         bool
	reportFile     string

	rootCmd = &cobra.Command{
		Use:   "httprun <file.http>",
		Short: "httprun executes .http request suites and reports pass/fail",
		Args:  cobra.MaximumNArgs(1),
		RunE:  run,
	}
)

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "path to http-test.config.json (default: ./http-test.config.json)")
	rootCmd.Flags().StringVarP(&envName, "env", "e", "dev", "environment name to load from http-client.env.json")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "stream diagnostic log entries to stderr as they're recorded")
	rootCmd.Flags().BoolVar(&parallel, "parallel", false, "dispatch requests concurrently, honoring inferred dependencies")
	rootCmd.Flags().IntVar(&maxConcurrency, "max-concurrency", 0, "override performance.maxConcurrency")
	rootCmd.Flags().IntVar(&timeoutMS, "timeout", 0, "override timeouts.request (milliseconds)")
	rootCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the response cache regardless of config")
	rootCmd.Flags().BoolVar(&bail, "bail", false, "stop dispatching new requests after the first failure")
	rootCmd.Flags().StringArrayVar(&vars, "var", nil, "set a Runtime-scope variable as name=value (repeatable)")
	rootCmd.Flags().StringVar(&importPostman, "import-postman", "", "translate a Postman collection into a .http file and run it")
	rootCmd.Flags().StringVar(&importOpenAPI, "import-openapi", "", "translate an OpenAPI 3 document into a .http file and run it")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "with --import-*, write the translated .http file without executing it")
	rootCmd.Flags().StringVar(&reportFile, "report-file", "", "also save the run report to this path (.yaml/.yml or .json by extension)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitConfigError)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: failed to load .env: %v\n", err)
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitConfigError)
	}

	httpFilePath, err := resolveInputFile(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitConfigError)
	}

	requests, err := loadRequests(httpFilePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitConfigError)
	}

	if dryRun {
		return nil
	}

	results, cancelled := executeAll(httpFilePath, requests, cfg)

	rep := report.Build(results, startedAt, time.Now(), cancelled)
	rep.WriteText(os.Stdout)

	if reportFile != "" {
		if err := writeReportFile(rep, reportFile); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to write report file: %v\n", err)
		}
	}

	for _, r := range results {
		if r.Err != nil {
			os.Exit(exitRequestError)
		}
	}
	if !allPassed(results) {
		os.Exit(exitTestFailure)
	}
	return nil
}

var startedAt = time.Now()

// resolveInputFile handles the three ways a request suite reaches the
// runner: a plain .http argument, or one of the two importer flags, which
// translate into a generated .http file alongside the source document.
func resolveInputFile(args []string) (string, error) {
	switch {
	case importPostman != "":
		return translateImport(importPostman, func(data []byte) ([]*model.Request, error) {
			return postman.Import(strings.NewReader(string(data)))
		})
	case importOpenAPI != "":
		return translateImport(importOpenAPI, func(data []byte) ([]*model.Request, error) {
			return openapi.Import(data, "")
		})
	case len(args) == 1:
		return args[0], nil
	default:
		return "", fmt.Errorf("usage: httprun <file.http> (or --import-postman/--import-openapi)")
	}
}

func translateImport(sourcePath string, importFn func([]byte) ([]*model.Request, error)) (string, error) {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return "", fmt.Errorf("reading %q: %w", sourcePath, err)
	}
	reqs, err := importFn(data)
	if err != nil {
		return "", err
	}

	outPath := strings.TrimSuffix(sourcePath, filepath.Ext(sourcePath)) + ".generated.http"
	if err := writeHTTPFile(outPath, reqs); err != nil {
		return "", err
	}
	return outPath, nil
}

// writeHTTPFile renders requests back to the .http textual dialect,
// one `###`-delimited section per request.
func writeHTTPFile(path string, reqs []*model.Request) error {
	var b strings.Builder
	for _, r := range reqs {
		fmt.Fprintf(&b, "### %s\n", r.Name)
		fmt.Fprintf(&b, "%s %s\n", r.Method, r.URL)
		r.Headers.Each(func(name, value string) {
			fmt.Fprintf(&b, "%s: %s\n", name, value)
		})
		if r.Body != nil && r.Body.Kind == model.BodyRaw && r.Body.Raw != "" {
			b.WriteString("\n")
			b.WriteString(r.Body.Raw)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// writeReportFile saves a run report to path, choosing YAML or JSON by
// its extension (YAML for ".yaml"/".yml", JSON otherwise).
func writeReportFile(rep *report.Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return rep.WriteYAML(f)
	default:
		return rep.WriteJSON(f)
	}
}

func loadRequests(path string) ([]*model.Request, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %q: %w", path, err)
	}
	defer f.Close()

	result, err := httpfile.Parse(path, bufio.NewScanner(f))
	if err != nil {
		return nil, err
	}
	for _, w := range result.Warnings {
		fmt.Fprintln(os.Stderr, w.Error())
	}
	allRequests = result.FileVariables
	return result.Requests, nil
}

var allRequests []model.VariableUpdate

func allPassed(results []*model.RequestResult) bool {
	for _, r := range results {
		if !r.Passed() {
			return false
		}
	}
	return true
}

// executeAll assembles the full dependency chain (Chain, Dynamic,
// Template, Cache, Client, Scripts, Evaluator, Log) and runs every
// request through the Parallel Executor.
func executeAll(httpFilePath string, requests []*model.Request, cfg *config.Config) ([]*model.RequestResult, bool) {
	chain := scope.NewChain()

	for _, v := range allRequests {
		chain.File.SetString(v.Key, v.Source)
	}
	if envName != "" {
		if envVars, err := httpfile.LoadEnvironment(httpFilePath, envName); err == nil {
			for k, v := range envVars {
				chain.Environment.SetString(k, v)
			}
		} else {
			fmt.Fprintf(os.Stderr, "warning: loading environment %q: %v\n", envName, err)
		}
	}
	for _, kv := range vars {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			chain.Runtime.SetString(parts[0], parts[1])
		}
	}

	maxCap := cfg.Logging.MaxDiagnosticEntries
	logVerbose := verbose || cfg.Logging.Verbose
	var out *os.File
	if logVerbose {
		out = os.Stderr
	}
	log := diag.NewLog(maxCap, logVerbose, out)

	responses := template.NewNamedResponseStore()
	dynResolver := dynamic.NewResolver(filepath.Dir(httpFilePath))

	cacheEnabled := cfg.Performance.Cache.Enabled && !noCache
	var respCache *cache.Cache
	if cacheEnabled {
		respCache = cache.New(time.Duration(cfg.Performance.Cache.TTLSeconds)*time.Second, cfg.Performance.Cache.MaxSize)
	}

	creds := make(map[string]httpclient.Credential, len(cfg.Credentials))
	for name, c := range cfg.Credentials {
		creds[name] = httpclient.Credential{TokenURL: c.TokenURL, ClientID: c.ClientID, ClientSecret: c.ClientSecret, Scopes: c.Scopes}
	}

	scriptRunner := script.NewRunner(log)

	mgr := &exec.Manager{
		Chain:        chain,
		Responses:    responses,
		Dynamic:      dynResolver,
		Cache:        respCache,
		CacheEnabled: cacheEnabled,
		Client:       httpclient.New(),
		Tokens:       httpclient.NewTokenProvider(creds),
		Scripts:      scriptRunner,
		Evaluator:    assert.New(scriptRunner),
		Log:          log,
		Retry: exec.RetryPolicy{
			MaxAttempts:       cfg.Retries.MaxAttempts,
			InitialDelay:      time.Duration(cfg.Retries.InitialDelayMS) * time.Millisecond,
			BackoffMultiplier: cfg.Retries.BackoffMultiplier,
		},
		RequestTimeout: resolveTimeout(cfg),
	}

	runParallel := parallel || cfg.Performance.Parallel
	concurrency := cfg.Performance.MaxConcurrency
	if maxConcurrency > 0 {
		concurrency = maxConcurrency
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		if _, ok := <-sigCh; ok {
			cancel()
		}
	}()
	defer cancel()

	executor := exec.New(exec.Options{
		MaxConcurrency: concurrency,
		Parallel:       runParallel,
		Bail:           bail,
		RPS:            cfg.Performance.RPS,
		DependsOn:      inferDependencies(requests),
		Progress: func(completed, total int) {
			if verbose {
				fmt.Fprintf(os.Stderr, "progress: %d/%d\n", completed, total)
			}
		},
	})

	results := executor.Run(ctx, len(requests), func(taskCtx context.Context, i int) *model.RequestResult {
		return mgr.Execute(taskCtx, requests[i])
	})

	return results, ctx.Err() != nil
}

func resolveTimeout(cfg *config.Config) time.Duration {
	if timeoutMS > 0 {
		return time.Duration(timeoutMS) * time.Millisecond
	}
	return time.Duration(cfg.Timeouts.RequestMS) * time.Millisecond
}

// inferDependencies scans each request's URL/headers/body for
// `{{id.response...}}` references naming an earlier request, and for bare
// `{{name}}` references to a variable an earlier request's `@name = ...`
// VariableUpdate populates, building the implicit sequential chain for
// dependency-aware scheduling.
func inferDependencies(requests []*model.Request) map[int][]int {
	idIndex := make(map[string]int, len(requests))
	setBy := make(map[string][]int, len(requests))
	for i, r := range requests {
		if r.RequestID != "" {
			idIndex[r.RequestID] = i
		}
		for _, upd := range r.Updates {
			setBy[upd.Key] = append(setBy[upd.Key], i)
		}
	}

	deps := make(map[int][]int)
	for i, r := range requests {
		seen := make(map[int]bool)
		scan := func(text string) {
			for _, token := range templateTokens(text) {
				for id, idx := range idIndex {
					if idx < i && strings.HasPrefix(token, id+".response") {
						seen[idx] = true
					}
				}
				for _, idx := range setBy[token] {
					if idx < i {
						seen[idx] = true
					}
				}
			}
		}
		scan(r.URL)
		if r.Body != nil {
			scan(r.Body.Raw)
		}
		r.Headers.Each(func(_, value string) { scan(value) })

		for idx := range seen {
			deps[i] = append(deps[i], idx)
		}
	}
	return deps
}

// templateTokens extracts every `{{...}}` token's trimmed inner text from
// text, mirroring the template engine's own tokenizing (not evaluating
// dynamic directives or nested expansion, just lexing token boundaries).
func templateTokens(text string) []string {
	var tokens []string
	i := 0
	for i < len(text) {
		start := strings.Index(text[i:], "{{")
		if start < 0 {
			break
		}
		start += i
		end := strings.Index(text[start+2:], "}}")
		if end < 0 {
			break
		}
		end += start + 2
		if name := strings.TrimSpace(text[start+2 : end]); name != "" {
			tokens = append(tokens, name)
		}
		i = end + 2
	}
	return tokens
}
