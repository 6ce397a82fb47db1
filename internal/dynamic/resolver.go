// Package dynamic implements the generators behind `{{$...}}` tokens:
// $guid/$uuid, $timestamp, $randomInt, $datetime/$localDatetime, $dotenv,
// and $processEnv.
package dynamic

import (
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Resolver generates values for recognized `$...` directives. An
// unrecognized directive name is left for the caller to render verbatim.
type Resolver struct {
	// DotenvDir is the directory the Resolver searches for a `.env` file
	// when resolving $dotenv. Defaults to the working directory.
	DotenvDir string

	dotenvOnce  bool
	dotenvCache map[string]string
}

// NewResolver returns a Resolver rooted at dir for $dotenv lookups.
func NewResolver(dir string) *Resolver {
	return &Resolver{DotenvDir: dir}
}

// Resolve evaluates one `$name [args...]` directive (already split off
// the surrounding `{{ }}` and trimmed) and returns the generated string
// plus whether the directive was recognized.
func (r *Resolver) Resolve(directive string) (string, bool) {
	fields := strings.Fields(directive)
	if len(fields) == 0 {
		return "", false
	}
	name := fields[0]
	args := fields[1:]

	switch name {
	case "$guid", "$uuid":
		return uuid.NewString(), true
	case "$timestamp":
		return strconv.FormatInt(time.Now().Unix(), 10), true
	case "$randomInt":
		return r.randomInt(args), true
	case "$datetime":
		return r.datetime(args, true), true
	case "$localDatetime":
		return r.datetime(args, false), true
	case "$dotenv":
		if len(args) == 0 {
			return "", false
		}
		return r.dotenv(args[0]), true
	case "$processEnv":
		if len(args) == 0 {
			return "", false
		}
		return r.processEnv(args[0]), true
	default:
		return "", false
	}
}

func (r *Resolver) randomInt(args []string) string {
	min, max := 0, 1000
	switch len(args) {
	case 0:
		// defaults stand
	case 1:
		if v, err := strconv.Atoi(args[0]); err == nil {
			min = v
		}
	default:
		if v, err := strconv.Atoi(args[0]); err == nil {
			min = v
		}
		if v, err := strconv.Atoi(args[1]); err == nil {
			max = v
		}
	}
	if max <= min {
		return strconv.Itoa(min)
	}
	return strconv.Itoa(min + rand.Intn(max-min+1))
}

func (r *Resolver) dotenv(name string) string {
	r.loadDotenv()
	if v, ok := r.dotenvCache[name]; ok {
		return v
	}
	return "{{$dotenv " + name + "}}"
}

func (r *Resolver) loadDotenv() {
	if r.dotenvOnce {
		return
	}
	r.dotenvOnce = true
	dir := r.DotenvDir
	if dir == "" {
		dir = "."
	}
	vars, err := godotenv.Read(dir + "/.env")
	if err != nil {
		r.dotenvCache = map[string]string{}
		return
	}
	r.dotenvCache = vars
}

func (r *Resolver) processEnv(name string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return "{{$processEnv " + name + "}}"
}
