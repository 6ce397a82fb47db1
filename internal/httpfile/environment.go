package httpfile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
)

// LoadEnvironment reads the named environment's key/value pairs from an
// `http-client.env.json` (JetBrains) or `.rest-client.env.json`
// (REST-Client) file found next to httpFile or in the working directory
// Absence of either file is not an error;
// it yields an empty map.
func LoadEnvironment(httpFile, name string) (map[string]string, error) {
	dirs := []string{filepath.Dir(httpFile), "."}
	candidates := []string{"http-client.env.json", ".rest-client.env.json"}

	for _, dir := range dirs {
		for _, candidate := range candidates {
			path := filepath.Join(dir, candidate)
			data, err := os.ReadFile(path)
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return nil, err
			}
			return extractEnv(data, name)
		}
	}
	return map[string]string{}, nil
}

// extractEnv parses a JetBrains/REST-Client style environment document:
// a top-level object keyed by environment name, each value an object of
// string variables. A "$shared" key, when present, is merged first so
// named environments can override shared defaults.
func extractEnv(data []byte, name string) (map[string]string, error) {
	var doc map[string]map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	out := make(map[string]string)
	if shared, ok := doc["$shared"]; ok {
		mergeEnvInto(out, shared)
	}
	if env, ok := doc[name]; ok {
		mergeEnvInto(out, env)
	}
	return out, nil
}

func mergeEnvInto(dst map[string]string, src map[string]interface{}) {
	for k, v := range src {
		switch t := v.(type) {
		case string:
			dst[k] = t
		case bool:
			if t {
				dst[k] = "true"
			} else {
				dst[k] = "false"
			}
		case float64:
			dst[k] = jsonNumberString(t)
		}
	}
}

func jsonNumberString(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
