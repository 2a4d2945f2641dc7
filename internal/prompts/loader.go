// Package prompts holds the instructions ForgeCV sends to the model. Each JSON file under this
// directory maps a prompt key to its text and is compiled into the binary, so a release always
// ships the prompts it was tested with.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
)

//go:embed *.json
var promptFiles embed.FS

var (
	cacheMu sync.RWMutex
	cache   = map[string]map[string]string{}
)

// Get returns the prompt stored under key in file, where file is a bare name such as
// "tailoring.json".
func Get(file, key string) (string, error) {
	set, err := loadFile(file)
	if err != nil {
		return "", err
	}
	prompt, ok := set[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, file)
	}
	return prompt, nil
}

// MustGet is Get for the prompts the builders in this package depend on. A missing one is a
// packaging bug, so it panics.
func MustGet(file, key string) string {
	prompt, err := Get(file, key)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return prompt
}

// Format fills {{.Key}} placeholders from data in a single pass. Values are inserted verbatim
// and never rescanned, so resume or job text that happens to contain "{{.Company}}" stays as
// written. Placeholders without a value are left in place.
func Format(template string, data map[string]string) string {
	if len(data) == 0 {
		return template
	}
	pairs := make([]string, 0, 2*len(data))
	for key, value := range data {
		pairs = append(pairs, "{{."+key+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func loadFile(file string) (map[string]string, error) {
	cacheMu.RLock()
	set, ok := cache[file]
	cacheMu.RUnlock()
	if ok {
		return set, nil
	}

	data, err := promptFiles.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", file, err)
	}
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", file, err)
	}

	cacheMu.Lock()
	cache[file] = set
	cacheMu.Unlock()
	return set, nil
}

// ClearCache forgets every parsed file.
func ClearCache() {
	cacheMu.Lock()
	cache = map[string]map[string]string{}
	cacheMu.Unlock()
}

// List returns the prompt keys in file, sorted.
func List(file string) ([]string, error) {
	set, err := loadFile(file)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys, nil
}
