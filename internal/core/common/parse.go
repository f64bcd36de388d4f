package common

import (
	"encoding/json"
	"fmt"
)

// ParseJSON cleans and unmarshals an LLM response into T. Models often
// wrap the payload in markdown fences or prose; the first '{' through
// the last '}' is taken as the object.
func ParseJSON[T any](response string) (T, error) {
	var zero T

	start := -1
	for i, c := range response {
		if c == '{' {
			start = i
			break
		}
	}
	if start == -1 {
		return zero, fmt.Errorf("no JSON object found in response (missing '{')")
	}

	end := -1
	for i := len(response) - 1; i >= start; i-- {
		if response[i] == '}' {
			end = i + 1
			break
		}
	}
	if end == -1 {
		return zero, fmt.Errorf("no JSON object found in response (missing '}')")
	}

	jsonStr := response[start:end]

	var result T
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return zero, fmt.Errorf("failed to unmarshal JSON: %w\nData: %s", err, jsonStr)
	}
	return result, nil
}
