package toolset

import "fmt"

// stringArg reads a string argument. A missing key yields fallback, or
// ErrInvalidArgument when required. A present non-string value is always an
// error; JSON null counts as missing.
func stringArg(args map[string]any, key string, required bool, fallback string) (string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		if required {
			return "", fmt.Errorf("%w: %q is required", ErrInvalidArgument, key)
		}
		return fallback, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q must be a string, got %T", ErrInvalidArgument, key, raw)
	}
	return s, nil
}
