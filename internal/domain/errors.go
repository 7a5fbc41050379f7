package domain

import "fmt"

// Sentinel errors for the domain layer.
var (
	// ErrMissingEnv marks a required environment variable that is absent.
	// Wrap it with the variable name: fmt.Errorf("%w: AWS_REGION_NAME", ...).
	ErrMissingEnv = fmt.Errorf("required environment variable not set")

	ErrProviderError = fmt.Errorf("provider error")
	ErrDecode        = fmt.Errorf("response decode failed")
)

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
