package resilience

import (
	"fmt"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/apperr"
)

// UploadExhaustedError is returned by Retry once every attempt has failed.
type UploadExhaustedError struct {
	Attempts    int
	LastMessage string
	Last        error
}

func (e *UploadExhaustedError) Error() string {
	return fmt.Sprintf("operation failed after %d attempts: %s", e.Attempts, e.LastMessage)
}

func (e *UploadExhaustedError) Unwrap() error { return e.Last }

// Kind places the error in the apperr taxonomy.
func (e *UploadExhaustedError) Kind() apperr.Kind { return apperr.KindUploadExhausted }

// FallbackFailedError is returned when both the primary and the fallback
// model failed. Both messages are kept for diagnosis.
type FallbackFailedError struct {
	PrimaryModel    string
	FallbackModel   string
	PrimaryMessage  string
	FallbackMessage string
	Fallback        error
}

func (e *FallbackFailedError) Error() string {
	return fmt.Sprintf("primary model %s failed (%s); fallback model %s failed (%s)",
		e.PrimaryModel, e.PrimaryMessage, e.FallbackModel, e.FallbackMessage)
}

func (e *FallbackFailedError) Unwrap() error { return e.Fallback }

// Kind places the error in the apperr taxonomy.
func (e *FallbackFailedError) Kind() apperr.Kind { return apperr.KindFallbackFailed }
