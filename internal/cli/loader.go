package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/engine"
	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/report"
)

// CLI error codes (E001-E099). Report errors keep their own codes
// (INVALID_SORT, UNKNOWN_FIELD, ...).
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeScanError    = "E002" // Directory scan error
	ErrCodeUnsupported  = "E003" // Unsupported request file type
	ErrCodeLoadFailed   = "E004" // CUE evaluation failed
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeDecodeFailed = "E006" // Request document does not decode
	ErrCodeWriteFailed  = "E007" // File write error
	ErrCodeConnect      = "E008" // Datastore or metadata store unavailable
)

// LoadError is a request file that could not be turned into a request.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadRequest reads a request document. The encoding follows the file
// extension: .json, .yaml/.yml, or .cue. CUE requests must evaluate to a
// concrete value; constraints and defaults are resolved before decoding.
func LoadRequest(path string) (*report.ReportQueryRequest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("request file not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("reading %s: %v", path, err)}
	}

	var req *report.ReportQueryRequest
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		req, err = report.DecodeJSON(data)
	case ".yaml", ".yml":
		req, err = report.DecodeYAML(data)
	case ".cue":
		var jsonData []byte
		jsonData, err = evaluateCUE(path, data)
		if err != nil {
			return nil, err
		}
		req, err = report.DecodeJSON(jsonData)
	default:
		return nil, &LoadError{Code: ErrCodeUnsupported, Message: fmt.Sprintf("unsupported request file type %q (want .json, .yaml or .cue)", ext)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeDecodeFailed, Message: err.Error()}
	}
	return req, nil
}

// evaluateCUE compiles a CUE request document and exports it as JSON.
func evaluateCUE(path string, data []byte) ([]byte, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}
	out, err := value.MarshalJSON()
	if err != nil {
		return nil, formatCUEError(err)
	}
	return out, nil
}

// formatCUEError keeps the first CUE error and its source position.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
	}

	first := errs[0]
	loadErr := &LoadError{Code: ErrCodeLoadFailed, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		loadErr.Pos = positions[0]
	}
	return loadErr
}

// errorCode returns the code reported for err: a LoadError's code, an
// execution or report error's code, or the generic code.
func errorCode(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	if code := engine.CodeOf(err); code != "" {
		return string(code)
	}
	if code := report.CodeOf(err); code != "" {
		return string(code)
	}
	return ErrCodeGeneric
}

// errorMessage drops the code prefix LoadError.Error adds.
func errorMessage(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		if loadErr.Pos.IsValid() {
			return fmt.Sprintf("%s:%d:%d: %s", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column(), loadErr.Message)
		}
		return loadErr.Message
	}
	return err.Error()
}

// fieldOf returns the offending field of a report error.
func fieldOf(err error) string {
	var re *report.Error
	if errors.As(err, &re) && re.Field != "" {
		return re.Field
	}
	return "request"
}
