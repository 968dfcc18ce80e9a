package cli

import (
	"errors"
	"io/fs"
	"regexp/syntax"

	"github.com/aidanlsb/sceneql/internal/config"
	"github.com/aidanlsb/sceneql/internal/fieldcache"
	"github.com/aidanlsb/sceneql/internal/query"
	"github.com/aidanlsb/sceneql/internal/scene"
	"github.com/aidanlsb/sceneql/internal/scenedb"
)

// Error codes for structured error responses.
// These codes are stable and can be relied upon by agents.
const (
	// Query errors
	ErrQueryInvalid     = "QUERY_INVALID"
	ErrUnsupportedField = "UNSUPPORTED_FIELD"
	ErrQueryNotFound    = "QUERY_NOT_FOUND"

	// Scene errors
	ErrDataSource    = "DATA_SOURCE_ERROR"
	ErrSceneNotFound = "SCENE_NOT_FOUND"
	ErrSceneInvalid  = "SCENE_INVALID"

	// Config errors
	ErrConfigInvalid = "CONFIG_INVALID"

	// Input errors
	ErrInvalidInput    = "INVALID_INPUT"
	ErrMissingArgument = "MISSING_ARGUMENT"

	// General errors
	ErrInternal = "INTERNAL_ERROR"
)

// Warning codes for non-fatal issues.
const (
	WarnEmptyResult = "EMPTY_RESULT"
	WarnSceneReload = "SCENE_RELOAD_FAILED"
)

// errorCode maps an error returned by the query stack to its stable code.
func errorCode(err error) string {
	var syntaxErr *query.SyntaxError
	var fieldErr *fieldcache.UnsupportedFieldError
	var sourceErr *scene.SourceError
	var patternErr *syntax.Error
	switch {
	case errors.As(err, &syntaxErr):
		return ErrQueryInvalid
	case errors.As(err, &fieldErr):
		return ErrUnsupportedField
	case errors.As(err, &patternErr):
		return ErrInvalidInput
	case errors.Is(err, config.ErrQueryNotFound):
		return ErrQueryNotFound
	case errors.Is(err, fs.ErrNotExist):
		return ErrSceneNotFound
	case errors.As(err, &sourceErr), errors.Is(err, scenedb.ErrNotImported), errors.Is(err, scenedb.ErrLocked):
		return ErrDataSource
	}
	return ErrInternal
}

// errorSuggestion returns a hint for the given code, or "".
func errorSuggestion(code string) string {
	switch code {
	case ErrQueryInvalid:
		return "Run 'sceneql docs language' for the query syntax"
	case ErrUnsupportedField:
		return "Run 'sceneql fields' to list supported fields"
	case ErrQueryNotFound:
		return "Run 'sceneql query --list' to see saved queries"
	case ErrSceneNotFound:
		return "Pass --scene <file.yaml> or --db <file.db>, or set default_scene in config.toml"
	case ErrDataSource:
		return "Run 'sceneql import <scene.yaml> --db <file.db>' to (re)build the database"
	}
	return ""
}

// handleQueryError reports err with the code derived from its kind.
func handleQueryError(err error) error {
	code := errorCode(err)
	return handleError(code, err, errorSuggestion(code))
}
