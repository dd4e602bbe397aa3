package pipeline

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig = errors.New("invalid session configuration")
	ErrUnknownStage  = errors.New("unknown stage")
)

// ConfigError reports a session configuration that cannot be run: an unknown
// stage name, a missing or mistyped parameter, or a malformed config.
// errors.Is(err, ErrInvalidConfig) holds for every ConfigError.
type ConfigError struct {
	Kind   StageKind
	Stage  StageName
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := "configuration error"
	if e.Kind != 0 {
		msg += ": " + e.Kind.String()
		if e.Stage != "" {
			msg += fmt.Sprintf(" %q", e.Stage)
		}
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

func (e *ConfigError) Is(target error) bool { return target == ErrInvalidConfig }

func unknownStage(kind StageKind, name StageName) error {
	return &ConfigError{Kind: kind, Stage: name, Err: ErrUnknownStage}
}

func invalid(reason string, args ...any) error {
	return &ConfigError{Reason: fmt.Sprintf(reason, args...)}
}

// withStage attributes an error raised inside a stage to that stage.
// Configuration errors keep their type; anything else (store failures) is
// wrapped with the stage name.
func withStage(err error, kind StageKind, name StageName) error {
	var ce *ConfigError
	if errors.As(err, &ce) {
		if ce.Kind == 0 {
			ce.Kind = kind
			ce.Stage = name
		}
		return ce
	}
	return fmt.Errorf("%s %q: %w", kind, name, err)
}
