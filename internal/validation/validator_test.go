package validation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/watchstate/internal/errors"
	"github.com/listenupapp/watchstate/internal/validation"
)

type settings struct {
	Root   string        `env:"WATCH_ROOT" validate:"required"`
	Mode   string        `env:"WATCH_MODE" validate:"oneof=auto file directory"`
	Settle time.Duration `env:"WATCH_SETTLE_DELAY" validate:"gte=0"`
	Plain  int           `validate:"gte=1"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	err := v.Validate(settings{Root: "/tmp", Mode: "auto", Settle: time.Second, Plain: 1})
	assert.NoError(t, err)
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		wantField string
		wantMsg   string
		in        settings
	}{
		{
			name:      "missing root",
			in:        settings{Mode: "auto", Plain: 1},
			wantField: "WATCH_ROOT",
			wantMsg:   "is required",
		},
		{
			name:      "unknown mode",
			in:        settings{Root: "/tmp", Mode: "recursive", Plain: 1},
			wantField: "WATCH_MODE",
			wantMsg:   "must be one of: auto file directory",
		},
		{
			name:      "negative duration",
			in:        settings{Root: "/tmp", Mode: "file", Settle: -time.Second, Plain: 1},
			wantField: "WATCH_SETTLE_DELAY",
			wantMsg:   "must be greater than or equal to 0",
		},
		{
			name:      "untagged field uses struct name",
			in:        settings{Root: "/tmp", Mode: "file"},
			wantField: "Plain",
			wantMsg:   "must be greater than or equal to 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrValidation))
			assert.Contains(t, err.Error(), tt.wantField+" "+tt.wantMsg)

			var domainErr *errors.Error
			require.True(t, errors.As(err, &domainErr))
			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Equal(t, tt.wantMsg, details[tt.wantField])
		})
	}
}

func TestValidator_ReportsEveryField(t *testing.T) {
	err := validation.New().Validate(settings{Mode: "nope"})
	require.Error(t, err)

	var domainErr *errors.Error
	require.True(t, errors.As(err, &domainErr))
	assert.Len(t, domainErr.Details, 3)
	assert.Equal(t,
		"invalid configuration: Plain must be greater than or equal to 1; WATCH_MODE must be one of: auto file directory; WATCH_ROOT is required",
		err.Error())
}
