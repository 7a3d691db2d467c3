package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	base := errors.New("boom")

	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, 1, exitCode(base))
	assert.Equal(t, exitDB, exitCode(withCode(exitDB, base)))
	assert.Equal(t, exitDBWrite, exitCode(fmt.Errorf("commit: %w", withCode(exitDBWrite, base))))
	assert.Nil(t, withCode(exitUsage, nil))
	assert.ErrorIs(t, withCode(exitValidation, base), base)
}
