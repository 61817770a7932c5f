package versioning

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNotRepositoryError(t *testing.T) {
	withStderr := &NotRepositoryError{Stderr: "fatal: not a git repository"}
	require.Equal(t, "not a git repository: fatal: not a git repository", withStderr.Error())

	bare := &NotRepositoryError{}
	require.Equal(t, "not a git repository", bare.Error())
}

func TestInvalidTagError(t *testing.T) {
	err := &InvalidTagError{Reason: "'v1.0' does not follow PEP440"}
	require.Equal(t, "invalid tag: 'v1.0' does not follow PEP440", err.Error())
}

func TestInvalidBranchError(t *testing.T) {
	err := &InvalidBranchError{Branch: "feature/x"}
	require.Contains(t, err.Error(), "feature/x")
	require.Contains(t, err.Error(), "local version segment")
}

func TestInvalidCommandError(t *testing.T) {
	err := &InvalidCommandError{
		Args:   []string{"rev-list", "nope"},
		Stderr: "fatal: ambiguous argument 'nope'",
	}
	require.Equal(t, "invalid command 'git rev-list nope': fatal: ambiguous argument 'nope'", err.Error())
}

func TestErrorsMatchThroughWrapping(t *testing.T) {
	t.Run("NotRepositoryError", func(t *testing.T) {
		wrapped := fmt.Errorf("resolving version: %w", &NotRepositoryError{Stderr: "boom"})

		var notRepo *NotRepositoryError
		require.True(t, errors.As(wrapped, &notRepo))
		require.Equal(t, "boom", notRepo.Stderr)
	})

	t.Run("InvalidTagError", func(t *testing.T) {
		wrapped := fmt.Errorf("resolving version: %w", &InvalidTagError{Reason: "bad"})

		var invalidTag *InvalidTagError
		require.True(t, errors.As(wrapped, &invalidTag))
	})

	t.Run("Types do not cross-match", func(t *testing.T) {
		err := &InvalidTagError{Reason: "bad"}

		var notRepo *NotRepositoryError
		require.False(t, errors.As(err, &notRepo))
	})
}
