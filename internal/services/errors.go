package services

import (
	"errors"
	"net/http"

	"github.com/localnerve/retroboard/internal/store"
	"github.com/localnerve/retroboard/internal/types"
)

// Errors returned by the services. Each carries its HTTP status and machine code.
var (
	ErrUserExists     = types.NewError(http.StatusConflict, types.TypeUserExists, "a user with this email already exists")
	ErrUserNotFound   = types.NewError(http.StatusNotFound, types.TypeUserNotFound, "no user with this email")
	ErrUnauthorized   = types.NewError(http.StatusUnauthorized, types.TypeUnauthorized, "sign in required")
	ErrForbidden      = types.NewError(http.StatusForbidden, types.TypeForbidden, "not allowed to act for another user")
	ErrAdminRequired  = types.NewError(http.StatusForbidden, types.TypeForbidden, "admin role required")
	ErrNotFound       = types.NewError(http.StatusNotFound, types.TypeNotFound, "not found")
	ErrBoardLocked    = types.NewError(http.StatusForbidden, types.TypeBoardLocked, "board is completed")
	ErrVotingDisabled = types.NewError(http.StatusForbidden, types.TypeVotingDisabled, "voting is disabled on this board")
	ErrVoteLimit      = types.NewError(http.StatusConflict, types.TypeVoteLimit, "vote limit reached")
	ErrCommentsOff    = types.NewError(http.StatusForbidden, types.TypeFeatureOff, "comments are disabled on this board")
	ErrReactionsOff   = types.NewError(http.StatusForbidden, types.TypeFeatureOff, "reactions are disabled on this board")
	ErrGifsOff        = types.NewError(http.StatusForbidden, types.TypeFeatureOff, "gifs are disabled on this board")
	ErrVersion        = types.NewError(http.StatusConflict, types.TypeVersion, "E_VERSION - Refresh and reconcile with current version and retry.")
)

// storeError translates store sentinels into service errors
func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrVersionConflict):
		return ErrVersion
	case errors.Is(err, store.ErrDuplicate):
		return ErrUserExists
	}
	return err
}
