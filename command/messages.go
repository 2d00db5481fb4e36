package command

import (
	"errors"
	"fmt"

	"github.com/indieinfra/clipvault/browse"
	"github.com/indieinfra/clipvault/media"
	"github.com/indieinfra/clipvault/vault"
)

// UserMessage maps an error from any vault operation to a short message the
// transport shows privately to the acting user. Internal detail stays in the
// logs; the user gets the condition and, where useful, what to do about it.
func UserMessage(err error) string {
	var (
		fetchErr   *vault.FetchError
		storageErr *vault.StorageError
		recordErr  *vault.RecordError
	)

	switch {
	case err == nil:
		return ""
	case errors.Is(err, vault.ErrInvalidReference):
		return fmt.Sprintf("That link is not supported. Use a %s link.", media.SupportedSource)
	case errors.Is(err, vault.ErrInvalidName):
		return "Names may only contain letters, digits, underscores and hyphens."
	case errors.Is(err, vault.ErrDuplicateName):
		return "You already have an upload with that name. Pick another or delete the old one."
	case errors.Is(err, vault.ErrQuotaExceeded):
		return "You are at your upload limit. Delete something first."
	case errors.Is(err, vault.ErrPermission):
		return "You are not allowed to do that."
	case errors.Is(err, vault.ErrTimeout):
		return "That took too long and was cancelled. Try again later."
	case errors.Is(err, browse.ErrNoEntries):
		return "You have no uploads yet."
	case errors.Is(err, browse.ErrClosed):
		return "That browser has closed. Open a new one."
	case errors.Is(err, browse.ErrConfirmPending):
		return "Finish the pending deletion first: confirm or cancel."
	case errors.Is(err, browse.ErrUnknownEntry):
		return "No upload with that name is in this browser."
	case errors.Is(err, ErrUnknownSession):
		return "That browser is gone. Open a new one."
	case errors.As(err, &fetchErr):
		return "The video could not be downloaded. Check the link and try again."
	case errors.As(err, &storageErr):
		return "Storing the file failed. Nothing was saved; try again."
	case errors.As(err, &recordErr):
		return "Something went wrong saving the upload details. An admin has been notified."
	default:
		return "Something went wrong. Try again later."
	}
}
