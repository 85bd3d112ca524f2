package api

import (
	"errors"
	"fmt"
	"strings"
)

// Action selects the operation performed by the validate-keys endpoint.
type Action string

const (
	ActionValidate     Action = "validateAndSave"
	ActionFetchAll     Action = "fetchAll"
	ActionClearInvalid Action = "clearInvalid"
)

var (
	ErrEmptyKeys     = errors.New("please provide an array of API keys to validate")
	ErrTooManyKeys   = errors.New("too many keys in one batch")
	ErrUnknownAction = errors.New("unknown action")
)

// KeysRequest is the JSON body accepted by the validate-keys endpoint.
type KeysRequest struct {
	Keys   []string `json:"keys"`
	Action Action   `json:"action,omitempty"`
	Count  int      `json:"count,omitempty"`
}

// Operation is a decoded KeysRequest. The concrete type carries only the
// payload its action needs.
type Operation interface {
	Action() Action
}

// ValidateOp validates and stores Keys.
type ValidateOp struct {
	Keys []string
}

// FetchAllOp reads stored records; Limit of 0 returns all of them.
type FetchAllOp struct {
	Limit int
}

// ClearInvalidOp deletes records with status invalid or error.
type ClearInvalidOp struct{}

func (ValidateOp) Action() Action     { return ActionValidate }
func (FetchAllOp) Action() Action     { return ActionFetchAll }
func (ClearInvalidOp) Action() Action { return ActionClearInvalid }

// Decode turns a KeysRequest into its Operation. maxKeys bounds the size of a
// validate batch; 0 disables the bound.
func (r KeysRequest) Decode(maxKeys int) (Operation, error) {
	switch r.Action {
	case "", ActionValidate:
		keys := make([]string, 0, len(r.Keys))
		for _, k := range r.Keys {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
		if len(keys) == 0 {
			return nil, ErrEmptyKeys
		}
		if maxKeys > 0 && len(keys) > maxKeys {
			return nil, fmt.Errorf("%w: got %d, limit is %d", ErrTooManyKeys, len(keys), maxKeys)
		}
		return ValidateOp{Keys: keys}, nil
	case ActionFetchAll:
		limit := r.Count
		if limit < 0 {
			limit = 0
		}
		return FetchAllOp{Limit: limit}, nil
	case ActionClearInvalid:
		return ClearInvalidOp{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, r.Action)
	}
}

// ErrNoValidKeysMessage is the error body of an export with no valid keys.
const ErrNoValidKeysMessage = "No valid keys to export"

// ClearResponse reports the outcome of a bulk clear.
type ClearResponse struct {
	Message string `json:"message"`
	Count   int64  `json:"count"`
}

// ExtractRequest carries raw pasted text.
type ExtractRequest struct {
	Text string `json:"text"`
}

// ExtractResponse lists the distinct candidate keys found in the text.
type ExtractResponse struct {
	Keys  []string `json:"keys"`
	Count int      `json:"count"`
}
