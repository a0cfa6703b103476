// Package resolver implements field-level merge of concurrent edits using a
// hybrid of optimistic version checks and last-writer-wins timestamps.
package resolver

import (
	"fmt"
	"sort"
	"time"

	"github.com/quaydesk/preorder-sync-api/internal/syncx"
)

// Winner identifies which side prevailed in a field-level conflict.
type Winner string

const (
	WinnerClient Winner = "client"
	WinnerServer Winner = "server"
)

// FieldConflict describes how a single field conflict was resolved via LWW.
type FieldConflict struct {
	Field       string `json:"field"`
	ClientValue any    `json:"client_value"`
	ServerValue any    `json:"server_value"`
	Winner      Winner `json:"winner"`
}

// Resolution is the outcome of merging client intent against server state.
type Resolution struct {
	// FieldsToApply is the subset of client data that should be written.
	FieldsToApply map[string]any
	// AutoMerged lists fields accepted without a real conflict: the server
	// had not touched them since the client's expected version.
	AutoMerged []string
	// LWWResolved lists fields both sides changed, with per-field winners.
	LWWResolved []FieldConflict
	// HadVersionMismatch is true when the client edited a stale version.
	HadVersionMismatch bool
}

// ResolveUpdate merges a client's proposed field values against the server's
// current state.
//
// When the client's expected version is absent or matches the server, every
// client field is applied verbatim. On a version mismatch each field is
// examined individually: values already equal on the server are skipped,
// fields the server has not changed since the expected version are
// auto-merged, and fields both sides changed fall back to last-writer-wins
// on timestamps (ties go to the client).
//
// serverChanged maps field name to the ISO timestamp of the server's most
// recent change to that field since expectedVersion.
func ResolveUpdate(
	serverState map[string]any,
	clientData map[string]any,
	expectedVersion *int,
	serverVersion int,
	clientTimestamp string,
	serverChanged map[string]string,
) (Resolution, error) {
	if expectedVersion == nil || *expectedVersion == serverVersion {
		apply := make(map[string]any, len(clientData))
		for k, v := range clientData {
			apply[k] = v
		}
		return Resolution{FieldsToApply: apply}, nil
	}

	clientTS, err := syncx.ParseTimestamp(clientTimestamp)
	if err != nil {
		return Resolution{}, fmt.Errorf("client timestamp: %w", err)
	}

	res := Resolution{
		FieldsToApply:      map[string]any{},
		HadVersionMismatch: true,
	}

	for _, field := range sortedKeys(clientData) {
		clientValue := clientData[field]
		serverValue := serverState[field]

		if syncx.ValuesEqual(clientValue, serverValue) {
			// Client wants the value the server already has.
			continue
		}

		changedAt, serverTouched := serverChanged[field]
		if !serverTouched {
			res.FieldsToApply[field] = clientValue
			res.AutoMerged = append(res.AutoMerged, field)
			continue
		}

		serverTS, err := syncx.ParseTimestamp(changedAt)
		if err != nil {
			return Resolution{}, fmt.Errorf("server change timestamp for %s: %w", field, err)
		}

		conflict := FieldConflict{
			Field:       field,
			ClientValue: clientValue,
			ServerValue: serverValue,
		}
		if equalOrAfter(clientTS, serverTS) {
			conflict.Winner = WinnerClient
			res.FieldsToApply[field] = clientValue
		} else {
			conflict.Winner = WinnerServer
		}
		res.LWWResolved = append(res.LWWResolved, conflict)
	}

	return res, nil
}

// equalOrAfter is the LWW tie-break: exact timestamp ties favor the client.
func equalOrAfter(a, b time.Time) bool {
	return !a.Before(b)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
