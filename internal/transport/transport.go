// Package transport defines the external collaborator interfaces of the
// mapping core (mailbox access and outbound mail) together with their
// IMAP and SMTP implementations.
package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// FolderInfo is one entry of a remote folder listing, names in raw
// (modified UTF-7) form exactly as the server reports them.
type FolderInfo struct {
	Name       string
	Delimiter  string
	Attributes []string
}

// Overview is the lightweight per-message summary of a folder listing.
type Overview struct {
	UID     uint32
	Flags   []string
	Subject string
	Date    time.Time
	Size    uint32
}

// Mailbox is the stateful mailbox-access collaborator. The protocol keeps a
// "current folder"; every operation that needs one must Open first and must
// not trust the folder selected by a prior call.
type Mailbox interface {
	ListFolders(ctx context.Context, pattern string) ([]FolderInfo, error)
	ListSubscribed(ctx context.Context, pattern string) ([]FolderInfo, error)

	// Open selects a folder, invalidating any previous selection.
	Open(ctx context.Context, path string, readOnly bool) error
	// Overviews lists every message of the currently open folder.
	Overviews(ctx context.Context) ([]Overview, error)
	// FetchRaw retrieves the full raw message by UID without marking it seen.
	FetchRaw(ctx context.Context, uid uint32) ([]byte, error)

	// Append stores a raw message into a folder and returns its new UID.
	Append(ctx context.Context, path string, raw []byte, flags []string) (uint32, error)
	// DeleteMessage flags a message of the open folder for deletion.
	DeleteMessage(ctx context.Context, uid uint32) error
	// Expunge permanently removes flagged messages from the open folder.
	Expunge(ctx context.Context) error

	CreateFolder(ctx context.Context, path string) error
	RenameFolder(ctx context.Context, oldPath, newPath string) error
	DeleteFolder(ctx context.Context, path string) error
	Subscribe(ctx context.Context, path string) error

	Close() error
}

// Sender is the outbound mail collaborator: it accepts a fully composed
// wire-form message.
type Sender interface {
	Send(ctx context.Context, from string, to []string, raw []byte) error
}

// ProviderError wraps the enumerable diagnostic strings a provider reports
// for a failed operation.
type ProviderError struct {
	Op    string
	Diags []string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, strings.Join(e.Diags, "; "))
}

// Diagnostics extracts provider diagnostics from an error, falling back to
// the plain error text.
func Diagnostics(err error) []string {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Diags
	}
	return []string{err.Error()}
}

func providerErr(op string, err error) error {
	return &ProviderError{Op: op, Diags: []string{err.Error()}}
}
