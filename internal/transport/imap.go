package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/sirupsen/logrus"
)

// IMAPConfig carries the connection parameters of one account.
type IMAPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// IMAPMailbox implements Mailbox over a single IMAP connection. All
// operations are serialized by the caller; the connection tracks the
// currently selected folder like the protocol does.
type IMAPMailbox struct {
	cfg     IMAPConfig
	client  *client.Client
	logger  *logrus.Logger
	current string
}

// DialIMAP connects and logs in.
func DialIMAP(cfg IMAPConfig, logger *logrus.Logger) (*IMAPMailbox, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	dialer := &net.Dialer{Timeout: cfg.Timeout}
	cl, err := client.DialWithDialerTLS(dialer, addr, &tls.Config{
		ServerName: cfg.Host,
		MinVersion: tls.VersionTLS12,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}
	cl.Timeout = cfg.Timeout

	if err := cl.Login(cfg.Username, cfg.Password); err != nil {
		logger.WithError(err).Error("Failed to login to IMAP server")
		cl.Logout() //nolint:errcheck
		return nil, fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	logger.WithField("host", cfg.Host).Info("Connected to IMAP server")
	return &IMAPMailbox{cfg: cfg, client: cl, logger: logger}, nil
}

// Close logs out and drops the connection.
func (m *IMAPMailbox) Close() error {
	if m.client == nil {
		return nil
	}
	err := m.client.Logout()
	m.client = nil
	return err
}

func (m *IMAPMailbox) list(ctx context.Context, pattern string, subscribed bool) ([]FolderInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)

	go func() {
		if subscribed {
			done <- m.client.Lsub("", pattern, mailboxes)
		} else {
			done <- m.client.List("", pattern, mailboxes)
		}
	}()

	var infos []FolderInfo
	for mb := range mailboxes {
		infos = append(infos, FolderInfo{
			Name:       mb.Name,
			Delimiter:  mb.Delimiter,
			Attributes: mb.Attributes,
		})
	}

	if err := <-done; err != nil {
		return nil, providerErr("list folders", err)
	}
	return infos, nil
}

// ListFolders lists all folders matching the pattern.
func (m *IMAPMailbox) ListFolders(ctx context.Context, pattern string) ([]FolderInfo, error) {
	return m.list(ctx, pattern, false)
}

// ListSubscribed lists the subscribed folders matching the pattern.
func (m *IMAPMailbox) ListSubscribed(ctx context.Context, pattern string) ([]FolderInfo, error) {
	return m.list(ctx, pattern, true)
}

// Open selects a folder. Always re-issued, even when the folder appears to
// be current: intermediate operations may have changed the selection.
func (m *IMAPMailbox) Open(ctx context.Context, path string, readOnly bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := m.client.Select(path, readOnly); err != nil {
		return providerErr("open folder "+path, err)
	}
	m.current = path
	return nil
}

// Overviews lists every message of the open folder.
func (m *IMAPMailbox) Overviews(ctx context.Context) ([]Overview, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	status := m.client.Mailbox()
	if status == nil {
		return nil, &ProviderError{Op: "overviews", Diags: []string{"no folder selected"}}
	}
	if status.Messages == 0 {
		return nil, nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddRange(1, status.Messages)
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchFlags, imap.FetchUid, imap.FetchRFC822Size}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- m.client.Fetch(seqSet, items, messages)
	}()

	var out []Overview
	for msg := range messages {
		ov := Overview{
			UID:   msg.Uid,
			Flags: append([]string(nil), msg.Flags...),
			Size:  msg.Size,
		}
		if msg.Envelope != nil {
			ov.Subject = msg.Envelope.Subject
			ov.Date = msg.Envelope.Date
		}
		out = append(out, ov)
	}

	if err := <-done; err != nil {
		return nil, providerErr("list messages in "+m.current, err)
	}
	return out, nil
}

// FetchRaw retrieves the full message source by UID, peeking so the seen
// flag stays untouched.
func (m *IMAPMailbox) FetchRaw(ctx context.Context, uid uint32) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	section := &imap.BodySectionName{Peek: true}
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- m.client.UidFetch(seqSet, []imap.FetchItem{section.FetchItem()}, messages)
	}()

	var raw []byte
	for msg := range messages {
		if literal := msg.GetBody(section); literal != nil {
			b, err := io.ReadAll(literal)
			if err != nil {
				m.logger.WithError(err).Error("Error reading message literal")
				continue
			}
			raw = b
		}
	}

	if err := <-done; err != nil {
		return nil, providerErr(fmt.Sprintf("fetch message %d", uid), err)
	}
	if raw == nil {
		return nil, &ProviderError{Op: "fetch message", Diags: []string{fmt.Sprintf("uid %d not found", uid)}}
	}
	return raw, nil
}

// Append stores a raw message and returns the UID the server assigned.
func (m *IMAPMailbox) Append(ctx context.Context, path string, raw []byte, flags []string) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if err := m.client.Append(path, flags, time.Now(), bytes.NewBuffer(raw)); err != nil {
		return 0, providerErr("append to "+path, err)
	}

	// The plain APPEND response carries no UID, so re-open the folder and
	// read the UID of the last message.
	if err := m.Open(ctx, path, false); err != nil {
		return 0, err
	}
	status := m.client.Mailbox()
	if status == nil || status.Messages == 0 {
		return 0, &ProviderError{Op: "append", Diags: []string{"appended message not visible"}}
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(status.Messages)

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- m.client.Fetch(seqSet, []imap.FetchItem{imap.FetchUid}, messages)
	}()

	var uid uint32
	for msg := range messages {
		uid = msg.Uid
	}
	if err := <-done; err != nil {
		return 0, providerErr("fetch appended uid", err)
	}
	return uid, nil
}

// DeleteMessage flags one message of the open folder as deleted.
func (m *IMAPMailbox) DeleteMessage(ctx context.Context, uid uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := m.client.UidStore(seqSet, item, []interface{}{imap.DeletedFlag}, nil); err != nil {
		return providerErr(fmt.Sprintf("delete message %d", uid), err)
	}
	return nil
}

// Expunge permanently removes flagged messages from the open folder.
func (m *IMAPMailbox) Expunge(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.client.Expunge(nil); err != nil {
		return providerErr("expunge "+m.current, err)
	}
	return nil
}

// CreateFolder creates a new folder at the given path.
func (m *IMAPMailbox) CreateFolder(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.client.Create(path); err != nil {
		return providerErr("create folder "+path, err)
	}
	return nil
}

// RenameFolder renames a folder.
func (m *IMAPMailbox) RenameFolder(ctx context.Context, oldPath, newPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.client.Rename(oldPath, newPath); err != nil {
		return providerErr(fmt.Sprintf("rename folder %s to %s", oldPath, newPath), err)
	}
	return nil
}

// DeleteFolder removes a folder.
func (m *IMAPMailbox) DeleteFolder(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.client.Delete(path); err != nil {
		return providerErr("delete folder "+path, err)
	}
	return nil
}

// Subscribe adds a folder to the subscription list.
func (m *IMAPMailbox) Subscribe(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.client.Subscribe(path); err != nil {
		return providerErr("subscribe "+path, err)
	}
	return nil
}
