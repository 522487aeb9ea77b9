// Package email turns job-alert mails in an IMAP mailbox into postings.
package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// message is a minimal representation of one mail for scraping. RawMessage is
// fetched with BODY.PEEK[], so reading it does not set \Seen.
type message struct {
	UID     imap.UID
	From    string
	Subject string
	Date    time.Time

	RawMessage []byte
}

func dialAndLogin(ctx context.Context, addr, username, password string) (*imapclient.Client, error) {
	if addr == "" {
		return nil, errors.New("imap addr is required")
	}
	if username == "" || password == "" {
		return nil, errors.New("imap username/password is required")
	}

	c, err := imapclient.DialTLS(addr, &imapclient.Options{
		TLSConfig: &tls.Config{MinVersion: tls.VersionTLS12},
	})
	if err != nil {
		return nil, fmt.Errorf("imap dial tls: %w", err)
	}

	go func() {
		<-ctx.Done()
		_ = c.Close()
	}()

	if err := c.Login(username, password).Wait(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("imap login: %w", err)
	}
	return c, nil
}

// fetchUnseen pulls up to max unseen messages by UID, newest first.
func fetchUnseen(ctx context.Context, c *imapclient.Client, max int) ([]message, error) {
	if max <= 0 {
		max = 50
	}

	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
		// mails older than this can only describe long-gone postings
		Since: time.Now().AddDate(0, -3, 0),
	}

	searchData, err := c.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap uid search unseen: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}
	for i, j := 0, len(uids)-1; i < j; i, j = i+1, j-1 {
		uids[i], uids[j] = uids[j], uids[i]
	}
	if len(uids) > max {
		uids = uids[:max]
	}

	bodyAll := &imap.FetchItemBodySection{
		Specifier: imap.PartSpecifierNone,
		Peek:      true,
	}
	fetchCmd := c.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:         true,
		Envelope:    true,
		BodySection: []*imap.FetchItemBodySection{bodyAll},
	})
	defer func() { _ = fetchCmd.Close() }()

	out := make([]message, 0, len(uids))
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		msgData := fetchCmd.Next()
		if msgData == nil {
			break
		}
		buf, err := msgData.Collect()
		if err != nil {
			return nil, fmt.Errorf("imap fetch collect: %w", err)
		}

		var m message
		m.UID = buf.UID
		if buf.Envelope != nil {
			m.Subject = buf.Envelope.Subject
			m.Date = buf.Envelope.Date
			m.From = joinAddrs(buf.Envelope.From)
		}
		if b := buf.FindBodySection(bodyAll); b != nil {
			m.RawMessage = append([]byte(nil), b...)
		}
		if m.Subject == "" && len(m.RawMessage) > 0 {
			if parsed, err := mail.ReadMessage(strings.NewReader(string(m.RawMessage))); err == nil {
				m.Subject = parsed.Header.Get("Subject")
			}
		}
		out = append(out, m)
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("imap fetch close: %w", err)
	}
	return out, nil
}

// markSeen flags processed mails so the next poll skips them. In go-imap v2
// Store has no Wait(); Close() surfaces the final status.
func markSeen(c *imapclient.Client, uids []imap.UID) error {
	if len(uids) == 0 {
		return nil
	}
	cmd := c.Store(imap.UIDSetNum(uids...), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)
	if err := cmd.Close(); err != nil {
		return fmt.Errorf("imap store add seen: %w", err)
	}
	return nil
}

func logoutAndClose(c *imapclient.Client) {
	if c == nil {
		return
	}
	_ = c.Logout().Wait()
	_ = c.Close()
}

func joinAddrs(addrs []imap.Address) string {
	parts := make([]string, 0, len(addrs))
	for i := range addrs {
		a := &addrs[i]
		addr := strings.TrimSpace(a.Addr())
		if addr == "" {
			addr = strings.TrimSpace(a.Name)
		}
		if addr != "" {
			parts = append(parts, addr)
		}
	}
	return strings.Join(parts, ", ")
}
