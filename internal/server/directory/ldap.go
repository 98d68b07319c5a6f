package directory

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/go-ldap/ldap/v3"

	"github.com/chestkeeper/chestkeeper/internal/server/models"
)

// LDAPClient implements Client over go-ldap. One dial per bind: the
// administrative session keeps its own connection and end-user binds open a
// separate short-lived one, so the admin bind stays usable for searches.
type LDAPClient struct {
	timeout time.Duration
}

func NewLDAPClient(timeout time.Duration) *LDAPClient {
	return &LDAPClient{timeout: timeout}
}

func (c *LDAPClient) dial(url string) (*ldap.Conn, error) {
	conn, err := ldap.DialURL(url, ldap.DialWithDialer(&net.Dialer{Timeout: c.timeout}))
	if err != nil {
		return nil, err
	}
	conn.SetTimeout(c.timeout)
	return conn, nil
}

func (c *LDAPClient) BindAsAdmin(ctx context.Context, dir *models.Directory) (Session, error) {
	conn, err := c.dial(dir.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if err := conn.Bind(dir.BindDN, dir.BindPassword); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: admin bind: %v", ErrUnavailable, err)
	}

	return &ldapSession{client: c, conn: conn, url: dir.URL}, nil
}

type ldapSession struct {
	client *LDAPClient
	conn   *ldap.Conn
	url    string
}

func (s *ldapSession) SearchByAccount(ctx context.Context, account, baseDN string) (*Entry, error) {

	req := ldap.NewSearchRequest(
		baseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases,
		1, int(s.client.timeout.Seconds()), false,
		fmt.Sprintf("(sAMAccountName=%s)", ldap.EscapeFilter(account)),
		[]string{"dn", "company"},
		nil,
	)

	res, err := s.conn.Search(req)
	if err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: search: %v", ErrUnavailable, err)
	}

	if len(res.Entries) == 0 {
		return nil, nil
	}

	entry := res.Entries[0]
	return &Entry{
		DN:      entry.DN,
		Company: entry.GetAttributeValue("company"),
	}, nil
}

func (s *ldapSession) BindAsUser(ctx context.Context, dn, password string) error {
	// ldap v3 rejects empty passwords as unauthenticated binds already,
	// but the caller filters them out long before this point.
	conn, err := s.client.dial(s.url)
	if err != nil {
		return fmt.Errorf("user bind dial: %w", err)
	}
	defer conn.Close()

	if err := conn.Bind(dn, password); err != nil {
		return fmt.Errorf("user bind: %w", err)
	}

	return nil
}

func (s *ldapSession) Close() {
	s.conn.Close()
}
