// SPDX-License-Identifier: MIT

package dataspace

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/bgentry/go-netrc/netrc"

	xlog "github.com/perigee-io/eofetch/internal/log"
)

// Host is the netrc machine entry used for CDSE credentials.
const Host = "dataspace.copernicus.eu"

// Credentials selects how to authenticate against CDSE, in order of
// precedence: an already-established access token, explicit
// username/password (plus optional TOTP), then a netrc entry for Host.
type Credentials struct {
	AccessToken string
	Username    string
	Password    string
	TOTP        string
	NetrcFile   string // empty means ~/.netrc (or $NETRC)
}

// resolve fills Username/Password from netrc when nothing explicit is set.
func (c *Credentials) resolve() error {
	if c.AccessToken != "" || (c.Username != "" && c.Password != "") {
		return nil
	}
	path := c.NetrcFile
	if path == "" {
		path = os.Getenv("NETRC")
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve home dir for netrc: %w", err)
		}
		path = filepath.Join(home, ".netrc")
	}
	machine, err := netrc.FindMachine(path, Host)
	if err != nil {
		return fmt.Errorf("read netrc %s: %w", path, err)
	}
	if machine == nil || machine.IsDefault() {
		return fmt.Errorf("no netrc entry for %s in %s", Host, path)
	}
	c.Username = machine.Login
	c.Password = machine.Password
	return nil
}

// accessToken exchanges the credentials for a CDSE OAuth access token via
// the password grant, unless a token was supplied directly.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	if c.creds.AccessToken != "" {
		return c.creds.AccessToken, nil
	}
	if err := c.creds.resolve(); err != nil {
		return "", err
	}
	logger := xlog.WithComponentFromContext(ctx, "dataspace")

	form := url.Values{
		"client_id":  {"cdse-public"},
		"username":   {c.creds.Username},
		"password":   {c.creds.Password},
		"grant_type": {"password"},
	}
	if c.creds.TOTP != "" {
		form.Set("totp", c.creds.TOTP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request access token: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("request access token: unexpected status %s", res.Status)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}
	logger.Debug().Msg("obtained CDSE access token")
	c.creds.AccessToken = payload.AccessToken
	return payload.AccessToken, nil
}
