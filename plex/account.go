package plex

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/s0up4200/plexshelf/session"
)

// Login signs in to plex.tv, stores the token and profile in the session,
// then discovers the account's media server. If discovery fails the stored
// sign-in is cleared again, so a session never holds a token without a
// server.
func (c *Client) Login(ctx context.Context, login, password string) (*SignIn, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("login", login); err != nil {
		return nil, fmt.Errorf("failed to build sign-in form: %w", err)
	}
	if err := form.WriteField("password", password); err != nil {
		return nil, fmt.Errorf("failed to build sign-in form: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("failed to build sign-in form: %w", err)
	}

	c.logger.Debug().Str("login", login).Msg("Signing in to plex.tv")

	res, err := c.Request(ctx, http.MethodPost, c.cloudURL+"/users/signin.json", CallOptions{
		Body:        body.Bytes(),
		ContentType: form.FormDataContentType(),
		NoToken:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("sign-in request failed: %w", err)
	}

	var account SignIn
	if err := res.Decode(&account); err != nil {
		return nil, err
	}
	if account.AuthToken == "" {
		return nil, &AuthError{
			StatusCode: res.StatusCode,
			Message:    res.Get("errors.0.message").String(),
		}
	}

	for _, kv := range []struct {
		param session.Param
		value string
	}{
		{session.ParamToken, account.AuthToken},
		{session.ParamAvatar, account.Thumb},
		{session.ParamName, account.Username},
	} {
		if err := c.session.Set(ctx, kv.param, kv.value); err != nil {
			return nil, err
		}
	}

	c.logger.Info().Str("user", account.Username).Msg("Signed in to plex.tv")

	if _, err := c.DiscoverServer(ctx); err != nil {
		c.forgetSignIn(ctx)
		return nil, err
	}
	return &account, nil
}

// forgetSignIn drops the profile stored by a sign-in whose server discovery
// failed
func (c *Client) forgetSignIn(ctx context.Context) {
	for _, p := range []session.Param{session.ParamToken, session.ParamAvatar, session.ParamName} {
		if err := c.session.Clear(ctx, p); err != nil {
			c.logger.Warn().Err(err).Str("param", string(p)).Msg("Failed to clear partial sign-in")
		}
	}
}

// Logout clears the whole session
func (c *Client) Logout(ctx context.Context) error {
	if err := c.session.ResetAll(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	c.logger.Info().Msg("Signed out")
	return nil
}

// DiscoverServer finds the account's Plex Media Server and records its
// machine identifier and first connection URI in the session
func (c *Client) DiscoverServer(ctx context.Context) (*Device, error) {
	res, err := c.Request(ctx, http.MethodGet, c.cloudURL+"/resources", CallOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}

	var devices []Device
	if err := res.Decode(&devices); err != nil {
		return nil, err
	}

	var server *Device
	for i := range devices {
		if devices[i].IsMediaServer() {
			server = &devices[i]
			break
		}
	}
	if server == nil {
		return nil, ErrServerNotFound
	}
	if len(server.Connections) == 0 {
		return nil, fmt.Errorf("%w: %s has no connections", ErrServerNotFound, server.Name)
	}

	if err := c.session.Set(ctx, session.ParamMachineID, server.ClientIdentifier); err != nil {
		return nil, err
	}
	if err := c.session.Set(ctx, session.ParamHostURL, server.Connections[0].URI); err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("server", server.Name).
		Str("machine_id", server.ClientIdentifier).
		Str("uri", server.Connections[0].URI).
		Msg("Found Plex Media Server")

	return server, nil
}

// CurrentUser returns the signed-in plex.tv account
func (c *Client) CurrentUser(ctx context.Context) (*SignIn, error) {
	res, err := c.Request(ctx, http.MethodGet, c.cloudURL+"/user", CallOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	var user SignIn
	if err := res.Decode(&user); err != nil {
		return nil, err
	}
	return &user, nil
}
