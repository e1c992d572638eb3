package spotify

import (
	"context"
	"fmt"

	"github.com/ewilliams-labs/groundswell/internal/core/domain"
	"golang.org/x/oauth2"
)

// AuthCodeURL returns the consent page URL carrying state.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Complete exchanges an authorization code, loads the profile and stores the
// user together with their token.
func (c *Client) Complete(ctx context.Context, code string) (domain.User, error) {
	if code == "" {
		return domain.User{}, fmt.Errorf("spotify adapter: missing authorization code: %w", domain.ErrInvalidArgument)
	}

	tok, err := c.oauth.Exchange(c.oauthContext(ctx), code)
	if err != nil {
		return domain.User{}, fmt.Errorf("spotify adapter: token exchange: %w: %w", domain.ErrUnauthenticated, err)
	}

	var profile spotifyProfile
	if err := c.getJSON(ctx, tok, "/me", &profile); err != nil {
		return domain.User{}, fmt.Errorf("spotify adapter: load profile: %w", err)
	}

	user, err := mapProfileToDomain(profile)
	if err != nil {
		return domain.User{}, fmt.Errorf("spotify adapter: invalid profile: %w", err)
	}
	if err := c.store.SaveUser(ctx, user); err != nil {
		return domain.User{}, fmt.Errorf("spotify adapter: save user: %w", err)
	}
	if err := c.store.SaveToken(ctx, user.ID, tokenToDomain(tok)); err != nil {
		return domain.User{}, fmt.Errorf("spotify adapter: save token: %w", err)
	}
	return user, nil
}
