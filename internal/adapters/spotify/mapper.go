package spotify

import (
	"strings"

	"github.com/ewilliams-labs/groundswell/internal/core/domain"
	"golang.org/x/oauth2"
)

// mapTrackToDomain converts a raw Spotify track to a clean Domain track.
// Audio features are attached later by the feature source.
func mapTrackToDomain(st spotifyTrack) domain.Track {
	artistNames := make([]string, 0, len(st.Artists))
	for _, a := range st.Artists {
		artistNames = append(artistNames, a.Name)
	}

	return domain.Track{
		ID:         st.ID,
		Title:      st.Name,
		Artist:     strings.Join(artistNames, ", "),
		Album:      st.Album.Name,
		PreviewURL: st.PreviewURL,
	}
}

// mapProfileToDomain converts /me into a user, falling back to the id when no
// display name is set.
func mapProfileToDomain(p spotifyProfile) (domain.User, error) {
	u, err := domain.NewUser(p.ID, p.DisplayName)
	if err != nil {
		return domain.User{}, err
	}
	u.Email = p.Email
	if len(p.Images) > 0 {
		u.ProfilePicURL = p.Images[0].URL
	}
	return u, nil
}

func tokenToDomain(t *oauth2.Token) domain.Token {
	return domain.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.Expiry,
	}
}

func tokenFromDomain(t domain.Token) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.Expiry,
	}
}
