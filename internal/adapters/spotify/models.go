package spotify

// spotifyImage is an image object attached to albums and profiles.
type spotifyImage struct {
	URL string `json:"url"`
}

type spotifyArtist struct {
	Name string `json:"name"`
}

type spotifyAlbum struct {
	Name   string         `json:"name"`
	Images []spotifyImage `json:"images"`
}

// spotifyTrack represents the Spotify API response for a track.
type spotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []spotifyArtist `json:"artists"`
	Album      spotifyAlbum    `json:"album"`
	PreviewURL string          `json:"preview_url"`
}

// topTracksResponse is the paging object returned by /me/top/tracks.
type topTracksResponse struct {
	Items []spotifyTrack `json:"items"`
	Total int            `json:"total"`
}

// spotifyProfile is the /me response.
type spotifyProfile struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Images      []spotifyImage `json:"images"`
}
