package rawg

// Page is the list envelope RAWG returns for every collection endpoint.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

type Game struct {
	ID               int              `json:"id"`
	Slug             string           `json:"slug"`
	Name             string           `json:"name"`
	Released         string           `json:"released"`
	BackgroundImage  string           `json:"background_image"`
	Rating           float64          `json:"rating"`
	Metacritic       *int             `json:"metacritic"`
	ParentPlatforms  []PlatformRef    `json:"parent_platforms"`
	Genres           []Genre          `json:"genres"`
	RatingsCount     int              `json:"ratings_count"`
	AddedByStatus    map[string]int   `json:"added_by_status,omitempty"`
	ShortScreenshots []ScreenshotJSON `json:"short_screenshots,omitempty"`
}

type PlatformRef struct {
	Platform Platform `json:"platform"`
}

type ScreenshotJSON struct {
	ID    int    `json:"id"`
	Image string `json:"image"`
}

type Developer struct {
	ID              int    `json:"id"`
	Slug            string `json:"slug"`
	Name            string `json:"name"`
	GamesCount      int    `json:"games_count"`
	ImageBackground string `json:"image_background"`
	Description     string `json:"description"` // HTML, unsanitized
}

type Genre struct {
	ID              int    `json:"id"`
	Slug            string `json:"slug"`
	Name            string `json:"name"`
	GamesCount      int    `json:"games_count"`
	ImageBackground string `json:"image_background"`
}

type Platform struct {
	ID   int    `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}
