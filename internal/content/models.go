package content

import "errors"

// ErrNotFound is returned when an id does not resolve inside its parent.
var ErrNotFound = errors.New("not found")

type Theme struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type SubTheme struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	ThemeID int64  `json:"theme_id"`
}

type Article struct {
	ID         int64  `json:"id"`
	Text       string `json:"text"`
	SubThemeID int64  `json:"subtheme_id"`
}

// ThemeDetail is a theme with its subthemes.
type ThemeDetail struct {
	Theme
	SubThemes []SubTheme `json:"subthemes"`
}

// SubThemeDetail is a subtheme with its articles. Article is the first one
// (lowest id), which is the one the authoring workflow maintains.
type SubThemeDetail struct {
	SubTheme
	Article  *Article  `json:"article,omitempty"`
	Articles []Article `json:"articles"`
}
