package content

import "context"

// SubThemeInput is the paired subtheme + article payload.
type SubThemeInput struct {
	Title string
	Text  string
}

type Store interface {
	ListThemes(ctx context.Context) ([]Theme, error)
	GetTheme(ctx context.Context, id int64) (ThemeDetail, error)
	CreateTheme(ctx context.Context, title string) (Theme, error)
	UpdateTheme(ctx context.Context, id int64, title string) (Theme, error)
	DeleteTheme(ctx context.Context, id int64) error

	GetSubTheme(ctx context.Context, themeID, subthemeID int64) (SubThemeDetail, error)
	CreateSubTheme(ctx context.Context, themeID int64, in SubThemeInput) (SubThemeDetail, error)
	UpdateSubTheme(ctx context.Context, themeID, subthemeID int64, in SubThemeInput) (SubThemeDetail, error)
	DeleteSubTheme(ctx context.Context, themeID, subthemeID int64) error
}
