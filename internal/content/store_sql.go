package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hackmathlogic/hackmath/internal/db"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(dbh *sql.DB) *SQLStore {
	return &SQLStore{db: dbh}
}

func (s *SQLStore) ListThemes(ctx context.Context) ([]Theme, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,title FROM themes ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Theme{}
	for rows.Next() {
		var t Theme
		if err := rows.Scan(&t.ID, &t.Title); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetTheme(ctx context.Context, id int64) (ThemeDetail, error) {
	var d ThemeDetail
	err := s.db.QueryRowContext(ctx, `SELECT id,title FROM themes WHERE id=$1`, id).Scan(&d.ID, &d.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return ThemeDetail{}, fmt.Errorf("theme %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return ThemeDetail{}, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id,title,theme_id FROM subthemes WHERE theme_id=$1 ORDER BY id`, id)
	if err != nil {
		return ThemeDetail{}, err
	}
	defer rows.Close()
	d.SubThemes = []SubTheme{}
	for rows.Next() {
		var st SubTheme
		if err := rows.Scan(&st.ID, &st.Title, &st.ThemeID); err != nil {
			return ThemeDetail{}, err
		}
		d.SubThemes = append(d.SubThemes, st)
	}
	return d, rows.Err()
}

func (s *SQLStore) CreateTheme(ctx context.Context, title string) (Theme, error) {
	t := Theme{Title: title}
	if err := s.db.QueryRowContext(ctx, `INSERT INTO themes (title) VALUES ($1) RETURNING id`, title).Scan(&t.ID); err != nil {
		return Theme{}, err
	}
	return t, nil
}

func (s *SQLStore) UpdateTheme(ctx context.Context, id int64, title string) (Theme, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE themes SET title=$1 WHERE id=$2`, title, id)
	if err != nil {
		return Theme{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Theme{}, fmt.Errorf("theme %d: %w", id, ErrNotFound)
	}
	return Theme{ID: id, Title: title}, nil
}

// DeleteTheme removes the theme and everything below it, including results
// that reference its tests or answers.
func (s *SQLStore) DeleteTheme(ctx context.Context, id int64) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		n, err := db.DeleteThemeTree(ctx, tx, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("theme %d: %w", id, ErrNotFound)
		}
		return nil
	})
}

func (s *SQLStore) GetSubTheme(ctx context.Context, themeID, subthemeID int64) (SubThemeDetail, error) {
	return loadSubTheme(ctx, s.db, themeID, subthemeID)
}

// CreateSubTheme creates the subtheme and its article atomically.
func (s *SQLStore) CreateSubTheme(ctx context.Context, themeID int64, in SubThemeInput) (SubThemeDetail, error) {
	var out SubThemeDetail
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM themes WHERE id=$1`, themeID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("theme %d: %w", themeID, ErrNotFound)
		}
		if err != nil {
			return err
		}
		var subID int64
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO subthemes (title, theme_id) VALUES ($1,$2) RETURNING id`,
			in.Title, themeID).Scan(&subID); err != nil {
			return err
		}
		if _, err := insertArticle(ctx, tx, subID, in.Text); err != nil {
			return err
		}
		out, err = loadSubTheme(ctx, tx, themeID, subID)
		return err
	})
	return out, err
}

// UpdateSubTheme overwrites the subtheme title and the text of its first
// article. A subtheme without an article gets one.
func (s *SQLStore) UpdateSubTheme(ctx context.Context, themeID, subthemeID int64, in SubThemeInput) (SubThemeDetail, error) {
	var out SubThemeDetail
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := subThemeExists(ctx, tx, themeID, subthemeID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE subthemes SET title=$1 WHERE id=$2`, in.Title, subthemeID); err != nil {
			return err
		}
		var articleID int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM articles WHERE subtheme_id=$1 ORDER BY id LIMIT 1`, subthemeID).Scan(&articleID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if _, err := insertArticle(ctx, tx, subthemeID, in.Text); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if _, err := tx.ExecContext(ctx, `UPDATE articles SET text=$1 WHERE id=$2`, in.Text, articleID); err != nil {
				return err
			}
		}
		out, err = loadSubTheme(ctx, tx, themeID, subthemeID)
		return err
	})
	return out, err
}

// DeleteSubTheme deletes the articles first, then the subtheme (and its
// tests), in one transaction.
func (s *SQLStore) DeleteSubTheme(ctx context.Context, themeID, subthemeID int64) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := subThemeExists(ctx, tx, themeID, subthemeID); err != nil {
			return err
		}
		n, err := db.DeleteSubThemeTree(ctx, tx, subthemeID)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("subtheme %d: %w", subthemeID, ErrNotFound)
		}
		return nil
	})
}

// ---------- helpers ----------

func subThemeExists(ctx context.Context, q db.Queryer, themeID, subthemeID int64) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM subthemes WHERE id=$1 AND theme_id=$2`, subthemeID, themeID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("subtheme %d in theme %d: %w", subthemeID, themeID, ErrNotFound)
	}
	return err
}

func insertArticle(ctx context.Context, q db.Queryer, subthemeID int64, text string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx,
		`INSERT INTO articles (text, subtheme_id) VALUES ($1,$2) RETURNING id`, text, subthemeID).Scan(&id)
	return id, err
}

func loadSubTheme(ctx context.Context, q db.Queryer, themeID, subthemeID int64) (SubThemeDetail, error) {
	var d SubThemeDetail
	err := q.QueryRowContext(ctx,
		`SELECT id,title,theme_id FROM subthemes WHERE id=$1 AND theme_id=$2`, subthemeID, themeID).
		Scan(&d.ID, &d.Title, &d.ThemeID)
	if errors.Is(err, sql.ErrNoRows) {
		return SubThemeDetail{}, fmt.Errorf("subtheme %d in theme %d: %w", subthemeID, themeID, ErrNotFound)
	}
	if err != nil {
		return SubThemeDetail{}, err
	}
	rows, err := q.QueryContext(ctx, `SELECT id,text,subtheme_id FROM articles WHERE subtheme_id=$1 ORDER BY id`, subthemeID)
	if err != nil {
		return SubThemeDetail{}, err
	}
	defer rows.Close()
	d.Articles = []Article{}
	for rows.Next() {
		var a Article
		if err := rows.Scan(&a.ID, &a.Text, &a.SubThemeID); err != nil {
			return SubThemeDetail{}, err
		}
		d.Articles = append(d.Articles, a)
	}
	if err := rows.Err(); err != nil {
		return SubThemeDetail{}, err
	}
	if len(d.Articles) > 0 {
		first := d.Articles[0]
		d.Article = &first
	}
	return d, nil
}
