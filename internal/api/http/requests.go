package http

import "strings"

type themeReq struct {
	Title string `json:"title" validate:"required,max=255"`
}

func (r *themeReq) normalize() { r.Title = strings.TrimSpace(r.Title) }

// subthemeReq carries the subtheme title and the text of its article.
type subthemeReq struct {
	Title string `json:"title" validate:"required,max=255"`
	Text  string `json:"text" validate:"required"`
}

func (r *subthemeReq) normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Text = strings.TrimSpace(r.Text)
}

type testReq struct {
	Question string `json:"question" validate:"required,max=500"`
}

func (r *testReq) normalize() { r.Question = strings.TrimSpace(r.Question) }

type questionReq struct {
	Text string `json:"text" validate:"required,max=500"`
}

func (r *questionReq) normalize() { r.Text = strings.TrimSpace(r.Text) }

type answerReq struct {
	Text    string `json:"text" validate:"required,max=400"`
	IsRight bool   `json:"is_right"`
}

func (r *answerReq) normalize() { r.Text = strings.TrimSpace(r.Text) }

// submitReq maps question id to the selected answer ids.
type submitReq struct {
	Answers map[int64][]int64 `json:"answers" validate:"omitempty,dive,keys,gt=0,endkeys,dive,gt=0"`
}

type credentialsReq struct {
	Username string `json:"username" validate:"required,min=3,max=150"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

func (r *credentialsReq) normalize() { r.Username = strings.TrimSpace(r.Username) }

func (r *credentialsReq) echo() any { return map[string]string{"username": r.Username} }

type userPatchReq struct {
	IsAdmin *bool   `json:"is_admin"`
	Role    *string `json:"role" validate:"omitempty,oneof=student teacher admin"`
}

// loginReq only checks presence; length rules apply at registration.
type loginReq struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (r *loginReq) normalize() { r.Username = strings.TrimSpace(r.Username) }

func (r *loginReq) echo() any { return map[string]string{"username": r.Username} }

type changePasswordReq struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

func (r *changePasswordReq) echo() any { return map[string]string{} }
