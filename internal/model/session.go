// Package model はドメインモデルを定義する。
package model

// Profile は外部ショップAPIから取得したユーザープロフィールのキャッシュを表す。
type Profile struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Gender    string `json:"gender,omitempty"`
	Image     string `json:"image,omitempty"`
}

// Session はブラウザコンテキスト1つ分の認証状態を表す。
// 認証済みであることはアクセストークンとリフレッシュトークンの
// 両方が空でないことと等価。プロフィールはログイン直後に未取得の
// 場合があるが、トークンが破棄・置換された際は必ず一緒に破棄される
// （トークンと不整合なプロフィールを残さない）。
type Session struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	Profile      *Profile `json:"profile,omitempty"`
}

// Authenticated はセッションが認証済み状態かどうかを返す。
func (s *Session) Authenticated() bool {
	return s != nil && s.AccessToken != "" && s.RefreshToken != ""
}
