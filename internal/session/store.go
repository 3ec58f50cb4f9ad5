// Package session は認証セッションの状態コンテナを提供する。
// 外部ショップAPIに対するログイン、アカウント作成、ログアウト、
// プロフィール取得、トークンリフレッシュを担い、
// 状態変更のたびにローカルストレージへ永続化する。
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/hitoshi/storeman/internal/model"
	"github.com/hitoshi/storeman/internal/notify"
	"github.com/hitoshi/storeman/internal/shopapi"
	"github.com/hitoshi/storeman/internal/storage"
)

// storageKey はセッションの永続化に使用するストレージキー。
const storageKey = "session"

// ShopAPI はセッションストアが必要とする外部ショップAPIのインターフェース。
type ShopAPI interface {
	Login(ctx context.Context, username, password string) (*shopapi.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*shopapi.TokenPair, error)
	Me(ctx context.Context, accessToken string) (*model.Profile, error)
	Register(ctx context.Context, user shopapi.NewUser) (*model.Profile, error)
}

// Store は認証セッションの状態コンテナ。
// 状態は {匿名, 認証済み} のいずれかを取り、認証済みになるのは
// ログイン成功時のみ。トークンはリフレッシュで置き換えられることが
// あるが、認証状態自体は変わらない。明示的なログアウトで匿名に戻る。
//
// すべての状態変更はミューテックスで直列化され、ネットワーク呼び出しの
// 間はロックを保持しない（実行中でも現在状態の読み取りは可能）。
// ネットワーク応答を状態に反映する際は、実行中にトークンが
// 破棄・置換されていないことを確認してから適用する
// （古い応答が現在のトークンと不整合なプロフィールを残さないため）。
type Store struct {
	mu      sync.Mutex
	session model.Session

	api      ShopAPI
	store    storage.Store
	notifier notify.Notifier
	logger   *slog.Logger
}

// NewStore はセッションストアを生成し、ストレージから状態を復元する。
// 不正な永続化データや、トークンの揃っていないデータは破棄して
// 匿名状態で初期化する（エラーにしない）。
func NewStore(api ShopAPI, store storage.Store, notifier notify.Notifier, logger *slog.Logger) *Store {
	s := &Store{
		api:      api,
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
	s.hydrate()
	return s
}

// Current は現在のセッションのコピーを返す。
func (s *Store) Current() model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.session
	if s.session.Profile != nil {
		profile := *s.session.Profile
		out.Profile = &profile
	}
	return out
}

// IsLoggedIn はセッションが認証済みかどうかを返す。
func (s *Store) IsLoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.session.Authenticated()
}

// Login は外部ショップAPIで認証し、セッションを確立する。
// レスポンスにアクセストークンとリフレッシュトークンの両方が
// 含まれない場合は失敗し、セッションは一切変更されない
// （部分的な認証状態を作らない）。成功時は前のセッションを完全に
// 上書きし、続けてプロフィール取得を1回行う。プロフィール取得の
// 失敗は確立済みの認証状態を巻き戻さない（次回の取得で再試行される）。
func (s *Store) Login(ctx context.Context, username, password string) error {
	if strings.TrimSpace(username) == "" {
		return model.NewInvalidRequestError("ユーザー名を入力してください")
	}
	if password == "" {
		return model.NewInvalidRequestError("パスワードを入力してください")
	}

	result, err := s.api.Login(ctx, username, password)
	if err != nil {
		loginErr := model.NewLoginFailedError(err.Error())
		s.notifier.Error(loginErr.Message)
		return loginErr
	}

	if result.AccessToken == "" || result.RefreshToken == "" {
		malformed := model.NewMalformedCredentialsError()
		s.notifier.Error(malformed.Message)
		return malformed
	}

	s.mu.Lock()
	// ログイン成功は前のセッション（トークンとプロフィール）を完全に置き換える
	s.session = model.Session{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	}
	s.persistLocked()
	s.mu.Unlock()

	s.logger.Info("user logged in",
		slog.String("username", result.Profile.Username),
	)
	s.notifier.Success("ログインしました")

	// プロフィールを1回だけ取得する。失敗しても認証状態は維持される。
	if _, err := s.Profile(ctx); err != nil {
		s.logger.Warn("profile fetch after login failed",
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// Register は外部ショップAPIでアカウントを作成する。
//
// この操作はレスポンスの内容にかかわらず、決してセッションを確立しない。
// また、この外部デモAPIで作成されたアカウントは保存されないため、
// 以後のログインには使用できない。これは外部サービス側の挙動であり、
// 本ストアの設計上の選択ではない（修正すべき不具合として扱わないこと）。
// 成功は「アカウント作成リクエストが受理された」ことのみを意味する。
func (s *Store) Register(ctx context.Context, user shopapi.NewUser) (*model.Profile, error) {
	if err := validateNewUser(user); err != nil {
		return nil, err
	}

	created, err := s.api.Register(ctx, user)
	if err != nil {
		registerErr := model.NewRegisterFailedError(err.Error())
		s.notifier.Error(registerErr.Message)
		return nil, registerErr
	}

	s.logger.Info("account created",
		slog.String("username", user.Username),
	)
	s.notifier.Success("アカウントを作成しました")

	return created, nil
}

// Logout はトークンとプロフィールを無条件に破棄し、
// 永続化エントリを削除して匿名状態に戻す。失敗モードを持たない。
func (s *Store) Logout() {
	s.mu.Lock()
	s.session = model.Session{}
	s.mu.Unlock()

	if err := s.store.Remove(storageKey); err != nil {
		s.logger.Error("failed to remove persisted session",
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("user logged out")
	s.notifier.Success("ログアウトしました")
}

// Profile は現在のアクセストークンでプロフィールを取得してキャッシュする。
// アクセストークンを保持していない場合は「セッションなし」を返す
// （ストアの失敗ではない）。
//
// トークン無効と分類される失敗に対しては、リフレッシュをちょうど1回
// 試み、新しいトークンでの再取得をちょうど1回だけ行う。再取得も失敗
// した場合はエラーを呼び出し元に返し、トークンはリフレッシュが残した
// 状態のまま維持する（自動ログアウトはしない）。これ以上の再試行は
// 決して行わない。
func (s *Store) Profile(ctx context.Context) (*model.Profile, error) {
	s.mu.Lock()
	accessToken := s.session.AccessToken
	s.mu.Unlock()

	if accessToken == "" {
		return nil, model.NewNoSessionError()
	}

	profile, err := s.api.Me(ctx, accessToken)
	if err == nil {
		s.cacheProfile(accessToken, profile)
		return profile, nil
	}

	if !errors.Is(err, shopapi.ErrTokenInvalid) {
		return nil, model.NewProfileFetchFailedError(err.Error())
	}

	// トークン無効: リフレッシュ1回 + 再取得1回のみ
	if refreshErr := s.Refresh(ctx); refreshErr != nil {
		return nil, refreshErr
	}

	s.mu.Lock()
	accessToken = s.session.AccessToken
	s.mu.Unlock()

	profile, err = s.api.Me(ctx, accessToken)
	if err != nil {
		fetchErr := model.NewProfileFetchFailedError(err.Error())
		s.notifier.Error(fetchErr.Message)
		return nil, fetchErr
	}

	s.cacheProfile(accessToken, profile)
	return profile, nil
}

// Refresh はリフレッシュトークンで新しいトークンの組を取得し、
// アクセストークンとリフレッシュトークンを置き換える。
// プロフィールには触れない。リフレッシュトークンを保持していない
// 場合はネットワーク呼び出しの前に失敗する。
//
// リフレッシュの失敗は保持中のトークンを変更せずに呼び出し元へ
// 伝播する。失敗時に強制ログアウトは行わない（DESIGN.md参照）。
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	refreshToken := s.session.RefreshToken
	s.mu.Unlock()

	if refreshToken == "" {
		return model.NewNoRefreshTokenError()
	}

	pair, err := s.api.Refresh(ctx, refreshToken)
	if err != nil {
		refreshErr := model.NewRefreshFailedError(err.Error())
		s.notifier.Error(refreshErr.Message)
		return refreshErr
	}

	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return model.NewMalformedCredentialsError()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// 実行中にログアウトや再ログインでトークンが変わっていた場合、
	// 古いリフレッシュ結果を適用しない
	if s.session.RefreshToken != refreshToken {
		s.logger.Warn("discarding stale refresh result")
		return nil
	}

	s.session.AccessToken = pair.AccessToken
	s.session.RefreshToken = pair.RefreshToken
	s.persistLocked()

	s.logger.Info("session tokens refreshed")
	return nil
}

// cacheProfile は取得したプロフィールをキャッシュして永続化する。
// 取得に使用したトークンが現在も有効な場合のみ適用する
// （実行中のログアウト・再ログインとの競合対策）。
func (s *Store) cacheProfile(usedToken string, profile *model.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.AccessToken != usedToken {
		s.logger.Warn("discarding stale profile response")
		return
	}

	s.session.Profile = profile
	s.persistLocked()
}

// persistLocked は現在のセッションをストレージに書き込む。ロック保持中に呼ぶこと。
func (s *Store) persistLocked() {
	data, err := json.Marshal(s.session)
	if err != nil {
		s.logger.Error("failed to encode session",
			slog.String("error", err.Error()),
		)
		return
	}

	if err := s.store.Set(storageKey, data); err != nil {
		s.logger.Error("failed to persist session",
			slog.String("error", err.Error()),
		)
	}
}

// hydrate はストレージからセッションを復元する。
// 不正なデータ、またはトークンの揃っていないデータは破棄して
// 匿名状態で初期化する。復元は生成時に1回だけ行われる。
func (s *Store) hydrate() {
	data, err := s.store.Get(storageKey)
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			s.logger.Warn("failed to read persisted session",
				slog.String("error", err.Error()),
			)
		}
		return
	}

	var restored model.Session
	if err := json.Unmarshal(data, &restored); err != nil {
		s.logger.Warn("discarding malformed persisted session",
			slog.String("error", err.Error()),
		)
		return
	}

	if !restored.Authenticated() {
		s.logger.Warn("discarding persisted session without both tokens")
		return
	}

	s.session = restored
}

// validateNewUser はアカウント作成リクエストのローカル検証を行う。
func validateNewUser(user shopapi.NewUser) error {
	switch {
	case strings.TrimSpace(user.FirstName) == "":
		return model.NewInvalidRequestError("名を入力してください")
	case strings.TrimSpace(user.LastName) == "":
		return model.NewInvalidRequestError("姓を入力してください")
	case len(strings.TrimSpace(user.Username)) < 3:
		return model.NewInvalidRequestError("ユーザー名は3文字以上で入力してください")
	case !strings.Contains(user.Email, "@"):
		return model.NewInvalidRequestError("メールアドレスの形式が不正です")
	case len(user.Password) < 6:
		return model.NewInvalidRequestError("パスワードは6文字以上で入力してください")
	case user.Gender != "male" && user.Gender != "female":
		return model.NewInvalidRequestError("性別を選択してください")
	}
	return nil
}
