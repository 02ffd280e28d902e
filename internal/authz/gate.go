package authz

import (
	"crypto/subtle"
	"encoding/base64"
	"strings"
)

// BasicAuthGate はデプロイ単位の共有シークレットゲート。
// ステージング環境のロックアウト等、ユーザー単位の認可より前段で適用される。
// ゲートが無効、または認証情報が未設定の場合は素通しする（fail open）。
// 設定漏れで全リクエストを締め出さないための仕様であり、fail closedにはしない。
type BasicAuthGate struct {
	enabled  bool
	username string
	password string
	realm    string
}

// NewBasicAuthGate はBasicAuthGateを生成する。
// realmは認証要求時にクライアントへ提示する領域名。
func NewBasicAuthGate(enabled bool, username, password, realm string) *BasicAuthGate {
	return &BasicAuthGate{
		enabled:  enabled,
		username: username,
		password: password,
		realm:    realm,
	}
}

// Active はゲートが実際に機能する状態かどうかを返す。
// 無効化されているか認証情報が不完全な場合はfalse。
func (g *BasicAuthGate) Active() bool {
	return g.enabled && g.username != "" && g.password != ""
}

// Check はAuthorizationヘッダーの値を検証する。
// ゲートが非アクティブの場合は常にtrue。
// 比較はタイミングサイドチャネルを避けるため定数時間で行う。
func (g *BasicAuthGate) Check(authHeader string) bool {
	if !g.Active() {
		return true
	}

	const prefix = "Basic "
	if !strings.HasPrefix(authHeader, prefix) {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(authHeader[len(prefix):])
	if err != nil {
		return false
	}

	user, pass, found := strings.Cut(string(decoded), ":")
	if !found {
		return false
	}

	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(g.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(g.password)) == 1
	return userOK && passOK
}

// Challenge は認証要求時のWWW-Authenticateチャレンジ文字列を返す。
func (g *BasicAuthGate) Challenge() string {
	return `Basic realm="` + g.realm + `"`
}
