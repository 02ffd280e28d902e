// Package session はステートレスな署名付きセッショントークンの発行と検証を提供する。
// トークンはサーバー側に永続化されず、埋め込まれた有効期限とHMAC署名のみで検証する。
package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Codec はセッショントークンのエンコード・デコードを行う。
// 署名シークレットと有効期間は起動時に注入され、以後変更されない。
type Codec struct {
	secret []byte
	maxAge time.Duration
	// now はテストで時刻を固定するためのフック。
	now func() time.Time
}

// NewCodec はCodecを生成する。
// secretはプロセス全体で共有する署名シークレット、maxAgeはトークンの有効期間。
func NewCodec(secret string, maxAge time.Duration) *Codec {
	return &Codec{
		secret: []byte(secret),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Issue は指定ユーザーIDのセッショントークンを発行する。
// トークン形式: base64url(userID|issuedAtMs|expiresAtMs) + "." + base64url(HMAC-SHA256)
func (c *Codec) Issue(userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user ID is required")
	}
	if strings.Contains(userID, "|") {
		return "", fmt.Errorf("user ID must not contain '|'")
	}

	issuedAt := c.now()
	expiresAt := issuedAt.Add(c.maxAge)

	payload := fmt.Sprintf("%s|%d|%d", userID, issuedAt.UnixMilli(), expiresAt.UnixMilli())
	encoded := base64.RawURLEncoding.EncodeToString([]byte(payload))

	return encoded + "." + c.sign(encoded), nil
}

// Verify はトークンを検証し、ユーザーIDを返す。
// 構造不正・署名不一致・期限切れのいずれの場合もok=falseを返し、
// 不正な入力に対してエラーやpanicを発生させない。
func (c *Codec) Verify(token string) (userID string, ok bool) {
	if token == "" {
		return "", false
	}

	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return "", false
	}
	encoded, sig := parts[0], parts[1]

	// 署名検証（定数時間比較）
	expected := c.sign(encoded)
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return "", false
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", false
	}

	fields := strings.Split(string(raw), "|")
	if len(fields) != 3 || fields[0] == "" {
		return "", false
	}

	expiresAtMs, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return "", false
	}

	// 期限切れ判定
	if c.now().UnixMilli() >= expiresAtMs {
		return "", false
	}

	return fields[0], true
}

// sign はペイロードのHMAC-SHA256署名をbase64urlで返す。
func (c *Codec) sign(payload string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
