package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// tokenLength はトークンのバイト長（256ビットのエントロピー）。
const tokenLength = 32

// NewToken は暗号的に安全なランダムトークンを生成する。
// 32バイトの乱数を16進数文字列（64文字）にエンコードして返す。
// セッション識別子とCSRFトークンの両方で使用する。
func NewToken() (string, error) {
	b := make([]byte, tokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
