package auth

import "golang.org/x/crypto/bcrypt"

// PasswordVerifier はパスワードのハッシュ化と照合のインターフェース。
// ハッシュアルゴリズムの選択は差し替え可能にしておく。
type PasswordVerifier interface {
	// Hash は平文パスワードから保存用ハッシュを生成する。
	Hash(plain string) (string, error)
	// Verify は平文パスワードがハッシュと一致するかどうかを返す。
	Verify(plain, hash string) bool
}

// BcryptVerifier はbcryptによるPasswordVerifierの実装。
type BcryptVerifier struct {
	cost int
}

// NewBcryptVerifier はデフォルトコストのBcryptVerifierを生成する。
func NewBcryptVerifier() *BcryptVerifier {
	return &BcryptVerifier{cost: bcrypt.DefaultCost}
}

// Hash は平文パスワードからbcryptハッシュを生成する。
func (v *BcryptVerifier) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), v.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify は平文パスワードがハッシュと一致するかどうかを返す。
func (v *BcryptVerifier) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// compile-time interface check
var _ PasswordVerifier = (*BcryptVerifier)(nil)
