package token

// 這個變數會在測試時被覆蓋
var (
	GenerateJWTFunc = GenerateJWT
	ParseJWTFunc    = ParseJWT
)

// GenerateJWTWrapper 讓 `memberUseCase` test mock使用這個包裝函數
func GenerateJWTWrapper(memberID string) (string, error) {
	return GenerateJWTFunc(memberID)
}

// ParseJWTWrapper 讓 `IdentityGuard` test mock使用這個包裝函數
func ParseJWTWrapper(t string) (*Claims, error) {
	return ParseJWTFunc(t)
}
