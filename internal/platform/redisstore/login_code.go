package redisstore

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// LoginCodeLength is the number of digits in a login code.
const LoginCodeLength = 6

// MaxCodeAttempts is how many wrong guesses burn a code.
const MaxCodeAttempts = 5

// Login code errors
var (
	ErrCodeNotFound = errors.New("login code not found or expired")
	ErrCodeMismatch = errors.New("login code does not match")
)

// recordAttemptScript counts a wrong guess, keeps the counter bounded by the
// code TTL and burns the code once the limit is reached.
// KEYS[1] code, KEYS[2] attempts; ARGV[1] ttl ms, ARGV[2] max attempts.
var recordAttemptScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[2])
if redis.call("PTTL", KEYS[2]) < 0 then
  redis.call("PEXPIRE", KEYS[2], ARGV[1])
end
if n >= tonumber(ARGV[2]) then
  redis.call("DEL", KEYS[1], KEYS[2])
end
return n
`)

// consumeScript deletes the code and its attempts only if the stored hash
// is still the one that was verified, so a code reissued meanwhile survives.
// KEYS[1] code, KEYS[2] attempts; ARGV[1] verified hash.
var consumeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) ~= ARGV[1] then
  return 0
end
redis.call("DEL", KEYS[1], KEYS[2])
return 1
`)

// LoginCodeStore keeps bcrypt hashes of one-time login codes in Redis.
type LoginCodeStore struct {
	client     redis.UniversalClient
	prefix     string
	ttl        time.Duration
	bcryptCost int
}

// NewLoginCodeStore creates a LoginCodeStore.
func NewLoginCodeStore(client redis.UniversalClient, prefix string, ttl time.Duration, bcryptCost int) *LoginCodeStore {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &LoginCodeStore{
		client:     client,
		prefix:     strings.TrimSuffix(prefix, ":"),
		ttl:        ttl,
		bcryptCost: bcryptCost,
	}
}

// Issue creates a fresh code for email, replacing any previous one, and
// returns it in clear text for mailing.
func (s *LoginCodeStore) Issue(ctx context.Context, email string) (string, error) {
	code, err := randomDigits(LoginCodeLength)
	if err != nil {
		return "", fmt.Errorf("generate login code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash login code: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.codeKey(email), hash, s.ttl)
		pipe.Del(ctx, s.attemptsKey(email))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("store login code: %w", err)
	}
	return code, nil
}

// Verify checks code for email. A matching code is consumed. Wrong codes
// count as attempts and the code is deleted after MaxCodeAttempts.
func (s *LoginCodeStore) Verify(ctx context.Context, email, code string) error {
	hash, err := s.client.Get(ctx, s.codeKey(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCodeNotFound
	}
	if err != nil {
		return fmt.Errorf("load login code: %w", err)
	}

	keys := []string{s.codeKey(email), s.attemptsKey(email)}
	if bcrypt.CompareHashAndPassword(hash, []byte(strings.TrimSpace(code))) != nil {
		err := recordAttemptScript.Run(ctx, s.client, keys, s.ttl.Milliseconds(), MaxCodeAttempts).Err()
		if err != nil {
			return fmt.Errorf("count login code attempts: %w", err)
		}
		return ErrCodeMismatch
	}

	consumed, err := consumeScript.Run(ctx, s.client, keys, hash).Int()
	if err != nil {
		return fmt.Errorf("consume login code: %w", err)
	}
	if consumed == 0 {
		return ErrCodeNotFound
	}
	return nil
}

func (s *LoginCodeStore) codeKey(email string) string {
	return s.prefix + ":login_code:" + strings.ToLower(strings.TrimSpace(email))
}

func (s *LoginCodeStore) attemptsKey(email string) string {
	return s.prefix + ":login_code_attempts:" + strings.ToLower(strings.TrimSpace(email))
}

func randomDigits(n int) (string, error) {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		sb.WriteByte(byte('0' + d.Int64()))
	}
	return sb.String(), nil
}
