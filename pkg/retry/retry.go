package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/shouni/go-aiva-kit/pkg/domain"
)

// デフォルトの再試行方針（外部API呼び出し用）
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 2 * time.Second
	DefaultMultiplier  = 2.0
)

// Policy は外部API呼び出しへ一様に適用する指数バックオフ方針です。
// 各APIラッパーが個別にループを持つのではなく、オーケストレーターが
// この1つの方針で全呼び出しを包みます。
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

// DefaultPolicy は推奨デフォルト（3回・2秒起点・倍々）を返します。
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		Multiplier:  DefaultMultiplier,
	}
}

// Do は op を方針に従って再試行します。ValidationError と
// ConfigurationError は再試行しても直らないため即座に打ち切るのだ。
// context のキャンセル・期限切れはバックオフ待機中にも反映されます。
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.Multiplier = p.Multiplier
	b.MaxElapsedTime = 0 // 回数だけで打ち切る

	bo := backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, bo)
}

// Retryable はエラーが再試行対象かどうかを判定します。
func Retryable(err error) bool {
	var valErr *domain.ValidationError
	var cfgErr *domain.ConfigurationError
	var ioErr *domain.IOFailure
	if errors.As(err, &valErr) || errors.As(err, &cfgErr) || errors.As(err, &ioErr) {
		return false
	}
	return true
}
