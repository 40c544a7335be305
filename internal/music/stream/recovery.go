package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
)

const maxRecoveryAttempts = 3

// recoveryStream reopens the decoder at the current position when it dies
// mid-track, so a dropped connection does not end the song early.
type recoveryStream struct {
	ctx     context.Context
	url     string
	open    opener
	cur     pcmStream
	read    int64
	retries int
	log     *zap.Logger
}

func newRecoveryStream(ctx context.Context, url string, open opener, log *zap.Logger) (*recoveryStream, error) {
	cur, err := open(ctx, url, 0)
	if err != nil {
		return nil, err
	}
	return &recoveryStream{ctx: ctx, url: url, open: open, cur: cur, log: log}, nil
}

func (rs *recoveryStream) position() time.Duration {
	return time.Duration(rs.read) * time.Second / bytesPerSecond
}

func (rs *recoveryStream) Read(p []byte) (int, error) {
	n, err := rs.cur.Read(p)
	rs.read += int64(n)
	if !errors.Is(err, io.EOF) {
		return n, err
	}

	werr := rs.cur.Wait()
	if werr == nil || rs.ctx.Err() != nil {
		return n, io.EOF
	}
	if rs.retries >= maxRecoveryAttempts {
		return n, werr
	}
	rs.retries++

	seek := rs.position()
	rs.log.Warn("decoder ended prematurely, reopening",
		zap.Int("attempt", rs.retries), zap.Duration("position", seek), zap.Error(werr))

	next, oerr := rs.open(rs.ctx, rs.url, seek)
	if oerr != nil {
		return n, fmt.Errorf("recovery failed: %w", oerr)
	}
	rs.cur = next
	return n, nil
}

func (rs *recoveryStream) Wait() error {
	return rs.cur.Wait()
}
