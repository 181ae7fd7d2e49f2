package service

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"

	"clipstream/internal/model"
)

const videoIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const maxVideoIDAttempts = 5

var errVideoIDExhausted = errors.New("could not allocate a unique video id")

// randomVideoID returns an 11-character alphanumeric id.
func randomVideoID() (string, error) {
	buf := make([]byte, model.VideoIDLength)
	max := big.NewInt(int64(len(videoIDAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = videoIDAlphabet[n.Int64()]
	}
	return string(buf), nil
}

type idChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// allocateVideoID draws ids until one is not taken.
func allocateVideoID(ctx context.Context, gen func() (string, error), videos idChecker) (string, error) {
	for i := 0; i < maxVideoIDAttempts; i++ {
		id, err := gen()
		if err != nil {
			return "", err
		}
		taken, err := videos.Exists(ctx, id)
		if err != nil {
			return "", err
		}
		if !taken {
			return id, nil
		}
	}
	return "", errVideoIDExhausted
}
