// Copyright 2025, the fabdeploy authors.  All rights reserved.

package retry

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestUntilAcceptsEventually(t *testing.T) {
	delay := 1 * time.Millisecond
	tries := 0
	ok, data, err := Until(context.Background(), Acceptor{
		Delay: &delay,
		Accept: func(try int, next time.Duration) (bool, interface{}, error) {
			tries++
			if try < 3 {
				return false, nil, nil
			}
			return true, "done", nil
		},
	})
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "done", data)
	assert.Equal(t, 4, tries)
}

func TestUntilStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	ok, _, err := Until(context.Background(), Acceptor{
		Accept: func(try int, next time.Duration) (bool, interface{}, error) {
			return false, nil, boom
		},
	})
	assert.False(t, ok)
	assert.Equal(t, boom, err)
}

func TestUntilHonorsContext(t *testing.T) {
	delay := 10 * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Millisecond)
	defer cancel()
	ok, _, err := Until(ctx, Acceptor{
		Delay: &delay,
		Accept: func(try int, next time.Duration) (bool, interface{}, error) {
			return false, nil, nil
		},
	})
	assert.NoError(t, err)
	assert.False(t, ok)
}
