package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arcano/walletlink/internal/provider"
	linkerr "github.com/arcano/walletlink/pkg/errors"
)

func TestSubscription_CloseOnce(t *testing.T) {
	t.Parallel()
	var order []int
	sub := newSubscription()
	sub.add(func() { order = append(order, 1) })
	sub.add(func() { panic("remover threw") })
	sub.add(func() { order = append(order, 3) })

	assert.False(t, sub.Closed())
	sub.Close()
	sub.Close()

	assert.True(t, sub.Closed())
	assert.Equal(t, []int{3, 1}, order)
}

func TestSubscription_AddAfterClose(t *testing.T) {
	t.Parallel()
	sub := newSubscription()
	sub.Close()

	ran := false
	sub.add(func() { ran = true })
	assert.True(t, ran)
}

func TestSubscription_Nil(t *testing.T) {
	t.Parallel()
	var sub *Subscription
	assert.NotPanics(t, sub.Close)
	assert.True(t, sub.Closed())
}

type codedError struct{ code int }

func (e codedError) Error() string  { return fmt.Sprintf("rpc error %d", e.code) }
func (e codedError) ErrorCode() int { return e.code }

func TestMapConnectError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		kind linkerr.Kind
	}{
		{"rejected message", errors.New("User rejected the request."), linkerr.KindUserRejected},
		{"rejected lowercase", errors.New("request rejected by user"), linkerr.KindUserRejected},
		{"code 4001", codedError{code: 4001}, linkerr.KindUserRejected},
		{"other code", codedError{code: -32603}, linkerr.KindConnectionFailed},
		{"not request capable", provider.ErrNotRequestCapable, linkerr.KindNoProviderFound},
		{"deadline", context.DeadlineExceeded, linkerr.KindConnectionFailed},
		{"opaque", errors.New("boom"), linkerr.KindConnectionFailed},
		{"already kinded", linkerr.ErrNoProviderFound, linkerr.KindNoProviderFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := mapConnectError(tt.err)
			assert.Equal(t, tt.kind, linkerr.KindOf(got))
			assert.ErrorIs(t, got, tt.err)
		})
	}
	assert.NoError(t, mapConnectError(nil))
}
