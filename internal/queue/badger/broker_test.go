package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/netopscore/internal/common"
	"github.com/ternarybob/netopscore/internal/interfaces"
	storagebadger "github.com/ternarybob/netopscore/internal/storage/badger"
)

func newTestBroker(t *testing.T, visibility time.Duration, maxReceive int) *Broker {
	t.Helper()
	db, err := storagebadger.NewDB(arbor.NewLogger(), common.BadgerConfig{Path: t.TempDir() + "/badger"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewBroker(db, visibility, maxReceive)
}

func TestSendAndReceive_ReturnsEnqueuedTaskInFIFOOrder(t *testing.T) {
	b := newTestBroker(t, time.Minute, 3)
	ctx := context.Background()

	_, err := b.SendTask(ctx, "ping", map[string]interface{}{"target": "first"})
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = b.SendTask(ctx, "ping", map[string]interface{}{"target": "second"})
	require.NoError(t, err)

	_, _, args, err := b.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first", args["target"])
}

func TestReceive_NoMessageReturnsErrNoTask(t *testing.T) {
	b := newTestBroker(t, time.Minute, 3)
	_, _, _, err := b.Receive(context.Background())
	assert.ErrorIs(t, err, ErrNoTask)
}

func TestReceive_HidesTaskUntilVisibilityExpires(t *testing.T) {
	b := newTestBroker(t, 50*time.Millisecond, 3)
	ctx := context.Background()

	taskID, _, _, err := sendAndReceiveOnce(t, b, ctx)
	require.NoError(t, err)

	_, _, _, err = b.Receive(ctx)
	assert.ErrorIs(t, err, ErrNoTask)

	time.Sleep(100 * time.Millisecond)
	redeliveredID, _, _, err := b.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, taskID, redeliveredID)
}

func sendAndReceiveOnce(t *testing.T, b *Broker, ctx context.Context) (string, string, map[string]interface{}, error) {
	t.Helper()
	_, err := b.SendTask(ctx, "ping", map[string]interface{}{"target": "x"})
	require.NoError(t, err)
	return b.Receive(ctx)
}

func TestComplete_RecordsSuccessState(t *testing.T) {
	b := newTestBroker(t, time.Minute, 3)
	ctx := context.Background()

	taskID, err := b.SendTask(ctx, "ping", nil)
	require.NoError(t, err)

	require.NoError(t, b.Complete(ctx, taskID, true, map[string]interface{}{"ok": true}, ""))

	status, err := b.Inspect(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, interfaces.TaskStateSuccess, status.State)
}

func TestCancel_MarksTaskAsFailure(t *testing.T) {
	b := newTestBroker(t, time.Minute, 3)
	ctx := context.Background()

	taskID, err := b.SendTask(ctx, "ping", nil)
	require.NoError(t, err)
	require.NoError(t, b.Cancel(ctx, taskID))

	status, err := b.Inspect(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, interfaces.TaskStateFailure, status.State)
}
