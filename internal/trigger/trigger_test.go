package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *RedisPublisher) {
	t.Helper()
	mr := miniredis.RunT(t)
	p, err := NewRedisPublisher(RedisOptions{
		URL: fmt.Sprintf("redis://%s", mr.Addr()),
		Key: "test:ids",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return mr, p
}

func TestNewRedisPublisher_Defaults(t *testing.T) {
	mr := miniredis.RunT(t)
	p, err := NewRedisPublisher(RedisOptions{URL: fmt.Sprintf("redis://%s", mr.Addr())})
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, "trihash:identifiers", p.key)
	assert.Equal(t, "trihash:identifiers:events", p.channel)
}

func TestNewRedisPublisher_BadURL(t *testing.T) {
	_, err := NewRedisPublisher(RedisOptions{URL: "not-a-url://x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse Redis URL")
}

func TestNewRedisPublisher_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisPublisher(RedisOptions{URL: fmt.Sprintf("redis://%s", addr)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect")
}

func TestRedisPublisher_PushesIdentifiers(t *testing.T) {
	mr, p := setupRedis(t)
	a := strings.Repeat("A", 48)
	b := strings.Repeat("b", 48)

	err := p.Publish(context.Background(), Event{
		Type:     TypeIdentifiers,
		RecordID: "rec-1",
		Payload:  a + "\n" + b + "\n",
	})
	require.NoError(t, err)

	got, err := mr.List("test:ids")
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, got)
}

func TestRedisPublisher_OtherEventsSkipList(t *testing.T) {
	mr, p := setupRedis(t)

	err := p.Publish(context.Background(), Event{Type: TypeRecordDeleted, RecordID: "rec-1"})
	require.NoError(t, err)
	assert.False(t, mr.Exists("test:ids"))
}

func TestRedisPublisher_AnnouncesOnChannel(t *testing.T) {
	_, p := setupRedis(t)
	sub := p.client.Subscribe(context.Background(), "test:ids:events")
	defer sub.Close()
	_, err := sub.Receive(context.Background())
	require.NoError(t, err)

	ev := Event{Type: TypeFramesReloaded, FramesChecksum: "abc"}
	require.NoError(t, p.Publish(context.Background(), ev))

	msg, err := sub.ReceiveMessage(context.Background())
	require.NoError(t, err)
	var got Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, ev, got)
}

func TestFanout(t *testing.T) {
	var seen []string
	record := func(name string, err error) Publisher {
		return PublisherFunc(func(_ context.Context, ev Event) error {
			seen = append(seen, name+":"+ev.Type)
			return err
		})
	}
	boom := errors.New("boom")

	f := Fanout{record("a", nil), nil, record("b", boom), record("c", nil)}
	err := f.Publish(context.Background(), Event{Type: TypeRecordDeleted})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a:record.deleted", "b:record.deleted", "c:record.deleted"}, seen)
	assert.NoError(t, Fanout{}.Publish(context.Background(), Event{}))
	assert.NoError(t, Nop{}.Publish(context.Background(), Event{}))
}
