package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/directive-gate/internal/credentials"
	"github.com/xela07ax/directive-gate/internal/directive"
	"github.com/xela07ax/directive-gate/internal/domain"
	"go.uber.org/zap"
)

type fixture struct {
	store  *directive.Store
	keys   *credentials.MemoryKeys
	log    *MemoryLog
	ledger *Ledger
	pairs  map[string]credentials.KeyPair
}

func newFixture(t *testing.T, actors ...string) *fixture {
	t.Helper()
	f := &fixture{
		store: directive.NewStore(directive.NewMemoryRepository(), zap.NewNop(), directive.Options{}),
		keys:  credentials.NewMemoryKeys(nil),
		log:   NewMemoryLog(),
		pairs: make(map[string]credentials.KeyPair),
	}
	for _, a := range actors {
		kp, err := credentials.GenerateKeyPair()
		require.NoError(t, err)
		f.keys.Put(a, kp.PublicKey)
		f.pairs[a] = kp
	}
	f.ledger = New(f.log, f.store, credentials.NewKeyring(f.keys, zap.NewNop()), zap.NewNop())
	return f
}

func (f *fixture) sign(t *testing.T, actor string, d domain.Directive) string {
	t.Helper()
	sig, err := credentials.Sign(f.pairs[actor].PrivateKey, domain.AckPayload(actor, d))
	require.NoError(t, err)
	return sig
}

func TestLedger_RecordAndLatest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "alice")

	v1, err := f.store.Publish(ctx, "v1")
	require.NoError(t, err)

	latest, err := f.ledger.LatestFor(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, latest)

	ack, err := f.ledger.Record(ctx, "alice", v1.ID, f.sign(t, "alice", v1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), ack.Seq)
	assert.Equal(t, v1.ID, ack.DirectiveID)
	assert.False(t, ack.Timestamp.IsZero())

	v2, err := f.store.Publish(ctx, "v2")
	require.NoError(t, err)
	_, err = f.ledger.Record(ctx, "alice", v2.ID, f.sign(t, "alice", v2))
	require.NoError(t, err)

	latest, err = f.ledger.LatestFor(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, v2.ID, latest.DirectiveID)

	history, err := f.ledger.History(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestLedger_InvalidSignatureNeverAppends(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "alice", "mallory")

	v1, err := f.store.Publish(ctx, "v1")
	require.NoError(t, err)

	// Подпись чужим ключом
	_, err = f.ledger.Record(ctx, "alice", v1.ID, f.sign(t, "mallory", domain.Directive{ID: v1.ID, Digest: v1.Digest}))
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)

	// Подпись над другой версией
	v2, err := f.store.Publish(ctx, "v2")
	require.NoError(t, err)
	_, err = f.ledger.Record(ctx, "alice", v2.ID, f.sign(t, "alice", v1))
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)

	// Участник без ключа
	_, err = f.ledger.Record(ctx, "ghost", v1.ID, f.sign(t, "alice", v1))
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)

	assert.Equal(t, 0, f.log.Len())
}

func TestLedger_UnknownDirective(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "alice")

	_, err := f.ledger.Record(ctx, "alice", 42, "00")
	assert.ErrorIs(t, err, domain.ErrUnknownDirective)
	assert.Equal(t, 0, f.log.Len())
}

func TestLedger_InvalidArguments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, tc := range []struct {
		actor string
		id    int64
		sig   string
	}{
		{"", 1, "00"},
		{"alice", 0, "00"},
		{"alice", 1, ""},
	} {
		_, err := f.ledger.Record(ctx, tc.actor, tc.id, tc.sig)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	}
}

func TestLedger_ReacknowledgeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "alice")
	v1, err := f.store.Publish(ctx, "v1")
	require.NoError(t, err)

	sig := f.sign(t, "alice", v1)
	first, err := f.ledger.Record(ctx, "alice", v1.ID, sig)
	require.NoError(t, err)
	second, err := f.ledger.Record(ctx, "alice", v1.ID, sig)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.log.Len())
}

type failingVerifier struct{}

func (failingVerifier) Verify(context.Context, string, string, []byte) (bool, error) {
	return false, errors.New("key service down")
}

func TestLedger_VerifierFailureIsStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	store := directive.NewStore(directive.NewMemoryRepository(), zap.NewNop(), directive.Options{})
	v1, err := store.Publish(ctx, "v1")
	require.NoError(t, err)

	log := NewMemoryLog()
	l := New(log, store, failingVerifier{}, zap.NewNop())

	_, err = l.Record(ctx, "alice", v1.ID, "00")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Equal(t, 0, log.Len())
}

func TestLedger_ConcurrentRecordsForDifferentActors(t *testing.T) {
	ctx := context.Background()
	actors := make([]string, 16)
	for i := range actors {
		actors[i] = fmt.Sprintf("actor-%d", i)
	}
	f := newFixture(t, actors...)
	v1, err := f.store.Publish(ctx, "v1")
	require.NoError(t, err)

	sigs := make(map[string]string, len(actors))
	for _, a := range actors {
		sigs[a] = f.sign(t, a, v1)
	}

	var wg sync.WaitGroup
	for _, a := range actors {
		wg.Add(1)
		go func(actor string) {
			defer wg.Done()
			_, err := f.ledger.Record(ctx, actor, v1.ID, sigs[actor])
			assert.NoError(t, err)
		}(a)
	}
	wg.Wait()

	assert.Equal(t, len(actors), f.log.Len())
	n, err := f.ledger.CountForDirective(ctx, v1.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(len(actors)), n)

	// Seq уникальны и плотные
	seen := make(map[int64]bool)
	for _, a := range actors {
		h, err := f.ledger.History(ctx, a)
		require.NoError(t, err)
		require.Len(t, h, 1)
		assert.False(t, seen[h[0].Seq])
		seen[h[0].Seq] = true
	}
}
