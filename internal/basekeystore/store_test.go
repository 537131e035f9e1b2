package basekeystore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/hdvault/internal/hdkeystore"
)

func TestAddAndRetrieveKey(t *testing.T) {
	s := New()
	pub := []byte{0x02, 1, 2, 3}
	priv := []byte{9, 9, 9}

	id := s.Add(pub, priv)

	assert.True(t, s.HaveKey(id))
	got, err := s.GetKey(id)
	require.NoError(t, err)
	assert.Equal(t, priv, got)

	gotPub, err := s.GetPubKey(id)
	require.NoError(t, err)
	assert.Equal(t, pub, gotPub)

	assert.Equal(t, 1, s.Len())
}

func TestGetKeyUnknownID(t *testing.T) {
	s := New()
	var id hdkeystore.KeyID

	assert.False(t, s.HaveKey(id))
	_, err := s.GetKey(id)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrKeyNotFound))
}

func TestWatchOnlyKeyHasNoPrivateMaterial(t *testing.T) {
	s := New()
	pub := []byte{0x02, 4, 5, 6}
	id := s.Add(pub, nil)

	_, err := s.GetKey(id)
	require.Error(t, err)

	gotPub, err := s.GetPubKey(id)
	require.NoError(t, err)
	assert.Equal(t, pub, gotPub)
}

func TestRemoveDeletesEntry(t *testing.T) {
	s := New()
	id := s.Add([]byte{0x02, 1}, []byte{1})
	require.True(t, s.HaveKey(id))

	s.Remove(id)
	assert.False(t, s.HaveKey(id))
	assert.Equal(t, 0, s.Len())
}
