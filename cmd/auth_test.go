package cmd

import (
	"errors"
	"testing"

	"github.com/stockscan/cli/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type FakeKeyStore struct {
	key       string
	SaveFunc  func(key string) error
	deleteErr error
}

func (f *FakeKeyStore) Load() (string, error) {
	if f.key == "" {
		return "", config.ErrNoKey
	}
	return f.key, nil
}

func (f *FakeKeyStore) Save(key string) error {
	if f.SaveFunc != nil {
		return f.SaveFunc(key)
	}
	f.key = key
	return nil
}

func (f *FakeKeyStore) Delete() error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.key = ""
	return nil
}

func TestAuthSetKey_TrimsAndMasks(t *testing.T) {
	setupStdoutCapture(t)

	store := &FakeKeyStore{}
	a := AuthCmd{store: store}

	err := a.SetKey(SetKeyInput{Key: "  psk-0123456789abcd\n"})
	require.NoError(t, err)
	assert.Equal(t, "psk-0123456789abcd", store.key)

	out := outBuf.String()
	assert.Contains(t, out, "****...abcd")
	assert.NotContains(t, out, "psk-0123456789abcd")
}

func TestAuthSetKey_RejectsEmpty(t *testing.T) {
	setupStdoutCapture(t)

	store := &FakeKeyStore{}
	err := AuthCmd{store: store}.SetKey(SetKeyInput{Key: " \n"})
	require.Error(t, err)
	assert.Empty(t, store.key)
}

func TestAuthSetKey_PropagatesStoreError(t *testing.T) {
	setupStdoutCapture(t)

	store := &FakeKeyStore{SaveFunc: func(string) error { return errors.New("keyring locked") }}
	err := AuthCmd{store: store}.SetKey(SetKeyInput{Key: "secret"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keyring locked")
}

func TestAuthShowKey(t *testing.T) {
	setupStdoutCapture(t)

	a := AuthCmd{store: &FakeKeyStore{}}
	require.NoError(t, a.ShowKey())
	assert.Contains(t, outBuf.String(), "No key stored")

	outBuf.Reset()
	a = AuthCmd{store: &FakeKeyStore{key: "psk-0123456789abcd"}}
	require.NoError(t, a.ShowKey())
	assert.Contains(t, outBuf.String(), "Stored key: ****...abcd")
}

func TestAuthClearKey(t *testing.T) {
	setupStdoutCapture(t)

	store := &FakeKeyStore{key: "secret"}
	require.NoError(t, AuthCmd{store: store}.ClearKey())
	assert.Empty(t, store.key)
	assert.Contains(t, outBuf.String(), "Removed key")

	store = &FakeKeyStore{deleteErr: errors.New("boom")}
	require.Error(t, AuthCmd{store: store}.ClearKey())
}
