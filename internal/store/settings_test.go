package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings(t *testing.T) {
	s := newTestStore(t)
	repo := s.Settings()

	type net struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}

	var got net
	assert.ErrorIs(t, repo.Get(SettingNet, &got), ErrNotFound)

	require.NoError(t, repo.Put(SettingNet, net{Width: 6.1, Height: 0.76}))
	require.NoError(t, repo.Get(SettingNet, &got))
	assert.Equal(t, net{Width: 6.1, Height: 0.76}, got)

	require.NoError(t, repo.Put(SettingNet, net{Width: 2, Height: 1}))
	require.NoError(t, repo.Get(SettingNet, &got))
	assert.Equal(t, net{Width: 2, Height: 1}, got)

	var wrong []int
	assert.Error(t, repo.Get(SettingNet, &wrong))
}
