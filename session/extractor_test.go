package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_NoWallet(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"bare callback", "miladycity://auth"},
		{"provider error", "miladycity://auth?error=user_cancelled"},
		{"empty wallet", "miladycity://auth?wallet=&tokenId=77"},
		{"selection without wallet", "miladycity://auth?playerId=5&playerName=Bob&model=%2Fassets%2Fbob.glb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.url)
			assert.False(t, got.Success)
			assert.Empty(t, got.Wallet)
			assert.Equal(t, SelectionEmpty, got.Selection.Kind())
			assert.False(t, got.Selection.IsResolvable())
		})
	}
}

func TestExtract_TokenBased(t *testing.T) {
	got := Extract("miladycity://auth?wallet=0xABC&tokenId=77")
	want := Result{Success: true, Wallet: "0xABC", Selection: TokenSelection("77")}
	assert.Equal(t, want, got)
	assert.True(t, got.Selection.IsTokenBased())
	assert.True(t, got.Selection.IsResolvable())
}

func TestExtract_TokenWinsOverDirect(t *testing.T) {
	got := Extract("miladycity://auth?wallet=0xABC&tokenId=77&playerId=5&model=%2Fm.glb")
	assert.Equal(t, SelectionToken, got.Selection.Kind())
	assert.Empty(t, got.Selection.ModelURL)
}

func TestExtract_DirectModel(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want AvatarSelection
	}{
		{
			name: "full",
			url:  "miladycity://auth?wallet=0xABC&playerId=5&playerName=Bob&model=%2Fassets%2Fbob.glb",
			want: DirectSelection(5, "Bob", "/assets/bob.glb"),
		},
		{
			name: "bad player id defaults to zero",
			url:  "miladycity://auth?wallet=0xABC&playerId=five&playerName=Bob&model=%2Fm.glb",
			want: DirectSelection(0, "Bob", "/m.glb"),
		},
		{
			name: "no selection params",
			url:  "miladycity://auth?wallet=0xABC",
			want: DirectSelection(0, "", ""),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.url)
			assert.True(t, got.Success)
			assert.Equal(t, "0xABC", got.Wallet)
			assert.Equal(t, tt.want, got.Selection)
		})
	}
}

func TestExtract_Idempotent(t *testing.T) {
	urls := []string{
		"miladycity://auth?wallet=0xABC&tokenId=77",
		"miladycity://auth?wallet=0xABC&playerId=5&playerName=Bob&model=%2Fassets%2Fbob.glb",
		"miladycity://auth?error=denied",
	}
	for _, u := range urls {
		assert.Equal(t, Extract(u), Extract(u), "url=%s", u)
	}
}

func TestResult_IsEVMWallet(t *testing.T) {
	tests := []struct {
		name   string
		wallet string
		want   bool
	}{
		{"checksummed address", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", true},
		{"short opaque id", "0xABC", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Result{Wallet: tt.wallet}.IsEVMWallet())
		})
	}
}

func TestAvatarSelection_ZeroValueIsEmpty(t *testing.T) {
	var s AvatarSelection
	assert.Equal(t, SelectionEmpty, s.Kind())
	assert.False(t, s.IsTokenBased())
	assert.False(t, s.IsResolvable())
}
