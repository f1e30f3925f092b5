package session

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// ErrRedirectMalformed marks a provider redirect that carried no wallet.
var ErrRedirectMalformed = errors.New("session: redirect has no wallet parameter")

// Redirect query vocabulary.
const (
	ParamWallet     = "wallet"
	ParamError      = "error"
	ParamTokenID    = "tokenId"
	ParamPlayerID   = "playerId"
	ParamPlayerName = "playerName"
	ParamModel      = "model"
)

// SelectionKind names the AvatarSelection variant.
type SelectionKind string

const (
	SelectionEmpty  SelectionKind = "Empty"
	SelectionToken  SelectionKind = "TokenBased"
	SelectionDirect SelectionKind = "DirectModel"
)

// AvatarSelection is the player's choice of avatar: a registry token, a direct model, or nothing.
// The zero value is the Empty variant.
type AvatarSelection struct {
	kind        SelectionKind
	TokenID     string
	PlayerID    int
	DisplayName string
	ModelURL    string
}

// TokenSelection selects the avatar bound to an owned token.
func TokenSelection(tokenID string) AvatarSelection {
	return AvatarSelection{kind: SelectionToken, TokenID: tokenID}
}

// DirectSelection selects a model by URL for a known player.
func DirectSelection(playerID int, displayName, modelURL string) AvatarSelection {
	return AvatarSelection{kind: SelectionDirect, PlayerID: playerID, DisplayName: displayName, ModelURL: modelURL}
}

// Kind reports the variant; the zero value is SelectionEmpty.
func (s AvatarSelection) Kind() SelectionKind {
	if s.kind == "" {
		return SelectionEmpty
	}
	return s.kind
}

func (s AvatarSelection) IsTokenBased() bool { return s.Kind() == SelectionToken }

// IsResolvable reports whether the selection points at a model, directly or through a token.
func (s AvatarSelection) IsResolvable() bool { return s.ModelURL != "" || s.TokenID != "" }

// Result is what a single provider redirect produced.
type Result struct {
	Success   bool
	Wallet    string
	Selection AvatarSelection
}

// IsEVMWallet reports whether the wallet has the shape of an EVM account address.
// Used for logging only; the wallet is otherwise treated as opaque.
func (r Result) IsEVMWallet() bool {
	return common.IsHexAddress(r.Wallet)
}

func failure() Result {
	return Result{}
}
