package session

import (
	"strconv"

	"github.com/rs/zerolog/log"
)

// Extract turns a provider redirect URL into a session Result. It has no side effects
// besides logging, so the same input always yields the same Result.
func Extract(redirectURL string) Result {
	wallet := ExtractParam(redirectURL, ParamWallet)
	if wallet == "" {
		reason := "missing_wallet"
		if HasParam(redirectURL, ParamError) {
			reason = "provider_error"
		}
		log.Error().Str("reason", reason).Msg("session: redirect rejected")
		return failure()
	}

	res := Result{Success: true, Wallet: wallet}
	if tokenID := ExtractParam(redirectURL, ParamTokenID); tokenID != "" {
		res.Selection = TokenSelection(tokenID)
		log.Info().Str("tokenId", tokenID).Msg("session: token-based avatar selected")
	} else {
		playerID := 0
		if raw := ExtractParam(redirectURL, ParamPlayerID); raw != "" {
			if v, err := strconv.Atoi(raw); err == nil {
				playerID = v
			} else {
				log.Debug().Str("playerId", raw).Msg("session: playerId is not an integer; using 0")
			}
		}
		res.Selection = DirectSelection(playerID, ExtractParam(redirectURL, ParamPlayerName), ExtractParam(redirectURL, ParamModel))
		log.Info().Int("playerId", playerID).Str("playerName", res.Selection.DisplayName).Str("model", res.Selection.ModelURL).Msg("session: direct avatar selected")
	}
	log.Info().Str("wallet", wallet).Bool("evmAddress", res.IsEVMWallet()).Msg("session: login succeeded")
	return res
}
