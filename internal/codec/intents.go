package codec

import (
	"encoding/json"

	"partyroom/internal/domain"
)

// JoinIntent is the payload of op JOIN.
type JoinIntent struct {
	Token    string `json:"token"`
	Name     string `json:"name"`
	AvatarID int    `json:"avatarId"`
}

// ReadyIntent is the payload of op READY.
type ReadyIntent struct {
	Ready bool `json:"ready"`
}

// UpdateSettingsIntent is the payload of op UPDATE_SETTINGS.
type UpdateSettingsIntent struct {
	Settings domain.SettingsPatch `json:"settings"`
}

// ActionSwapIntent is the payload of op ACTION_SWAP.
type ActionSwapIntent struct {
	TargetSeat domain.Seat `json:"targetSeat"`
}

// ActionStealCheeseIntent is the payload of op ACTION_STEAL_CHEESE.
type ActionStealCheeseIntent struct {
	TargetSeat domain.Seat `json:"targetSeat"`
}

// DealerSetIntent is the payload of op DEALER_SET. Composition is
// ordered by ascending alive seat.
type DealerSetIntent struct {
	Composition []domain.CardType `json:"composition"`
}

// DealerPreviewIntent is the payload of op DEALER_PREVIEW (client
// direction). CardType is nil to clear a prior preview for that seat.
type DealerPreviewIntent struct {
	Seat     domain.Seat     `json:"seat"`
	CardType *domain.CardType `json:"cardType"`
}

// VoteRematchIntent is the payload of op VOTE_REMATCH.
type VoteRematchIntent struct {
	Vote bool `json:"vote"`
}

// PingIntent is the payload of op PING.
type PingIntent struct {
	T int64 `json:"t"`
}

func decode(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return domain.ErrInvalidMessage
	}
	return nil
}

func DecodeJoin(data []byte) (JoinIntent, error) {
	var in JoinIntent
	err := decode(data, &in)
	return in, err
}

func DecodeReady(data []byte) (ReadyIntent, error) {
	var in ReadyIntent
	err := decode(data, &in)
	return in, err
}

func DecodeUpdateSettings(data []byte) (UpdateSettingsIntent, error) {
	var in UpdateSettingsIntent
	err := decode(data, &in)
	return in, err
}

func DecodeActionSwap(data []byte) (ActionSwapIntent, error) {
	var in ActionSwapIntent
	err := decode(data, &in)
	return in, err
}

func DecodeActionStealCheese(data []byte) (ActionStealCheeseIntent, error) {
	var in ActionStealCheeseIntent
	err := decode(data, &in)
	return in, err
}

func DecodeDealerSet(data []byte) (DealerSetIntent, error) {
	var in DealerSetIntent
	err := decode(data, &in)
	return in, err
}

func DecodeDealerPreview(data []byte) (DealerPreviewIntent, error) {
	var in DealerPreviewIntent
	err := decode(data, &in)
	return in, err
}

func DecodeVoteRematch(data []byte) (VoteRematchIntent, error) {
	var in VoteRematchIntent
	err := decode(data, &in)
	return in, err
}

func DecodePing(data []byte) (PingIntent, error) {
	var in PingIntent
	err := decode(data, &in)
	return in, err
}
